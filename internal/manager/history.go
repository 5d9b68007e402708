package manager

import (
	"context"
	"io"
	"time"

	"chatd/pkg/types"
)

// History returns every stored session, newest first.
func (m *Manager) History(ctx context.Context) ([]types.HistorySession, error) {
	if m.store == nil {
		return nil, ErrDependencyUnavailable("history store not configured")
	}
	sessions, err := m.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.HistorySession, 0, len(sessions))
	for _, s := range sessions {
		hs := types.HistorySession{
			SessionID: s.ID,
			CreatedAt: s.CreatedAt.UTC().Format(time.RFC3339),
			Messages:  make([]types.HistoryMessage, 0, len(s.Messages)),
		}
		for _, msg := range s.Messages {
			hs.Messages = append(hs.Messages, types.HistoryMessage{
				Role:      msg.Role,
				Content:   msg.Content,
				CreatedAt: msg.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		out = append(out, hs)
	}
	return out, nil
}

// ExportHistory writes every stored message to w as an Arrow IPC stream.
func (m *Manager) ExportHistory(ctx context.Context, w io.Writer) error {
	if m.store == nil {
		return ErrDependencyUnavailable("history store not configured")
	}
	return m.store.Export(ctx, w)
}
