package manager

import (
	"context"
	"time"

	"chatd/internal/generate"
)

// persistTurn stores a finished run. It is called exactly once per run that
// did not fail, after the run has returned and released the model. Failures
// are logged and counted but never reach the stream, which is already closed.
func (m *Manager) persistTurn(sessionID, prompt string, res generate.Result) {
	if m.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.persistTimeout)
	defer cancel()

	start := time.Now()
	err := m.store.AppendTurn(ctx, sessionID, prompt, res.Text)
	if err != nil {
		m.turnsFailed.Add(1)
		turnsFailedTotal.Inc()
		m.setLastError(err)
		m.log.Error().Err(err).Str("session_id", sessionID).Msg("failed to save chat turn")
		m.pub.Publish(Event{Name: EventTurnFailed, SessionID: sessionID, Fields: map[string]any{"error": err.Error()}})
		return
	}
	m.turnsSaved.Add(1)
	turnsSavedTotal.Inc()
	m.log.Debug().Str("session_id", sessionID).Dur("dur", time.Since(start)).Msg("chat turn saved")
	m.pub.Publish(Event{Name: EventTurnSaved, SessionID: sessionID, Fields: map[string]any{
		"stop_reason": string(res.StopReason),
	}})
}
