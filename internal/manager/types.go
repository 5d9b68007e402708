package manager

import (
	"context"
	"io"

	"chatd/internal/history"
)

// State represents the lifecycle state of the manager.
type State string

const (
	StateReady        State = "ready"
	StateLoading      State = "loading"
	StateError        State = "error"
	StateShuttingDown State = "shutting_down"
)

// Store is the durable history backing the manager.
type Store interface {
	AppendTurn(ctx context.Context, sessionID, prompt, reply string) error
	LoadAll(ctx context.Context) ([]history.Session, error)
	Export(ctx context.Context, w io.Writer) error
	Close() error
}
