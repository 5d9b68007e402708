package manager

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"chatd/internal/generate"
	"chatd/pkg/types"
)

type Manager struct {
	mu     sync.RWMutex
	state  State
	err    string
	model  types.Model
	models []types.Model

	handle *generate.Handle
	orch   *generate.Orchestrator
	store  Store
	pub    EventPublisher
	log    zerolog.Logger

	ceiling        int
	sinkCap        int
	persistTimeout time.Duration

	// baseCtx parents every worker context; Shutdown cancels it.
	baseCtx context.Context
	stop    context.CancelFunc
	runs    map[string]map[uint64]context.CancelFunc
	nextRun uint64
	wg      sync.WaitGroup
	closing bool

	startTime   time.Time
	turnsSaved  atomic.Uint64
	turnsFailed atomic.Uint64
}

func newManager(cfg ManagerConfig) *Manager {
	ctx, stop := context.WithCancel(context.Background())
	return &Manager{
		state:          StateLoading,
		model:          cfg.Model,
		models:         cfg.Models,
		store:          cfg.Store,
		pub:            cfg.Publisher,
		log:            cfg.Logger,
		ceiling:        cfg.MaxStepsCeiling,
		sinkCap:        cfg.SinkCapacity,
		persistTimeout: cfg.PersistTimeout,
		baseCtx:        ctx,
		stop:           stop,
		runs:           make(map[string]map[uint64]context.CancelFunc),
		startTime:      time.Now(),
	}
}

func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateReady && m.orch != nil
}

func (m *Manager) ListModels() []types.Model {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// return a shallow copy to avoid external mutation
	out := make([]types.Model, len(m.models))
	copy(out, m.models)
	return out
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.err = err.Error()
	m.mu.Unlock()
}

// Shutdown stops accepting runs, cancels the in-flight ones, waits for their
// turns to be persisted and closes the store. It returns ctx.Err() if ctx
// ends first; the store is left open in that case.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		return nil
	}
	m.closing = true
	m.state = StateShuttingDown
	m.mu.Unlock()

	m.stop()
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if m.store != nil {
		if err := m.store.Close(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	m.log.Info().Msg("manager stopped")
	return nil
}
