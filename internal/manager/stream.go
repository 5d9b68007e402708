package manager

import (
	"context"
	"strings"

	"chatd/internal/generate"
	"chatd/pkg/types"
)

// run is the stream handed to one caller. done is closed once res and err
// are final, before the chunk channel closes.
type run struct {
	*generate.ChanSink
	done chan struct{}
	res  generate.Result
	err  error
}

// Stream validates req and starts a generation run on a worker goroutine.
// The returned stream yields the run's chunks; closing it early tells the
// worker the client went away. ctx only bounds admission: the worker
// outlives it.
func (m *Manager) Stream(ctx context.Context, req types.ChatRequest) (generate.Stream, error) {
	r, err := m.start(ctx, req)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (m *Manager) start(ctx context.Context, req types.ChatRequest) (*run, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, ErrInvalidRequest("session_id is required")
	}
	if req.MaxTokens < 0 {
		return nil, ErrInvalidRequest("max_tokens must not be negative")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		return nil, ErrDependencyUnavailable("server is shutting down")
	}
	if m.orch == nil {
		msg := m.err
		m.mu.Unlock()
		return nil, ErrDependencyUnavailable("model unavailable: " + msg)
	}
	runCtx, cancel := context.WithCancel(m.baseCtx)
	id := m.registerLocked(req.SessionID, cancel)
	m.wg.Add(1)
	m.mu.Unlock()

	r := &run{ChanSink: generate.NewChanSink(m.sinkCap), done: make(chan struct{})}
	go m.work(runCtx, cancel, id, req, r)
	return r, nil
}

// work drives one run: generate, publish the result, then persist the turn.
func (m *Manager) work(ctx context.Context, cancel context.CancelFunc, id uint64, req types.ChatRequest, r *run) {
	defer m.wg.Done()
	defer cancel()

	activeRuns.Inc()
	m.pub.Publish(Event{Name: EventRunStarted, SessionID: req.SessionID})
	res, err := m.orch.Run(ctx, generate.Session{ID: req.SessionID, Prompt: req.Prompt, MaxSteps: req.MaxTokens}, r)
	activeRuns.Dec()
	m.unregister(req.SessionID, id)

	r.res, r.err = res, err
	close(r.done)
	r.Finish()

	observeRun(res, err)
	fields := map[string]any{
		"stop_reason": string(res.StopReason),
		"steps":       res.Steps,
		"chunks":      res.Chunks,
	}
	if err != nil {
		fields["error"] = err.Error()
		m.setLastError(err)
	}
	m.pub.Publish(Event{Name: EventRunFinished, SessionID: req.SessionID, Fields: fields})

	if err != nil {
		return
	}
	m.persistTurn(req.SessionID, req.Prompt, res)
}

// Complete runs req to completion and returns the whole text. If ctx ends
// first the stream is closed, which the run treats as a disconnect.
func (m *Manager) Complete(ctx context.Context, req types.ChatRequest) (types.ChatResponse, error) {
	r, err := m.start(ctx, req)
	if err != nil {
		return types.ChatResponse{}, err
	}
	defer r.Close()

	chunks := r.Chunks()
	for chunks != nil {
		select {
		case _, ok := <-chunks:
			if !ok {
				chunks = nil
			}
		case <-ctx.Done():
			return types.ChatResponse{}, ctx.Err()
		}
	}
	<-r.done
	if r.err != nil {
		return types.ChatResponse{}, r.err
	}
	return types.ChatResponse{
		SessionID:  req.SessionID,
		Response:   r.res.Text,
		StopReason: string(r.res.StopReason),
		Tokens:     r.res.CompletionTokens,
	}, nil
}
