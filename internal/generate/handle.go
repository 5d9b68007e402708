package generate

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Defaults applied when the corresponding HandleConfig fields are unset.
const (
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 30 * time.Second
)

// HandleConfig bounds how many runs may wait for the shared engine and for how long.
type HandleConfig struct {
	// MaxQueueDepth counts the holder plus every waiter.
	MaxQueueDepth int
	// MaxWait bounds a single acquisition. Negative disables the bound.
	MaxWait time.Duration
}

// Handle is the single process-wide owner of an Engine. Exactly one run may
// hold it at a time; other callers block (no spinning) until it is released.
type Handle struct {
	engine  Engine
	gen     *semaphore.Weighted // weight 1: single in-flight run
	queue   *semaphore.Weighted // holder + waiters
	depth   int
	maxWait time.Duration

	waiting  atomic.Int64
	inflight atomic.Int64
}

// NewHandle wraps engine for exclusive use.
func NewHandle(engine Engine, cfg HandleConfig) *Handle {
	if cfg.MaxQueueDepth <= 0 {
		cfg.MaxQueueDepth = defaultMaxQueueDepth
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = defaultMaxWait
	}
	return &Handle{
		engine:  engine,
		gen:     semaphore.NewWeighted(1),
		queue:   semaphore.NewWeighted(int64(cfg.MaxQueueDepth)),
		depth:   cfg.MaxQueueDepth,
		maxWait: cfg.MaxWait,
	}
}

// Acquire reserves a queue slot and then the engine itself. The returned
// release func is idempotent and must be called on every exit path.
//
// A caller whose ctx ends while waiting gets ctx.Err(); running out of queue
// slots or waiting longer than MaxWait is a KindLock error.
func (h *Handle) Acquire(ctx context.Context) (Engine, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, func() {}, err
	}
	waitCtx := ctx
	if h.maxWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, h.maxWait)
		defer cancel()
	}

	if !h.queue.TryAcquire(1) {
		return nil, func() {}, NewError(KindLock, "acquire model handle",
			fmt.Errorf("queue full (%d)", h.depth))
	}
	h.waiting.Add(1)
	err := h.gen.Acquire(waitCtx, 1)
	h.waiting.Add(-1)
	if err != nil {
		h.queue.Release(1)
		if ctx.Err() != nil {
			return nil, func() {}, ctx.Err()
		}
		return nil, func() {}, NewError(KindLock, "acquire model handle",
			fmt.Errorf("timed out after %s", h.maxWait))
	}
	h.inflight.Add(1)

	var once sync.Once
	release := func() {
		once.Do(func() {
			h.inflight.Add(-1)
			h.gen.Release(1)
			h.queue.Release(1)
		})
	}
	return h.engine, release, nil
}

// Inflight is 1 while a run holds the engine.
func (h *Handle) Inflight() int { return int(h.inflight.Load()) }

// Waiting is the number of runs blocked in Acquire.
func (h *Handle) Waiting() int { return int(h.waiting.Load()) }

// MaxQueueDepth reports the configured waiting room size.
func (h *Handle) MaxQueueDepth() int { return h.depth }
