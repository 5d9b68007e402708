package generate

import (
	"context"
	"sync"
)

// ChunkKind distinguishes text from the terminal markers.
type ChunkKind int

const (
	ChunkText ChunkKind = iota
	// ChunkError carries a generation failure message. A ChunkDone follows it.
	ChunkError
	// ChunkDone is the completion marker, always the last chunk of a run.
	ChunkDone
)

func (k ChunkKind) String() string {
	switch k {
	case ChunkText:
		return "text"
	case ChunkError:
		return "error"
	case ChunkDone:
		return "done"
	default:
		return "unknown"
	}
}

// Chunk is one item delivered to a stream consumer.
type Chunk struct {
	Kind ChunkKind
	Text string

	// Err is the failure behind a ChunkError, for transports that map it to
	// a status code.
	Err error
}

// Sink is the producer side of a stream.
type Sink interface {
	// Push delivers c in order, blocking while the sink is full. It returns
	// ErrSinkClosed once the consumer has closed the stream, or ctx.Err()
	// if ctx ends first.
	Push(ctx context.Context, c Chunk) error
}

// Stream is the consumer side of a stream.
type Stream interface {
	// Chunks yields chunks in generation order. The channel is closed after
	// the producer finished.
	Chunks() <-chan Chunk
	// Close tells the producer nobody is listening anymore. Safe to call
	// more than once.
	Close()
}

// ChanSink is a bounded, ordered channel implementing both Sink and Stream.
type ChanSink struct {
	ch         chan Chunk
	closed     chan struct{}
	closeOnce  sync.Once
	finishOnce sync.Once
}

// NewChanSink returns a sink buffering up to capacity chunks.
func NewChanSink(capacity int) *ChanSink {
	if capacity < 0 {
		capacity = 0
	}
	return &ChanSink{
		ch:     make(chan Chunk, capacity),
		closed: make(chan struct{}),
	}
}

func (s *ChanSink) Push(ctx context.Context, c Chunk) error {
	// Checked first so a closed sink never accepts into free buffer space.
	select {
	case <-s.closed:
		return ErrSinkClosed
	default:
	}
	// Free buffer space always wins over a finished ctx, so a cancelled run
	// never loses a chunk it could have delivered.
	select {
	case s.ch <- c:
		return nil
	default:
	}
	select {
	case s.ch <- c:
		return nil
	case <-s.closed:
		return ErrSinkClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ChanSink) Chunks() <-chan Chunk { return s.ch }

func (s *ChanSink) Close() { s.closeOnce.Do(func() { close(s.closed) }) }

// Done is closed when the consumer closed the stream.
func (s *ChanSink) Done() <-chan struct{} { return s.closed }

// Finish closes the chunk channel. Only the producer calls it, after its
// last Push.
func (s *ChanSink) Finish() { s.finishOnce.Do(func() { close(s.ch) }) }
