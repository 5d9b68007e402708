package generate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// Special ids used by byteTok. Byte b encodes to b+byteOffset.
const (
	tokUnk     = 0
	tokBOS     = 1
	tokEOS     = 2
	byteOffset = 3
)

// byteTok is a byte-level tokenizer that withholds a trailing partial rune.
type byteTok struct {
	noEOS     bool
	encodeErr error
	decodeErr error
}

func (t *byteTok) Encode(text string) ([]int, error) {
	if t.encodeErr != nil {
		return nil, t.encodeErr
	}
	out := make([]int, 0, len(text))
	for i := 0; i < len(text); i++ {
		out = append(out, int(text[i])+byteOffset)
	}
	return out, nil
}

func (t *byteTok) Decode(tokens []int) (string, error) {
	if t.decodeErr != nil {
		return "", t.decodeErr
	}
	b := make([]byte, 0, len(tokens))
	for _, id := range tokens {
		if id < byteOffset {
			continue
		}
		b = append(b, byte(id-byteOffset))
	}
	// drop an incomplete trailing rune
	for n := 1; n <= 3 && n <= len(b); n++ {
		if utf8.RuneStart(b[len(b)-n]) {
			if !utf8.FullRune(b[len(b)-n:]) {
				b = b[:len(b)-n]
			}
			break
		}
	}
	return string(b), nil
}

func (t *byteTok) TokenID(s string) (int, bool) {
	switch s {
	case "</s>":
		if t.noEOS {
			return 0, false
		}
		return tokEOS, true
	case "<s>":
		return tokBOS, true
	}
	return 0, false
}

// scriptOf maps text to the token ids the engine should emit, followed by extra ids.
func scriptOf(text string, extra ...int) []int {
	out := make([]int, 0, len(text)+len(extra))
	for i := 0; i < len(text); i++ {
		out = append(out, int(text[i])+byteOffset)
	}
	return append(out, extra...)
}

type forwardCall struct {
	window int
	pos    int
}

// scriptEngine emits one-hot logits following script, then repeats filler.
type scriptEngine struct {
	mu      sync.Mutex
	script  []int
	filler  int
	calls   []forwardCall
	failAt  int // 1-based call index that fails; 0 never
	resets  int
	active  int
	overlap bool
	delay   time.Duration

	// onForward runs inside the nth call (1-based), before logits return.
	onForward func(n int)
}

const vocabSize = 256 + byteOffset

func (e *scriptEngine) Forward(tokens []int, pos int) ([]float32, error) {
	e.mu.Lock()
	e.active++
	if e.active > 1 {
		e.overlap = true
	}
	e.calls = append(e.calls, forwardCall{window: len(tokens), pos: pos})
	n := len(e.calls)
	e.mu.Unlock()

	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	if e.onForward != nil {
		e.onForward(n)
	}
	defer func() {
		e.mu.Lock()
		e.active--
		e.mu.Unlock()
	}()

	if e.failAt > 0 && n == e.failAt {
		return nil, errors.New("bad tensor shape")
	}
	next := e.filler
	if n-1 < len(e.script) {
		next = e.script[n-1]
	}
	logits := make([]float32, vocabSize)
	logits[next] = 10
	return logits, nil
}

func (e *scriptEngine) ResetState() {
	e.mu.Lock()
	e.resets++
	e.mu.Unlock()
}

func (e *scriptEngine) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

// recordSink records every push. closeAt makes the Nth push attempt (1-based)
// and every later one report ErrSinkClosed; onPush runs after a text push is accepted.
type recordSink struct {
	mu       sync.Mutex
	chunks   []Chunk
	attempts int
	closeAt  int
	onPush   func(n int)
}

func (s *recordSink) Push(ctx context.Context, c Chunk) error {
	s.mu.Lock()
	s.attempts++
	if s.closeAt > 0 && s.attempts >= s.closeAt {
		s.mu.Unlock()
		return ErrSinkClosed
	}
	s.chunks = append(s.chunks, c)
	n := len(s.chunks)
	hook := s.onPush
	s.mu.Unlock()
	if hook != nil && c.Kind == ChunkText {
		hook(n)
	}
	return nil
}

func (s *recordSink) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.chunks {
		if c.Kind == ChunkText {
			out = append(out, c.Text)
		}
	}
	return out
}

func (s *recordSink) kinds() []ChunkKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChunkKind, len(s.chunks))
	for i, c := range s.chunks {
		out[i] = c.Kind
	}
	return out
}

func greedy() SamplingConfig { return SamplingConfig{Temperature: 0, Seed: 1} }

func newTestOrchestrator(t *testing.T, e Engine, tok Tokenizer) (*Orchestrator, *Handle) {
	t.Helper()
	h := NewHandle(e, HandleConfig{MaxQueueDepth: 4, MaxWait: 2 * time.Second})
	o := NewOrchestrator(h, Config{
		Tokenizer: tok,
		Sampling:  greedy(),
		Logger:    zerolog.Nop(),
	})
	return o, h
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

// assertReleased fails if the handle cannot be acquired immediately.
func assertReleased(t *testing.T, h *Handle) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, release, err := h.Acquire(ctx)
	if err != nil {
		t.Fatalf("handle still held: %v", err)
	}
	release()
}
