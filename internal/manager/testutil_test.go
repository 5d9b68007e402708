package manager

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chatd/internal/generate"
	"chatd/internal/history"
	"chatd/internal/tokenizer"
	"chatd/pkg/types"
)

// echoEngine emits the bytes of reply one per step, then EOS (id 2 in
// tokenizer.Byte). gate, when set, blocks every forward pass until it yields.
type echoEngine struct {
	reply string
	gate  chan struct{}
	fail  bool

	mu    sync.Mutex
	steps int
}

func (e *echoEngine) Forward(tokens []int, pos int) ([]float32, error) {
	if e.gate != nil {
		<-e.gate
	}
	if e.fail {
		return nil, errors.New("device lost")
	}
	e.mu.Lock()
	n := e.steps
	e.steps++
	e.mu.Unlock()

	logits := make([]float32, tokenizer.NewByte().VocabSize())
	next := 2
	if n < len(e.reply) {
		next = int(e.reply[n]) + 3
	}
	logits[next] = 10
	return logits, nil
}

func (e *echoEngine) ResetState() {
	e.mu.Lock()
	e.steps = 0
	e.mu.Unlock()
}

// fakeStore counts AppendTurn calls per session.
type fakeStore struct {
	mu      sync.Mutex
	turns   map[string][]string
	calls   int
	failErr error
	closed  bool
}

func newFakeStore() *fakeStore { return &fakeStore{turns: make(map[string][]string)} }

func (s *fakeStore) AppendTurn(ctx context.Context, sessionID, prompt, reply string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failErr != nil {
		return s.failErr
	}
	s.turns[sessionID] = append(s.turns[sessionID], prompt, reply)
	return nil
}

func (s *fakeStore) LoadAll(ctx context.Context) ([]history.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []history.Session
	for id, msgs := range s.turns {
		hs := history.Session{ID: id, CreatedAt: time.Unix(0, 0)}
		for i, c := range msgs {
			role := history.RoleUser
			if i%2 == 1 {
				role = history.RoleAssistant
			}
			hs.Messages = append(hs.Messages, history.Message{Role: role, Content: c, CreatedAt: time.Unix(0, 0)})
		}
		out = append(out, hs)
	}
	return out, nil
}

func (s *fakeStore) Export(ctx context.Context, w io.Writer) error {
	_, err := io.WriteString(w, "arrow")
	return err
}

func (s *fakeStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestManager(t *testing.T, e generate.Engine, store Store, mutate ...func(*ManagerConfig)) (*Manager, *MemoryPublisher) {
	t.Helper()
	pub := NewMemoryPublisher()
	cfg := ManagerConfig{
		Models:    []types.Model{{ID: "toy", Name: "Toy"}},
		Model:     types.Model{ID: "toy"},
		Engine:    e,
		Tokenizer: tokenizer.NewByte(),
		Store:     store,
		Sampling:  generate.SamplingConfig{Temperature: 0},
		MaxWait:   2 * time.Second,
		Logger:    zerolog.Nop(),
		Publisher: pub,
	}
	for _, f := range mutate {
		f(&cfg)
	}
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
	})
	return m, pub
}

// drain collects every chunk of st.
func drain(t *testing.T, st generate.Stream) []generate.Chunk {
	t.Helper()
	var out []generate.Chunk
	timeout := time.After(3 * time.Second)
	for {
		select {
		case c, ok := <-st.Chunks():
			if !ok {
				return out
			}
			out = append(out, c)
		case <-timeout:
			t.Fatalf("stream did not finish")
		}
	}
}

// waitFor polls cond until it holds.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}
