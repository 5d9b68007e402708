package httpapi

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"chatd/internal/generate"
	"chatd/pkg/types"
)

type mockService struct {
	models []types.Model
	status types.StatusResponse
	ready  bool

	// chunks are queued on every stream; hold keeps the stream open afterwards.
	chunks    []generate.Chunk
	hold      bool
	streamErr error

	completeResp types.ChatResponse
	completeErr  error
	cancelN      int

	history    []types.HistorySession
	historyErr error
	export     []byte
	exportErr  error

	mu        sync.Mutex
	lastReq   types.ChatRequest
	sink      *generate.ChanSink
	cancelled []string
}

func (m *mockService) ListModels() []types.Model    { return append([]types.Model(nil), m.models...) }
func (m *mockService) Status() types.StatusResponse { return m.status }
func (m *mockService) Ready() bool                  { return m.ready }

func (m *mockService) Stream(ctx context.Context, req types.ChatRequest) (generate.Stream, error) {
	if m.streamErr != nil {
		return nil, m.streamErr
	}
	s := generate.NewChanSink(len(m.chunks) + 1)
	for _, c := range m.chunks {
		_ = s.Push(context.Background(), c)
	}
	if !m.hold {
		s.Finish()
	}
	m.mu.Lock()
	m.lastReq = req
	m.sink = s
	m.mu.Unlock()
	return s, nil
}

func (m *mockService) Complete(ctx context.Context, req types.ChatRequest) (types.ChatResponse, error) {
	m.mu.Lock()
	m.lastReq = req
	m.mu.Unlock()
	if m.completeErr != nil {
		return types.ChatResponse{}, m.completeErr
	}
	return m.completeResp, nil
}

func (m *mockService) Cancel(sessionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, sessionID)
	return m.cancelN
}

func (m *mockService) History(ctx context.Context) ([]types.HistorySession, error) {
	return m.history, m.historyErr
}

func (m *mockService) ExportHistory(ctx context.Context, w io.Writer) error {
	if m.exportErr != nil {
		return m.exportErr
	}
	_, err := w.Write(m.export)
	return err
}

func (m *mockService) request() types.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastReq
}

func (m *mockService) currentSink() *generate.ChanSink {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sink
}

// waitClosed waits until the handler closed the last stream.
func (m *mockService) waitClosed(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s := m.currentSink(); s != nil {
			select {
			case <-s.Done():
				return
			case <-time.After(10 * time.Millisecond):
			}
			continue
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("stream was not closed")
}

func textChunks(parts ...string) []generate.Chunk {
	out := make([]generate.Chunk, 0, len(parts)+1)
	for _, p := range parts {
		out = append(out, generate.Chunk{Kind: generate.ChunkText, Text: p})
	}
	return append(out, generate.Chunk{Kind: generate.ChunkDone})
}

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string   { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

// waitClosedAfter waits for the stream to exist, runs disconnect, then waits
// for the handler to close the stream.
func (m *mockService) waitClosedAfter(t *testing.T, disconnect func()) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for m.currentSink() == nil {
		if time.Now().After(deadline) {
			t.Fatal("stream never started")
		}
		time.Sleep(5 * time.Millisecond)
	}
	select {
	case <-m.currentSink().Done():
		t.Fatal("stream closed before disconnect")
	default:
	}
	disconnect()
	m.waitClosed(t)
}
