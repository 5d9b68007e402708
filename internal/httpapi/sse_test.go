package httpapi

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"chatd/internal/generate"
	"chatd/internal/manager"
	"chatd/pkg/types"
)

func TestWriteSSESplitsLines(t *testing.T) {
	var buf bytes.Buffer
	if err := writeSSE(&buf, "message", "a\nb\r\nc"); err != nil {
		t.Fatal(err)
	}
	want := "event: message\ndata: a\ndata: b\ndata: c\n\n"
	if buf.String() != want {
		t.Fatalf("got %q want %q", buf.String(), want)
	}
}

func TestChatStreamSSE(t *testing.T) {
	svc := &mockService{chunks: textChunks("hello", " wo\nrld")}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/chat/stream?session_id=s1&prompt=hi&max_tokens=12", nil)
	NewMux(svc).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type=%s", ct)
	}
	want := "event: message\ndata: hello\n\n" +
		"event: message\ndata:  wo\ndata: rld\n\n" +
		"event: message\ndata: [DONE]\n\n"
	if w.Body.String() != want {
		t.Fatalf("body=%q want %q", w.Body.String(), want)
	}
	if got := svc.request(); got.SessionID != "s1" || got.Prompt != "hi" || got.MaxTokens != 12 {
		t.Fatalf("request=%+v", got)
	}
}

func TestChatStreamErrorEvent(t *testing.T) {
	svc := &mockService{chunks: []generate.Chunk{
		{Kind: generate.ChunkText, Text: "par"},
		{Kind: generate.ChunkError, Text: "inference failed"},
		{Kind: generate.ChunkDone},
	}}
	w := httptest.NewRecorder()
	NewMux(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chat/stream?session_id=s1", nil))

	events := strings.Split(strings.TrimSuffix(w.Body.String(), "\n\n"), "\n\n")
	if len(events) != 3 {
		t.Fatalf("events=%q", events)
	}
	if !strings.HasPrefix(events[1], "event: error\ndata: ") {
		t.Fatalf("error event=%q", events[1])
	}
	var payload types.ErrorResponse
	if err := json.Unmarshal([]byte(strings.TrimPrefix(events[1], "event: error\ndata: ")), &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.Error != "inference failed" || payload.Code != http.StatusInternalServerError {
		t.Fatalf("payload=%+v", payload)
	}
	if events[2] != "event: message\ndata: [DONE]" {
		t.Fatalf("last event=%q", events[2])
	}
}

func TestChatStreamBusyModelErrorIs429(t *testing.T) {
	busy := generate.NewError(generate.KindLock, "acquire model", errors.New("queue full"))
	svc := &mockService{chunks: []generate.Chunk{
		{Kind: generate.ChunkError, Text: busy.Error(), Err: busy},
		{Kind: generate.ChunkDone},
	}}
	before := testutil.ToFloat64(backpressureTotal.WithLabelValues("model_busy"))
	w := httptest.NewRecorder()
	NewMux(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chat/stream?session_id=s1", nil))

	events := strings.Split(strings.TrimSuffix(w.Body.String(), "\n\n"), "\n\n")
	if len(events) != 2 || !strings.HasPrefix(events[0], "event: error\ndata: ") {
		t.Fatalf("events=%q", events)
	}
	var payload types.ErrorResponse
	if err := json.Unmarshal([]byte(strings.TrimPrefix(events[0], "event: error\ndata: ")), &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.Code != http.StatusTooManyRequests {
		t.Fatalf("payload=%+v", payload)
	}
	if after := testutil.ToFloat64(backpressureTotal.WithLabelValues("model_busy")); after != before+1 {
		t.Fatalf("backpressure %v -> %v", before, after)
	}
}

func TestChatStreamBadMaxTokens(t *testing.T) {
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chat/stream?session_id=s&max_tokens=lots", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestChatStreamRejected(t *testing.T) {
	svc := &mockService{streamErr: manager.ErrInvalidRequest("session_id is required")}
	w := httptest.NewRecorder()
	NewMux(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chat/stream", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Header().Get("Content-Type"), "application/json") {
		t.Fatalf("expected JSON error before the stream starts")
	}
}

func TestChatStreamClientGoneClosesStream(t *testing.T) {
	svc := &mockService{chunks: []generate.Chunk{{Kind: generate.ChunkText, Text: "a"}}, hold: true}
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/chat/stream?session_id=s1", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		NewMux(svc).ServeHTTP(w, req)
	}()
	svc.waitClosedAfter(t, cancel)
	<-done
}
