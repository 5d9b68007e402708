package e2e

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"chatd/internal/generate"
	"chatd/internal/history"
	"chatd/internal/httpapi"
	"chatd/internal/manager"
	"chatd/internal/registry"
	"chatd/internal/toy"
	"chatd/pkg/types"
)

// wordVocab is an ASCII-only tokenizer.json so every generated text is plain
// ASCII and compares equal across SSE, JSON and SQLite.
const wordVocab = `{
  "model": {
    "type": "WordLevel",
    "unk_token": "<unk>",
    "vocab": {
      "<unk>": 0, "<s>": 1, "</s>": 2,
      "▁the": 3, "▁fox": 4, "▁ran": 5, "▁far": 6, "▁a": 7, "▁big": 8,
      "▁red": 9, "▁dog": 10, "▁and": 11, "▁sat": 12, ".": 13, "▁on": 14,
      "▁mat": 15, "▁hello": 16, "▁world": 17, "!": 18
    }
  },
  "added_tokens": [
    {"id": 0, "content": "<unk>", "special": true},
    {"id": 1, "content": "<s>", "special": true},
    {"id": 2, "content": "</s>", "special": true}
  ]
}`

// createTempModelsDir writes one toy bundle per name and returns the directory.
func createTempModelsDir(t *testing.T, config string, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.MkdirAll(p, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(p, registry.ConfigFile), []byte(config), 0o644); err != nil {
			t.Fatalf("write bundle %s: %v", p, err)
		}
		if err := os.WriteFile(filepath.Join(p, registry.TokenizerFile), []byte(wordVocab), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// slowEngine delays every forward pass so tests can act mid-run.
type slowEngine struct {
	inner generate.Engine
	delay time.Duration
}

func (s slowEngine) Forward(tokens []int, pos int) ([]float32, error) {
	time.Sleep(s.delay)
	return s.inner.Forward(tokens, pos)
}

func (s slowEngine) ResetState() {
	if r, ok := s.inner.(generate.Resetter); ok {
		r.ResetState()
	}
}

type serverOpts struct {
	bundle string
	delay  time.Duration
	mutate func(*manager.ManagerConfig)
}

const (
	// chattyBundle never emits EOS, so runs end on their step budget.
	chattyBundle = `{"name":"chatty","hidden_size":16,"seed":3,"eos_bias":-1000}`
	quickBundle  = `{"name":"quick","hidden_size":16,"seed":7}`
)

func newServer(t *testing.T, o serverOpts) (*httptest.Server, *manager.Manager) {
	t.Helper()
	if o.bundle == "" {
		o.bundle = quickBundle
	}
	dir := createTempModelsDir(t, o.bundle, "toy")
	models, err := registry.LoadDir(dir)
	if err != nil {
		t.Fatalf("scan models: %v", err)
	}
	b, err := toy.LoadBundle(models[0].Path)
	if err != nil {
		t.Fatalf("load bundle: %v", err)
	}
	var engine generate.Engine = b.Engine
	if o.delay > 0 {
		engine = slowEngine{inner: b.Engine, delay: o.delay}
	}
	store, err := history.Open(filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	cfg := manager.ManagerConfig{
		Models:           models,
		Model:            models[0],
		Engine:           engine,
		Tokenizer:        b.Tokenizer,
		Store:            store,
		Sampling:         generate.SamplingConfig{Temperature: 0, Seed: 42},
		MaxStepsCeiling:  256,
		DefaultMaxTokens: 16,
		Logger:           zerolog.Nop(),
	}
	if o.mutate != nil {
		o.mutate(&cfg)
	}
	mgr, err := manager.New(cfg)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	httpapi.SetLogger(zerolog.Nop())
	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mgr.Shutdown(ctx)
	})
	return srv, mgr
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

func httpPostJSON(t *testing.T, url string, v any) (*http.Response, []byte) {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

type sseEvent struct {
	event string
	data  string
}

// openStream starts GET /chat/stream and returns the event channel. The
// channel closes when the response ends.
func openStream(t *testing.T, ctx context.Context, base string, req types.ChatRequest) <-chan sseEvent {
	t.Helper()
	q := url.Values{"session_id": {req.SessionID}, "prompt": {req.Prompt}}
	if req.MaxTokens > 0 {
		q.Set("max_tokens", strconv.Itoa(req.MaxTokens))
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/chat/stream?"+q.Encode(), nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(hreq)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		t.Fatalf("stream status=%d", resp.StatusCode)
	}
	out := make(chan sseEvent, 64)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		sc := bufio.NewScanner(resp.Body)
		var ev sseEvent
		var data []string
		for sc.Scan() {
			line := sc.Text()
			switch {
			case line == "":
				if ev.event != "" {
					ev.data = strings.Join(data, "\n")
					out <- ev
				}
				ev, data = sseEvent{}, nil
			case strings.HasPrefix(line, "event: "):
				ev.event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = append(data, strings.TrimPrefix(line, "data: "))
			}
		}
	}()
	return out
}

// collect drains events until the completion marker and returns the text and
// any error event payloads.
func collect(t *testing.T, events <-chan sseEvent) (string, []string) {
	t.Helper()
	var text strings.Builder
	var errs []string
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("stream ended without [DONE]; text so far %q", text.String())
			}
			switch {
			case ev.event == "error":
				errs = append(errs, ev.data)
			case ev.data == "[DONE]":
				return text.String(), errs
			default:
				text.WriteString(ev.data)
			}
		case <-timeout:
			t.Fatal("timed out waiting for [DONE]")
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func fetchHistory(t *testing.T, base string) []types.HistorySession {
	t.Helper()
	resp, body := httpGet(t, base+"/history")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history status=%d body=%s", resp.StatusCode, body)
	}
	var h types.HistoryResponse
	if err := json.Unmarshal(body, &h); err != nil {
		t.Fatalf("history json: %v", err)
	}
	return h.Sessions
}

func findSession(sessions []types.HistorySession, id string) (types.HistorySession, bool) {
	for _, s := range sessions {
		if s.SessionID == id {
			return s, true
		}
	}
	return types.HistorySession{}, false
}
