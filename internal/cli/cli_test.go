package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"chatd/internal/config"
)

func TestSplitCSV(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"a,,c", []string{"a", "c"}},
		{"", nil},
	}
	for _, c := range cases {
		got := splitCSV(c.in)
		if len(got) != len(c.want) {
			t.Fatalf("%q -> %v, want %v", c.in, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("%q -> %v, want %v", c.in, got, c.want)
			}
		}
	}
}

func TestReadSSE(t *testing.T) {
	in := ": keep-alive\n\n" +
		"event: message\ndata: hel\n\n" +
		"event: message\ndata: a\ndata: b\n\n" +
		"event: error\ndata: {\"error\":\"boom\"}\n\n" +
		"data:[DONE]\n\n"
	type ev struct{ event, data string }
	var got []ev
	err := readSSE(strings.NewReader(in), func(event, data string) error {
		got = append(got, ev{event, data})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []ev{{"message", "hel"}, {"message", "a\nb"}, {"error", `{"error":"boom"}`}, {"", "[DONE]"}}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReadSSEStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := readSSE(strings.NewReader("data: 1\n\ndata: 2\n\n"), func(string, string) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestServeFlagsApplyOnlyChanged(t *testing.T) {
	f := &serveFlags{}
	fl := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	f.register(fl)
	if err := fl.Parse([]string{"--addr", ":9999", "--temperature", "0", "--cors-origins", "http://a,http://b"}); err != nil {
		t.Fatal(err)
	}
	cfg := config.Config{ModelsDir: "/from/file"}
	f.apply(fl, &cfg)
	if cfg.Addr != ":9999" {
		t.Fatalf("addr=%q", cfg.Addr)
	}
	if cfg.Temperature == nil || *cfg.Temperature != 0 {
		t.Fatalf("temperature=%v", cfg.Temperature)
	}
	if cfg.ModelsDir != "/from/file" {
		t.Fatalf("unset flag overrode file value: %q", cfg.ModelsDir)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("cors origins=%v", cfg.CORSOrigins)
	}
}

func TestLoadConfigFileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "chatd.yaml")
	if err := os.WriteFile(p, []byte("addr: \":7000\"\nlog_level: warn\nqueue_depth: 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	opts := &options{configPath: p, logLevel: "debug"}
	cfg, err := opts.loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":7000" || cfg.QueueDepth != 4 {
		t.Fatalf("file values lost: %+v", cfg)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("flag should override file, got %q", cfg.LogLevel)
	}
	if cfg.MaxStepsCeiling != config.DefaultStepCeiling {
		t.Fatalf("defaults not applied: %d", cfg.MaxStepsCeiling)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &options{configPath: filepath.Join(t.TempDir(), "nope.yaml")}
	if _, err := opts.loadConfig(); err == nil {
		t.Fatal("expected error")
	}
}

func TestModelsCmd(t *testing.T) {
	dir := t.TempDir()
	writeBundle(t, dir, "toy-a")
	writeBundle(t, dir, "toy-b")

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"models", "--models-dir", dir})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	s := out.String()
	if !strings.Contains(s, "toy-a") || !strings.Contains(s, "toy-b") || !strings.Contains(s, "byte") {
		t.Fatalf("output=%q", s)
	}
}

func TestModelsCmdEmptyDir(t *testing.T) {
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"models", "--models-dir", t.TempDir()})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "no model bundles") {
		t.Fatalf("output=%q", out.String())
	}
}
