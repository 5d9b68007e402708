package generate

import "testing"

func TestTextDiff(t *testing.T) {
	var d textDiff
	steps := []struct {
		full string
		want string
	}{
		{"He", "He"},
		{"He", ""},
		{"Hell", "ll"},
		{"Hello", "o"},
		{"Hel", ""}, // a shrinking decode never re-emits
		{"Hello, w", ", w"},
	}
	var joined string
	for i, s := range steps {
		got := d.next(s.full)
		if got != s.want {
			t.Fatalf("step %d: next(%q) = %q, want %q", i, s.full, got, s.want)
		}
		if got != "" {
			joined += got
			d.commit(len(s.full))
		}
	}
	if joined != "Hello, w" {
		t.Fatalf("joined = %q", joined)
	}
}

func TestTextDiff_CommitNeverDecreases(t *testing.T) {
	var d textDiff
	d.commit(5)
	d.commit(2)
	if d.watermark != 5 {
		t.Fatalf("watermark = %d", d.watermark)
	}
}
