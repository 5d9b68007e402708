package toy

import (
	"fmt"
	"path/filepath"

	"chatd/internal/common/fsutil"
	"chatd/internal/generate"
	"chatd/internal/registry"
	"chatd/internal/tokenizer"
)

const defaultHidden = 32

// Bundle is a loaded model bundle ready to serve.
type Bundle struct {
	Config    registry.BundleConfig
	Engine    generate.Engine
	Tokenizer generate.Tokenizer
	// EOSToken is the bundle's end-of-sequence string, or "" to use the
	// server default.
	EOSToken string
}

type sizedTokenizer interface {
	generate.Tokenizer
	VocabSize() int
}

// LoadBundle reads dir/config.json and, when present, dir/tokenizer.json. A
// bundle without tokenizer.json uses the byte-level tokenizer.
func LoadBundle(dir string) (*Bundle, error) {
	cfg, err := registry.ReadConfig(dir)
	if err != nil {
		return nil, fmt.Errorf("load bundle: %w", err)
	}

	var tok sizedTokenizer = tokenizer.NewByte()
	if p := filepath.Join(dir, registry.TokenizerFile); fsutil.PathExists(p) {
		v, err := tokenizer.LoadVocab(p)
		if err != nil {
			return nil, fmt.Errorf("load bundle: %w", err)
		}
		tok = v
	}

	if cfg.VocabSize == 0 {
		cfg.VocabSize = tok.VocabSize()
	}
	if cfg.VocabSize < tok.VocabSize() {
		return nil, fmt.Errorf("load bundle: vocab_size %d smaller than tokenizer (%d)", cfg.VocabSize, tok.VocabSize())
	}
	if cfg.HiddenSize <= 0 {
		cfg.HiddenSize = defaultHidden
	}

	lm := NewLM(cfg.VocabSize, cfg.HiddenSize, cfg.Seed)
	eos := cfg.EOSToken
	if eos == "" {
		eos = tokenizer.EOSToken
	}
	if id, ok := tok.TokenID(eos); ok {
		lm.SetBias(id, cfg.EOSBias)
	}
	return &Bundle{
		Config:    cfg,
		Engine:    generate.WithCache(lm),
		Tokenizer: tok,
		EOSToken:  cfg.EOSToken,
	}, nil
}
