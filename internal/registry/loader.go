package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	json "github.com/goccy/go-json"

	"chatd/internal/common/fsutil"
	"chatd/pkg/types"
)

// File names that make a directory a model bundle.
const (
	ConfigFile    = "config.json"
	TokenizerFile = "tokenizer.json"
)

// ErrNotFound is returned by Find when no bundle has the requested id.
var ErrNotFound = errors.New("model bundle not found")

// BundleConfig is the contents of a bundle's config.json.
type BundleConfig struct {
	Name       string  `json:"name"`
	Family     string  `json:"family"`
	VocabSize  int     `json:"vocab_size"`
	HiddenSize int     `json:"hidden_size"`
	Seed       int64   `json:"seed"`
	EOSToken   string  `json:"eos_token"`
	EOSBias    float32 `json:"eos_bias"`
}

// ReadConfig parses dir/config.json.
func ReadConfig(dir string) (BundleConfig, error) {
	var cfg BundleConfig
	data, err := os.ReadFile(filepath.Join(dir, ConfigFile))
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", filepath.Join(dir, ConfigFile), err)
	}
	return cfg, nil
}

// LoadDir scans dir for bundle subdirectories (those holding config.json).
// ID is the directory name and Path its absolute path. Entries whose
// config.json does not parse are skipped.
func LoadDir(dir string) ([]types.Model, error) {
	abs, err := fsutil.Resolve(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		p := filepath.Join(abs, e.Name())
		cfg, err := ReadConfig(p)
		if err != nil {
			continue
		}
		m := types.Model{ID: e.Name(), Name: cfg.Name, Path: p, Family: cfg.Family, Tokenizer: "byte"}
		if m.Name == "" {
			m.Name = m.ID
		}
		if fsutil.PathExists(filepath.Join(p, TokenizerFile)) {
			m.Tokenizer = "vocab"
		}
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// Find returns the bundle with the given id. An empty id selects the first
// bundle.
func Find(models []types.Model, id string) (types.Model, error) {
	for _, m := range models {
		if id == "" || m.ID == id {
			return m, nil
		}
	}
	if id == "" {
		return types.Model{}, ErrNotFound
	}
	return types.Model{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}
