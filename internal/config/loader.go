package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Defaults used by ApplyDefaults.
const (
	DefaultAddr         = ":8080"
	DefaultModelsDir    = "~/.chatd/models"
	DefaultDBPath       = "~/.chatd/chat.db"
	DefaultStepCeiling  = 256
	DefaultMaxTokens    = 64
	DefaultTemperature  = 0.7
	DefaultTopP         = 0.9
	DefaultSeed         = 42
	DefaultEOSToken     = "</s>"
	DefaultQueueDepth   = 32
	DefaultMaxWait      = "30s"
	DefaultSinkCapacity = 16
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "console"
	DefaultMaxBodyBytes = 1 << 20
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	// Model selects a bundle by id; empty picks the first one found.
	Model  string `json:"model" yaml:"model" toml:"model"`
	DBPath string `json:"db_path" yaml:"db_path" toml:"db_path"`

	MaxStepsCeiling  int `json:"max_steps_ceiling" yaml:"max_steps_ceiling" toml:"max_steps_ceiling"`
	DefaultMaxTokens int `json:"default_max_tokens" yaml:"default_max_tokens" toml:"default_max_tokens"`
	// Temperature is a pointer because 0 (greedy) is a valid choice.
	Temperature *float64 `json:"temperature" yaml:"temperature" toml:"temperature"`
	TopP        float64  `json:"top_p" yaml:"top_p" toml:"top_p"`
	TopK        int      `json:"top_k" yaml:"top_k" toml:"top_k"`
	Seed        int64    `json:"seed" yaml:"seed" toml:"seed"`
	EOSToken    string   `json:"eos_token" yaml:"eos_token" toml:"eos_token"`

	QueueDepth   int    `json:"queue_depth" yaml:"queue_depth" toml:"queue_depth"`
	MaxWait      string `json:"max_wait" yaml:"max_wait" toml:"max_wait"`
	SinkCapacity int    `json:"sink_capacity" yaml:"sink_capacity" toml:"sink_capacity"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	CORSEnabled  bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins  []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	CORSMethods  []string `json:"cors_methods" yaml:"cors_methods" toml:"cors_methods"`
	CORSHeaders  []string `json:"cors_headers" yaml:"cors_headers" toml:"cors_headers"`
	MaxBodyBytes int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
}

// Default returns a Config with every field set.
func Default() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills unspecified fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ModelsDir == "" {
		c.ModelsDir = DefaultModelsDir
	}
	if c.DBPath == "" {
		c.DBPath = DefaultDBPath
	}
	if c.MaxStepsCeiling <= 0 {
		c.MaxStepsCeiling = DefaultStepCeiling
	}
	if c.DefaultMaxTokens <= 0 {
		c.DefaultMaxTokens = DefaultMaxTokens
	}
	if c.Temperature == nil {
		t := DefaultTemperature
		c.Temperature = &t
	}
	if c.TopP <= 0 {
		c.TopP = DefaultTopP
	}
	if c.Seed == 0 {
		c.Seed = DefaultSeed
	}
	if c.EOSToken == "" {
		c.EOSToken = DefaultEOSToken
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = DefaultQueueDepth
	}
	if c.MaxWait == "" {
		c.MaxWait = DefaultMaxWait
	}
	if c.SinkCapacity <= 0 {
		c.SinkCapacity = DefaultSinkCapacity
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
}

// MaxWaitDuration parses MaxWait. "0" and negative durations disable the bound.
func (c Config) MaxWaitDuration() (time.Duration, error) {
	if c.MaxWait == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.MaxWait)
	if err != nil {
		return 0, fmt.Errorf("max_wait: %w", err)
	}
	if d == 0 {
		d = -1
	}
	return d, nil
}

// Validate reports settings that cannot be served.
func (c Config) Validate() error {
	if _, err := c.MaxWaitDuration(); err != nil {
		return err
	}
	if c.DefaultMaxTokens > c.MaxStepsCeiling && c.MaxStepsCeiling > 0 {
		return fmt.Errorf("default_max_tokens %d exceeds max_steps_ceiling %d", c.DefaultMaxTokens, c.MaxStepsCeiling)
	}
	if c.TopP < 0 || c.TopP > 1 {
		return fmt.Errorf("top_p %v outside [0,1]", c.TopP)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "console", "json":
	default:
		return fmt.Errorf("unsupported log_format: %s", c.LogFormat)
	}
	return nil
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}
