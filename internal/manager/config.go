package manager

import (
	"time"

	"github.com/rs/zerolog"

	"chatd/internal/generate"
	"chatd/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxQueueDepth  = 32
	defaultMaxWait        = 30 * time.Second
	defaultSinkCapacity   = 16
	defaultPersistTimeout = 10 * time.Second
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	// Models is the registry shown by ListModels; Model is the one served.
	Models []types.Model
	Model  types.Model

	// Engine and Tokenizer serve Model. A nil Engine leaves the manager in
	// StateError with LoadError as the reason.
	Engine    generate.Engine
	Tokenizer generate.Tokenizer
	LoadError string

	// Store persists finished turns. Nil disables history.
	Store Store

	Sampling         generate.SamplingConfig
	MaxStepsCeiling  int
	DefaultMaxTokens int
	EOSToken         string

	MaxQueueDepth int
	// MaxWait bounds how long a run waits for the model. Negative disables it.
	MaxWait        time.Duration
	SinkCapacity   int
	PersistTimeout time.Duration

	Logger    zerolog.Logger
	Publisher EventPublisher
}

// New constructs a Manager from cfg.
func New(cfg ManagerConfig) (*Manager, error) {
	if cfg.MaxQueueDepth <= 0 {
		cfg.MaxQueueDepth = defaultMaxQueueDepth
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = defaultMaxWait
	}
	if cfg.SinkCapacity <= 0 {
		cfg.SinkCapacity = defaultSinkCapacity
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = defaultPersistTimeout
	}
	if cfg.MaxStepsCeiling <= 0 {
		cfg.MaxStepsCeiling = generate.DefaultStepCeiling
	}
	if cfg.DefaultMaxTokens <= 0 {
		cfg.DefaultMaxTokens = generate.DefaultMaxSteps
	}
	if cfg.DefaultMaxTokens > cfg.MaxStepsCeiling {
		return nil, ErrInvalidRequest("default max tokens exceeds the step ceiling")
	}
	if cfg.Publisher == nil {
		cfg.Publisher = noopPublisher{}
	}

	m := newManager(cfg)
	if cfg.Engine == nil || cfg.Tokenizer == nil {
		m.state = StateError
		m.err = cfg.LoadError
		if m.err == "" {
			m.err = "no model loaded"
		}
		m.log.Error().Str("reason", m.err).Msg("manager started without a model")
		return m, nil
	}

	m.handle = generate.NewHandle(cfg.Engine, generate.HandleConfig{
		MaxQueueDepth: cfg.MaxQueueDepth,
		MaxWait:       cfg.MaxWait,
	})
	m.orch = generate.NewOrchestrator(m.handle, generate.Config{
		Tokenizer:       cfg.Tokenizer,
		Sampling:        cfg.Sampling,
		DefaultMaxSteps: cfg.DefaultMaxTokens,
		StepCeiling:     cfg.MaxStepsCeiling,
		EOSToken:        cfg.EOSToken,
		Logger:          cfg.Logger,
	})
	m.state = StateReady
	m.log.Info().Str("model", cfg.Model.ID).Int("max_steps", cfg.MaxStepsCeiling).Msg("model ready")
	return m, nil
}
