package cli

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"chatd/internal/common/fsutil"
	"chatd/internal/config"
	"chatd/internal/generate"
	"chatd/internal/history"
	"chatd/internal/httpapi"
	"chatd/internal/manager"
	"chatd/internal/registry"
	"chatd/internal/toy"
)

// App is a fully wired server: model bundle, history store, manager and router.
type App struct {
	Config  config.Config
	Manager *manager.Manager
	Handler http.Handler
}

// NewApp builds the server described by cfg. A model that fails to load
// leaves the manager in the error state so the process still serves
// /healthz, /status and history; a history database that cannot be opened
// is fatal.
func NewApp(cfg config.Config, log zerolog.Logger) (*App, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	maxWait, err := cfg.MaxWaitDuration()
	if err != nil {
		return nil, err
	}

	mcfg := manager.ManagerConfig{
		Sampling: generate.SamplingConfig{
			Temperature: float32(*cfg.Temperature),
			TopP:        float32(cfg.TopP),
			TopK:        cfg.TopK,
			Seed:        cfg.Seed,
		},
		MaxStepsCeiling:  cfg.MaxStepsCeiling,
		DefaultMaxTokens: cfg.DefaultMaxTokens,
		EOSToken:         cfg.EOSToken,
		MaxQueueDepth:    cfg.QueueDepth,
		MaxWait:          maxWait,
		SinkCapacity:     cfg.SinkCapacity,
		Logger:           log.With().Str("component", "manager").Logger(),
		Publisher:        manager.LogPublisher{Log: log},
	}
	if err := loadModel(cfg, &mcfg); err != nil {
		log.Error().Err(err).Str("models_dir", cfg.ModelsDir).Msg("model not loaded")
		mcfg.LoadError = err.Error()
	} else {
		log.Info().Str("model", mcfg.Model.ID).Str("tokenizer", mcfg.Model.Tokenizer).Str("eos", mcfg.EOSToken).Msg("model loaded")
	}

	store, err := history.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	mcfg.Store = store

	mgr, err := manager.New(mcfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, cfg.CORSMethods, cfg.CORSHeaders)
	return &App{Config: cfg, Manager: mgr, Handler: httpapi.NewMux(mgr)}, nil
}

// loadModel scans the models directory and loads the selected bundle into mcfg.
func loadModel(cfg config.Config, mcfg *manager.ManagerConfig) error {
	dir, err := fsutil.ExpandHome(cfg.ModelsDir)
	if err != nil {
		return err
	}
	models, err := registry.LoadDir(dir)
	if err != nil {
		return err
	}
	mcfg.Models = models
	m, err := registry.Find(models, cfg.Model)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) && cfg.Model == "" {
			return fmt.Errorf("no model bundles in %s", dir)
		}
		return err
	}
	b, err := toy.LoadBundle(m.Path)
	if err != nil {
		return err
	}
	mcfg.Model = m
	mcfg.Engine = b.Engine
	mcfg.Tokenizer = b.Tokenizer
	// A bundle that names its own EOS token overrides the server default.
	if b.Config.EOSToken != "" {
		mcfg.EOSToken = b.EOSToken
	}
	return nil
}
