package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"chatd/internal/config"
	"chatd/internal/httpapi"
)

const shutdownTimeout = 15 * time.Second

type serveFlags struct {
	addr        string
	modelsDir   string
	model       string
	dbPath      string
	ceiling     int
	maxTokens   int
	temperature float64
	topP        float64
	seed        int64
	queueDepth  int
	maxWait     string
	cors        bool
	corsOrigins []string
	chatTimeout time.Duration
}

func (f *serveFlags) register(fl *pflag.FlagSet) {
	fl.StringVar(&f.addr, "addr", config.DefaultAddr, "HTTP listen address (defaults CHATD_ADDR or :8080)")
	fl.StringVar(&f.modelsDir, "models-dir", config.DefaultModelsDir, "Directory of model bundles")
	fl.StringVar(&f.model, "model", "", "Bundle id to serve (default: first found)")
	fl.StringVar(&f.dbPath, "db", config.DefaultDBPath, "SQLite history database")
	fl.IntVar(&f.ceiling, "max-steps-ceiling", config.DefaultStepCeiling, "Hard ceiling on generated tokens per turn")
	fl.IntVar(&f.maxTokens, "default-max-tokens", config.DefaultMaxTokens, "Step budget when a request gives none")
	fl.Float64Var(&f.temperature, "temperature", config.DefaultTemperature, "Sampling temperature (0 = greedy)")
	fl.Float64Var(&f.topP, "top-p", config.DefaultTopP, "Nucleus sampling mass")
	fl.Int64Var(&f.seed, "seed", config.DefaultSeed, "Sampler seed")
	fl.IntVar(&f.queueDepth, "queue-depth", config.DefaultQueueDepth, "Runs allowed to hold or wait for the model")
	fl.StringVar(&f.maxWait, "max-wait", config.DefaultMaxWait, "Longest wait for the model (0 = unbounded)")
	fl.BoolVar(&f.cors, "cors", false, "Enable CORS")
	fl.StringSliceVar(&f.corsOrigins, "cors-origins", nil, "Allowed CORS origins (comma separated)")
	fl.DurationVar(&f.chatTimeout, "chat-timeout", 0, "Timeout for POST /chat (0 disables)")
}

// apply copies every flag the user set onto cfg.
func (f *serveFlags) apply(fl *pflag.FlagSet, cfg *config.Config) {
	changed := fl.Changed
	if changed("addr") {
		cfg.Addr = f.addr
	}
	if changed("models-dir") {
		cfg.ModelsDir = f.modelsDir
	}
	if changed("model") {
		cfg.Model = f.model
	}
	if changed("db") {
		cfg.DBPath = f.dbPath
	}
	if changed("max-steps-ceiling") {
		cfg.MaxStepsCeiling = f.ceiling
	}
	if changed("default-max-tokens") {
		cfg.DefaultMaxTokens = f.maxTokens
	}
	if changed("temperature") {
		t := f.temperature
		cfg.Temperature = &t
	}
	if changed("top-p") {
		cfg.TopP = f.topP
	}
	if changed("seed") {
		cfg.Seed = f.seed
	}
	if changed("queue-depth") {
		cfg.QueueDepth = f.queueDepth
	}
	if changed("max-wait") {
		cfg.MaxWait = f.maxWait
	}
	if changed("cors") {
		cfg.CORSEnabled = f.cors
	}
	if changed("cors-origins") {
		cfg.CORSOrigins = f.corsOrigins
	}
}

func newServeCmd(opts *options) *cobra.Command {
	f := &serveFlags{}
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the HTTP server",
		Example: "  chatd serve --models-dir ~/.chatd/models --addr :8080",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			f.apply(cmd.Flags(), &cfg)
			httpapi.SetChatTimeout(f.chatTimeout)
			return serve(cmd.Context(), cfg)
		},
	}
	f.register(cmd.Flags())
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	log := newLogger(cfg)
	app, err := NewApp(cfg, log)
	if err != nil {
		return err
	}

	baseCtx, cancelBase := context.WithCancel(ctx)
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	srv := &http.Server{
		Addr:              app.Config.Addr,
		Handler:           app.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", app.Config.Addr).Str("models_dir", app.Config.ModelsDir).Str("db", app.Config.DBPath).Msg("chatd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)
	select {
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err, ok := <-errCh:
		if ok {
			_ = app.Manager.Shutdown(context.Background())
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// Streams watch the base context; cancel it so Shutdown does not wait on them.
	cancelBase()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
	if err := app.Manager.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("manager shutdown error")
		return err
	}
	log.Info().Msg("bye")
	return nil
}
