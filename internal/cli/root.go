// Package cli implements the chatd command tree.
package cli

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"chatd/internal/config"
	"chatd/internal/logging"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	configPath string
	logLevel   string
	logFormat  string
}

// NewRootCmd constructs the chatd command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "chatd",
		Short:         "Streaming chat generation over a single shared model",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("CHATD_CONFIG"), "Config file (.yaml, .json or .toml; defaults CHATD_CONFIG)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug|info|warn|error (overrides config)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: console|json (overrides config)")

	root.AddCommand(
		newServeCmd(opts),
		newModelsCmd(opts),
		newHistoryCmd(opts),
		newChatCmd(),
	)
	return root
}

// loadConfig reads the config file (if any) and applies the persistent flag
// overrides. Defaults are filled in but not validated.
func (o *options) loadConfig() (config.Config, error) {
	var cfg config.Config
	if o.configPath != "" {
		c, err := config.Load(o.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		cfg.LogFormat = o.logFormat
	}
	if v := os.Getenv("CHATD_ADDR"); v != "" && cfg.Addr == "" {
		cfg.Addr = v
	}
	if v := os.Getenv("CHATD_CORS_ORIGINS"); v != "" && len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = splitCSV(v)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

func newLogger(cfg config.Config) zerolog.Logger {
	return logging.New(cfg.LogLevel, cfg.LogFormat)
}

// splitCSV splits a comma-separated list, trimming blanks and dropping empty items.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
