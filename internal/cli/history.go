package cli

import (
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"chatd/internal/history"
)

func newHistoryCmd(opts *options) *cobra.Command {
	var (
		dbPath string
		export string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:     "history",
		Short:   "Print or export the stored chat history",
		Example: "  chatd history\n  chatd history --export history.arrow",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("db") {
				cfg.DBPath = dbPath
			}
			store, err := history.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if export != "" {
				f, err := os.Create(export)
				if err != nil {
					return err
				}
				if err := store.Export(cmd.Context(), f); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", export)
				return nil
			}

			sessions, err := store.LoadAll(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(sessions)
			}
			for _, s := range sessions {
				fmt.Fprintf(out, "== %s (%s)\n", s.ID, s.CreatedAt.Local().Format(time.DateTime))
				for _, m := range s.Messages {
					fmt.Fprintf(out, "[%s] %s\n", m.Role, m.Content)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite history database (overrides config)")
	cmd.Flags().StringVar(&export, "export", "", "Write all messages to this file as an Arrow IPC stream")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print sessions as JSON")
	return cmd
}
