package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"chatd/internal/common/fsutil"
	"chatd/internal/registry"
)

func newModelsCmd(opts *options) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List model bundles in the models directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("models-dir") {
				cfg.ModelsDir = dir
			}
			p, err := fsutil.ExpandHome(cfg.ModelsDir)
			if err != nil {
				return err
			}
			models, err := registry.LoadDir(p)
			if err != nil {
				return err
			}
			if len(models) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no model bundles in %s\n", p)
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTOKENIZER\tPATH")
			for _, m := range models {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.ID, m.Name, m.Tokenizer, m.Path)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&dir, "models-dir", "", "Directory of model bundles (overrides config)")
	return cmd
}
