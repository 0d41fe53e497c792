package cmd

import (
	"github.com/spf13/cobra"

	"github.com/nfrund/sequencer/cmd/sequencer/internal/display"
)

func newSequencesCmd(flags *globalFlags) *cobra.Command {
	sequences := &cobra.Command{
		Use:   "sequences",
		Short: "Load and list mounted sequences",
	}

	var format string
	list := &cobra.Command{
		Use:   "list",
		Short: "Register all sequences and list what was mounted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, sum, err := flags.bootstrap(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Shutdown(cmd.Context())
			return display.Registration(cmd.OutOrStdout(), sum, a.Conductor.MountedSequences().IDs(), format)
		},
	}
	list.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, json)")

	load := &cobra.Command{
		Use:   "load [plugin-id...]",
		Short: "Load JSON sequence catalogs for the given plugins",
		Long: `Load the JSON sequence catalogs for the given plugin ids, or for every
discovered catalog directory when none are given. Runtime registration is
skipped so the output reflects catalogs only.

Examples:
  sequencer sequences load
  sequencer sequences load LibraryPlugin ControlPanelPlugin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := flags.config()
			cfg.DisableJSONCatalogFallback = true
			a, _, err := flags.bootstrap(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Shutdown(cmd.Context())

			res := a.Catalog.LoadJSONSequenceCatalogs(cmd.Context(), a.Conductor, args...)
			return display.Catalog(cmd.OutOrStdout(), res, format)
		},
	}
	load.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, json)")

	sequences.AddCommand(list, load)
	return sequences
}
