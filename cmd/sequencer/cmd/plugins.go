package cmd

import (
	"github.com/spf13/cobra"

	"github.com/nfrund/sequencer/cmd/sequencer/internal/display"
	"github.com/nfrund/sequencer/internal/registration"
)

func newPluginsCmd(flags *globalFlags) *cobra.Command {
	plugins := &cobra.Command{
		Use:   "plugins",
		Short: "Inspect the plugin manifest",
	}

	var format string
	list := &cobra.Command{
		Use:   "list",
		Short: "List plugins in registration order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := flags.bootstrap(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Shutdown(cmd.Context())

			entries := registration.Ordered(a.Plugins.Get(cmd.Context()).Plugins)
			return display.Plugins(cmd.OutOrStdout(), entries, format)
		},
	}
	list.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, json)")

	plugins.AddCommand(list)
	return plugins
}
