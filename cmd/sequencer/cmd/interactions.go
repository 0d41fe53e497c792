package cmd

import (
	"github.com/spf13/cobra"

	"github.com/nfrund/sequencer/cmd/sequencer/internal/display"
	"github.com/nfrund/sequencer/internal/manifest"
)

func newInteractionsCmd(flags *globalFlags) *cobra.Command {
	interactions := &cobra.Command{
		Use:   "interactions",
		Short: "Resolve interaction keys to routes",
	}

	var format string
	list := &cobra.Command{
		Use:   "list",
		Short: "List every interaction key and its route",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := flags.bootstrap(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Shutdown(cmd.Context())

			routes := map[string]manifest.Route{}
			for _, key := range a.Interactions.Keys() {
				if r, err := a.Interactions.Resolve(key); err == nil {
					routes[key] = r
				}
			}
			return display.Routes(cmd.OutOrStdout(), routes, format)
		},
	}
	list.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, json)")

	resolve := &cobra.Command{
		Use:   "resolve <key>",
		Short: "Resolve one interaction key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := flags.bootstrap(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Shutdown(cmd.Context())

			r, err := a.Interactions.Resolve(args[0])
			if err != nil {
				return err
			}
			return display.Routes(cmd.OutOrStdout(), map[string]manifest.Route{args[0]: r}, format)
		},
	}
	resolve.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, json)")

	interactions.AddCommand(list, resolve)
	return interactions
}
