package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newPublishCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <topic> [json-payload]",
		Short: "Publish a payload to a topic",
		Long: `Start the sequencer, publish one payload to a topic and report the
deliveries. Throttled and debounced topics may deliver after the command exits.

Examples:
  sequencer publish canvas.component.select.requested '{"id":"node-1"}'
  sequencer publish app.ui.theme.toggle.requested`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload any
			if len(args) == 2 {
				if err := json.Unmarshal([]byte(args[1]), &payload); err != nil {
					return fmt.Errorf("payload must be JSON: %w", err)
				}
			}

			a, _, err := flags.bootstrap(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Shutdown(cmd.Context())

			if err := a.Router.Publish(cmd.Context(), args[0], payload); err != nil {
				return err
			}
			def, _ := a.Router.Topic(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Published %s to %d route(s)\n", args[0], len(def.Routes))
			return nil
		},
	}
}
