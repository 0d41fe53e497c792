package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nfrund/sequencer/cmd/sequencer/internal/display"
)

func newTopicsCmd(flags *globalFlags) *cobra.Command {
	topics := &cobra.Command{
		Use:   "topics",
		Short: "Inspect the topics manifest",
		Long: `The topics command lists the topics the router knows about and shows a
single topic's routes, payload schema and delivery policy.

Examples:
  sequencer topics list
  sequencer topics list --prefix canvas. --format json
  sequencer topics get canvas.component.select.requested`,
	}

	var format, prefix string
	list := &cobra.Command{
		Use:   "list",
		Short: "List all topics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := flags.bootstrap(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Shutdown(cmd.Context())

			var rows []display.TopicRow
			for _, name := range a.Router.Topics() {
				if prefix != "" && !strings.HasPrefix(name, prefix) {
					continue
				}
				def, _ := a.Router.Topic(name)
				rows = append(rows, display.NewTopicRow(name, def, a.Router.IsReplayTopic(name)))
			}
			sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })

			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No topics found")
				return nil
			}
			return display.Topics(cmd.OutOrStdout(), rows, format)
		},
	}
	list.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, json)")
	list.Flags().StringVarP(&prefix, "prefix", "p", "", "Only show topics with this name prefix")

	var getFormat string
	get := &cobra.Command{
		Use:   "get <topic-name>",
		Short: "Show a topic's definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := flags.bootstrap(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Shutdown(cmd.Context())

			def, ok := a.Router.Topic(args[0])
			if !ok {
				return fmt.Errorf("topic %q not found; use 'sequencer topics list' to see all topics", args[0])
			}
			return display.TopicDetails(cmd.OutOrStdout(), display.NewTopicRow(args[0], def, a.Router.IsReplayTopic(args[0])), def, getFormat)
		},
	}
	get.Flags().StringVarP(&getFormat, "format", "f", "table", "Output format (table, json)")

	topics.AddCommand(list, get)
	return topics
}
