package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nfrund/sequencer/internal/server"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var addr string

	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		Long: `Start the sequencer, register every plugin's sequences and serve the
topic, interaction, plugin and metrics endpoints until interrupted.

Examples:
  sequencer serve
  sequencer serve --addr :9000 --artifacts ./dist/artifacts`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := flags.config()
			if addr != "" {
				cfg.HTTPAddr = addr
			}
			a, _, err := flags.bootstrap(ctx, cfg)
			if err != nil {
				return err
			}
			return server.New(a).Start(ctx, cfg.HTTPAddr)
		},
	}
	c.Flags().StringVar(&addr, "addr", "", "Listen address (overrides SEQUENCER_HTTP_ADDR)")
	return c
}
