// Package cmd holds the sequencer command tree.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nfrund/sequencer/internal/app"
	"github.com/nfrund/sequencer/internal/config"
	"github.com/nfrund/sequencer/internal/logging"
	"github.com/nfrund/sequencer/internal/registration"
)

// globalFlags override the environment-derived configuration.
type globalFlags struct {
	artifactsDir string
	forceEnv     string
	logLevel     string
	logFormat    string
	pluginFirst  bool
}

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "sequencer",
		Short: "Plugin sequence orchestration core",
		Long: `sequencer loads plugin manifests and sequence catalogs, mounts the
resulting sequences into a conductor and routes topic publishes to them.

Available commands:
  serve          Run the HTTP and websocket server
  topics         Inspect the topics manifest
  interactions   Resolve interaction keys to routes
  plugins        Inspect the plugin manifest
  sequences      Load and list mounted sequences
  publish        Publish a payload to a topic

Use "sequencer [command] --help" for more information about a specific command.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.artifactsDir, "artifacts", "", "Artifacts directory (overrides SEQUENCER_ARTIFACTS_DIR)")
	pf.StringVar(&flags.forceEnv, "env", "", "Force the environment: browser, node or embedded")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&flags.logFormat, "log-format", "", "Log format (text, json)")
	pf.BoolVar(&flags.pluginFirst, "plugin-first", false, "Skip JSON catalogs during registration")

	root.AddCommand(
		newServeCmd(flags),
		newTopicsCmd(flags),
		newInteractionsCmd(flags),
		newPluginsCmd(flags),
		newSequencesCmd(flags),
		newPublishCmd(flags),
		newVersionCmd(),
	)
	return root
}

// Execute executes the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (f *globalFlags) config() *config.Config {
	cfg := config.New()
	if f.artifactsDir != "" {
		cfg.ArtifactsDir = f.artifactsDir
	}
	if f.forceEnv != "" {
		cfg.ForceEnv = f.forceEnv
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if f.logFormat != "" {
		cfg.LogFormat = f.logFormat
	}
	if f.pluginFirst {
		cfg.DisableJSONCatalogFallback = true
	}
	return cfg
}

// bootstrap builds and starts an app. The caller owns shutdown.
func (f *globalFlags) bootstrap(ctx context.Context, cfg *config.Config) (*app.App, registration.Summary, error) {
	if cfg == nil {
		cfg = f.config()
	}
	logger := logging.New(cfg.LogFormat, cfg.LogLevel)

	a, err := app.New(cfg, logger)
	if err != nil {
		return nil, registration.Summary{}, fmt.Errorf("build app: %w", err)
	}
	sum, err := a.Start(ctx)
	if err != nil {
		_ = a.Shutdown(ctx)
		return nil, registration.Summary{}, fmt.Errorf("start app: %w", err)
	}
	return a, sum, nil
}
