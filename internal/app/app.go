// Package app composes the sequencer's services and runs their startup
// sequence: topics, interactions, then sequence registration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/nfrund/sequencer/internal/catalog"
	"github.com/nfrund/sequencer/internal/conductor"
	"github.com/nfrund/sequencer/internal/config"
	"github.com/nfrund/sequencer/internal/interactions"
	"github.com/nfrund/sequencer/internal/manifest"
	"github.com/nfrund/sequencer/internal/metrics"
	"github.com/nfrund/sequencer/internal/modules"
	"github.com/nfrund/sequencer/internal/pubsub"
	"github.com/nfrund/sequencer/internal/registration"
	"github.com/nfrund/sequencer/internal/router"
	"github.com/nfrund/sequencer/internal/source"
	"github.com/nfrund/sequencer/internal/topicmgr"
)

// App holds the composed services.
type App struct {
	Config       *config.Config
	Logger       *slog.Logger
	Source       *source.Chain
	Plugins      *manifest.PluginProvider
	Topics       *topicmgr.Manager
	Router       *router.Router
	Interactions *interactions.Resolver
	Modules      *modules.Registry
	Conductor    *conductor.Local
	Catalog      *catalog.Loader
	Registrar    *registration.Registrar
	Metrics      *metrics.Metrics
	Bus          *pubsub.WatermillBridge

	injector *do.RootScope
	watcher  *catalog.Watcher
}

// New resolves every service from a fresh injector.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	injector := do.New(Package(cfg, logger))

	a := &App{Config: cfg, Logger: logger, injector: injector}
	var err error
	if a.Source, err = do.Invoke[*source.Chain](injector); err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	if a.Plugins, err = do.Invoke[*manifest.PluginProvider](injector); err != nil {
		return nil, fmt.Errorf("plugin manifest: %w", err)
	}
	if a.Topics, err = do.Invoke[*topicmgr.Manager](injector); err != nil {
		return nil, fmt.Errorf("topics: %w", err)
	}
	if a.Router, err = do.Invoke[*router.Router](injector); err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}
	if a.Interactions, err = do.Invoke[*interactions.Resolver](injector); err != nil {
		return nil, fmt.Errorf("interactions: %w", err)
	}
	if a.Modules, err = do.Invoke[*modules.Registry](injector); err != nil {
		return nil, fmt.Errorf("modules: %w", err)
	}
	if a.Conductor, err = do.Invoke[*conductor.Local](injector); err != nil {
		return nil, fmt.Errorf("conductor: %w", err)
	}
	if a.Catalog, err = do.Invoke[*catalog.Loader](injector); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	if a.Registrar, err = do.Invoke[*registration.Registrar](injector); err != nil {
		return nil, fmt.Errorf("registration: %w", err)
	}
	if a.Metrics, err = do.Invoke[*metrics.Metrics](injector); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	if a.Bus, err = do.Invoke[*pubsub.WatermillBridge](injector); err != nil {
		return nil, fmt.Errorf("bus: %w", err)
	}
	return a, nil
}

// Start loads the manifests, installs the conductor as the global one,
// registers every plugin's sequences and, when configured, starts watching
// the on-disk catalogs.
func (a *App) Start(ctx context.Context) (registration.Summary, error) {
	conductor.SetGlobal(a.Conductor)

	if err := a.Router.Init(ctx); err != nil {
		return registration.Summary{}, fmt.Errorf("load topics: %w", err)
	}
	if err := a.Interactions.Init(ctx); err != nil {
		return registration.Summary{}, fmt.Errorf("load interactions: %w", err)
	}

	sum := a.Registrar.RegisterAllSequences(ctx, a.Conductor)
	a.Logger.Info("Sequences registered",
		"environment", a.Source.Environment().String(),
		"topics", a.Topics.Count(),
		"runtime_plugins", len(sum.Registered),
		"failed_plugins", len(sum.Failed),
		"mounted", a.Conductor.MountedSequences().Len(),
	)

	if a.Config.WatchCatalogs && a.Config.ArtifactsDir != "" {
		a.watcher = catalog.NewWatcher(a.Catalog, a.Conductor, a.Config.ArtifactsDir)
		if err := a.watcher.Start(ctx); err != nil {
			return sum, fmt.Errorf("watch catalogs: %w", err)
		}
	}
	return sum, nil
}

// Shutdown stops the watcher and shuts the injector's services down.
func (a *App) Shutdown(ctx context.Context) error {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if conductor.Global() == conductor.Conductor(a.Conductor) {
		conductor.SetGlobal(nil)
	}
	report := a.injector.ShutdownWithContext(ctx)
	if report != nil && !report.Succeed {
		return fmt.Errorf("shutdown: %v", report.Errors)
	}
	return nil
}
