package app

import (
	"context"
	"log/slog"

	"github.com/samber/do/v2"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/trace"

	"github.com/nfrund/sequencer/internal/assets"
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

// Tracing holds the process tracer and flushes it on shutdown.
type Tracing struct {
	Tracer  trace.Tracer
	cleanup func()
}

func (t *Tracing) Shutdown() {
	if t.cleanup != nil {
		t.cleanup()
	}
}

// Package provides every service of the sequencer, built from cfg.
func Package(cfg *config.Config, logger *slog.Logger) func(do.Injector) {
	return do.Package(
		do.Eager(cfg),
		do.Eager(logger),
		do.Lazy(provideMetrics),
		do.Lazy(provideTracing),
		do.Lazy(provideBus),
		do.Lazy(provideSource),
		do.Lazy(providePlugins),
		do.Lazy(provideTopics),
		do.Lazy(provideRouter),
		do.Lazy(provideInteractions),
		do.Lazy(provideModules),
		do.Lazy(provideConductor),
		do.Lazy(provideCatalog),
		do.Lazy(provideRegistrar),
	)
}

func provideMetrics(do.Injector) (*metrics.Metrics, error) {
	return metrics.New(), nil
}

func provideTracing(i do.Injector) (*Tracing, error) {
	cfg := do.MustInvoke[*config.Config](i)
	tracer, cleanup, err := pubsub.SetupOTel(context.Background(), pubsub.TracingConfig{
		Enabled:     cfg.TracingEnabled,
		ServiceName: cfg.TracingServiceName,
		ZipkinURL:   cfg.TracingZipkinURL,
	})
	if err != nil {
		return nil, err
	}
	return &Tracing{Tracer: tracer, cleanup: cleanup}, nil
}

func provideBus(i do.Injector) (*pubsub.WatermillBridge, error) {
	logger := do.MustInvoke[*slog.Logger](i)
	tracing := do.MustInvoke[*Tracing](i)
	return pubsub.NewWatermillBridge(logger, tracing.Tracer), nil
}

func provideSource(i do.Injector) (*source.Chain, error) {
	cfg := do.MustInvoke[*config.Config](i)
	logger := do.MustInvoke[*slog.Logger](i)

	env := source.Detect(cfg.ForceEnv, cfg.BaseURL)
	logger.Info("Detected environment", "environment", env.String())
	return source.Build(env, logger,
		source.NewHTTPSource(cfg.BaseURL, nil),
		source.NewFSSource(afero.NewOsFs(), cfg.ArtifactsDir),
		source.NewEmbeddedSource(assets.FS()),
	), nil
}

func providePlugins(i do.Injector) (*manifest.PluginProvider, error) {
	return manifest.NewPluginProvider(do.MustInvoke[*source.Chain](i), do.MustInvoke[*slog.Logger](i)), nil
}

func provideTopics(i do.Injector) (*topicmgr.Manager, error) {
	return topicmgr.NewManager(do.MustInvoke[*source.Chain](i), do.MustInvoke[*slog.Logger](i)), nil
}

func provideRouter(i do.Injector) (*router.Router, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return router.New(do.MustInvoke[*topicmgr.Manager](i),
		router.WithLogger(do.MustInvoke[*slog.Logger](i)),
		router.WithMetrics(do.MustInvoke[*metrics.Metrics](i)),
		router.WithBus(do.MustInvoke[*pubsub.WatermillBridge](i)),
		router.WithTracer(do.MustInvoke[*Tracing](i).Tracer),
		router.WithPayloadValidation(cfg.ValidatePayloads),
		router.WithReplayTopics(cfg.ReplayTopics...),
	), nil
}

func provideInteractions(i do.Injector) (*interactions.Resolver, error) {
	return interactions.New(do.MustInvoke[*source.Chain](i),
		interactions.WithLogger(do.MustInvoke[*slog.Logger](i)),
	), nil
}

func provideConductor(i do.Injector) (*conductor.Local, error) {
	return conductor.NewLocal(do.MustInvoke[*slog.Logger](i)), nil
}

func provideCatalog(i do.Injector) (*catalog.Loader, error) {
	return catalog.NewLoader(
		do.MustInvoke[*source.Chain](i),
		do.MustInvoke[*manifest.PluginProvider](i),
		do.MustInvoke[*modules.Registry](i),
		catalog.WithLogger(do.MustInvoke[*slog.Logger](i)),
		catalog.WithMetrics(do.MustInvoke[*metrics.Metrics](i)),
	), nil
}

func provideRegistrar(i do.Injector) (*registration.Registrar, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return registration.New(
		do.MustInvoke[*manifest.PluginProvider](i),
		do.MustInvoke[*modules.Registry](i),
		do.MustInvoke[*catalog.Loader](i),
		registration.WithLogger(do.MustInvoke[*slog.Logger](i)),
		registration.WithMetrics(do.MustInvoke[*metrics.Metrics](i)),
		registration.WithEnvironment(do.MustInvoke[*source.Chain](i).Environment()),
		registration.WithPluginFirst(cfg.DisableJSONCatalogFallback),
	), nil
}
