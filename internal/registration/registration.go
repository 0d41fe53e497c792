// Package registration runs plugin runtime registration followed by JSON
// catalog loading.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"

	"github.com/nfrund/sequencer/internal/catalog"
	"github.com/nfrund/sequencer/internal/conductor"
	"github.com/nfrund/sequencer/internal/manifest"
	"github.com/nfrund/sequencer/internal/metrics"
	"github.com/nfrund/sequencer/internal/modules"
	"github.com/nfrund/sequencer/internal/source"
)

// priority plugins register first, in this order.
var priority = []string{"LibraryComponentPlugin", "CanvasComponentPlugin", "LibraryPlugin"}

// CatalogLoader is the catalog step.
type CatalogLoader interface {
	LoadJSONSequenceCatalogs(ctx context.Context, c conductor.Conductor, pluginIDs ...string) catalog.Result
}

// Registrar registers every plugin's sequences. Use New.
type Registrar struct {
	plugins *manifest.PluginProvider
	modules *modules.Registry
	catalog CatalogLoader
	env     source.Environment
	metrics *metrics.Metrics
	logger  *slog.Logger

	// pluginFirst disables the JSON catalog step.
	pluginFirst bool
}

// Option configures a Registrar.
type Option func(*Registrar)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registrar) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registrar) { r.metrics = m }
}

// WithEnvironment sets the environment runtime specifiers resolve in.
func WithEnvironment(env source.Environment) Option {
	return func(r *Registrar) { r.env = env }
}

// WithPluginFirst skips catalog loading entirely when enabled.
func WithPluginFirst(enabled bool) Option {
	return func(r *Registrar) { r.pluginFirst = enabled }
}

// New creates a Registrar.
func New(plugins *manifest.PluginProvider, reg *modules.Registry, loader CatalogLoader, opts ...Option) *Registrar {
	r := &Registrar{
		plugins: plugins,
		modules: reg,
		catalog: loader,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "registration")
	return r
}

// PanicError is a recovered panic from a plugin's register export.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("register panicked: %v", e.Value)
}

// Summary reports what RegisterAllSequences did.
type Summary struct {
	Registered []string
	Failed     map[string]error
	Catalog    *catalog.Result
}

// RegisterAllSequences runs each plugin's runtime register export against c,
// then loads the JSON sequence catalogs unless plugin-first mode is on. A
// failing plugin is logged and does not stop the others.
func (r *Registrar) RegisterAllSequences(ctx context.Context, c conductor.Conductor) Summary {
	sum := Summary{Failed: map[string]error{}}

	for _, p := range Ordered(r.plugins.Get(ctx).Plugins) {
		if p.Runtime == nil {
			continue
		}
		logger := r.logger.With("plugin_id", p.ID, "module", p.Runtime.Module, "export", p.Runtime.Export)
		err := r.register(ctx, c, p)
		r.metrics.Registration(p.ID, err)
		if err != nil {
			attrs := []any{"error", err.Error()}
			var pe *PanicError
			if errors.As(err, &pe) {
				attrs = append(attrs, "stack", string(pe.Stack))
			}
			logger.Error("Runtime registration failed", attrs...)
			sum.Failed[p.ID] = err
			continue
		}
		logger.Debug("Runtime registration complete")
		sum.Registered = append(sum.Registered, p.ID)
	}

	if r.pluginFirst {
		r.logger.Info("Plugin-first mode, skipping JSON sequence catalogs")
		return sum
	}
	res := r.catalog.LoadJSONSequenceCatalogs(ctx, c)
	sum.Catalog = &res
	return sum
}

func (r *Registrar) register(ctx context.Context, c conductor.Conductor, p manifest.PluginEntry) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &PanicError{Value: rec, Stack: debug.Stack()}
		}
	}()

	ref := modules.Resolve(p.Runtime.Module, "", r.env)
	m, err := r.modules.LoadRef(ctx, ref)
	if err != nil {
		return err
	}
	fn, err := m.Register(p.Runtime.Export)
	if err != nil {
		return err
	}
	return fn(ctx, c)
}

// Ordered returns plugins with the priority ids first, in priority order,
// followed by the rest in manifest order.
func Ordered(plugins []manifest.PluginEntry) []manifest.PluginEntry {
	rank := func(id string) int {
		for i, p := range priority {
			if p == id {
				return i
			}
		}
		return len(priority)
	}
	out := append([]manifest.PluginEntry(nil), plugins...)
	sort.SliceStable(out, func(i, j int) bool {
		return rank(out[i].ID) < rank(out[j].ID)
	})
	return out
}
