// Package interactions maps symbolic interaction keys to conductor routes.
package interactions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/nfrund/sequencer/internal/manifest"
	"github.com/nfrund/sequencer/internal/source"
)

// ErrUnknownInteraction matches any *UnknownInteractionError.
var ErrUnknownInteraction = errors.New("unknown interaction")

// UnknownInteractionError is returned when neither the loaded manifest nor the
// defaults know a key.
type UnknownInteractionError struct {
	Key string
}

func (e *UnknownInteractionError) Error() string {
	return fmt.Sprintf("unknown interaction: %s", e.Key)
}

func (e *UnknownInteractionError) Unwrap() error {
	return ErrUnknownInteraction
}

// DefaultRoutes are consulted before the manifest has loaded and for keys the
// manifest does not declare.
var DefaultRoutes = map[string]manifest.Route{
	"library.load":            {PluginID: "LibraryPlugin", SequenceID: "library-load-symphony"},
	"canvas.component.create": {PluginID: "CanvasComponentPlugin", SequenceID: "canvas-component-create-symphony"},
	"canvas.component.select": {PluginID: "CanvasComponentPlugin", SequenceID: "canvas-component-select-symphony"},
	"control.panel.ui.render": {PluginID: "ControlPanelPlugin", SequenceID: "control-panel-ui-render-symphony"},
	"app.ui.theme.toggle":     {PluginID: "HeaderThemePlugin", SequenceID: "header-ui-theme-toggle-symphony"},
}

// Resolver resolves interaction keys. The zero value is not usable; use New.
type Resolver struct {
	src      source.Source
	logger   *slog.Logger
	defaults map[string]manifest.Route

	once sync.Once
	done chan struct{}

	mu     sync.RWMutex
	routes map[string]manifest.Route
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithDefaults replaces the built-in defaults table.
func WithDefaults(routes map[string]manifest.Route) Option {
	return func(r *Resolver) {
		r.defaults = routes
	}
}

// WithLogger sets the resolver's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// New creates a resolver reading the interaction manifest through src.
func New(src source.Source, opts ...Option) *Resolver {
	r := &Resolver{
		src:      src,
		logger:   slog.Default(),
		defaults: DefaultRoutes,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "interactions")
	return r
}

// Resolve returns the route for key. The first call starts loading the
// manifest in the background and does not wait for it.
func (r *Resolver) Resolve(key string) (manifest.Route, error) {
	r.startLoad()

	r.mu.RLock()
	route, ok := r.routes[key]
	r.mu.RUnlock()
	if ok {
		return route, nil
	}

	if route, ok := r.defaults[key]; ok {
		return route, nil
	}
	return manifest.Route{}, &UnknownInteractionError{Key: key}
}

// Init starts the load if needed and waits for it to finish.
func (r *Resolver) Init(ctx context.Context) error {
	r.startLoad()
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Keys lists every resolvable key, sorted.
func (r *Resolver) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(r.defaults)+len(r.routes))
	for k := range r.defaults {
		seen[k] = struct{}{}
	}
	for k := range r.routes {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetRoutesForTesting replaces the loaded routes and marks loading complete.
func (r *Resolver) SetRoutesForTesting(routes map[string]manifest.Route) {
	r.once.Do(func() { close(r.done) })

	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = routes
}

func (r *Resolver) startLoad() {
	r.once.Do(func() {
		go func() {
			defer close(r.done)
			r.load(context.Background())
		}()
	})
}

func (r *Resolver) load(ctx context.Context) {
	if r.src == nil {
		return
	}

	var doc manifest.InteractionManifest
	if err := manifest.Load(ctx, r.src, manifest.InteractionManifestPath, &doc); err != nil {
		r.logger.Debug("Interaction manifest unavailable, using defaults", "error", err)
		return
	}

	routes := make(map[string]manifest.Route, len(doc.Routes))
	for key, route := range doc.Routes {
		if err := manifest.ValidateRoute(route); err != nil {
			r.logger.Warn("Skipping invalid interaction route", "key", key, "error", err)
			continue
		}
		routes[key] = route
	}

	r.mu.Lock()
	r.routes = routes
	r.mu.Unlock()
	r.logger.Debug("Loaded interaction manifest", "routes", len(routes))
}
