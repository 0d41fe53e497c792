package modules

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Loader produces a module for a statically registered specifier.
type Loader func(ctx context.Context) (*Module, error)

// DynamicLoader loads modules the static table does not know.
type DynamicLoader interface {
	Name() string
	CanLoad(p string) bool
	Load(ctx context.Context, p string) (*Module, error)
}

// Registry maps specifiers to loaders and caches loaded modules.
type Registry struct {
	mu      sync.RWMutex
	static  map[string]Loader
	dynamic []DynamicLoader
	cache   map[string]*Module
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		static: make(map[string]Loader),
		cache:  make(map[string]*Module),
		logger: logger.With("component", "modules"),
	}
}

// Register adds a static loader for specifier.
func (r *Registry) Register(specifier string, loader Loader) error {
	if specifier == "" || loader == nil {
		return fmt.Errorf("register module: specifier and loader are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.static[specifier]; exists {
		return fmt.Errorf("module %q already registered", specifier)
	}
	r.static[specifier] = loader
	return nil
}

// RegisterExports adds a static module with fixed exports.
func (r *Registry) RegisterExports(specifier string, exports map[string]any) error {
	return r.Register(specifier, func(context.Context) (*Module, error) {
		return &Module{Specifier: specifier, Exports: exports}, nil
	})
}

// AddDynamic appends a fallback loader.
func (r *Registry) AddDynamic(d DynamicLoader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dynamic = append(r.dynamic, d)
}

// Specifiers lists statically registered specifiers, sorted.
func (r *Registry) Specifiers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.static))
	for s := range r.static {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Load loads a specifier with no base directory in the default environment.
func (r *Registry) Load(ctx context.Context, specifier string) (*Module, error) {
	return r.LoadRef(ctx, Ref{Specifier: specifier, Bare: IsBare(specifier), Path: specifier})
}

// LoadRef consults the static table by specifier, then the dynamic loaders
// by resolved path. Successful loads are cached.
func (r *Registry) LoadRef(ctx context.Context, ref Ref) (*Module, error) {
	key := ref.Path
	if key == "" {
		key = ref.Specifier
	}

	r.mu.RLock()
	if m, ok := r.cache[key]; ok {
		r.mu.RUnlock()
		return m, nil
	}
	loader, static := r.static[ref.Specifier]
	if !static {
		loader, static = r.static[ref.Path]
	}
	dynamic := append([]DynamicLoader(nil), r.dynamic...)
	r.mu.RUnlock()

	var (
		m   *Module
		err error
	)
	switch {
	case static:
		m, err = loader(ctx)
	default:
		m, err = r.loadDynamic(ctx, ref, dynamic)
	}
	if err != nil {
		return nil, err
	}
	if m.Specifier == "" {
		m.Specifier = ref.Specifier
	}

	r.mu.Lock()
	r.cache[key] = m
	r.mu.Unlock()
	return m, nil
}

func (r *Registry) loadDynamic(ctx context.Context, ref Ref, loaders []DynamicLoader) (*Module, error) {
	for _, d := range loaders {
		if !d.CanLoad(ref.Path) {
			continue
		}
		m, err := d.Load(ctx, ref.Path)
		if err != nil {
			return nil, fmt.Errorf("%s loader: %s: %w", d.Name(), ref.Specifier, err)
		}
		r.logger.Debug("Loaded dynamic module", "loader", d.Name(), "specifier", ref.Specifier, "path", ref.Path)
		return m, nil
	}
	return nil, &LoaderNotFoundError{Specifier: ref.Specifier}
}

// Forget drops cached modules whose resolved path is p.
func (r *Registry) Forget(p string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, p)
}
