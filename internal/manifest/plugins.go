package manifest

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nfrund/sequencer/internal/source"
)

// PluginProvider resolves the aggregated plugin manifest once and caches it.
type PluginProvider struct {
	src    source.Source
	logger *slog.Logger

	mu       sync.Mutex
	cached   *PluginManifest
	override *PluginManifest
}

// NewPluginProvider creates a provider reading through src.
func NewPluginProvider(src source.Source, logger *slog.Logger) *PluginProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &PluginProvider{src: src, logger: logger.With("component", "plugin_manifest")}
}

// Get returns the manifest. Every tier failing yields an empty manifest; this
// never returns an error. Only a successful resolution is cached.
func (p *PluginProvider) Get(ctx context.Context) *PluginManifest {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.override != nil {
		return p.override
	}
	if p.cached != nil {
		return p.cached
	}

	var m PluginManifest
	if p.src == nil {
		return &PluginManifest{Plugins: []PluginEntry{}}
	}
	if err := Load(ctx, p.src, PluginManifestPath, &m); err != nil {
		p.logger.Warn("Plugin manifest unavailable, continuing with no plugins", "error", err)
		return &PluginManifest{Plugins: []PluginEntry{}}
	}

	valid, invalid := ValidPlugins(m.Plugins)
	for _, err := range invalid {
		p.logger.Warn("Dropping invalid plugin manifest entry", "error", err)
	}
	if valid == nil {
		valid = []PluginEntry{}
	}
	m.Plugins = valid
	p.cached = &m
	p.logger.Debug("Loaded plugin manifest", "plugins", len(valid))
	return p.cached
}

// SetOverrideForTesting replaces the resolved manifest. Passing nil clears the
// override and the cache.
func (p *PluginProvider) SetOverrideForTesting(m *PluginManifest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.override = m
	if m == nil {
		p.cached = nil
	}
}
