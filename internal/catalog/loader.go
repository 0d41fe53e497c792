// Package catalog discovers plugin sequence catalogs and mounts every listed
// sequence into a conductor exactly once.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"sync"

	"github.com/nfrund/sequencer/internal/conductor"
	"github.com/nfrund/sequencer/internal/manifest"
	"github.com/nfrund/sequencer/internal/metrics"
	"github.com/nfrund/sequencer/internal/modules"
	"github.com/nfrund/sequencer/internal/sequence"
	"github.com/nfrund/sequencer/internal/source"
)

// OriginCatalog labels mounts performed by the catalog loader.
const OriginCatalog = "catalog"

// Loader loads JSON sequence catalogs. Use NewLoader.
type Loader struct {
	src     *source.Chain
	plugins *manifest.PluginProvider
	modules *modules.Registry
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Loader) { l.metrics = m }
}

// NewLoader creates a loader reading catalogs through src and handler
// modules through reg.
func NewLoader(src *source.Chain, plugins *manifest.PluginProvider, reg *modules.Registry, opts ...Option) *Loader {
	l := &Loader{
		src:     src,
		plugins: plugins,
		modules: reg,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "catalog")
	return l
}

// Result summarizes one LoadJSONSequenceCatalogs call.
type Result struct {
	Directories []string
	Mounted     []string
	Skipped     []string
	Failed      map[string]error
}

// run is the state shared by the sequence tasks of one call.
type run struct {
	c     conductor.Conductor
	mu    sync.Mutex
	seen  map[string]struct{}
	files map[string]struct{}
	res   Result
}

// visit reports whether file is new to this run.
func (r *run) visit(file string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[file]; ok {
		return false
	}
	r.files[file] = struct{}{}
	return true
}

func (r *run) claim(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[id]; ok {
		return false
	}
	if !r.c.MountedSequences().Claim(id) {
		return false
	}
	r.seen[id] = struct{}{}
	return true
}

func (r *run) record(fn func(*Result)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.res)
}

// LoadJSONSequenceCatalogs mounts the sequences listed by the catalogs of
// pluginIDs, or of every discovered directory when none are given. It
// iterates once per id; ids sharing a directory re-read its index, but each
// catalog file is handled once per call. Failures are logged and isolated per
// sequence; the call itself never fails.
func (l *Loader) LoadJSONSequenceCatalogs(ctx context.Context, c conductor.Conductor, pluginIDs ...string) Result {
	if len(pluginIDs) == 0 {
		pluginIDs = l.Discover(ctx)
	}
	dirs := directories(pluginIDs)

	r := &run{
		c:     c,
		seen:  make(map[string]struct{}),
		files: make(map[string]struct{}),
		res:   Result{Directories: dirs, Failed: map[string]error{}},
	}
	for i, id := range pluginIDs {
		dir := Directory(id)
		if dir == "" {
			continue
		}
		l.logger.Info("Starting iteration", "index", i, "total", len(pluginIDs), "plugin_id", id, "directory", dir)
		l.loadDirectory(ctx, r, dir)
	}

	sort.Strings(r.res.Mounted)
	sort.Strings(r.res.Skipped)
	l.logger.Info("Loop completed",
		"directories", len(dirs),
		"mounted", len(r.res.Mounted),
		"skipped", len(r.res.Skipped),
		"failed", len(r.res.Failed),
	)
	return r.res
}

func (l *Loader) loadDirectory(ctx context.Context, r *run, dir string) {
	base := path.Join(manifest.SequencesDir, dir)

	var idx manifest.CatalogIndex
	if err := manifest.Load(ctx, l.src, path.Join(base, manifest.CatalogIndexFile), &idx); err != nil {
		l.logger.Debug("No catalog index", "directory", dir, "error", err)
		return
	}

	var wg sync.WaitGroup
	for _, entry := range idx.Sequences {
		if entry.File == "" {
			l.logger.Warn("Catalog entry without file", "directory", dir)
			continue
		}
		wg.Add(1)
		go func(entry manifest.CatalogEntry) {
			defer wg.Done()
			l.loadEntry(ctx, r, base, entry)
		}(entry)
	}
	wg.Wait()
}

func (l *Loader) loadEntry(ctx context.Context, r *run, base string, entry manifest.CatalogEntry) {
	file := path.Join(base, entry.File)
	logger := l.logger.With("file", file)
	if !r.visit(file) {
		logger.Debug("Catalog entry already handled in this run")
		return
	}

	seq, err := l.readSequence(ctx, file)
	if err != nil {
		logger.Warn("Failed to load sequence", "error", err)
		r.record(func(res *Result) { res.Failed[file] = err })
		return
	}
	logger = logger.With("plugin_id", seq.PluginID, "sequence_id", seq.ID)

	if !r.claim(seq.ID) {
		logger.Warn("Sequence already mounted, skipping")
		r.record(func(res *Result) { res.Skipped = append(res.Skipped, seq.ID) })
		return
	}

	if err := l.mount(ctx, r.c, seq, base, entry.HandlersPath, logger); err != nil {
		r.c.MountedSequences().Release(seq.ID)
		l.metrics.MountFailed(seq.PluginID)
		logger.Warn("Sequence mount failed", "error", err)
		r.record(func(res *Result) { res.Failed[seq.ID] = err })
		return
	}

	r.c.MountedSequences().Commit(seq.ID)
	l.metrics.Mounted(seq.PluginID, OriginCatalog)
	r.record(func(res *Result) { res.Mounted = append(res.Mounted, seq.ID) })
	logger.Debug("Sequence mounted")
}

// readSequence returns the first tier's copy of file that decodes.
func (l *Loader) readSequence(ctx context.Context, file string) (*sequence.Sequence, error) {
	var seq *sequence.Sequence
	err := l.src.ReadDecoded(ctx, func(_ string, data []byte) error {
		decoded, err := sequence.Decode(data)
		if err != nil {
			return err
		}
		seq = decoded
		return nil
	}, file)
	return seq, err
}

// RemountHandlers mounts again every already-mounted catalog sequence whose
// handlers module resolves to doc, so the conductor receives the handler
// table built from the module's current source. The module cache entry for
// doc must be dropped first. Catalog directories are the discovered ones plus
// dir. It returns the remounted sequence ids.
func (l *Loader) RemountHandlers(ctx context.Context, c conductor.Conductor, dir, doc string) []string {
	var remounted []string
	for _, d := range directories(append(l.Discover(ctx), dir)) {
		base := path.Join(manifest.SequencesDir, d)
		var idx manifest.CatalogIndex
		if err := manifest.Load(ctx, l.src, path.Join(base, manifest.CatalogIndexFile), &idx); err != nil {
			continue
		}
		for _, entry := range idx.Sequences {
			if entry.File == "" || entry.HandlersPath == "" {
				continue
			}
			if modules.Resolve(entry.HandlersPath, base, l.src.Environment()).Path != doc {
				continue
			}
			file := path.Join(base, entry.File)
			logger := l.logger.With("file", file, "module", doc)
			seq, err := l.readSequence(ctx, file)
			if err != nil {
				logger.Warn("Failed to load sequence", "error", err)
				continue
			}
			logger = logger.With("plugin_id", seq.PluginID, "sequence_id", seq.ID)
			if !c.MountedSequences().Has(seq.ID) {
				logger.Debug("Sequence not mounted, leaving it to the catalog load")
				continue
			}
			if err := l.mount(ctx, c, seq, base, entry.HandlersPath, logger); err != nil {
				l.metrics.MountFailed(seq.PluginID)
				logger.Warn("Sequence remount failed", "error", err)
				continue
			}
			remounted = append(remounted, seq.ID)
			logger.Info("Sequence remounted with reloaded handlers")
		}
	}
	sort.Strings(remounted)
	return remounted
}

func (l *Loader) mount(ctx context.Context, c conductor.Conductor, seq *sequence.Sequence, base, specifier string, logger *slog.Logger) error {
	handlers, err := l.handlers(ctx, base, specifier, logger)
	if err != nil {
		return err
	}
	if err := c.Mount(ctx, seq, handlers, seq.PluginID); err != nil {
		return fmt.Errorf("mount: %w", err)
	}
	return nil
}

// handlers loads the handler module named by specifier. A missing export is
// logged and yields an empty table; a module that cannot be loaded is an error.
func (l *Loader) handlers(ctx context.Context, base, specifier string, logger *slog.Logger) (sequence.Handlers, error) {
	if specifier == "" {
		logger.Warn("Catalog entry declares no handlers module")
		return sequence.Handlers{}, nil
	}
	ref := modules.Resolve(specifier, base, l.src.Environment())
	m, err := l.modules.LoadRef(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("load handlers %s: %w", specifier, err)
	}
	h, ok := m.Handlers()
	if !ok {
		logger.Warn("Handlers module has no handlers export", "module", specifier)
		return sequence.Handlers{}, nil
	}
	return h, nil
}
