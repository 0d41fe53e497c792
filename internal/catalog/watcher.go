package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/nfrund/sequencer/internal/conductor"
	"github.com/nfrund/sequencer/internal/manifest"
)

// Watcher reloads a catalog directory when files under the on-disk
// json-sequences tree are created or written. Reloads are idempotent, so
// only sequences that are not yet mounted get mounted. A changed Tengo
// handler script is dropped from the module cache and the mounted sequences
// using it are mounted again with the reloaded handlers.
type Watcher struct {
	loader    *Loader
	conductor conductor.Conductor
	root      string
	logger    *slog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	active  bool
}

// NewWatcher watches <artifactsDir>/json-sequences.
func NewWatcher(l *Loader, c conductor.Conductor, artifactsDir string) *Watcher {
	return &Watcher{
		loader:    l,
		conductor: c,
		root:      filepath.Join(artifactsDir, filepath.FromSlash(manifest.SequencesDir)),
		logger:    l.logger.With("component", "catalog_watcher"),
	}
}

// Start begins watching until ctx is done or Stop is called. A missing
// json-sequences directory is not an error; nothing is watched.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.active {
		w.logger.Debug("Catalog watcher already active")
		return nil
	}
	if _, err := os.Stat(w.root); os.IsNotExist(err) {
		w.logger.Debug("Sequences directory does not exist, skipping watcher setup", "path", w.root)
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file system watcher: %w", err)
	}
	err = filepath.Walk(w.root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fw.Add(p)
		}
		return nil
	})
	if err != nil {
		fw.Close()
		return fmt.Errorf("failed to add directories to watcher: %w", err)
	}

	w.watcher = fw
	w.active = true
	go w.loop(ctx, fw)
	w.logger.Info("Started catalog watcher", "directory", w.root)
	return nil
}

// Stop closes the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher != nil {
		w.watcher.Close()
		w.watcher = nil
		w.active = false
		w.logger.Info("Catalog watcher stopped")
	}
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher) {
	defer w.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handle(ctx, fw, event)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Error("Catalog watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, fw *fsnotify.Watcher, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	dir := parts[0]

	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		if err := fw.Add(event.Name); err != nil {
			w.logger.Warn("Failed to watch new directory", "path", event.Name, "error", err)
		}
		return
	}
	if len(parts) < 2 {
		return
	}

	switch path.Ext(rel) {
	case ".tengo":
		doc := path.Join(manifest.SequencesDir, filepath.ToSlash(rel))
		w.loader.modules.Forget(doc)
		ids := w.loader.RemountHandlers(ctx, w.conductor, dir, doc)
		w.logger.Info("Handler script changed", "path", doc, "remounted", len(ids))
	case ".json", ".yaml", ".yml":
		res := w.loader.LoadJSONSequenceCatalogs(ctx, w.conductor, dir)
		w.logger.Info("Catalog reloaded", "directory", dir, "mounted", len(res.Mounted))
	}
}
