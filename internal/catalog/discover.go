package catalog

import (
	"context"
	"regexp"

	"github.com/nfrund/sequencer/internal/manifest"
)

var pluginDirPattern = regexp.MustCompile(`/plugins/([^/]+)/`)

// alwaysPresent directories are loaded even when no plugin UI module names them.
var alwaysPresent = []string{"library-component", "canvas-component"}

var directoryByPlugin = map[string]string{
	"CanvasComponentPlugin": "canvas-component",
	"LibraryPlugin":         "library",
	"ControlPanelPlugin":    "control-panel",
	"HeaderTitlePlugin":     "header",
	"HeaderControlsPlugin":  "header",
	"HeaderThemePlugin":     "header",
}

// Directory maps a plugin id to its catalog directory under json-sequences.
// Ids without a fixed mapping name their own directory.
func Directory(pluginID string) string {
	if dir, ok := directoryByPlugin[pluginID]; ok {
		return dir
	}
	return pluginID
}

// Discover returns the catalog directories to load when no plugin ids are
// given: directories named by plugin UI module paths, the always-present
// component directories and, outside the browser, every directory found
// under json-sequences.
func (l *Loader) Discover(ctx context.Context) []string {
	var ids []string
	for _, p := range l.plugins.Get(ctx).Plugins {
		if p.UI == nil {
			continue
		}
		if m := pluginDirPattern.FindStringSubmatch(p.UI.Module); m != nil {
			ids = append(ids, m[1])
		}
	}
	ids = append(ids, alwaysPresent...)
	if !l.src.Environment().IsBrowser() {
		ids = append(ids, l.src.ListDirs(ctx, manifest.SequencesDir)...)
	}
	return unique(ids)
}

// directories maps ids to catalog directories, dropping repeats and keeping
// first-seen order.
func directories(ids []string) []string {
	dirs := make([]string, 0, len(ids))
	for _, id := range ids {
		dirs = append(dirs, Directory(id))
	}
	return unique(dirs)
}

func unique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
