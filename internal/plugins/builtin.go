// Package plugins provides the handler and runtime modules compiled into the
// binary. Each is registered in the module registry's static loader table
// under a bare specifier such as "@sequencer/header".
package plugins

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nfrund/sequencer/internal/conductor"
	"github.com/nfrund/sequencer/internal/modules"
	"github.com/nfrund/sequencer/internal/sequence"
)

// RegisterExport is the export name runtime descriptors point at.
const RegisterExport = "register"

// builtin is one in-binary module: a handler table and the sequences its
// register export mounts.
type builtin struct {
	specifier string
	handlers  sequence.Handlers
	sequences []*sequence.Sequence
}

// builtins returns every in-binary module.
func builtins() []builtin {
	return []builtin{
		libraryComponent(),
		canvasComponent(),
		header(),
		diagnostics(),
	}
}

// Register adds the builtin modules to reg.
func Register(reg *modules.Registry, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "plugins")
	for _, b := range builtins() {
		exports := map[string]any{
			modules.HandlersExport: b.handlers,
			RegisterExport:         b.register(logger),
		}
		if err := reg.RegisterExports(b.specifier, exports); err != nil {
			return fmt.Errorf("register builtin %s: %w", b.specifier, err)
		}
	}
	return nil
}

func (b builtin) register(logger *slog.Logger) modules.RegisterFunc {
	return func(ctx context.Context, c conductor.Conductor) error {
		for _, seq := range b.sequences {
			mounted, err := conductor.MountOnce(ctx, c, seq, b.handlers, seq.PluginID)
			if err != nil {
				return fmt.Errorf("mount %s: %w", seq.ID, err)
			}
			if !mounted {
				logger.Debug("Runtime sequence already mounted", "module", b.specifier, "sequence_id", seq.ID)
				continue
			}
			logger.Info("Runtime sequence mounted", "module", b.specifier, "plugin_id", seq.PluginID, "sequence_id", seq.ID)
		}
		return nil
	}
}

// single builds a one-movement sequence.
func single(pluginID, id, name string, beats ...sequence.Beat) *sequence.Sequence {
	for i := range beats {
		beats[i].Beat = i + 1
	}
	return &sequence.Sequence{
		PluginID: pluginID,
		ID:       id,
		Name:     name,
		Movements: []sequence.Movement{
			{ID: "main", Name: name, Beats: beats},
		},
	}
}

func stringField(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
