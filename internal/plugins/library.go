package plugins

import (
	"context"
	"errors"

	"github.com/nfrund/sequencer/internal/sequence"
)

func libraryComponent() builtin {
	return builtin{
		specifier: "@sequencer/library-component",
		handlers: sequence.Handlers{
			"onDragStart": func(_ context.Context, data map[string]any) (any, error) {
				id := stringField(data, "id")
				if id == "" {
					return nil, errors.New("drag start: missing component id")
				}
				return map[string]any{"dragging": id}, nil
			},
			"onDrop": func(_ context.Context, data map[string]any) (any, error) {
				return map[string]any{
					"component": data["component"],
					"position":  data["position"],
				}, nil
			},
			"forwardCreate": func(_ context.Context, data map[string]any) (any, error) {
				return map[string]any{"forward": "canvas.component.create.requested", "payload": data}, nil
			},
			"preview": func(_ context.Context, data map[string]any) (any, error) {
				return map[string]any{"preview": stringField(data, "id")}, nil
			},
		},
		sequences: []*sequence.Sequence{
			single("LibraryComponentPlugin", "library-component-preview-symphony", "Library Component Preview",
				sequence.Beat{Event: "library:component:preview", Title: "Preview", Dynamics: "p", Handler: "preview", Timing: "immediate", Kind: "ui"},
			),
		},
	}
}
