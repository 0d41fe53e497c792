package plugins

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nfrund/sequencer/internal/sequence"
)

func canvasComponent() builtin {
	return builtin{
		specifier: "@sequencer/canvas-component",
		handlers: sequence.Handlers{
			"resolveTemplate": func(_ context.Context, data map[string]any) (any, error) {
				tpl, ok := data["component"].(map[string]any)
				if !ok {
					return nil, fmt.Errorf("resolve template: component must be an object, got %T", data["component"])
				}
				return map[string]any{"template": tpl}, nil
			},
			"createNode": func(_ context.Context, data map[string]any) (any, error) {
				id := stringField(data, "id")
				if id == "" {
					id = "rx-comp-" + uuid.NewString()[:8]
				}
				return map[string]any{"id": id, "position": data["position"]}, nil
			},
			"notifyUi": func(_ context.Context, data map[string]any) (any, error) {
				return map[string]any{"notified": true}, nil
			},
			"select": func(_ context.Context, data map[string]any) (any, error) {
				id := stringField(data, "id")
				if id == "" {
					return nil, fmt.Errorf("select: missing id")
				}
				return map[string]any{"selected": id}, nil
			},
			"notifySelected": func(_ context.Context, data map[string]any) (any, error) {
				return map[string]any{"forward": "canvas.component.selected", "id": stringField(data, "id")}, nil
			},
			"dragMove": func(_ context.Context, data map[string]any) (any, error) {
				return map[string]any{"id": stringField(data, "id"), "position": data["position"]}, nil
			},
			"deleteNode": func(_ context.Context, data map[string]any) (any, error) {
				return map[string]any{"deleted": stringField(data, "id")}, nil
			},
		},
		sequences: []*sequence.Sequence{
			single("CanvasComponentPlugin", "canvas-component-delete-symphony", "Canvas Component Delete",
				sequence.Beat{Event: "canvas:component:delete", Title: "Delete Node", Dynamics: "mf", Handler: "deleteNode", Timing: "immediate", Kind: "ui"},
			),
		},
	}
}
