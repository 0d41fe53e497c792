package plugins

import (
	"context"

	"github.com/nfrund/sequencer/internal/sequence"
)

// The header registers its theme sequence at runtime, ahead of catalog
// loading, so the catalog copy of it is skipped as already mounted.
func header() builtin {
	return builtin{
		specifier: "@sequencer/header",
		handlers: sequence.Handlers{
			"toggleTheme": func(_ context.Context, data map[string]any) (any, error) {
				next := "dark"
				if stringField(data, "theme") == "dark" {
					next = "light"
				}
				return map[string]any{"theme": next}, nil
			},
			"announceTheme": func(_ context.Context, data map[string]any) (any, error) {
				return map[string]any{"forward": "app.ui.theme.changed", "theme": stringField(data, "theme")}, nil
			},
		},
		sequences: []*sequence.Sequence{
			single("HeaderThemePlugin", "header-ui-theme-toggle-symphony", "Header Theme Toggle",
				sequence.Beat{Event: "app:ui:theme:toggle", Title: "Toggle Theme", Dynamics: "mf", Handler: "toggleTheme", Timing: "immediate", Kind: "ui"},
				sequence.Beat{Event: "app:ui:theme:changed", Title: "Announce Theme", Dynamics: "p", Handler: "announceTheme", Timing: "after-beat", Kind: "orchestration"},
			),
		},
	}
}
