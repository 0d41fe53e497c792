package plugins

import (
	"context"
	"runtime"
	"time"

	"github.com/nfrund/sequencer/internal/sequence"
)

func diagnostics() builtin {
	return builtin{
		specifier: "@sequencer/diagnostics",
		handlers: sequence.Handlers{
			"heartbeat": func(context.Context, map[string]any) (any, error) {
				return map[string]any{
					"at":         time.Now().UTC().Format(time.RFC3339),
					"goroutines": runtime.NumGoroutine(),
				}, nil
			},
		},
		sequences: []*sequence.Sequence{
			single("DiagnosticsPlugin", "diagnostics-heartbeat-symphony", "Diagnostics Heartbeat",
				sequence.Beat{Event: "diagnostics:heartbeat", Title: "Heartbeat", Handler: "heartbeat", Timing: "immediate", Kind: "telemetry"},
			),
		},
	}
}
