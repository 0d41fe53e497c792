package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SEQUENCER_FORCE_ENV", "embedded")
	t.Setenv("LOG_LEVEL", "error")

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTopicsCommands(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		out, err := run(t, "topics", "list", "--prefix", "canvas.")
		require.NoError(t, err)
		assert.Contains(t, out, "canvas.component.drag.move")
		assert.Contains(t, out, "throttle 16ms")
		assert.NotContains(t, out, "library.load.requested")
	})

	t.Run("get", func(t *testing.T) {
		out, err := run(t, "topics", "get", "canvas.component.select.requested")
		require.NoError(t, err)
		assert.Contains(t, out, "CanvasComponentPlugin -> canvas-component-select-symphony")
		assert.Contains(t, out, "Required:    id")
	})

	t.Run("get unknown", func(t *testing.T) {
		_, err := run(t, "topics", "get", "no.such.topic")
		assert.ErrorContains(t, err, "not found")
	})
}

func TestInteractionsResolve(t *testing.T) {
	out, err := run(t, "interactions", "resolve", "library.component.drop", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"library.component.drop":{"pluginId":"LibraryComponentPlugin","sequenceId":"library-component-drop-symphony"}}`, out)

	_, err = run(t, "interactions", "resolve", "nope")
	assert.Error(t, err)
}

func TestPluginsList(t *testing.T) {
	out, err := run(t, "plugins", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "@sequencer/library-component#register")
}

func TestSequencesLoad(t *testing.T) {
	out, err := run(t, "sequences", "load", "LibraryPlugin")
	require.NoError(t, err)
	assert.Contains(t, out, "Directories (1):")
	assert.Contains(t, out, "library-load-symphony")
}

func TestPublish(t *testing.T) {
	out, err := run(t, "publish", "canvas.component.select.requested", `{"id":"node-1"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "to 1 route(s)")

	_, err = run(t, "publish", "canvas.component.select.requested", `{"id":`)
	assert.ErrorContains(t, err, "payload must be JSON")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "sequencer v0.1.0\n", out)
}
