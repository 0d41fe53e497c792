package interactions

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/sequencer/internal/manifest"
	"github.com/nfrund/sequencer/internal/source"
)

const interactionJSON = `{
  "routes": {
    "library.load": {"pluginId": "LibraryPlugin", "sequenceId": "library-load-from-manifest"},
    "custom.key": {"pluginId": "CustomPlugin", "sequenceId": "custom-symphony"},
    "broken.key": {"pluginId": "CustomPlugin"}
  }
}`

func embedded(files map[string]string) source.Source {
	fsys := fstest.MapFS{}
	for name, body := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(body)}
	}
	return source.NewChain(source.EnvEmbedded, nil, source.NewEmbeddedSource(fsys))
}

func TestResolver_Init(t *testing.T) {
	r := New(embedded(map[string]string{manifest.InteractionManifestPath: interactionJSON}))
	require.NoError(t, r.Init(context.Background()))

	t.Run("manifest overrides defaults", func(t *testing.T) {
		route, err := r.Resolve("library.load")
		require.NoError(t, err)
		assert.Equal(t, "library-load-from-manifest", route.SequenceID)
	})

	t.Run("manifest adds keys", func(t *testing.T) {
		route, err := r.Resolve("custom.key")
		require.NoError(t, err)
		assert.Equal(t, manifest.Route{PluginID: "CustomPlugin", SequenceID: "custom-symphony"}, route)
	})

	t.Run("defaults still resolve", func(t *testing.T) {
		route, err := r.Resolve("canvas.component.create")
		require.NoError(t, err)
		assert.Equal(t, "CanvasComponentPlugin", route.PluginID)
	})

	t.Run("invalid routes are dropped", func(t *testing.T) {
		_, err := r.Resolve("broken.key")
		assert.ErrorIs(t, err, ErrUnknownInteraction)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := r.Resolve("nope")
		var unknown *UnknownInteractionError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, "nope", unknown.Key)
	})

	assert.Contains(t, r.Keys(), "custom.key")
	assert.Contains(t, r.Keys(), "app.ui.theme.toggle")
}

func TestResolver_DefaultsBeforeLoad(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte(`{"routes": {"late.key": {"pluginId": "P", "sequenceId": "S"}}}`))
	}))
	defer srv.Close()
	defer close(release)

	src := source.NewChain(source.EnvBrowser, nil, source.NewHTTPSource(srv.URL, srv.Client()))
	r := New(src)

	route, err := r.Resolve("library.load")
	require.NoError(t, err)
	assert.Equal(t, "library-load-symphony", route.SequenceID)

	_, err = r.Resolve("late.key")
	assert.ErrorIs(t, err, ErrUnknownInteraction)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Init(ctx), context.DeadlineExceeded)
}

func TestResolver_LoadFailureKeepsDefaults(t *testing.T) {
	r := New(embedded(nil), WithDefaults(map[string]manifest.Route{"only": {PluginID: "P", SequenceID: "S"}}))
	require.NoError(t, r.Init(context.Background()))

	route, err := r.Resolve("only")
	require.NoError(t, err)
	assert.Equal(t, "S", route.SequenceID)
	assert.Equal(t, []string{"only"}, r.Keys())
}

func TestResolver_SetRoutesForTesting(t *testing.T) {
	r := New(nil, WithDefaults(map[string]manifest.Route{}))
	r.SetRoutesForTesting(map[string]manifest.Route{"x": {PluginID: "P", SequenceID: "S"}})
	require.NoError(t, r.Init(context.Background()))

	route, err := r.Resolve("x")
	require.NoError(t, err)
	assert.Equal(t, "P", route.PluginID)
}
