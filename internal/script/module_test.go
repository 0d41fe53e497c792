package script

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/sequencer/internal/modules"
	"github.com/nfrund/sequencer/internal/source"
)

const handlersScript = `
exports := ["loadComponents", "notifyUi"]

result := undefined
if handler == "loadComponents" {
	result = {count: len(data.components), source: "tengo"}
} else if handler == "notifyUi" {
	log("notify " + data.id)
	result = {notified: true}
}
`

func scriptSource(files map[string]string) source.Source {
	fsys := fstest.MapFS{}
	for name, body := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(body)}
	}
	return source.NewChain(source.EnvEmbedded, nil, source.NewEmbeddedSource(fsys))
}

func TestModuleLoader_Load(t *testing.T) {
	ctx := context.Background()
	loader := NewModuleLoader(scriptSource(map[string]string{
		"json-sequences/library/handlers.tengo": handlersScript,
		"json-sequences/library/empty.tengo":    `result := 1`,
	}), nil, nil)

	assert.True(t, loader.CanLoad("json-sequences/library/handlers.tengo"))
	assert.False(t, loader.CanLoad("@sequencer/library"))

	t.Run("handlers from exports", func(t *testing.T) {
		m, err := loader.Load(ctx, "json-sequences/library/handlers.tengo")
		require.NoError(t, err)

		handlers, ok := m.Handlers()
		require.True(t, ok)
		assert.Equal(t, []string{"loadComponents", "notifyUi"}, handlers.Names())

		got, err := handlers["loadComponents"](ctx, map[string]any{"components": []any{"a", "b"}})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"count": int64(2), "source": "tengo"}, got)

		got, err = handlers["notifyUi"](ctx, map[string]any{"id": "x"})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"notified": true}, got)
	})

	t.Run("no exports", func(t *testing.T) {
		_, err := loader.Load(ctx, "json-sequences/library/empty.tengo")
		assert.ErrorContains(t, err, "declares no exports")
	})

	t.Run("missing script", func(t *testing.T) {
		_, err := loader.Load(ctx, "json-sequences/library/missing.tengo")
		assert.ErrorIs(t, err, source.ErrNotFound)
	})
}

func TestModuleLoader_ThroughRegistry(t *testing.T) {
	ctx := context.Background()
	reg := modules.NewRegistry(nil)
	reg.AddDynamic(NewModuleLoader(scriptSource(map[string]string{
		"json-sequences/library/handlers.tengo": handlersScript,
	}), nil, nil))

	ref := modules.Resolve("./handlers.tengo", "json-sequences/library", source.EnvNode)
	m, err := reg.LoadRef(ctx, ref)
	require.NoError(t, err)

	handlers, ok := m.Handlers()
	require.True(t, ok)
	assert.Len(t, handlers, 2)

	_, err = reg.Load(ctx, "@sequencer/not-registered")
	assert.ErrorIs(t, err, modules.ErrLoaderNotFound)
}
