package topicmgr

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/sequencer/internal/manifest"
	"github.com/nfrund/sequencer/internal/source"
)

const topicsJSON = `{
  "topics": {
    "canvas.component.create.requested": {
      "routes": [{"pluginId": "CanvasComponentPlugin", "sequenceId": "canvas-component-create-symphony"}],
      "visibility": "public",
      "perf": {"throttleMs": 16}
    },
    "broken.topic": {
      "routes": [{"pluginId": "CanvasComponentPlugin"}]
    },
    "bad name": {"routes": []}
  }
}`

func newSource(files map[string]string) source.Source {
	fsys := fstest.MapFS{}
	for name, body := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(body)}
	}
	return source.NewChain(source.EnvEmbedded, nil, source.NewEmbeddedSource(fsys))
}

func TestManager_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("loads valid topics and skips invalid ones", func(t *testing.T) {
		m := NewManager(newSource(map[string]string{manifest.TopicsManifestPath: topicsJSON}), nil)
		require.NoError(t, m.Load(ctx))

		assert.Equal(t, []string{"canvas.component.create.requested"}, m.Names())
		def, ok := m.Get("canvas.component.create.requested")
		require.True(t, ok)
		assert.Equal(t, 16, def.Perf.ThrottleMs)
		assert.Equal(t, "CanvasComponentPlugin", def.Routes[0].PluginID)
	})

	t.Run("missing manifest leaves manager empty", func(t *testing.T) {
		m := NewManager(newSource(nil), nil)
		require.NoError(t, m.Load(ctx))
		assert.True(t, m.Loaded())
		assert.Zero(t, m.Count())
	})

	t.Run("load is idempotent", func(t *testing.T) {
		m := NewManager(newSource(map[string]string{manifest.TopicsManifestPath: topicsJSON}), nil)
		require.NoError(t, m.Load(ctx))
		require.NoError(t, m.Load(ctx))
		assert.Equal(t, 1, m.Count())
	})
}

func TestManager_Register(t *testing.T) {
	m := NewManager(nil, nil)
	def := manifest.TopicDef{Routes: []manifest.Route{{PluginID: "P", SequenceID: "S"}}}

	require.NoError(t, m.Register("a.b", def))

	var topicErr *TopicError
	err := m.Register("a.b", def)
	require.True(t, errors.As(err, &topicErr))
	assert.Equal(t, ErrorDuplicateRegistration, topicErr.Type)

	err = m.Register("", def)
	require.True(t, errors.As(err, &topicErr))
	assert.Equal(t, ErrorValidationFailed, topicErr.Type)

	err = m.Register("neg.perf", manifest.TopicDef{Perf: manifest.Perf{ThrottleMs: -1}})
	assert.Error(t, err)

	_, err = m.Lookup("missing")
	require.True(t, errors.As(err, &topicErr))
	assert.Equal(t, ErrorTopicNotFound, topicErr.Type)
}

func TestManager_DefinitionsAreCopies(t *testing.T) {
	m := NewManager(nil, nil)
	m.MustRegister("a.b", manifest.TopicDef{Routes: []manifest.Route{{PluginID: "P", SequenceID: "S"}}})

	def, _ := m.Get("a.b")
	def.Routes[0].PluginID = "mutated"

	again, _ := m.Get("a.b")
	assert.Equal(t, "P", again.Routes[0].PluginID)

	entry, ok := m.Entry("a.b")
	require.True(t, ok)
	assert.Equal(t, int64(2), entry.UsageCount)
}

func TestManager_Stats(t *testing.T) {
	m := NewManager(nil, nil)
	m.MustRegister("x.public", manifest.TopicDef{Perf: manifest.Perf{DebounceMs: 10}})
	m.MustRegister("x.internal", manifest.TopicDef{
		Visibility: manifest.VisibilityInternal,
		Routes:     []manifest.Route{{PluginID: "P", SequenceID: "S"}},
	})

	stats := m.Stats()
	assert.Equal(t, 2, stats.TotalTopics)
	assert.Equal(t, 1, stats.InternalTopics)
	assert.Equal(t, 1, stats.RoutedTopics)
	assert.Equal(t, 1, stats.DebouncedTopics)

	m.Reset()
	assert.Zero(t, m.Count())
	assert.False(t, m.Loaded())
}
