package app

import (
	"context"
	"testing"
	"time"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/sequencer/internal/conductor"
	"github.com/nfrund/sequencer/internal/config"
	"github.com/nfrund/sequencer/internal/pubsub"
	"github.com/nfrund/sequencer/internal/registration"
	"github.com/nfrund/sequencer/internal/router"
	"github.com/nfrund/sequencer/internal/testutils"
)

func embeddedConfig(t *testing.T) *config.Config {
	cfg := testutils.ConfigForTests(t)
	cfg.ForceEnv = "embedded"
	cfg.ReplayTopics = []string{"app.ui.theme.changed"}
	return cfg
}

func TestPackage_DeclaresEachProviderOnce(t *testing.T) {
	logger, _ := testutils.NewLogCapture()
	var injector *do.RootScope
	require.NotPanics(t, func() { injector = do.New(Package(embeddedConfig(t), logger)) })
	defer injector.Shutdown()

	_, err := do.Invoke[*registration.Registrar](injector)
	require.NoError(t, err)
	_, err = do.Invoke[*router.Router](injector)
	require.NoError(t, err)
}

func TestApp_StartWithEmbeddedArtifacts(t *testing.T) {
	ctx := context.Background()
	logger, _ := testutils.NewLogCapture()

	a, err := New(embeddedConfig(t), logger)
	require.NoError(t, err)
	defer func() { assert.NoError(t, a.Shutdown(ctx)) }()

	sum, err := a.Start(ctx)
	require.NoError(t, err)

	assert.Empty(t, sum.Failed)
	assert.Equal(t, 11, a.Conductor.MountedSequences().Len())
	assert.Equal(t, conductor.Conductor(a.Conductor), conductor.Global())
	assert.Contains(t, a.Router.Topics(), "canvas.component.select.requested")

	route, err := a.Interactions.Resolve("library.component.drop")
	require.NoError(t, err)
	assert.Equal(t, "library-component-drop-symphony", route.SequenceID)
}

func TestApp_PublishRoutesToMountedSequence(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger, logs := testutils.NewLogCapture()

	a, err := New(embeddedConfig(t), logger)
	require.NoError(t, err)
	defer a.Shutdown(context.Background())
	_, err = a.Start(ctx)
	require.NoError(t, err)

	mirrored := make(chan pubsub.Message, 1)
	require.NoError(t, a.Bus.Subscribe(ctx, "app.ui.theme.toggle.requested", func(_ context.Context, msg pubsub.Message) error {
		mirrored <- msg
		return nil
	}))

	require.NoError(t, a.Router.Publish(ctx, "app.ui.theme.toggle.requested", map[string]any{"theme": "light"}))
	assert.Zero(t, logs.Count("Route play failed"))

	select {
	case msg := <-mirrored:
		assert.JSONEq(t, `{"theme":"light"}`, string(msg.Payload))
	case <-time.After(time.Second):
		t.Fatal("publish was not mirrored onto the bus")
	}

	err = a.Router.Publish(ctx, "not.a.topic", nil)
	assert.ErrorIs(t, err, router.ErrUnknownTopic)
}

func TestApp_PluginFirstMode(t *testing.T) {
	cfg := embeddedConfig(t)
	cfg.DisableJSONCatalogFallback = true

	a, err := New(cfg, nil)
	require.NoError(t, err)
	defer a.Shutdown(context.Background())

	sum, err := a.Start(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sum.Catalog)
	assert.Equal(t, 4, a.Conductor.MountedSequences().Len())
}
