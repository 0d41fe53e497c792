package pubsub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type payload struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

func TestWatermillBridge_PublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bridge := NewWatermillBridge(nil, nil)
	defer bridge.Close()

	var (
		mu       sync.Mutex
		received []Message
	)
	require.NoError(t, bridge.Subscribe(ctx, "library.loaded", func(_ context.Context, msg Message) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, msg)
		return nil
	}))

	require.NoError(t, PublishJSON(ctx, bridge, "library.loaded", payload{ID: "a", Count: 2}, map[string]string{MetaPublishID: "pub-1"}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	msg := received[0]
	mu.Unlock()

	assert.Equal(t, "library.loaded", msg.Topic)
	assert.Equal(t, "pub-1", msg.Metadata[MetaPublishID])
	decoded, err := Decode[payload](msg)
	require.NoError(t, err)
	assert.Equal(t, payload{ID: "a", Count: 2}, decoded)
}

func TestWatermillBridge_Tracing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
	bridge := NewWatermillBridge(nil, tp.Tracer(TracerName))
	defer bridge.Close()

	done := make(chan struct{})
	require.NoError(t, bridge.Subscribe(ctx, "a.b", func(context.Context, Message) error {
		close(done)
		return nil
	}))
	require.NoError(t, PublishJSON(ctx, bridge, "a.b", map[string]any{"x": 1}, nil))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}

	assert.Eventually(t, func() bool {
		names := map[string]bool{}
		for _, s := range recorder.Ended() {
			names[s.Name()] = true
		}
		return names["bus.publish a.b"] && names["bus.deliver a.b"]
	}, time.Second, 5*time.Millisecond)
}

func TestSetupOTel_Disabled(t *testing.T) {
	tracer, cleanup, err := SetupOTel(context.Background(), TracingConfig{})
	require.NoError(t, err)
	require.NotNil(t, tracer)
	cleanup()
}

func TestNewMessage_EncodeError(t *testing.T) {
	_, err := NewMessage("bad", make(chan int), nil)
	assert.Error(t, err)
}
