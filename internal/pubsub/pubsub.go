// Package pubsub mirrors router deliveries onto a message bus so out-of-process
// consumers (websocket streams, tracing) can observe them.
package pubsub

import (
	"context"
)

// Metadata keys set on every mirrored delivery.
const (
	MetaTopic     = "topic"
	MetaPublishID = "publish_id"
)

// Message is the structure passed between components on the bus.
type Message struct {
	// Topic identifies the router topic the delivery belongs to.
	Topic string
	// Payload is the JSON-encoded delivery payload.
	Payload []byte
	// Metadata carries the publish id and any correlation keys.
	Metadata map[string]string
}

// Handler defines the function signature for processing a received message.
type Handler func(ctx context.Context, msg Message) error

// Publisher defines the contract for sending messages to the bus.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Subscriber defines the contract for receiving messages from the bus.
type Subscriber interface {
	// Subscribe starts listening to the given topic and returns immediately;
	// messages are handled until ctx is canceled.
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}
