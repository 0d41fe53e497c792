package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
)

// NewMessage JSON-encodes payload into a bus message for topic.
func NewMessage(topic string, payload any, metadata map[string]string) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s payload: %w", topic, err)
	}
	md := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		md[k] = v
	}
	md[MetaTopic] = topic
	return Message{Topic: topic, Payload: data, Metadata: md}, nil
}

// Decode unmarshals a message payload into T.
func Decode[T any](msg Message) (T, error) {
	var out T
	if err := json.Unmarshal(msg.Payload, &out); err != nil {
		return out, fmt.Errorf("decode %s payload: %w", msg.Topic, err)
	}
	return out, nil
}

// PublishJSON encodes payload and publishes it.
func PublishJSON(ctx context.Context, p Publisher, topic string, payload any, metadata map[string]string) error {
	msg, err := NewMessage(topic, payload, metadata)
	if err != nil {
		return err
	}
	return p.Publish(ctx, msg)
}
