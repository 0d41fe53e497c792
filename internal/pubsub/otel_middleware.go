package pubsub

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const previewLimit = 100

func messageContext(msg *message.Message) context.Context {
	if ctx := msg.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// messageAttrs describes msg for a bus span of the given operation.
func messageAttrs(op, topic string, msg *message.Message) []attribute.KeyValue {
	preview := string(msg.Payload)
	if len(preview) > previewLimit {
		preview = preview[:previewLimit] + "..."
	}
	return []attribute.KeyValue{
		attribute.String("messaging.system", "watermill"),
		attribute.String("messaging.operation", op),
		attribute.String("messaging.destination", topic),
		attribute.String("messaging.message_id", msg.UUID),
		attribute.String("sequencer.publish_id", msg.Metadata.Get(MetaPublishID)),
		attribute.Int("messaging.message_payload_size_bytes", len(msg.Payload)),
		attribute.String("messaging.message_payload_preview", preview),
	}
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// TracingMiddleware wraps a delivery handler in a "bus.deliver <topic>" span.
func TracingMiddleware(tracer trace.Tracer) func(message.HandlerFunc) message.HandlerFunc {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			topic := msg.Metadata.Get(MetaTopic)
			ctx, span := tracer.Start(messageContext(msg), "bus.deliver "+topic,
				trace.WithSpanKind(trace.SpanKindConsumer),
				trace.WithAttributes(messageAttrs("process", topic, msg)...),
			)
			defer span.End()

			msg.SetContext(ctx)
			out, err := h(msg)
			if err != nil {
				fail(span, err)
				return nil, err
			}
			return out, nil
		}
	}
}

// tracedPublisher opens a producer span per message before handing the batch
// to the wrapped publisher.
type tracedPublisher struct {
	message.Publisher
	tracer trace.Tracer
}

// NewPublisherTracingMiddleware wraps publisher so every publish is traced.
func NewPublisherTracingMiddleware(publisher message.Publisher, tracer trace.Tracer) message.Publisher {
	return &tracedPublisher{Publisher: publisher, tracer: tracer}
}

func (p *tracedPublisher) Publish(topic string, messages ...*message.Message) error {
	spans := make([]trace.Span, 0, len(messages))
	for _, msg := range messages {
		ctx, span := p.tracer.Start(messageContext(msg), "bus.publish "+topic,
			trace.WithSpanKind(trace.SpanKindProducer),
			trace.WithAttributes(messageAttrs("publish", topic, msg)...),
		)
		msg.SetContext(ctx)
		spans = append(spans, span)
	}

	err := p.Publisher.Publish(topic, messages...)
	for _, span := range spans {
		if err != nil {
			fail(span, err)
		}
		span.End()
	}
	return err
}
