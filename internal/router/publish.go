package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nfrund/sequencer/internal/conductor"
	"github.com/nfrund/sequencer/internal/manifest"
	"github.com/nfrund/sequencer/internal/metrics"
	"github.com/nfrund/sequencer/internal/pubsub"
)

// delivery is one publish on its way to routes and subscribers.
type delivery struct {
	ctx       context.Context
	topic     string
	def       manifest.TopicDef
	payload   any
	conductor conductor.Conductor
	publishID string
}

// Publish delivers payload on topic. It returns *UnknownTopicError for an
// undeclared topic and *PayloadValidationError when validation is enabled and
// the payload does not match the topic schema. Route and subscriber failures
// are logged, never returned. A publish of a topic already being delivered on
// ctx is dropped with a warning.
func (r *Router) Publish(ctx context.Context, topic string, payload any, opts ...PublishOption) error {
	def, ok := r.topics.Get(topic)
	if !ok {
		r.metrics.Publish(topic, metrics.OutcomeUnknown)
		return &UnknownTopicError{Topic: topic}
	}

	if r.validate && def.PayloadSchema != nil {
		if err := def.PayloadSchema.Validate(payload); err != nil {
			r.metrics.Publish(topic, metrics.OutcomeInvalid)
			return &PayloadValidationError{Topic: topic, Cause: err}
		}
	}

	if delivering(ctx, topic) {
		r.logger.Warn("Reentrant publish blocked", "topic", topic, "stack", DeliveryStack(ctx))
		r.metrics.Publish(topic, metrics.OutcomeBlocked)
		return nil
	}

	var o publishOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.conductor == nil {
		o.conductor = conductor.Global()
	}

	d := &delivery{
		ctx:       ctx,
		topic:     topic,
		def:       def,
		payload:   payload,
		conductor: o.conductor,
		publishID: uuid.NewString(),
	}

	if r.duplicate(d) {
		r.logger.Debug("Duplicate publish suppressed", "topic", topic, "publish_id", d.publishID)
		r.metrics.Publish(topic, metrics.OutcomeDeduped)
		return nil
	}

	switch {
	case def.Perf.ThrottleMs > 0:
		r.throttle(d, time.Duration(def.Perf.ThrottleMs)*time.Millisecond)
	case def.Perf.DebounceMs > 0:
		r.debounce(d, time.Duration(def.Perf.DebounceMs)*time.Millisecond)
	default:
		r.guardedDeliver(d)
	}
	return nil
}

// guardedDeliver pushes the topic on the delivery stack and delivers, unless
// the topic is already on it.
func (r *Router) guardedDeliver(d *delivery) {
	if delivering(d.ctx, d.topic) {
		r.logger.Warn("Reentrant publish blocked", "topic", d.topic, "publish_id", d.publishID)
		r.metrics.Publish(d.topic, metrics.OutcomeBlocked)
		return
	}
	d.ctx = withTopic(d.ctx, d.topic)
	r.deliver(d)
}

func (r *Router) deliver(d *delivery) {
	start := r.clock.Now()
	ctx, span := r.tracer.Start(d.ctx, "router.publish "+d.topic, trace.WithAttributes(
		attribute.String("sequencer.topic", d.topic),
		attribute.String("sequencer.publish_id", d.publishID),
		attribute.Int("sequencer.routes", len(d.def.Routes)),
	))
	defer span.End()

	attrs := append([]any{"topic", d.topic, "publish_id", d.publishID}, correlationAttrs(d.def, d.payload)...)
	logger := r.logger.With(attrs...)

	switch {
	case len(d.def.Routes) == 0:
	case d.conductor == nil:
		logger.Warn("No conductor available, skipping routes", "routes", len(d.def.Routes))
	default:
		for _, route := range d.def.Routes {
			_, err := d.conductor.Play(ctx, route.PluginID, route.SequenceID, d.payload)
			r.metrics.Play(d.topic, route.PluginID, err)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				logger.Warn("Route play failed", "plugin_id", route.PluginID, "sequence_id", route.SequenceID, "error", err)
			}
		}
	}

	r.mu.Lock()
	if r.IsReplayTopic(d.topic) {
		r.cache[d.topic] = d.payload
	}
	r.remember(d)
	subs := append([]*subscription(nil), r.subs[d.topic]...)
	r.mu.Unlock()

	for _, sub := range subs {
		r.deliverTo(ctx, sub, d.payload, false)
	}

	r.mirror(ctx, d, logger)
	r.metrics.Publish(d.topic, metrics.OutcomeDelivered)
	r.metrics.ObserveDelivery(d.topic, r.clock.Since(start))
}

// invoke calls one subscriber, isolating errors and panics.
func (r *Router) invoke(ctx context.Context, sub *subscription, payload any) {
	defer func() {
		if rec := recover(); rec != nil {
			r.metrics.SubscriberError(sub.topic)
			r.logger.Error("Subscriber panicked", "topic", sub.topic, "subscription", sub.id, "panic", fmt.Sprint(rec))
		}
	}()
	if err := sub.handler(ctx, payload); err != nil {
		r.metrics.SubscriberError(sub.topic)
		r.logger.Warn("Subscriber failed", "topic", sub.topic, "subscription", sub.id, "error", err)
	}
}

func (r *Router) mirror(ctx context.Context, d *delivery, logger *slog.Logger) {
	if r.bus == nil {
		return
	}
	md := map[string]string{pubsub.MetaPublishID: d.publishID}
	if m, ok := d.payload.(map[string]any); ok {
		for _, key := range d.def.CorrelationKeys {
			if v, ok := m[key]; ok {
				md[key] = fmt.Sprint(v)
			}
		}
	}
	if err := pubsub.PublishJSON(ctx, r.bus, d.topic, d.payload, md); err != nil {
		logger.Debug("Bus mirror failed", "error", err)
	}
}

// duplicate reports whether d repeats the last delivered payload of its topic
// within the topic's dedupe window.
func (r *Router) duplicate(d *delivery) bool {
	window := time.Duration(d.def.Perf.DedupeWindowMs) * time.Millisecond
	if window <= 0 {
		return false
	}
	encoded, err := json.Marshal(d.payload)
	if err != nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	last, ok := r.lastSent[d.topic]
	return ok && r.clock.Since(last.at) < window && bytes.Equal(last.payload, encoded)
}

// remember records d for dedupe. Callers hold r.mu.
func (r *Router) remember(d *delivery) {
	if d.def.Perf.DedupeWindowMs <= 0 {
		return
	}
	encoded, err := json.Marshal(d.payload)
	if err != nil {
		return
	}
	r.lastSent[d.topic] = dedupeEntry{payload: encoded, at: r.clock.Now()}
}

func correlationAttrs(def manifest.TopicDef, payload any) []any {
	m, ok := payload.(map[string]any)
	if !ok || len(def.CorrelationKeys) == 0 {
		return nil
	}
	var attrs []any
	for _, key := range def.CorrelationKeys {
		if v, ok := m[key]; ok {
			attrs = append(attrs, key, v)
		}
	}
	return attrs
}
