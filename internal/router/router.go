// Package router is the topic publish/subscribe core. A publish resolves the
// topic's declared routes, plays each through the conductor, then notifies
// local subscribers, subject to the topic's throttle, debounce and dedupe
// policy.
package router

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/nfrund/sequencer/internal/conductor"
	"github.com/nfrund/sequencer/internal/manifest"
	"github.com/nfrund/sequencer/internal/metrics"
	"github.com/nfrund/sequencer/internal/pubsub"
	"github.com/nfrund/sequencer/internal/topicmgr"
)

// Handler receives a topic payload. ctx carries the delivery stack, so a
// handler republishing the topic it is handling is a no-op.
type Handler func(ctx context.Context, payload any) error

// Unsubscribe removes a subscription. It is safe to call more than once.
type Unsubscribe func()

type subscription struct {
	id      uint64
	topic   string
	handler Handler
	active  atomic.Bool

	// mu serializes deliveries so a replay cannot land after a live payload.
	mu        sync.Mutex
	delivered bool
}

type dedupeEntry struct {
	payload []byte
	at      time.Time
}

// Router routes published payloads. Use New.
type Router struct {
	topics   *topicmgr.Manager
	logger   *slog.Logger
	clock    clock.Clock
	metrics  *metrics.Metrics
	bus      pubsub.Publisher
	tracer   trace.Tracer
	validate bool
	replay   map[string]struct{}

	nextID atomic.Uint64

	mu       sync.Mutex
	subs     map[string][]*subscription
	cache    map[string]any
	sched    map[string]*schedule
	lastSent map[string]dedupeEntry
}

// Option configures a Router.
type Option func(*Router)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) { r.logger = logger }
}

// WithClock injects the clock that drives throttle, debounce and dedupe.
func WithClock(c clock.Clock) Option {
	return func(r *Router) { r.clock = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// WithBus mirrors every delivery onto p.
func WithBus(p pubsub.Publisher) Option {
	return func(r *Router) { r.bus = p }
}

func WithTracer(t trace.Tracer) Option {
	return func(r *Router) { r.tracer = t }
}

// WithPayloadValidation checks payloads against topic schemas before delivery.
func WithPayloadValidation(enabled bool) Option {
	return func(r *Router) { r.validate = enabled }
}

// WithReplayTopics enables late-subscriber replay for the named topics.
func WithReplayTopics(topics ...string) Option {
	return func(r *Router) {
		for _, t := range topics {
			r.replay[t] = struct{}{}
		}
	}
}

// New creates a router over the topics held by mgr.
func New(mgr *topicmgr.Manager, opts ...Option) *Router {
	r := &Router{
		topics:   mgr,
		logger:   slog.Default(),
		clock:    clock.New(),
		tracer:   noop.NewTracerProvider().Tracer("router"),
		replay:   make(map[string]struct{}),
		subs:     make(map[string][]*subscription),
		cache:    make(map[string]any),
		sched:    make(map[string]*schedule),
		lastSent: make(map[string]dedupeEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "router")
	return r
}

// Init loads the topics manifest. It is safe to call repeatedly.
func (r *Router) Init(ctx context.Context) error {
	return r.topics.Load(ctx)
}

// Topics lists the declared topic names, sorted.
func (r *Router) Topics() []string {
	return r.topics.Names()
}

// Topic returns a declared topic's definition.
func (r *Router) Topic(name string) (manifest.TopicDef, bool) {
	return r.topics.Get(name)
}

// IsReplayTopic reports whether topic keeps a replay payload.
func (r *Router) IsReplayTopic(topic string) bool {
	_, ok := r.replay[topic]
	return ok
}

// Subscribe registers handler for topic. When the topic is replay-enabled and
// has a cached payload, handler receives it once on a separate goroutine
// unless it unsubscribes first or a live publish reaches it before the replay
// runs.
func (r *Router) Subscribe(topic string, handler Handler) Unsubscribe {
	sub := &subscription{id: r.nextID.Add(1), topic: topic, handler: handler}
	sub.active.Store(true)

	r.mu.Lock()
	r.subs[topic] = append(r.subs[topic], sub)
	cached, hasCached := r.cache[topic]
	r.mu.Unlock()

	if hasCached && r.IsReplayTopic(topic) {
		go r.deliverTo(withTopic(context.Background(), topic), sub, cached, true)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.active.Store(false)
			r.remove(sub)
		})
	}
}

// deliverTo hands payload to sub. A replay is dropped once sub has seen any
// delivery.
func (r *Router) deliverTo(ctx context.Context, sub *subscription, payload any, replay bool) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if !sub.active.Load() || (replay && sub.delivered) {
		return
	}
	sub.delivered = true
	r.invoke(ctx, sub, payload)
}

func (r *Router) remove(sub *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.subs[sub.topic]
	next := make([]*subscription, 0, len(current))
	for _, s := range current {
		if s != sub {
			next = append(next, s)
		}
	}
	if len(next) == 0 {
		delete(r.subs, sub.topic)
		return
	}
	r.subs[sub.topic] = next
}

// SubscriberCount returns the number of live subscriptions on topic.
func (r *Router) SubscriberCount(topic string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs[topic])
}

// Reset drops subscribers, replay payloads and pending scheduled deliveries.
func (r *Router) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, subs := range r.subs {
		for _, s := range subs {
			s.active.Store(false)
		}
	}
	for _, s := range r.sched {
		s.stop()
	}
	r.subs = make(map[string][]*subscription)
	r.cache = make(map[string]any)
	r.sched = make(map[string]*schedule)
	r.lastSent = make(map[string]dedupeEntry)
}

// PublishOption configures one Publish call.
type PublishOption func(*publishOptions)

type publishOptions struct {
	conductor conductor.Conductor
}

// WithConductor routes this publish through c instead of the global conductor.
func WithConductor(c conductor.Conductor) PublishOption {
	return func(o *publishOptions) { o.conductor = c }
}
