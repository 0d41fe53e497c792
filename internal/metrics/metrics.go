// Package metrics exposes Prometheus counters for routing and mounting.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sequencer"

// Publish outcomes.
const (
	OutcomeDelivered = "delivered"
	OutcomeScheduled = "scheduled"
	OutcomeBlocked   = "reentrant_blocked"
	OutcomeDeduped   = "deduped"
	OutcomeUnknown   = "unknown_topic"
	OutcomeInvalid   = "invalid_payload"
	OutcomeOK        = "ok"
	OutcomeError     = "error"
)

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	publishes        *prometheus.CounterVec
	plays            *prometheus.CounterVec
	subscriberErrors *prometheus.CounterVec
	deliveryDuration *prometheus.HistogramVec
	mounts           *prometheus.CounterVec
	mountFailures    *prometheus.CounterVec
	registrations    *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publishes_total",
			Help:      "Router publish calls by topic and outcome.",
		}, []string{"topic", "outcome"}),
		plays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_plays_total",
			Help:      "Conductor plays issued for topic routes.",
		}, []string{"topic", "plugin_id", "outcome"}),
		subscriberErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriber_errors_total",
			Help:      "Local subscriber handlers that returned an error or panicked.",
		}, []string{"topic"}),
		deliveryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_duration_seconds",
			Help:      "Time spent delivering one publish to routes and subscribers.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"topic"}),
		mounts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sequences_mounted_total",
			Help:      "Sequences mounted into the conductor.",
		}, []string{"plugin_id", "origin"}),
		mountFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sequence_mount_failures_total",
			Help:      "Sequences skipped because loading or mounting failed.",
		}, []string{"plugin_id"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runtime_registrations_total",
			Help:      "Plugin runtime registrations by outcome.",
		}, []string{"plugin_id", "outcome"}),
	}
	reg.MustRegister(
		m.publishes, m.plays, m.subscriberErrors, m.deliveryDuration,
		m.mounts, m.mountFailures, m.registrations,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Publish(topic, outcome string) {
	if m == nil {
		return
	}
	m.publishes.WithLabelValues(topic, outcome).Inc()
}

func (m *Metrics) Play(topic, pluginID string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.plays.WithLabelValues(topic, pluginID, outcome).Inc()
}

func (m *Metrics) SubscriberError(topic string) {
	if m == nil {
		return
	}
	m.subscriberErrors.WithLabelValues(topic).Inc()
}

func (m *Metrics) ObserveDelivery(topic string, d time.Duration) {
	if m == nil {
		return
	}
	m.deliveryDuration.WithLabelValues(topic).Observe(d.Seconds())
}

// Mounted counts a mount; origin is "catalog" or "runtime".
func (m *Metrics) Mounted(pluginID, origin string) {
	if m == nil {
		return
	}
	m.mounts.WithLabelValues(pluginID, origin).Inc()
}

func (m *Metrics) MountFailed(pluginID string) {
	if m == nil {
		return
	}
	m.mountFailures.WithLabelValues(pluginID).Inc()
}

func (m *Metrics) Registration(pluginID string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.registrations.WithLabelValues(pluginID, outcome).Inc()
}
