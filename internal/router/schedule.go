package router

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/nfrund/sequencer/internal/metrics"
)

type scheduleState int

const (
	stateIdle scheduleState = iota
	statePending
	stateFired
)

// schedule is a topic's throttle or debounce state.
type schedule struct {
	state    scheduleState
	lastFire time.Time
	timer    *clock.Timer
	pending  *delivery
	// seq invalidates timers that fire after being superseded.
	seq uint64
}

func (s *schedule) stop() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = nil
	s.seq++
}

func (r *Router) scheduleFor(topic string) *schedule {
	s, ok := r.sched[topic]
	if !ok {
		s = &schedule{}
		r.sched[topic] = s
	}
	return s
}

// detach keeps ctx's values, including the delivery stack, but drops its
// cancellation so a trailing delivery outlives the publishing call.
func detach(d *delivery) *delivery {
	out := *d
	out.ctx = context.WithoutCancel(d.ctx)
	return &out
}

// throttle delivers at most once per interval. A publish inside the interval
// replaces the pending trailing delivery, which fires when the interval ends.
func (r *Router) throttle(d *delivery, interval time.Duration) {
	r.mu.Lock()
	s := r.scheduleFor(d.topic)
	now := r.clock.Now()

	if s.timer == nil && (s.lastFire.IsZero() || now.Sub(s.lastFire) >= interval) {
		s.lastFire = now
		s.state = stateFired
		r.mu.Unlock()
		r.guardedDeliver(d)
		return
	}

	s.pending = detach(d)
	if s.timer == nil {
		s.seq++
		seq := s.seq
		s.state = statePending
		s.timer = r.clock.AfterFunc(interval-now.Sub(s.lastFire), func() {
			r.fire(d.topic, s, seq, true)
		})
	}
	r.mu.Unlock()
	r.metrics.Publish(d.topic, metrics.OutcomeScheduled)
}

// debounce delivers only the last publish of a burst, wait after it.
func (r *Router) debounce(d *delivery, wait time.Duration) {
	r.mu.Lock()
	s := r.scheduleFor(d.topic)
	if s.timer != nil {
		s.timer.Stop()
	}
	s.pending = detach(d)
	s.seq++
	seq := s.seq
	s.state = statePending
	s.timer = r.clock.AfterFunc(wait, func() {
		r.fire(d.topic, s, seq, false)
	})
	r.mu.Unlock()
	r.metrics.Publish(d.topic, metrics.OutcomeScheduled)
}

func (r *Router) fire(topic string, s *schedule, seq uint64, throttled bool) {
	r.mu.Lock()
	if r.sched[topic] != s || s.seq != seq {
		r.mu.Unlock()
		return
	}
	pending := s.pending
	s.pending = nil
	s.timer = nil
	s.state = stateFired
	if throttled {
		s.lastFire = r.clock.Now()
	}
	r.mu.Unlock()

	if pending != nil {
		r.guardedDeliver(pending)
	}
}

// pendingState reports a topic's scheduler state.
func (r *Router) pendingState(topic string) scheduleState {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sched[topic]
	if !ok {
		return stateIdle
	}
	return s.state
}
