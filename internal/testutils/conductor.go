package testutils

import (
	"context"
	"sort"
	"sync"

	"github.com/nfrund/sequencer/internal/conductor"
	"github.com/nfrund/sequencer/internal/sequence"
)

// Play is a recorded conductor play.
type Play struct {
	PluginID   string
	SequenceID string
	Payload    any
	Ctx        context.Context
}

// MountCall is a recorded conductor mount.
type MountCall struct {
	PluginID string
	Sequence *sequence.Sequence
	Handlers sequence.Handlers
}

// RecordingConductor records mounts and plays. Errors can be injected per
// sequence id, and OnPlay runs inside Play.
type RecordingConductor struct {
	mu        sync.Mutex
	plays     []Play
	mounts    []MountCall
	mounted   *conductor.MountedSet
	MountErrs map[string]error
	PlayErrs  map[string]error
	OnPlay    func(ctx context.Context, pluginID, sequenceID string, payload any)
}

var _ conductor.Conductor = (*RecordingConductor)(nil)

// NewRecordingConductor creates an empty recorder.
func NewRecordingConductor() *RecordingConductor {
	return &RecordingConductor{
		mounted:   conductor.NewMountedSet(),
		MountErrs: map[string]error{},
		PlayErrs:  map[string]error{},
	}
}

func (c *RecordingConductor) Mount(_ context.Context, seq *sequence.Sequence, handlers sequence.Handlers, pluginID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mounts = append(c.mounts, MountCall{PluginID: pluginID, Sequence: seq, Handlers: handlers})
	return c.MountErrs[seq.ID]
}

func (c *RecordingConductor) Play(ctx context.Context, pluginID, sequenceID string, payload any) (any, error) {
	c.mu.Lock()
	c.plays = append(c.plays, Play{PluginID: pluginID, SequenceID: sequenceID, Payload: payload, Ctx: ctx})
	err := c.PlayErrs[sequenceID]
	hook := c.OnPlay
	c.mu.Unlock()

	if hook != nil {
		hook(ctx, pluginID, sequenceID, payload)
	}
	return nil, err
}

func (c *RecordingConductor) MountedPluginIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := map[string]struct{}{}
	for _, m := range c.mounts {
		seen[m.PluginID] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (c *RecordingConductor) MountedSequences() *conductor.MountedSet {
	return c.mounted
}

// Plays returns recorded plays in call order.
func (c *RecordingConductor) Plays() []Play {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Play(nil), c.plays...)
}

// Mounts returns recorded mounts in call order.
func (c *RecordingConductor) Mounts() []MountCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]MountCall(nil), c.mounts...)
}

// MountsFor returns recorded mounts of sequence id.
func (c *RecordingConductor) MountsFor(id string) []MountCall {
	var out []MountCall
	for _, m := range c.Mounts() {
		if m.Sequence.ID == id {
			out = append(out, m)
		}
	}
	return out
}
