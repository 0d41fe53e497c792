package conductor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/nfrund/sequencer/internal/sequence"
)

// Mounted is a sequence held by a Local conductor.
type Mounted struct {
	Sequence *sequence.Sequence
	Handlers sequence.Handlers
	PluginID string
}

// Local is an in-process conductor that records mounts and acknowledges plays
// without executing beats. It backs the CLI and HTTP surface when no external
// engine is attached.
type Local struct {
	mu        sync.RWMutex
	sequences map[string]Mounted
	plugins   map[string]struct{}
	mountedID *MountedSet
	logger    *slog.Logger
}

var _ Conductor = (*Local)(nil)

// NewLocal creates a Local conductor with a fresh mounted set.
func NewLocal(logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{
		sequences: make(map[string]Mounted),
		plugins:   make(map[string]struct{}),
		mountedID: NewMountedSet(),
		logger:    logger.With("component", "conductor"),
	}
}

// Mount records the sequence under pluginID.
func (l *Local) Mount(ctx context.Context, seq *sequence.Sequence, handlers sequence.Handlers, pluginID string) error {
	if seq == nil {
		return fmt.Errorf("mount: nil sequence")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sequences[seq.ID] = Mounted{Sequence: seq, Handlers: handlers, PluginID: pluginID}
	l.plugins[pluginID] = struct{}{}
	l.logger.Debug("Mounted sequence", "plugin_id", pluginID, "sequence_id", seq.ID, "beats", seq.BeatCount())
	return nil
}

// Play acknowledges a play request for a mounted sequence.
func (l *Local) Play(ctx context.Context, pluginID, sequenceID string, payload any) (any, error) {
	l.mu.RLock()
	m, ok := l.sequences[sequenceID]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("play: sequence %s not mounted", sequenceID)
	}
	if m.PluginID != pluginID {
		return nil, fmt.Errorf("play: sequence %s is mounted under %s, not %s", sequenceID, m.PluginID, pluginID)
	}
	l.logger.Info("Play requested", "plugin_id", pluginID, "sequence_id", sequenceID)
	return map[string]any{"pluginId": pluginID, "sequenceId": sequenceID}, nil
}

// MountedPluginIDs returns plugin ids with at least one mounted sequence.
func (l *Local) MountedPluginIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.plugins))
	for id := range l.plugins {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MountedSequences returns this conductor's mounted-id registry.
func (l *Local) MountedSequences() *MountedSet {
	return l.mountedID
}

// Sequence returns a mounted sequence by id.
func (l *Local) Sequence(id string) (Mounted, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.sequences[id]
	return m, ok
}

// Logger returns the conductor's logger.
func (l *Local) Logger() *slog.Logger {
	return l.logger
}
