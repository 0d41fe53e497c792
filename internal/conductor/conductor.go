// Package conductor describes the external orchestration engine the core mounts
// sequences into and routes topic payloads to.
package conductor

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/nfrund/sequencer/internal/sequence"
)

// Conductor is the collaborator contract. The core never inspects how a
// conductor executes a mounted sequence.
type Conductor interface {
	Mount(ctx context.Context, seq *sequence.Sequence, handlers sequence.Handlers, pluginID string) error
	Play(ctx context.Context, pluginID, sequenceID string, payload any) (any, error)
	MountedPluginIDs() []string

	// MountedSequences returns the registry of sequence ids mounted into this
	// conductor. It must return the same value for the conductor's lifetime.
	MountedSequences() *MountedSet
}

// MountedSet records which sequence ids a conductor already has.
type MountedSet struct {
	mu      sync.Mutex
	mounted map[string]struct{}
	pending map[string]struct{}
}

// NewMountedSet creates an empty set.
func NewMountedSet() *MountedSet {
	return &MountedSet{
		mounted: make(map[string]struct{}),
		pending: make(map[string]struct{}),
	}
}

// Has reports whether id is mounted.
func (s *MountedSet) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.mounted[id]
	return ok
}

// Claim reserves id for mounting. It returns false when id is already mounted
// or another caller holds the reservation. A successful claim must be followed
// by Commit or Release.
func (s *MountedSet) Claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mounted[id]; ok {
		return false
	}
	if _, ok := s.pending[id]; ok {
		return false
	}
	s.pending[id] = struct{}{}
	return true
}

// Commit marks a claimed id as mounted.
func (s *MountedSet) Commit(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
	s.mounted[id] = struct{}{}
}

// Release drops a claim after a failed mount so a later load may retry.
func (s *MountedSet) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}

// IDs returns the mounted ids in sorted order.
func (s *MountedSet) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.mounted))
	for id := range s.mounted {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of mounted ids.
func (s *MountedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.mounted)
}

type holder struct{ c Conductor }

var global atomic.Pointer[holder]

// SetGlobal installs the well-known conductor used when a publish does not
// name one. Passing nil clears it.
func SetGlobal(c Conductor) {
	if c == nil {
		global.Store(nil)
		return
	}
	global.Store(&holder{c: c})
}

// Global returns the well-known conductor, or nil.
func Global() Conductor {
	h := global.Load()
	if h == nil {
		return nil
	}
	return h.c
}

// MountOnce mounts seq unless its id is already mounted or being mounted into
// c. It reports whether this call performed the mount.
func MountOnce(ctx context.Context, c Conductor, seq *sequence.Sequence, handlers sequence.Handlers, pluginID string) (bool, error) {
	set := c.MountedSequences()
	if !set.Claim(seq.ID) {
		return false, nil
	}
	if err := c.Mount(ctx, seq, handlers, pluginID); err != nil {
		set.Release(seq.ID)
		return false, err
	}
	set.Commit(seq.ID)
	return true, nil
}
