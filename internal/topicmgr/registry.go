package topicmgr

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nfrund/sequencer/internal/manifest"
)

// Registry manages the collection of registered topics
type Registry struct {
	entries map[string]*Entry
	mu      sync.RWMutex
}

// NewRegistry creates a new topic registry
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
	}
}

// Register adds a topic to the registry
func (r *Registry) Register(name string, def manifest.TopicDef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		return &TopicError{
			Type:    ErrorValidationFailed,
			Message: "topic name cannot be empty",
		}
	}

	if _, exists := r.entries[name]; exists {
		return &TopicError{
			Type:    ErrorDuplicateRegistration,
			Topic:   name,
			Message: fmt.Sprintf("topic already registered: %s", name),
		}
	}

	r.entries[name] = &Entry{
		Name:         name,
		Def:          cloneDef(def),
		RegisteredAt: time.Now(),
	}
	return nil
}

// Get retrieves a topic definition by name and counts the lookup
func (r *Registry) Get(name string) (manifest.TopicDef, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[name]
	if !exists {
		return manifest.TopicDef{}, false
	}
	entry.UsageCount++
	return cloneDef(entry.Def), true
}

// GetEntry retrieves a copy of a registry entry by topic name
func (r *Registry) GetEntry(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[name]
	if !exists {
		return nil, false
	}
	return &Entry{
		Name:         entry.Name,
		Def:          cloneDef(entry.Def),
		RegisteredAt: entry.RegisteredAt,
		UsageCount:   entry.UsageCount,
	}, true
}

// Names returns all registered topic names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered topics
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// Reset removes all registered topics
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = make(map[string]*Entry)
}

// Stats returns registry statistics
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{TotalTopics: len(r.entries)}
	for _, entry := range r.entries {
		if entry.Def.Visibility == manifest.VisibilityInternal {
			stats.InternalTopics++
		} else {
			stats.PublicTopics++
		}
		if len(entry.Def.Routes) > 0 {
			stats.RoutedTopics++
		}
		if entry.Def.Perf.ThrottleMs > 0 {
			stats.ThrottledTopics++
		}
		if entry.Def.Perf.DebounceMs > 0 {
			stats.DebouncedTopics++
		}
	}
	return stats
}
