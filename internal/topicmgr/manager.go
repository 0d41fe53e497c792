package topicmgr

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/nfrund/sequencer/internal/manifest"
	"github.com/nfrund/sequencer/internal/source"
)

// Manager owns the loaded topics manifest.
type Manager struct {
	registry  *Registry
	validator *Validator
	src       source.Source
	logger    *slog.Logger

	mu     sync.Mutex
	loaded bool
}

// NewManager creates a manager that loads the topics manifest through src.
// A nil src gives a manager populated only by Register.
func NewManager(src source.Source, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		registry:  NewRegistry(),
		validator: NewValidator(),
		src:       src,
		logger:    logger.With("component", "topicmgr"),
	}
}

// Load reads the topics manifest once. A manifest missing from every tier
// leaves the manager empty and is not an error; later calls are no-ops.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return nil
	}
	m.loaded = true

	if m.src == nil {
		return nil
	}

	var doc manifest.TopicsManifest
	if err := manifest.Load(ctx, m.src, manifest.TopicsManifestPath, &doc); err != nil {
		m.logger.Debug("Topics manifest unavailable, continuing empty", "error", err)
		return nil
	}

	names := make([]string, 0, len(doc.Topics))
	for name := range doc.Topics {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := m.Register(name, doc.Topics[name]); err != nil {
			m.logger.Warn("Skipping topic definition", "topic", name, "error", err)
		}
	}
	m.logger.Info("Loaded topics manifest", "topics", m.registry.Count())
	return nil
}

// Loaded reports whether Load has run.
func (m *Manager) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// Register validates and adds a topic definition.
func (m *Manager) Register(name string, def manifest.TopicDef) error {
	if err := m.validator.ValidateName(name); err != nil {
		return &TopicError{
			Type:    ErrorValidationFailed,
			Topic:   name,
			Message: "invalid topic name",
			Cause:   err,
		}
	}
	if err := m.validator.ValidateDefinition(def); err != nil {
		return &TopicError{
			Type:    ErrorValidationFailed,
			Topic:   name,
			Message: "topic validation failed",
			Cause:   err,
		}
	}
	return m.registry.Register(name, def)
}

// MustRegister registers a topic and panics on error
func (m *Manager) MustRegister(name string, def manifest.TopicDef) {
	if err := m.Register(name, def); err != nil {
		panic(fmt.Sprintf("failed to register topic %s: %v", name, err))
	}
}

// Get returns a copy of the named topic definition.
func (m *Manager) Get(name string) (manifest.TopicDef, bool) {
	return m.registry.Get(name)
}

// Lookup is Get with a TopicError for unknown topics.
func (m *Manager) Lookup(name string) (manifest.TopicDef, error) {
	def, ok := m.registry.Get(name)
	if !ok {
		return manifest.TopicDef{}, &TopicError{
			Type:    ErrorTopicNotFound,
			Topic:   name,
			Message: fmt.Sprintf("topic not found: %s", name),
		}
	}
	return def, nil
}

// Names returns the registered topic names, sorted.
func (m *Manager) Names() []string {
	return m.registry.Names()
}

// Count returns the number of registered topics
func (m *Manager) Count() int {
	return m.registry.Count()
}

// Stats returns registry statistics
func (m *Manager) Stats() Stats {
	return m.registry.Stats()
}

// Entry returns bookkeeping for a registered topic.
func (m *Manager) Entry(name string) (*Entry, bool) {
	return m.registry.GetEntry(name)
}

// Reset drops all topics and allows Load to run again.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry.Reset()
	m.loaded = false
}
