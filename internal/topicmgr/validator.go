package topicmgr

import (
	"fmt"
	"regexp"

	"github.com/nfrund/sequencer/internal/manifest"
)

// Validator checks topic names and definitions before registration
type Validator struct {
	namePattern *regexp.Regexp
}

// NewValidator creates a new topic validator
func NewValidator() *Validator {
	// Dotted segments: canvas.component.create.requested, a.b
	return &Validator{
		namePattern: regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*(\.[A-Za-z0-9][A-Za-z0-9_-]*)*$`),
	}
}

// ValidateName checks if a topic name follows the naming convention
func (v *Validator) ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) > 200 {
		return fmt.Errorf("name too long (max 200 characters)")
	}
	if !v.namePattern.MatchString(name) {
		return fmt.Errorf("name must be dot-separated segments of letters, digits, '_' or '-'")
	}
	return nil
}

// ValidateDefinition checks a definition's routes, visibility and perf policy.
func (v *Validator) ValidateDefinition(def manifest.TopicDef) error {
	if err := manifest.ValidateTopic(def); err != nil {
		return fmt.Errorf("invalid routes: %w", err)
	}

	switch def.Visibility {
	case "", manifest.VisibilityPublic, manifest.VisibilityInternal:
	default:
		return fmt.Errorf("invalid visibility: %s", def.Visibility)
	}

	if def.Perf.ThrottleMs < 0 || def.Perf.DebounceMs < 0 || def.Perf.DedupeWindowMs < 0 {
		return fmt.Errorf("perf intervals cannot be negative")
	}
	return nil
}
