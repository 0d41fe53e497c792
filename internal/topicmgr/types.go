package topicmgr

import (
	"time"

	"github.com/nfrund/sequencer/internal/manifest"
)

// Entry is a registered topic with bookkeeping.
type Entry struct {
	Name         string            `json:"name"`
	Def          manifest.TopicDef `json:"def"`
	RegisteredAt time.Time         `json:"registered_at"`
	UsageCount   int64             `json:"usage_count"`
}

// TopicError represents structured errors in the topic management system
type TopicError struct {
	Type    ErrorType `json:"type"`
	Topic   string    `json:"topic"`
	Message string    `json:"message"`
	Cause   error     `json:"cause,omitempty"`
}

// ErrorType defines the type of topic management error
type ErrorType string

const (
	ErrorTopicNotFound         ErrorType = "topic_not_found"
	ErrorDuplicateRegistration ErrorType = "duplicate_registration"
	ErrorValidationFailed      ErrorType = "validation_failed"
)

func (e *TopicError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *TopicError) Unwrap() error {
	return e.Cause
}

// Stats summarises the registered topics.
type Stats struct {
	TotalTopics    int `json:"total_topics"`
	PublicTopics   int `json:"public_topics"`
	InternalTopics int `json:"internal_topics"`
	RoutedTopics   int `json:"routed_topics"`
	ThrottledTopics int `json:"throttled_topics"`
	DebouncedTopics int `json:"debounced_topics"`
}

func cloneDef(def manifest.TopicDef) manifest.TopicDef {
	out := def
	out.Routes = append([]manifest.Route(nil), def.Routes...)
	out.CorrelationKeys = append([]string(nil), def.CorrelationKeys...)
	return out
}
