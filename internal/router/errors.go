package router

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTopic matches any *UnknownTopicError.
	ErrUnknownTopic = errors.New("unknown topic")
	// ErrInvalidPayload matches any *PayloadValidationError.
	ErrInvalidPayload = errors.New("invalid payload")
)

// UnknownTopicError is returned when publishing to a topic the manifest does
// not declare.
type UnknownTopicError struct {
	Topic string
}

func (e *UnknownTopicError) Error() string {
	return fmt.Sprintf("unknown topic: %s", e.Topic)
}

func (e *UnknownTopicError) Unwrap() error {
	return ErrUnknownTopic
}

// PayloadValidationError is returned when a payload fails the topic's schema.
type PayloadValidationError struct {
	Topic string
	Cause error
}

func (e *PayloadValidationError) Error() string {
	return fmt.Sprintf("invalid payload for %s: %v", e.Topic, e.Cause)
}

func (e *PayloadValidationError) Unwrap() []error {
	return []error{ErrInvalidPayload, e.Cause}
}
