// Package script runs Tengo scripts as handler modules. A handler module
// declares the handler names it serves in a top-level exports array and
// branches on the handler variable:
//
//	exports := ["loadComponents", "notifyUi"]
//
//	result := undefined
//	if handler == "loadComponents" {
//		result = {count: len(data.components)}
//	}
//
// Each handler call runs the script with handler and data set and returns
// the script's result variable.
package script

import (
	"time"
)

// ErrorType categorizes different types of script errors
type ErrorType string

const (
	ErrorTypeCompilation ErrorType = "compilation"
	ErrorTypeExecution   ErrorType = "execution"
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeInput       ErrorType = "input"
)

// Script is a script document and where it came from
type Script struct {
	Path     string
	Content  string
	Checksum string
	LoadedAt time.Time
}

// CompiledScript is a script whose syntax has been checked
type CompiledScript struct {
	Script *Script
}

// Output is the result of one script run
type Output struct {
	Result        any
	Exports       []string
	ExecutionTime time.Duration
}

// SecurityLimits defines resource constraints for script execution
type SecurityLimits struct {
	MaxExecutionTime time.Duration
	MaxAllocs        int64
	AllowedPackages  []string
}

// ScriptError represents script-related errors with context
type ScriptError struct {
	Type      ErrorType
	Path      string
	Handler   string
	Message   string
	Cause     error
	Timestamp time.Time
}

func (e *ScriptError) Error() string {
	msg := e.Path + ": " + e.Message
	if e.Handler != "" {
		msg = e.Path + "#" + e.Handler + ": " + e.Message
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ScriptError) Unwrap() error {
	return e.Cause
}

// NewScriptError creates a new ScriptError with the given parameters
func NewScriptError(errorType ErrorType, path, handler, message string, cause error) *ScriptError {
	return &ScriptError{
		Type:      errorType,
		Path:      path,
		Handler:   handler,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}
