// LOCATION: internal/errors/errors.go
//
// This file provides:
// - Sentinel errors for the four failure classes of a generation run
// - Typed errors carrying sensor, sample and file context
// - Error category checking functions
// - ExitCode mapping for the CLI
// - Error wrapping utilities

package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ============================================================================
// Exit codes - returned by the CLI
// ============================================================================

const (
	ExitOK         = 0
	ExitUnknown    = 1
	ExitConfig     = 2
	ExitGeneration = 3
	ExitWrite      = 4
)

// ============================================================================
// Sentinel errors
// ============================================================================

var (
	// Failure classes
	ErrConfig      = errors.New("invalid run configuration")
	ErrGeneration  = errors.New("generation failed")
	ErrWrite       = errors.New("write failed")
	ErrInterrupted = errors.New("run interrupted")

	// Component state errors
	ErrWriterClosed   = errors.New("parquet writer is closed")
	ErrBatchSealed    = errors.New("batch is sealed")
	ErrQueueClosed    = errors.New("batch queue is closed")
	ErrQueueAborted   = errors.New("batch queue consumer stopped")
	ErrOrderViolation = errors.New("merged stream out of order")
)

// ============================================================================
// Typed errors
// ============================================================================

// ConfigError reports an invalid run configuration. The run never starts.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config: %s", e.Reason)
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrConfig.
func (e *ConfigError) Unwrap() error { return ErrConfig }

// GenerationError reports a sensor source producing a non-finite or
// out-of-domain value.
type GenerationError struct {
	SensorID string
	Index    int64
	Value    float64
	Reason   string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation: sensor %s sample %d: %s (value=%v)",
		e.SensorID, e.Index, e.Reason, e.Value)
}

// Unwrap lets errors.Is match ErrGeneration.
func (e *GenerationError) Unwrap() error { return ErrGeneration }

// WriteError reports an I/O failure while appending a row group or writing
// file metadata. RowGroup is -1 when the failure is not tied to a row group.
type WriteError struct {
	Path     string
	Op       string
	RowGroup int
	Err      error
}

func (e *WriteError) Error() string {
	if e.RowGroup >= 0 {
		return fmt.Sprintf("write: %s %s (row group %d): %v", e.Op, e.Path, e.RowGroup, e.Err)
	}
	return fmt.Sprintf("write: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes both the write class and the underlying cause.
func (e *WriteError) Unwrap() []error { return []error{ErrWrite, e.Err} }

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// Join is a convenience wrapper for errors.Join
var Join = errors.Join

// New is a convenience wrapper for errors.New
var New = errors.New

// IsConfig returns true if err is a configuration error.
func IsConfig(err error) bool {
	return errors.Is(err, ErrConfig)
}

// IsGeneration returns true if err is a generation error.
func IsGeneration(err error) bool {
	return errors.Is(err, ErrGeneration)
}

// IsWrite returns true if err is a write error.
func IsWrite(err error) bool {
	return errors.Is(err, ErrWrite) || errors.Is(err, ErrWriterClosed)
}

// IsInterrupted returns true if err is a cancellation.
func IsInterrupted(err error) bool {
	return errors.Is(err, ErrInterrupted)
}

// ExitCode maps an error to the CLI exit status. Interruption is a
// controlled early completion and exits cleanly.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case IsInterrupted(err):
		return ExitOK
	case IsConfig(err):
		return ExitConfig
	case IsGeneration(err):
		return ExitGeneration
	case IsWrite(err):
		return ExitWrite
	default:
		return ExitUnknown
	}
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// NewConfig creates a configuration error.
func NewConfig(field, reason string) error {
	return &ConfigError{Field: field, Reason: reason}
}

// NewConfigf creates a configuration error with a formatted reason.
func NewConfigf(field, format string, args ...interface{}) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ============================================================================
// Validation Errors Collection
// ============================================================================

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []error
}

// NewValidationErrors creates a new ValidationErrors collector.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add adds an error to the collection.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// AddField adds a field validation error.
func (v *ValidationErrors) AddField(field, reason string) {
	v.Errors = append(v.Errors, NewConfig(field, reason))
}

// AddFieldf adds a field validation error with a formatted reason.
func (v *ValidationErrors) AddFieldf(field, format string, args ...interface{}) {
	v.Errors = append(v.Errors, NewConfigf(field, format, args...))
}

// HasErrors returns true if there are any errors.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "validation failed with %d errors:", len(v.Errors))
	for _, err := range v.Errors {
		b.WriteString("\n  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Err returns nil if no errors, otherwise returns the ValidationErrors.
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Unwrap returns all collected errors for errors.Is/As support.
func (v *ValidationErrors) Unwrap() []error {
	return v.Errors
}
