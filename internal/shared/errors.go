package shared

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or incomplete input.
	ErrValidation = errors.New("validation failed")
	// ErrInsufficientStock indicates demand exceeds delivered stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidState indicates the operation is not allowed in the current status.
	ErrInvalidState = errors.New("invalid state")
	// ErrStorage indicates the unit of work could not commit.
	ErrStorage = errors.New("storage failure")
	// ErrBusy indicates a lock could not be acquired before the configured timeout.
	ErrBusy = errors.New("storage busy")
)

// ValidationError collects field level problems for a single input.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns a ValidationError holding one field message.
func NewValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

// Add records a message for field. The first message per field wins.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; exists {
		return
	}
	e.Fields[field] = message
}

// Empty reports whether no field failed.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

// OrNil returns the error when at least one field failed.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	if e.Empty() {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ProblemDetails exposes the field map to HTTP problem responses.
func (e *ValidationError) ProblemDetails() any { return e.Fields }

// ErrorKind returns a short label for err, used for metrics and logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrIdempotencyConflict):
		return "duplicate"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrStorage):
		return "storage"
	default:
		return "error"
	}
}
