package finance

import (
	"errors"
	"fmt"
)

// Sentinel errors, matched with errors.Is against the typed errors below.
var (
	ErrValidation  = errors.New("invalid input")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrPersistence = errors.New("not yet saved")
)

// ValidationError reports malformed input. It is detected before any state
// change.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an operation on an unknown id.
type NotFoundError struct {
	Kind string // "account", "transaction", "budget", "tag"
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %q not found", e.Kind, e.ID) }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError reports a mutation that would duplicate an existing entity.
type ConflictError struct {
	Kind     string
	Existing string // id of the entity in the way.
	Reason   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflicts with %q: %s", e.Kind, e.Existing, e.Reason)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// PersistenceError reports that a committed mutation could not be handed to,
// or written by, the gateway. The in-memory mutation stands.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: not yet saved: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
