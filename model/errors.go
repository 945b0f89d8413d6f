package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("assignment not found")
	ErrPermissionDenied = errors.New("permission denied")
	// ErrDocumentGone means an open assignment can no longer be shown.
	ErrDocumentGone = errors.New("assignment is no longer available")
)

// ValidationError is a user-reportable input problem. The share failures are
// package-level values so callers can match them with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

var (
	ErrEmptyEmail          = NewValidationError("email", "email is required")
	ErrShareTargetNotFound = NewValidationError("email", "no user with that email")
	ErrAlreadyCollaborator = NewValidationError("email", "user is already a collaborator")
	ErrCannotShareWithSelf = NewValidationError("email", "cannot share with self")
	ErrSharingUnsupported  = NewValidationError("email", "per-user assignments cannot be shared")
)

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// PersistenceError wraps a failed read or write against the document store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func NewPersistenceError(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// SubscriptionError reports a live feed that stopped delivering snapshots.
type SubscriptionError struct {
	Target string
	Err    error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("subscription %s: %v", e.Target, e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }
