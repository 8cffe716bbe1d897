package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a DomainError for transport mapping.
type ErrorKind string

const (
	KindValidation      ErrorKind = "VALIDATION"
	KindNotAllowed      ErrorKind = "NOT_ALLOWED"
	KindNotFound        ErrorKind = "NOT_FOUND"
	KindInvalidState    ErrorKind = "INVALID_STATE"
	KindConflict        ErrorKind = "CONFLICT"
	KindForbidden       ErrorKind = "FORBIDDEN"
	KindUnauthorized    ErrorKind = "UNAUTHORIZED"
	KindOperationFailed ErrorKind = "OPERATION_FAILED"
)

// DomainError is the error type returned by domain and application code.
type DomainError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewValidationError reports malformed or missing caller input.
func NewValidationError(message string) *DomainError {
	return &DomainError{Kind: KindValidation, Message: message}
}

// NewValidationErrorFrom reports a validation failure identified by a sentinel error.
func NewValidationErrorFrom(sentinel error) *DomainError {
	return &DomainError{Kind: KindValidation, Message: sentinel.Error(), Err: sentinel}
}

// NewNotAllowedError reports a policy rejection. The sentinel stays matchable with errors.Is.
func NewNotAllowedError(sentinel error) *DomainError {
	return &DomainError{Kind: KindNotAllowed, Message: sentinel.Error(), Err: sentinel}
}

// NewNotFoundError reports a missing entity.
func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{Kind: KindNotFound, Message: fmt.Sprintf("%s not found: %s", entity, id)}
}

// NewInvalidStateError reports a forbidden state transition.
func NewInvalidStateError(from, to string) *DomainError {
	return &DomainError{
		Kind:    KindInvalidState,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

// NewConflictError reports a write that collided with existing state.
func NewConflictError(message string) *DomainError {
	return &DomainError{Kind: KindConflict, Message: message}
}

// NewConflictErrorFrom reports a conflict identified by a sentinel error.
func NewConflictErrorFrom(sentinel error) *DomainError {
	return &DomainError{Kind: KindConflict, Message: sentinel.Error(), Err: sentinel}
}

// NewForbiddenError reports an authenticated caller acting outside its rights.
func NewForbiddenError(message string) *DomainError {
	return &DomainError{Kind: KindForbidden, Message: message}
}

// NewUnauthorizedError reports missing or invalid credentials.
func NewUnauthorizedError(message string) *DomainError {
	return &DomainError{Kind: KindUnauthorized, Message: message}
}

// NewOperationError wraps a backend fault under a fixed operation sentinel.
// Both the sentinel and the cause remain reachable through errors.Is.
func NewOperationError(sentinel, cause error) *DomainError {
	if cause == nil {
		return &DomainError{Kind: KindOperationFailed, Message: sentinel.Error(), Err: sentinel}
	}
	return &DomainError{
		Kind:    KindOperationFailed,
		Message: fmt.Sprintf("%s: %s", sentinel.Error(), causeMessage(cause)),
		Err:     fmt.Errorf("%w: %w", sentinel, cause),
	}
}

// KindOf returns the kind of the first DomainError in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsNotFound reports whether err is a not-found DomainError.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// causeMessage unwraps nested DomainErrors so the user sees the innermost message once.
func causeMessage(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
