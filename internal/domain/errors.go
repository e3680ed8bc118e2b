package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies domain failures so callers can map them to responses
type ErrorKind string

const (
	KindValidation             ErrorKind = "VALIDATION_ERROR"
	KindPermissionDenied       ErrorKind = "PERMISSION_DENIED"
	KindInvalidStateTransition ErrorKind = "INVALID_STATE_TRANSITION"
	KindReferentialIntegrity   ErrorKind = "REFERENTIAL_INTEGRITY_ERROR"
	KindOverdraft              ErrorKind = "OVERDRAFT_ERROR"
	KindNotFound               ErrorKind = "NOT_FOUND"
	KindConflict               ErrorKind = "CONFLICT"
)

// AppError represents a structured domain error
type AppError struct {
	Kind    ErrorKind `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError of the same kind, so the sentinels below work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks
var (
	ErrValidation             = &AppError{Kind: KindValidation, Message: "validation failed"}
	ErrPermissionDenied       = &AppError{Kind: KindPermissionDenied, Message: "permission denied"}
	ErrInvalidStateTransition = &AppError{Kind: KindInvalidStateTransition, Message: "invalid state transition"}
	ErrReferentialIntegrity   = &AppError{Kind: KindReferentialIntegrity, Message: "referenced record no longer exists"}
	ErrOverdraft              = &AppError{Kind: KindOverdraft, Message: "payment exceeds available balance"}
	ErrNotFound               = &AppError{Kind: KindNotFound, Message: "not found"}
	ErrConflict               = &AppError{Kind: KindConflict, Message: "conflict"}
)

// NewValidationError reports malformed input
func NewValidationError(field, message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message, Details: fmt.Sprintf("Field: %s", field)}
}

// NewPermissionDenied reports an actor lacking a capability
func NewPermissionDenied(role Role, action Action) *AppError {
	return &AppError{
		Kind:    KindPermissionDenied,
		Message: "permission denied",
		Details: fmt.Sprintf("Role: %s, Action: %s", role, action),
	}
}

// NewInvalidStateTransition reports a transition out of a terminal state
func NewInvalidStateTransition(from, to ExpenseStatus) *AppError {
	return &AppError{
		Kind:    KindInvalidStateTransition,
		Message: "invalid state transition",
		Details: fmt.Sprintf("From: %s, To: %s", from, to),
	}
}

// NewReferentialIntegrityError reports a missing or deleted reference
func NewReferentialIntegrityError(resource, id string) *AppError {
	return &AppError{
		Kind:    KindReferentialIntegrity,
		Message: "referenced record no longer exists",
		Details: fmt.Sprintf("%s ID: %s", resource, id),
	}
}

// NewOverdraftError reports a payment larger than the remaining balance
func NewOverdraftError(sourceID string, remaining, requested Money) *AppError {
	return &AppError{
		Kind:    KindOverdraft,
		Message: "payment exceeds available balance",
		Details: fmt.Sprintf("Source ID: %s, Remaining: %s, Requested: %s", sourceID, remaining.StringFixed(2), requested.StringFixed(2)),
	}
}

// NewNotFound reports a missing record
func NewNotFound(resource, id string) *AppError {
	return &AppError{Kind: KindNotFound, Message: resource + " not found", Details: fmt.Sprintf("ID: %s", id)}
}

// NewConflict reports a concurrent modification or duplicate
func NewConflict(message string, cause error) *AppError {
	return &AppError{Kind: KindConflict, Message: message, Cause: cause}
}

// KindOf returns the kind of the first AppError in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}
