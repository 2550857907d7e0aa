// Package apperror holds the error taxonomy shared by services and the HTTP layer.
package apperror

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed input
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validation builds a ValidationError from a format string
func Validation(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// AuthenticationError reports missing or bad credentials, including bad webhook signatures
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

func Unauthenticated(message string) error {
	return &AuthenticationError{Message: message}
}

// AuthorizationError reports a caller whose role or identity does not match the required actor
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

func Forbidden(format string, args ...interface{}) error {
	return &AuthorizationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a referenced row that does not exist
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// InvalidTransitionError reports a status change with no edge from the current status
type InvalidTransitionError struct {
	Entity    string
	Current   string
	Requested string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition from %q to %q", e.Entity, e.Current, e.Requested)
}

func InvalidTransition(entity, current, requested string) error {
	return &InvalidTransitionError{Entity: entity, Current: current, Requested: requested}
}

// AlreadyAssignedError is returned when accepting an offer on a request that already has one
type AlreadyAssignedError struct {
	RequestID string
	Status    string
}

func (e *AlreadyAssignedError) Error() string {
	return fmt.Sprintf("service request %s is already assigned (status %s)", e.RequestID, e.Status)
}

// ConflictError reports a uniqueness violation such as a duplicate email or review
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func Conflict(format string, args ...interface{}) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// PaymentProviderError wraps a failure of the upstream payment API
type PaymentProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *PaymentProviderError) Error() string {
	return fmt.Sprintf("payment provider %s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *PaymentProviderError) Unwrap() error { return e.Err }

func Provider(provider, op string, err error) error {
	return &PaymentProviderError{Provider: provider, Op: op, Err: err}
}

// DuplicateWebhookError marks a provider callback that was already applied.
// Callers treat it as success.
type DuplicateWebhookError struct {
	Reference string
	Status    string
}

func (e *DuplicateWebhookError) Error() string {
	return fmt.Sprintf("payment %s already processed with status %s", e.Reference, e.Status)
}

// IsDuplicateWebhook reports whether err is, or wraps, a DuplicateWebhookError
func IsDuplicateWebhook(err error) bool {
	var dup *DuplicateWebhookError
	return errors.As(err, &dup)
}
