package common

import (
	"errors"
	"fmt"
)

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id '%s' not found", e.Resource, e.ID)
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ValidationError indicates invalid input data.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// UnauthorizedError indicates missing or invalid authentication.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	if e.Message == "" {
		return "unauthorized"
	}
	return e.Message
}

// NewUnauthorizedError creates a new UnauthorizedError.
func NewUnauthorizedError(message string) *UnauthorizedError {
	return &UnauthorizedError{Message: message}
}

// InvalidTransitionError indicates a status change that violates the
// allowed from-state set for a notification. It usually signals a benign
// race (duplicate webhook, late retry) and is handled as a no-op by
// reconciliation rather than surfaced as a hard failure.
type InvalidTransitionError struct {
	ID   string
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition for notification '%s': %s -> %s", e.ID, e.From, e.To)
}

// NewInvalidTransitionError creates a new InvalidTransitionError.
func NewInvalidTransitionError(id, from, to string) *InvalidTransitionError {
	return &InvalidTransitionError{ID: id, From: from, To: to}
}

// IsInvalidTransition reports whether err wraps an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var it *InvalidTransitionError
	return errors.As(err, &it)
}

// SendError indicates a channel provider failure. Permanent failures
// (invalid recipient, provider-rejected content) must not be retried;
// everything else is treated as transient and retried with backoff.
type SendError struct {
	Provider  string
	Message   string
	Permanent bool
}

func (e *SendError) Error() string {
	return fmt.Sprintf("%s provider error: %s", e.Provider, e.Message)
}

// NewTransientSendError creates a retryable SendError.
func NewTransientSendError(provider, message string) *SendError {
	return &SendError{Provider: provider, Message: message}
}

// NewPermanentSendError creates a non-retryable SendError.
func NewPermanentSendError(provider, message string) *SendError {
	return &SendError{Provider: provider, Message: message, Permanent: true}
}

// IsPermanentSendError reports whether err wraps a permanent SendError.
// Unclassified errors default to transient, fail-safe toward retry.
func IsPermanentSendError(err error) bool {
	var se *SendError
	return errors.As(err, &se) && se.Permanent
}
