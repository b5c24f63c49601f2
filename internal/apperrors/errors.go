// Package apperrors defines the error kinds surfaced by the studio to its callers.
package apperrors

import (
	"errors"
	"fmt"
)

// ValidationError reports invalid user input. The operation was aborted
// before any state changed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError reports an identifier that no longer exists.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// QuotaExceededError reports that durable storage rejected a write for capacity.
type QuotaExceededError struct {
	Err error
}

func (e *QuotaExceededError) Error() string {
	return "storage limit exceeded: delete some old projects and try again"
}

func (e *QuotaExceededError) Unwrap() error {
	return e.Err
}

// RemoteServiceError wraps any failure of the generation service.
type RemoteServiceError struct {
	Op  string
	Err error
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteServiceError) Unwrap() error {
	return e.Err
}

// Validation is a shorthand for a ValidationError.
func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFound is a shorthand for a NotFoundError.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// Remote wraps err as a RemoteServiceError for op. A nil err stays nil.
func Remote(op string, err error) error {
	if err == nil {
		return nil
	}
	var rse *RemoteServiceError
	if errors.As(err, &rse) {
		return err
	}
	return &RemoteServiceError{Op: op, Err: err}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsQuotaExceeded(err error) bool {
	var target *QuotaExceededError
	return errors.As(err, &target)
}

func IsRemote(err error) bool {
	var target *RemoteServiceError
	return errors.As(err, &target)
}
