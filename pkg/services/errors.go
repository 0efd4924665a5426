// Package services holds the validation boundary in front of rule and execution storage.
package services

import (
	"errors"
	"fmt"
)

// Validation Errors (400 Bad Request).
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInvalidRule    = errors.New("invalid rule")
	ErrInvalidTrigger = errors.New("invalid trigger")
	ErrInvalidStatus  = errors.New("invalid execution status")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidRule) ||
		errors.Is(err, ErrInvalidTrigger) ||
		errors.Is(err, ErrInvalidStatus)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Code returns the API error code carried by err, or "" when it has none.
func Code(err error) string {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Code
	}

	return ""
}
