package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrRuleNotFound indicates a rule does not exist or was deleted.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrRuleAlreadyExists indicates a rule with the same identifier already exists.
	ErrRuleAlreadyExists = errors.New("rule already exists")

	// ErrExecutionNotFound indicates an execution record was not found.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrExecutionNotPending indicates an execution was already completed.
	ErrExecutionNotPending = errors.New("execution is not pending")

	// ErrDuplicateSuccess indicates a successful execution already exists for the idempotency key.
	ErrDuplicateSuccess = errors.New("successful execution already recorded for idempotency key")
)

// RuleError wraps rule-related errors with additional context.
type RuleError struct {
	Op     string // Operation being performed (e.g., "GetByID", "Update", "Delete")
	RuleID string
	Err    error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s operation failed for rule %s: %v", e.Op, e.RuleID, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

func (e *RuleError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewRuleError(op, ruleID string, err error) *RuleError {
	return &RuleError{Op: op, RuleID: ruleID, Err: err}
}

// ExecutionError wraps execution-related errors with additional context.
type ExecutionError struct {
	Op          string
	ExecutionID string
	Err         error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s operation failed for execution %s: %v", e.Op, e.ExecutionID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func (e *ExecutionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewExecutionError(op, executionID string, err error) *ExecutionError {
	return &ExecutionError{Op: op, ExecutionID: executionID, Err: err}
}

// IsRuleNotFound checks if an error indicates a rule was not found.
func IsRuleNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound)
}

// IsExecutionNotFound checks if an error indicates an execution was not found.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// IsExecutionNotPending checks if an error indicates a second completion attempt.
func IsExecutionNotPending(err error) bool {
	return errors.Is(err, ErrExecutionNotPending)
}

// IsDuplicateSuccess checks if an error indicates a second success for one idempotency key.
func IsDuplicateSuccess(err error) bool {
	return errors.Is(err, ErrDuplicateSuccess)
}
