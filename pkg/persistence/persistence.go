// Package persistence provides the storage abstraction for workflow rules and their executions.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/hireflow/pkg/models"
)

type Persistence interface {
	RuleRepository() RuleRepository
	ExecutionRepository() ExecutionRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// RuleRepository stores workflow rules. Deleted rules are soft deleted and never
// returned by GetByID, List or ListActiveByTrigger.
type RuleRepository interface {
	Create(ctx context.Context, rule *models.WorkflowRule) error
	Update(ctx context.Context, rule *models.WorkflowRule) error
	GetByID(ctx context.Context, id string) (*models.WorkflowRule, error)
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts ListRulesOptions) (*RuleListResult, error)

	// ListActiveByTrigger returns active rules ordered by priority desc, created_at asc, id asc.
	ListActiveByTrigger(ctx context.Context, trigger models.TriggerKind) ([]*models.WorkflowRule, error)

	// RecordExecution increments the execution count and sets last_executed_at atomically.
	RecordExecution(ctx context.Context, id string, at time.Time) error
}

// ExecutionRepository stores execution records.
type ExecutionRepository interface {
	Create(ctx context.Context, execution *models.WorkflowExecution) error

	// Complete moves a pending execution to a terminal state. It fails with
	// ErrExecutionNotPending when the execution already completed and with
	// ErrDuplicateSuccess when another success exists for the same idempotency key.
	Complete(ctx context.Context, execution *models.WorkflowExecution) error

	GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	List(ctx context.Context, opts ListExecutionsOptions) (*ExecutionListResult, error)
	HasSucceeded(ctx context.Context, ruleID, idempotencyKey string) (bool, error)
	ListPendingBefore(ctx context.Context, before time.Time) ([]*models.WorkflowExecution, error)
}

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type ListRulesOptions struct {
	Trigger *models.TriggerKind
	Active  *bool
	Limit   int
	Offset  int
}

type RuleListResult struct {
	Rules       []*models.WorkflowRule `json:"rules"`
	TotalCount  int64                  `json:"total_count"`
	HasNextPage bool                   `json:"has_next_page"`
}

type ListExecutionsOptions struct {
	RuleID string
	Status *models.ExecutionStatus
	Limit  int
	Offset int
}

type ExecutionListResult struct {
	Executions  []*models.WorkflowExecution `json:"executions"`
	TotalCount  int64                       `json:"total_count"`
	HasNextPage bool                        `json:"has_next_page"`
}

// NormalizeLimit clamps a page size to (0, MaxListLimit], using DefaultListLimit when unset.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}

	return min(limit, MaxListLimit)
}
