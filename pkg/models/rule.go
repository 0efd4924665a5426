// Package models defines the rule and execution records of the assessment workflow engine.
package models

import (
	"errors"
	"fmt"
	"time"
)

// WorkflowRule reacts to one trigger kind, filters by conditions and runs actions in order.
type WorkflowRule struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"                       validate:"required,min=3,max=255"`
	Description    string       `json:"description"`
	Trigger        TriggerKind  `json:"trigger"                    validate:"required"`
	Conditions     Conditions   `json:"conditions"`
	Actions        []ActionSpec `json:"actions"                    validate:"dive"`
	Priority       Priority     `json:"priority"                   validate:"required"`
	IsActive       bool         `json:"is_active"`
	ExecutionCount int64        `json:"execution_count"`
	LastExecutedAt *time.Time   `json:"last_executed_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	DeletedAt      *time.Time   `json:"deleted_at,omitempty"`
}

// Validate checks the domain rules that struct tags cannot express.
func (r *WorkflowRule) Validate() error {
	var errs []error

	if !r.Trigger.Valid() {
		errs = append(errs, fmt.Errorf("unknown trigger %q", r.Trigger))
	}

	if !r.Priority.Valid() {
		errs = append(errs, fmt.Errorf("unknown priority %q", r.Priority))
	}

	if err := r.Conditions.Validate(); err != nil {
		errs = append(errs, err)
	}

	for i, action := range r.Actions {
		if err := action.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("action %d: %w", i, err))
		}
	}

	return errors.Join(errs...)
}

// Warnings lists non-fatal configuration problems.
func (r *WorkflowRule) Warnings() []string {
	var warnings []string

	if len(r.Actions) == 0 && r.Conditions.IsEmpty() {
		warnings = append(warnings, "rule has no conditions and no actions")
	}

	return warnings
}

// IsDeleted reports whether the rule was soft deleted.
func (r *WorkflowRule) IsDeleted() bool {
	return r.DeletedAt != nil
}

// RunsBefore reports whether r executes before other when both match the same event.
func (r *WorkflowRule) RunsBefore(other *WorkflowRule) bool {
	if r.Priority.Rank() != other.Priority.Rank() {
		return r.Priority.Rank() > other.Priority.Rank()
	}

	if !r.CreatedAt.Equal(other.CreatedAt) {
		return r.CreatedAt.Before(other.CreatedAt)
	}

	return r.ID < other.ID
}

// RulePatch carries the fields an update may change. Nil fields are left as they are.
type RulePatch struct {
	Name        *string       `json:"name,omitempty"        validate:"omitempty,min=3,max=255"`
	Description *string       `json:"description,omitempty"`
	Trigger     *TriggerKind  `json:"trigger,omitempty"`
	Conditions  *Conditions   `json:"conditions,omitempty"`
	Actions     *[]ActionSpec `json:"actions,omitempty"`
	Priority    *Priority     `json:"priority,omitempty"`
	IsActive    *bool         `json:"is_active,omitempty"`
}

// Apply copies the set fields of the patch onto rule.
func (p RulePatch) Apply(rule *WorkflowRule) {
	if p.Name != nil {
		rule.Name = *p.Name
	}

	if p.Description != nil {
		rule.Description = *p.Description
	}

	if p.Trigger != nil {
		rule.Trigger = *p.Trigger
	}

	if p.Conditions != nil {
		rule.Conditions = *p.Conditions
	}

	if p.Actions != nil {
		rule.Actions = *p.Actions
	}

	if p.Priority != nil {
		rule.Priority = *p.Priority
	}

	if p.IsActive != nil {
		rule.IsActive = *p.IsActive
	}
}
