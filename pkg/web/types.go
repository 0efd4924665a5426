// Package web provides HTTP request and response types for the rule engine API.
package web

import (
	"github.com/dukex/hireflow/pkg/engine"
	"github.com/dukex/hireflow/pkg/models"
)

// CreateRuleRequest represents the request body for creating a new rule.
// IsActive defaults to true when omitted.
type CreateRuleRequest struct {
	Name        string              `json:"name"        validate:"required,min=3,max=255"`
	Description string              `json:"description"`
	Trigger     models.TriggerKind  `json:"trigger"     validate:"required"`
	Conditions  models.Conditions   `json:"conditions"`
	Actions     []models.ActionSpec `json:"actions"`
	Priority    models.Priority     `json:"priority"`
	IsActive    *bool               `json:"is_active,omitempty"`
}

func (r CreateRuleRequest) Rule() *models.WorkflowRule {
	priority := r.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}

	actions := r.Actions
	if actions == nil {
		actions = []models.ActionSpec{}
	}

	return &models.WorkflowRule{
		Name:        r.Name,
		Description: r.Description,
		Trigger:     r.Trigger,
		Conditions:  r.Conditions,
		Actions:     actions,
		Priority:    priority,
		IsActive:    active,
	}
}

// UpdateRuleRequest represents the request body for updating an existing rule.
// All fields are optional to support partial updates.
type UpdateRuleRequest = models.RulePatch

// RuleResponse is a rule together with the warnings raised while saving it.
type RuleResponse struct {
	*models.WorkflowRule

	Warnings []string `json:"warnings,omitempty"`
}

// FireRuleRequest carries the synthetic payload of a manual firing.
type FireRuleRequest struct {
	Payload map[string]any `json:"payload" validate:"required"`
}

type FireRuleResponse struct {
	engine.RuleOutcome
}

// EventAcceptedResponse is returned once an ingested event is on the bus.
type EventAcceptedResponse struct {
	EventID string             `json:"event_id"`
	Trigger models.TriggerKind `json:"trigger"`
}
