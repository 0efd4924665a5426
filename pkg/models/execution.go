package models

import "time"

// ExecutionStatus is the lifecycle state of a WorkflowExecution.
type ExecutionStatus string

const (
	ExecutionStatusPending ExecutionStatus = "pending"
	ExecutionStatusSuccess ExecutionStatus = "success"
	ExecutionStatusFailed  ExecutionStatus = "failed"
)

// IsTerminal reports whether the status can no longer change.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusSuccess || s == ExecutionStatusFailed
}

func (s ExecutionStatus) Valid() bool {
	return s == ExecutionStatusPending || s.IsTerminal()
}

// WorkflowExecution is the audit record of one rule firing for one event.
// Result is set on success, Error on failure.
type WorkflowExecution struct {
	ID             string          `json:"id"`
	RuleID         string          `json:"rule_id"`
	RuleName       string          `json:"rule_name"`
	Trigger        TriggerKind     `json:"trigger"`
	EventID        string          `json:"event_id,omitempty"`
	IdempotencyKey string          `json:"idempotency_key"`
	TriggerPayload map[string]any  `json:"trigger_payload"`
	Status         ExecutionStatus `json:"status"`
	Result         string          `json:"result,omitempty"`
	Error          string          `json:"error,omitempty"`
	ActionResults  []ActionResult  `json:"action_results,omitempty"`
	ExecutedAt     time.Time       `json:"executed_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}
