package engine

import "github.com/dukex/hireflow/pkg/models"

// RuleStatus is how far a rule got while handling one event.
type RuleStatus string

const (
	RuleExecuted   RuleStatus = "executed"
	RuleNotMatched RuleStatus = "not_matched"
	RuleDuplicate  RuleStatus = "duplicate"
	// RuleFailed means the pipeline around the actions broke: store, lock or panic.
	RuleFailed RuleStatus = "failed"
)

type RuleOutcome struct {
	RuleID          string                 `json:"rule_id"`
	RuleName        string                 `json:"rule_name"`
	Status          RuleStatus             `json:"status"`
	ExecutionID     string                 `json:"execution_id,omitempty"`
	ExecutionStatus models.ExecutionStatus `json:"execution_status,omitempty"`
	Reason          string                 `json:"reason,omitempty"`
	Error           string                 `json:"error,omitempty"`
}

// Report describes what every active rule did with one event.
type Report struct {
	EventID string             `json:"event_id"`
	Trigger models.TriggerKind `json:"trigger"`
	Rules   []RuleOutcome      `json:"rules"`
	Dropped bool               `json:"dropped,omitempty"`
}

// Count returns how many rules ended with status.
func (r Report) Count(status RuleStatus) int {
	n := 0

	for _, rule := range r.Rules {
		if rule.Status == status {
			n++
		}
	}

	return n
}
