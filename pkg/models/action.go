package models

import (
	"errors"
	"fmt"
	"math"
)

// ActionKind tags the variant of an ActionSpec.
type ActionKind string

const (
	ActionSendNotification  ActionKind = "send_notification"
	ActionCreateFollowUp    ActionKind = "create_follow_up"
	ActionNotifyManager     ActionKind = "notify_manager"
	ActionUpdateStatus      ActionKind = "update_status"
	ActionScheduleInterview ActionKind = "schedule_interview"
)

// ActionSpec is one step of a rule's action list. Kind selects which of the typed
// fields apply; Params carries collaborator-specific values untouched by the engine.
type ActionSpec struct {
	Kind ActionKind `json:"kind" validate:"required"`

	// send_notification
	Template  string `json:"template,omitempty"`
	Recipient string `json:"recipient,omitempty"`

	// update_status
	Status string `json:"status,omitempty"`

	// notify_manager
	Summary string `json:"summary,omitempty"`

	// create_follow_up
	DueInHours float64 `json:"due_in_hours,omitempty"`

	Params map[string]string `json:"params,omitempty"`
}

// Validate checks the fields required by the action's kind.
func (a ActionSpec) Validate() error {
	switch a.Kind {
	case ActionSendNotification:
		if a.Template == "" {
			return errors.New("send_notification requires a template")
		}
	case ActionUpdateStatus:
		if a.Status == "" {
			return errors.New("update_status requires a status")
		}
	case ActionCreateFollowUp:
		if math.IsNaN(a.DueInHours) || a.DueInHours < 0 {
			return errors.New("create_follow_up due_in_hours must be zero or positive")
		}
	case ActionNotifyManager, ActionScheduleInterview:
	default:
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}

	return nil
}

// ActionStatus is the outcome of a single action inside an execution.
type ActionStatus string

const (
	ActionStatusSuccess ActionStatus = "success"
	ActionStatusFailed  ActionStatus = "failed"
	ActionStatusSkipped ActionStatus = "skipped"
)

// ActionResult records how one action of a firing went.
type ActionResult struct {
	Index      int          `json:"index"`
	Kind       ActionKind   `json:"kind"`
	Status     ActionStatus `json:"status"`
	Attempts   int          `json:"attempts"`
	Error      string       `json:"error,omitempty"`
	Fatal      bool         `json:"fatal,omitempty"`
	DurationMs int64        `json:"duration_ms"`
}
