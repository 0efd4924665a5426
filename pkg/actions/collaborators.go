// Package actions executes a rule's ordered action list against the external collaborators.
package actions

import "context"

// Notifier sends templated email notifications.
type Notifier interface {
	SendEmail(ctx context.Context, templateID, recipient string, variables map[string]any) error
}

// StatusService updates a candidate's pipeline status.
type StatusService interface {
	UpdateStatus(ctx context.Context, entityID, newStatus string) error
}

// Scheduler books interviews and follow-up tasks.
type Scheduler interface {
	ScheduleInterview(ctx context.Context, entityID string, constraints map[string]string) error
	CreateFollowUp(ctx context.Context, entityID string, dueInHours float64, params map[string]string) error
}

// ManagerNotifier alerts the hiring manager responsible for an entity.
type ManagerNotifier interface {
	NotifyManager(ctx context.Context, entityID, summary string) error
}

// Collaborators groups the external services actions call. A nil field makes the
// matching action kinds fail fatally.
type Collaborators struct {
	Notifier  Notifier
	Status    StatusService
	Scheduler Scheduler
	Manager   ManagerNotifier
}
