// Package logsink provides collaborators that only log what they were asked to do.
package logsink

import (
	"context"
	"log/slog"

	"github.com/dukex/hireflow/pkg/actions"
)

type Sink struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Sink {
	return &Sink{logger: logger.With("module", "collaborators_log")}
}

func (s *Sink) Collaborators() actions.Collaborators {
	return actions.Collaborators{
		Notifier:  s,
		Status:    s,
		Scheduler: s,
		Manager:   s,
	}
}

func (s *Sink) SendEmail(ctx context.Context, templateID, recipient string, variables map[string]any) error {
	s.logger.InfoContext(ctx, "Send email", "template", templateID, "recipient", recipient, "variables", variables)

	return nil
}

func (s *Sink) UpdateStatus(ctx context.Context, entityID, newStatus string) error {
	s.logger.InfoContext(ctx, "Update status", "entity_id", entityID, "status", newStatus)

	return nil
}

func (s *Sink) ScheduleInterview(ctx context.Context, entityID string, constraints map[string]string) error {
	s.logger.InfoContext(ctx, "Schedule interview", "entity_id", entityID, "constraints", constraints)

	return nil
}

func (s *Sink) CreateFollowUp(ctx context.Context, entityID string, dueInHours float64, params map[string]string) error {
	s.logger.InfoContext(ctx, "Create follow up", "entity_id", entityID, "due_in_hours", dueInHours, "params", params)

	return nil
}

func (s *Sink) NotifyManager(ctx context.Context, entityID, summary string) error {
	s.logger.InfoContext(ctx, "Notify manager", "entity_id", entityID, "summary", summary)

	return nil
}
