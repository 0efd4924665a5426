// Package recorder writes the audit trail of rule firings and answers idempotency queries.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/hireflow/pkg/actions"
	"github.com/dukex/hireflow/pkg/events"
	"github.com/dukex/hireflow/pkg/models"
	"github.com/dukex/hireflow/pkg/otelhelper"
	"github.com/dukex/hireflow/pkg/persistence"
	"github.com/google/uuid"
)

// ErrorRestart is recorded on executions left pending by a crashed or killed process.
const ErrorRestart = "orchestrator restart"

// ErrorDuplicate is recorded when another execution already succeeded for the same key.
const ErrorDuplicate = "duplicate of an earlier successful execution"

// IdempotencyKey identifies one firing of a rule for one entity and trigger.
func IdempotencyKey(ruleID string, trigger models.TriggerKind, entityID string) string {
	return ruleID + ":" + string(trigger) + ":" + entityID
}

// EventKey derives the idempotency key for a rule and event. Events without an entity id
// are keyed by their own id, so only redelivery of the same event is deduplicated.
func EventKey(ruleID string, event *events.AssessmentEvent) string {
	entityID := event.EntityID()
	if entityID == "" {
		entityID = "event-" + event.ID
	}

	return IdempotencyKey(ruleID, event.Trigger, entityID)
}

// ManualKey returns a key that never collides, for administrative re-fires.
func ManualKey(ruleID string, trigger models.TriggerKind) string {
	return IdempotencyKey(ruleID, trigger, "manual:"+uuid.NewString())
}

type Recorder struct {
	rules      persistence.RuleRepository
	executions persistence.ExecutionRepository
	logger     *slog.Logger
	metrics    *otelhelper.Metrics
	now        func() time.Time
}

func New(logger *slog.Logger, p persistence.Persistence, metrics *otelhelper.Metrics) *Recorder {
	return &Recorder{
		rules:      p.RuleRepository(),
		executions: p.ExecutionRepository(),
		logger:     logger.With("module", "execution_recorder"),
		metrics:    metrics,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Begin writes a pending execution and returns its id.
func (r *Recorder) Begin(ctx context.Context, rule *models.WorkflowRule, event *events.AssessmentEvent, key string) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate execution id: %w", err)
	}

	execution := &models.WorkflowExecution{
		ID:             id.String(),
		RuleID:         rule.ID,
		RuleName:       rule.Name,
		Trigger:        event.Trigger,
		EventID:        event.ID,
		IdempotencyKey: key,
		TriggerPayload: event.Payload,
		Status:         models.ExecutionStatusPending,
		ExecutedAt:     r.now(),
	}

	err = r.executions.Create(ctx, execution)
	if err != nil {
		r.failed(ctx, "begin", err, "rule_id", rule.ID)

		return "", fmt.Errorf("failed to record execution start: %w", err)
	}

	return execution.ID, nil
}

// Complete writes the outcome of a pending execution and bumps the rule's counters.
// A second completion of the same execution fails with persistence.ErrExecutionNotPending.
func (r *Recorder) Complete(ctx context.Context, ruleID, executionID string, outcome actions.Outcome) error {
	completedAt := r.now()

	execution := &models.WorkflowExecution{
		ID:            executionID,
		Status:        outcome.Status,
		ActionResults: outcome.Results,
		CompletedAt:   &completedAt,
	}

	if outcome.Succeeded() {
		execution.Result = outcome.Summary
	} else {
		execution.Error = outcome.Error
	}

	err := r.executions.Complete(ctx, execution)
	if persistence.IsDuplicateSuccess(err) {
		// A concurrent delivery of the same event won the race; keep the audit record terminal.
		execution.Status = models.ExecutionStatusFailed
		execution.Result = ""
		execution.Error = ErrorDuplicate
		err = r.executions.Complete(ctx, execution)
	}

	if err != nil {
		if !persistence.IsExecutionNotPending(err) {
			r.failed(ctx, "complete", err, "execution_id", executionID)
		}

		return fmt.Errorf("failed to record execution outcome: %w", err)
	}

	r.metrics.ExecutionCompleted(ctx, ruleID, string(execution.Status))

	err = r.rules.RecordExecution(ctx, ruleID, completedAt)
	if err != nil {
		r.failed(ctx, "record_execution", err, "rule_id", ruleID)

		return fmt.Errorf("failed to update rule execution count: %w", err)
	}

	return nil
}

// HasSucceededFor reports whether a successful execution exists for the rule and key.
func (r *Recorder) HasSucceededFor(ctx context.Context, ruleID, key string) (bool, error) {
	ok, err := r.executions.HasSucceeded(ctx, ruleID, key)
	if err != nil {
		r.failed(ctx, "has_succeeded", err, "rule_id", ruleID)

		return false, err
	}

	return ok, nil
}

// RecoverStale fails executions pending for longer than staleAfter and returns how many it closed.
func (r *Recorder) RecoverStale(ctx context.Context, staleAfter time.Duration) (int, error) {
	stale, err := r.executions.ListPendingBefore(ctx, r.now().Add(-staleAfter))
	if err != nil {
		r.failed(ctx, "list_pending", err)

		return 0, fmt.Errorf("failed to list pending executions: %w", err)
	}

	recovered := 0

	var errs []error

	for _, execution := range stale {
		outcome := actions.Outcome{
			Status: models.ExecutionStatusFailed,
			Error:  ErrorRestart,
		}

		err := r.Complete(ctx, execution.RuleID, execution.ID, outcome)
		if err != nil {
			// Another replica may have finished or recovered it first.
			if persistence.IsExecutionNotPending(err) {
				continue
			}

			errs = append(errs, err)

			continue
		}

		recovered++

		r.logger.WarnContext(ctx, "Recovered stale execution",
			"execution_id", execution.ID,
			"rule_id", execution.RuleID,
			"executed_at", execution.ExecutedAt,
		)
	}

	return recovered, errors.Join(errs...)
}

func (r *Recorder) failed(ctx context.Context, op string, err error, attrs ...any) {
	r.metrics.RecorderError(ctx, op)
	r.logger.ErrorContext(ctx, "Execution recorder failure", append([]any{"op", op, "error", err}, attrs...)...)
}
