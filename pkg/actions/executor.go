package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dukex/hireflow/pkg/models"
	"github.com/dukex/hireflow/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Config bounds how long and how often a single action may be attempted.
type Config struct {
	// Timeout applies to each attempt separately.
	Timeout time.Duration
	// Retries is the number of attempts after the first one for retryable errors.
	Retries int
	// RetryDelay is the fixed pause between attempts.
	RetryDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		Timeout:    8 * time.Second,
		Retries:    2,
		RetryDelay: 500 * time.Millisecond,
	}
}

// Outcome is the aggregate result of running one rule's actions.
type Outcome struct {
	Status  models.ExecutionStatus
	Results []models.ActionResult
	Summary string
	Error   string

	// StatusChanges lists the statuses applied by successful update_status actions, in order.
	StatusChanges []string
}

func (o Outcome) Succeeded() bool {
	return o.Status == models.ExecutionStatusSuccess
}

// Executor runs action lists sequentially. It never returns an error: every failure
// is reported in the Outcome.
type Executor struct {
	collaborators Collaborators
	config        Config
	logger        *slog.Logger
	tracer        trace.Tracer
	metrics       *otelhelper.Metrics
}

func NewExecutor(logger *slog.Logger, collaborators Collaborators, config Config, tracer trace.Tracer, metrics *otelhelper.Metrics) *Executor {
	if tracer == nil {
		tracer = otelhelper.Tracer("hireflow.actions")
	}

	return &Executor{
		collaborators: collaborators,
		config:        config,
		logger:        logger.With("module", "action_executor"),
		tracer:        tracer,
		metrics:       metrics,
	}
}

// Execute runs specs in order. Cancelling ctx stops execution before the next action;
// an action already running finishes under its own timeout.
func (e *Executor) Execute(ctx context.Context, specs []models.ActionSpec, ac ActionContext) Outcome {
	logger := e.logger.With("rule_id", ac.RuleID, "execution_id", ac.ExecutionID)

	results := make([]models.ActionResult, 0, len(specs))
	failures := make([]string, 0)
	statusChanges := make([]string, 0)
	skipReason := ""

	for i, spec := range specs {
		if skipReason == "" && ctx.Err() != nil {
			skipReason = ErrInterrupted.Error()
			failures = append(failures, ErrInterrupted.Error())

			logger.WarnContext(ctx, "Stopping actions for shutdown", "remaining", len(specs)-i)
		}

		if skipReason != "" {
			results = append(results, models.ActionResult{
				Index:  i,
				Kind:   spec.Kind,
				Status: models.ActionStatusSkipped,
				Error:  skipReason,
			})

			continue
		}

		result := e.run(ctx, logger, i, spec, ac)
		results = append(results, result)

		if result.Status == models.ActionStatusSuccess {
			if spec.Kind == models.ActionUpdateStatus {
				statusChanges = append(statusChanges, spec.Status)
			}

			continue
		}

		failures = append(failures, fmt.Sprintf("action %d (%s): %s", i, spec.Kind, result.Error))

		if result.Fatal {
			skipReason = fmt.Sprintf("aborted after fatal error in action %d", i)
		}
	}

	outcome := Outcome{
		Results:       results,
		StatusChanges: statusChanges,
	}

	succeeded := 0
	for _, result := range results {
		if result.Status == models.ActionStatusSuccess {
			succeeded++
		}
	}

	outcome.Summary = fmt.Sprintf("%d of %d actions succeeded", succeeded, len(specs))

	if len(failures) == 0 {
		outcome.Status = models.ExecutionStatusSuccess
	} else {
		outcome.Status = models.ExecutionStatusFailed
		outcome.Error = strings.Join(failures, "; ")
	}

	return outcome
}

func (e *Executor) run(ctx context.Context, logger *slog.Logger, index int, spec models.ActionSpec, ac ActionContext) models.ActionResult {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "actions.execute",
		attribute.String(otelhelper.RuleIDKey, ac.RuleID),
		attribute.String(otelhelper.ExecutionIDKey, ac.ExecutionID),
		attribute.Int(otelhelper.ActionIndexKey, index),
		attribute.String(otelhelper.ActionKindKey, string(spec.Kind)),
	)
	defer span.End()

	logger = logger.With("action_index", index, "action_kind", spec.Kind)
	started := time.Now()

	result := models.ActionResult{
		Index: index,
		Kind:  spec.Kind,
	}

	call, err := e.prepare(spec, ac)
	if err != nil {
		return e.fail(ctx, logger, span, result, started, err)
	}

	detached := context.WithoutCancel(ctx)

	attempt := func() error {
		result.Attempts++

		callCtx, cancel := context.WithTimeout(detached, e.config.Timeout)
		defer cancel()

		err := call(callCtx)
		if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && !IsFatal(err) {
			err = fmt.Errorf("timed out after %s: %w", e.config.Timeout, err)
		}

		e.metrics.ActionAttempted(ctx, string(spec.Kind), err != nil)

		if err != nil {
			logger.WarnContext(ctx, "Action attempt failed", "attempt", result.Attempts, "error", err)

			if IsFatal(err) {
				return backoff.Permanent(err)
			}
		}

		return err
	}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(e.config.RetryDelay), uint64(max(e.config.Retries, 0)))

	err = backoff.Retry(attempt, policy)
	if err != nil {
		return e.fail(ctx, logger, span, result, started, err)
	}

	result.Status = models.ActionStatusSuccess
	result.DurationMs = time.Since(started).Milliseconds()

	logger.DebugContext(ctx, "Action succeeded", "attempts", result.Attempts)

	return result
}

func (e *Executor) fail(ctx context.Context, logger *slog.Logger, span trace.Span, result models.ActionResult, started time.Time, err error) models.ActionResult {
	result.Status = models.ActionStatusFailed
	result.Error = err.Error()
	result.Fatal = IsFatal(err)
	result.DurationMs = time.Since(started).Milliseconds()

	otelhelper.SetError(span, err)
	logger.ErrorContext(ctx, "Action failed", "attempts", result.Attempts, "fatal", result.Fatal, "error", err)

	return result
}

// prepare validates and renders the action's inputs once, returning the collaborator call
// to attempt. Errors here are fatal: retrying cannot fix malformed parameters.
func (e *Executor) prepare(spec models.ActionSpec, ac ActionContext) (func(context.Context) error, error) {
	params, err := ac.renderParams(spec.Params)
	if err != nil {
		return nil, err
	}

	switch spec.Kind {
	case models.ActionSendNotification:
		if e.collaborators.Notifier == nil {
			return nil, missingCollaborator(spec.Kind)
		}

		recipient, err := ac.render("recipient", spec.Recipient)
		if err != nil {
			return nil, err
		}

		if recipient == "" {
			recipient = ac.EntityID
		}

		if recipient == "" {
			return nil, Fatal(errors.New("send_notification has no recipient and the event has no entityId"))
		}

		variables := ac.variables(params)

		return func(ctx context.Context) error {
			return e.collaborators.Notifier.SendEmail(ctx, spec.Template, recipient, variables)
		}, nil

	case models.ActionUpdateStatus:
		if e.collaborators.Status == nil {
			return nil, missingCollaborator(spec.Kind)
		}

		if err := requireEntity(spec.Kind, ac); err != nil {
			return nil, err
		}

		return func(ctx context.Context) error {
			return e.collaborators.Status.UpdateStatus(ctx, ac.EntityID, spec.Status)
		}, nil

	case models.ActionNotifyManager:
		if e.collaborators.Manager == nil {
			return nil, missingCollaborator(spec.Kind)
		}

		if err := requireEntity(spec.Kind, ac); err != nil {
			return nil, err
		}

		summary, err := ac.render("summary", spec.Summary)
		if err != nil {
			return nil, err
		}

		if summary == "" {
			summary = fmt.Sprintf("Rule %q fired on %s for %s", ac.RuleName, ac.Trigger, ac.EntityID)
		}

		return func(ctx context.Context) error {
			return e.collaborators.Manager.NotifyManager(ctx, ac.EntityID, summary)
		}, nil

	case models.ActionScheduleInterview:
		if e.collaborators.Scheduler == nil {
			return nil, missingCollaborator(spec.Kind)
		}

		if err := requireEntity(spec.Kind, ac); err != nil {
			return nil, err
		}

		return func(ctx context.Context) error {
			return e.collaborators.Scheduler.ScheduleInterview(ctx, ac.EntityID, params)
		}, nil

	case models.ActionCreateFollowUp:
		if e.collaborators.Scheduler == nil {
			return nil, missingCollaborator(spec.Kind)
		}

		if err := requireEntity(spec.Kind, ac); err != nil {
			return nil, err
		}

		return func(ctx context.Context) error {
			return e.collaborators.Scheduler.CreateFollowUp(ctx, ac.EntityID, spec.DueInHours, params)
		}, nil

	default:
		return nil, Fatal(fmt.Errorf("unknown action kind %q", spec.Kind))
	}
}

func requireEntity(kind models.ActionKind, ac ActionContext) error {
	if ac.EntityID == "" {
		return Fatal(fmt.Errorf("%s requires an entityId in the event payload", kind))
	}

	return nil
}

func missingCollaborator(kind models.ActionKind) error {
	return Fatal(fmt.Errorf("no collaborator configured for %s", kind))
}
