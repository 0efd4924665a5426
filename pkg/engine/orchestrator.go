// Package engine runs workflow rules against assessment events.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"runtime/debug"

	"github.com/dukex/hireflow/pkg/actions"
	"github.com/dukex/hireflow/pkg/conditions"
	"github.com/dukex/hireflow/pkg/eventbus"
	"github.com/dukex/hireflow/pkg/events"
	"github.com/dukex/hireflow/pkg/locking"
	"github.com/dukex/hireflow/pkg/models"
	"github.com/dukex/hireflow/pkg/otelhelper"
	"github.com/dukex/hireflow/pkg/persistence"
	"github.com/dukex/hireflow/pkg/recorder"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Dependencies are the collaborators of an Orchestrator. Publisher may be nil,
// in which case status changes raise no follow-up events.
type Dependencies struct {
	Rules     persistence.RuleRepository
	Recorder  *recorder.Recorder
	Executor  *actions.Executor
	Locker    locking.Locker
	Publisher eventbus.EventPublisher
	Tracer    trace.Tracer
	Metrics   *otelhelper.Metrics
}

type Orchestrator struct {
	rules     persistence.RuleRepository
	recorder  *recorder.Recorder
	executor  *actions.Executor
	locker    locking.Locker
	publisher eventbus.EventPublisher
	tracer    trace.Tracer
	metrics   *otelhelper.Metrics
	config    Config
	logger    *slog.Logger
}

func New(logger *slog.Logger, deps Dependencies, config Config) *Orchestrator {
	if deps.Locker == nil {
		deps.Locker = locking.NewMemory()
	}

	if deps.Tracer == nil {
		deps.Tracer = otelhelper.Tracer("hireflow.engine")
	}

	return &Orchestrator{
		rules:     deps.Rules,
		recorder:  deps.Recorder,
		executor:  deps.Executor,
		locker:    deps.Locker,
		publisher: deps.Publisher,
		tracer:    deps.Tracer,
		metrics:   deps.Metrics,
		config:    config,
		logger:    logger.With("module", "engine"),
	}
}

// Register subscribes the orchestrator to every assessment event type.
func (o *Orchestrator) Register(bus eventbus.EventSubscriber) error {
	for _, eventType := range events.AssessmentEventTypes() {
		if err := bus.Handle(eventType, o.handle); err != nil {
			return fmt.Errorf("failed to register handler for %s: %w", eventType, err)
		}
	}

	return nil
}

func (o *Orchestrator) handle(ctx context.Context, event *events.AssessmentEvent) error {
	_, err := o.HandleEvent(ctx, event)

	return err
}

// HandleEvent runs every active rule of the event's trigger in priority order.
// A rule that fails never stops the rules after it. The returned error is set only
// when the event could not be processed at all and should be delivered again.
func (o *Orchestrator) HandleEvent(ctx context.Context, event *events.AssessmentEvent) (Report, error) {
	report := Report{EventID: event.ID, Trigger: event.Trigger}

	logger := o.logger.With("event_id", event.ID, "trigger", event.Trigger, "depth", event.Depth)

	if event.Depth > o.config.MaxTriggerDepth {
		logger.WarnContext(ctx, "Dropping event above maximum trigger depth", "max_depth", o.config.MaxTriggerDepth)
		o.metrics.EventDropped(ctx, string(event.Trigger))

		report.Dropped = true

		return report, nil
	}

	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "engine.handle_event",
		attribute.String(otelhelper.EventIDKey, event.ID),
		attribute.String(otelhelper.TriggerKey, string(event.Trigger)),
		attribute.String(otelhelper.EntityIDKey, event.EntityID()),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("event %s not processed: %w", event.ID, err)
	}

	rules, err := o.rules.ListActiveByTrigger(ctx, event.Trigger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to list active rules", "error", err)
		otelhelper.SetError(span, err)

		return report, fmt.Errorf("failed to list rules for %s: %w", event.Trigger, err)
	}

	logger.InfoContext(ctx, "Processing assessment event", "rules", len(rules))

	for i, rule := range rules {
		if err := ctx.Err(); err != nil {
			logger.WarnContext(ctx, "Stopping rule processing for shutdown", "remaining", len(rules)-i)

			return report, fmt.Errorf("event %s interrupted: %w", event.ID, err)
		}

		report.Rules = append(report.Rules, o.processRule(ctx, logger, rule, event, recorder.EventKey(rule.ID, event), true))
	}

	return report, nil
}

// FireRule runs one rule against a synthetic payload on behalf of an administrator.
// Conditions are still evaluated but the firing is never deduplicated.
func (o *Orchestrator) FireRule(ctx context.Context, ruleID string, payload map[string]any) (RuleOutcome, error) {
	rule, err := o.rules.GetByID(ctx, ruleID)
	if err != nil {
		return RuleOutcome{}, err
	}

	event := events.NewAssessmentEvent(rule.Trigger, maps.Clone(payload))
	logger := o.logger.With("event_id", event.ID, "trigger", event.Trigger, "manual", true)

	return o.processRule(ctx, logger, rule, event, recorder.ManualKey(rule.ID, rule.Trigger), false), nil
}

func (o *Orchestrator) processRule(
	ctx context.Context,
	logger *slog.Logger,
	rule *models.WorkflowRule,
	event *events.AssessmentEvent,
	key string,
	deduplicate bool,
) (outcome RuleOutcome) {
	outcome = RuleOutcome{RuleID: rule.ID, RuleName: rule.Name}
	logger = logger.With("rule_id", rule.ID, "rule_name", rule.Name)

	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "engine.rule",
		attribute.String(otelhelper.RuleIDKey, rule.ID),
		attribute.String(otelhelper.RuleNameKey, rule.Name),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)

			logger.ErrorContext(ctx, "Recovered panic while running rule", "error", err, "stack", string(debug.Stack()))
			otelhelper.SetError(span, err)

			if outcome.ExecutionID != "" && outcome.ExecutionStatus == "" {
				_ = o.complete(ctx, logger, rule.ID, outcome.ExecutionID, actions.Outcome{
					Status: models.ExecutionStatusFailed,
					Error:  err.Error(),
				})

				outcome.ExecutionStatus = models.ExecutionStatusFailed
			}

			outcome.Status = RuleFailed
			outcome.Error = err.Error()
		}
	}()

	match := conditions.Evaluate(rule.Conditions, event.Payload)
	if !match.Matched {
		logger.DebugContext(ctx, "Rule conditions not met", "reason", match.Reason)

		outcome.Status = RuleNotMatched
		outcome.Reason = match.Reason

		return outcome
	}

	if deduplicate {
		lock, err := o.lock(ctx, key)
		if err != nil {
			return o.failed(ctx, logger, span, outcome, "acquire lock", err)
		}

		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				logger.WarnContext(ctx, "Failed to release lock", "key", key, "error", err)
			}
		}()

		done, err := o.recorder.HasSucceededFor(ctx, rule.ID, key)
		if err != nil {
			return o.failed(ctx, logger, span, outcome, "check idempotency", err)
		}

		if done {
			logger.InfoContext(ctx, "Rule already succeeded for this key", "idempotency_key", key)

			outcome.Status = RuleDuplicate
			outcome.Reason = "already succeeded for " + key

			return outcome
		}
	}

	executionID, err := o.recorder.Begin(ctx, rule, event, key)
	if err != nil {
		return o.failed(ctx, logger, span, outcome, "begin execution", err)
	}

	outcome.ExecutionID = executionID
	span.SetAttributes(attribute.String(otelhelper.ExecutionIDKey, executionID))

	result := o.executor.Execute(ctx, rule.Actions, actions.ActionContext{
		ExecutionID: executionID,
		RuleID:      rule.ID,
		RuleName:    rule.Name,
		Trigger:     event.Trigger,
		EntityID:    event.EntityID(),
		Payload:     event.Payload,
	})

	outcome.Status = RuleExecuted
	outcome.ExecutionStatus = result.Status
	outcome.Reason = result.Summary

	otelhelper.SetExecutionStatus(span, string(result.Status), result.Error)

	if err := o.complete(ctx, logger, rule.ID, executionID, result); err != nil {
		outcome.Error = err.Error()
	} else if !result.Succeeded() {
		outcome.Error = result.Error
	}

	logger.InfoContext(ctx, "Rule executed",
		"execution_id", executionID,
		"status", result.Status,
		"summary", result.Summary,
	)

	o.retrigger(ctx, logger, event, result.StatusChanges)

	return outcome
}

func (o *Orchestrator) lock(ctx context.Context, key string) (locking.Lock, error) {
	waitCtx, cancel := context.WithTimeout(ctx, o.config.LockWait)
	defer cancel()

	return locking.Acquire(waitCtx, o.locker, key, o.config.LockTTL, o.config.LockPoll)
}

// complete records the outcome even when ctx was cancelled by shutdown.
func (o *Orchestrator) complete(ctx context.Context, logger *slog.Logger, ruleID, executionID string, result actions.Outcome) error {
	err := o.recorder.Complete(context.WithoutCancel(ctx), ruleID, executionID, result)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to record execution outcome", "execution_id", executionID, "error", err)
	}

	return err
}

func (o *Orchestrator) failed(ctx context.Context, logger *slog.Logger, span trace.Span, outcome RuleOutcome, step string, err error) RuleOutcome {
	logger.ErrorContext(ctx, "Rule skipped", "step", step, "error", err)
	otelhelper.SetError(span, err)

	outcome.Status = RuleFailed
	outcome.Error = fmt.Sprintf("%s: %v", step, err)

	return outcome
}

// retrigger publishes the events raised by status changes of a finished execution.
func (o *Orchestrator) retrigger(ctx context.Context, logger *slog.Logger, cause *events.AssessmentEvent, statuses []string) {
	if o.publisher == nil {
		return
	}

	for _, status := range statuses {
		trigger, ok := o.config.StatusTriggers[status]
		if !ok {
			continue
		}

		if cause.Depth+1 > o.config.MaxTriggerDepth {
			logger.WarnContext(ctx, "Not raising event above maximum trigger depth",
				"status", status,
				"raised_trigger", trigger,
				"max_depth", o.config.MaxTriggerDepth,
			)
			o.metrics.EventDropped(ctx, string(trigger))

			continue
		}

		payload := maps.Clone(cause.Payload)
		if payload == nil {
			payload = make(map[string]any)
		}

		payload["status"] = status

		next := cause.Derive(trigger, payload)

		key := cause.EntityID()
		if key == "" {
			key = next.RootEventID
		}

		err := o.publisher.Publish(context.WithoutCancel(ctx), key, next)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to publish status event", "raised_trigger", trigger, "error", err)

			continue
		}

		logger.InfoContext(ctx, "Raised status event", "raised_trigger", trigger, "raised_event_id", next.ID, "depth", next.Depth)
	}
}
