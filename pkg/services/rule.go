package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/hireflow/pkg/models"
	"github.com/dukex/hireflow/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	// ErrRuleNotFound is returned when a rule is not found.
	ErrRuleNotFound = persistence.ErrRuleNotFound
)

type Rule struct {
	persistence persistence.Persistence
	validator   *validator.Validate
	logger      *slog.Logger
}

// NewRule creates a new rule service.
func NewRule(logger *slog.Logger, persistence persistence.Persistence, validate *validator.Validate) *Rule {
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}

	return &Rule{
		persistence: persistence,
		validator:   validate,
		logger:      logger.With("module", "rule_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (r *Rule) HealthCheck(ctx context.Context) (string, bool) {
	if r.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := r.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// Create validates and stores a new rule. Warnings describe accepted but suspicious configuration.
func (r *Rule) Create(ctx context.Context, rule *models.WorkflowRule) (*models.WorkflowRule, []string, error) {
	if rule == nil {
		return nil, nil, NewValidationError("Create", "INVALID_RULE", "rule cannot be nil", ErrInvalidRule)
	}

	if err := r.check("Create", rule); err != nil {
		return nil, nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate rule id: %w", err)
	}

	now := time.Now().UTC()

	rule.ID = id.String()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	rule.ExecutionCount = 0
	rule.LastExecutedAt = nil
	rule.DeletedAt = nil

	if err := r.persistence.RuleRepository().Create(ctx, rule); err != nil {
		return nil, nil, fmt.Errorf("failed to create rule: %w", err)
	}

	warnings := r.warn(ctx, rule)

	r.logger.InfoContext(ctx, "Rule created", "rule_id", rule.ID, "trigger", rule.Trigger, "priority", rule.Priority)

	return rule, warnings, nil
}

// Update applies patch to the rule with the given id.
func (r *Rule) Update(ctx context.Context, id string, patch models.RulePatch) (*models.WorkflowRule, []string, error) {
	if err := r.validator.Struct(patch); err != nil {
		return nil, nil, NewValidationError("Update", "INVALID_RULE", describe(err), ErrInvalidRule)
	}

	rule, err := r.persistence.RuleRepository().GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	patch.Apply(rule)

	if err := r.check("Update", rule); err != nil {
		return nil, nil, err
	}

	if err := r.persistence.RuleRepository().Update(ctx, rule); err != nil {
		return nil, nil, fmt.Errorf("failed to update rule: %w", err)
	}

	warnings := r.warn(ctx, rule)

	r.logger.InfoContext(ctx, "Rule updated", "rule_id", rule.ID)

	return rule, warnings, nil
}

// FetchByID retrieves a rule by its ID.
func (r *Rule) FetchByID(ctx context.Context, id string) (*models.WorkflowRule, error) {
	return r.persistence.RuleRepository().GetByID(ctx, id)
}

// SetActive enables or disables a rule and returns its new state.
func (r *Rule) SetActive(ctx context.Context, id string, active bool) (*models.WorkflowRule, error) {
	if err := r.persistence.RuleRepository().SetActive(ctx, id, active); err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "Rule activation changed", "rule_id", id, "active", active)

	return r.persistence.RuleRepository().GetByID(ctx, id)
}

// Delete soft deletes a rule. Its executions stay readable.
func (r *Rule) Delete(ctx context.Context, id string) error {
	if err := r.persistence.RuleRepository().Delete(ctx, id); err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "Rule deleted", "rule_id", id)

	return nil
}

// ListRulesRequest contains options for listing rules.
type ListRulesRequest struct {
	Trigger *models.TriggerKind
	Active  *bool
	Limit   int
	Offset  int
}

// ListRulesResponse contains the result of listing rules.
type ListRulesResponse struct {
	Rules       []*models.WorkflowRule `json:"rules"`
	TotalCount  int64                  `json:"total_count"`
	HasNextPage bool                   `json:"has_next_page"`
}

func (r *Rule) List(ctx context.Context, req ListRulesRequest) (*ListRulesResponse, error) {
	if req.Trigger != nil && !req.Trigger.Valid() {
		return nil, invalidTrigger("List", *req.Trigger)
	}

	if req.Offset < 0 {
		req.Offset = 0
	}

	result, err := r.persistence.RuleRepository().List(ctx, persistence.ListRulesOptions{
		Trigger: req.Trigger,
		Active:  req.Active,
		Limit:   persistence.NormalizeLimit(req.Limit),
		Offset:  req.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	return &ListRulesResponse{
		Rules:       result.Rules,
		TotalCount:  result.TotalCount,
		HasNextPage: result.HasNextPage,
	}, nil
}

// ListActiveByTrigger returns the active rules of a trigger in execution order.
func (r *Rule) ListActiveByTrigger(ctx context.Context, trigger models.TriggerKind) ([]*models.WorkflowRule, error) {
	if !trigger.Valid() {
		return nil, invalidTrigger("ListActiveByTrigger", trigger)
	}

	return r.persistence.RuleRepository().ListActiveByTrigger(ctx, trigger)
}

// RuleReport is the result of re-validating one stored rule.
type RuleReport struct {
	RuleID   string   `json:"rule_id"`
	Name     string   `json:"name"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Revalidate checks every stored rule against the current validation rules.
func (r *Rule) Revalidate(ctx context.Context) ([]RuleReport, error) {
	reports := make([]RuleReport, 0)

	for offset := 0; ; offset += persistence.MaxListLimit {
		page, err := r.persistence.RuleRepository().List(ctx, persistence.ListRulesOptions{
			Limit:  persistence.MaxListLimit,
			Offset: offset,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list rules: %w", err)
		}

		for _, rule := range page.Rules {
			report := RuleReport{RuleID: rule.ID, Name: rule.Name, Warnings: rule.Warnings()}

			if err := r.check("Revalidate", rule); err != nil {
				var serviceErr *ServiceError
				if errors.As(err, &serviceErr) {
					report.Errors = strings.Split(serviceErr.Message, "\n")
				} else {
					report.Errors = []string{err.Error()}
				}
			}

			reports = append(reports, report)
		}

		if !page.HasNextPage {
			return reports, nil
		}
	}
}

func (r *Rule) check(op string, rule *models.WorkflowRule) error {
	if err := r.validator.Struct(rule); err != nil {
		return NewValidationError(op, "INVALID_RULE", describe(err), ErrInvalidRule)
	}

	if err := rule.Validate(); err != nil {
		return NewValidationError(op, "INVALID_RULE", err.Error(), ErrInvalidRule)
	}

	return nil
}

func (r *Rule) warn(ctx context.Context, rule *models.WorkflowRule) []string {
	warnings := rule.Warnings()

	for _, warning := range warnings {
		r.logger.WarnContext(ctx, "Rule configuration warning", "rule_id", rule.ID, "warning", warning)
	}

	return warnings
}

func invalidTrigger(op string, trigger models.TriggerKind) error {
	return NewValidationError(op, "INVALID_TRIGGER", fmt.Sprintf("invalid trigger '%s'", trigger), ErrInvalidTrigger)
}

// describe turns validator errors into one line per failing field.
func describe(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	lines := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		lines = append(lines, fmt.Sprintf("%s failed on '%s'", fieldErr.Namespace(), fieldErr.Tag()))
	}

	return strings.Join(lines, "\n")
}
