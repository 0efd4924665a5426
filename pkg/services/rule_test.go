package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/hireflow/pkg/models"
	"github.com/dukex/hireflow/pkg/persistence"
	"github.com/dukex/hireflow/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRuleService(t *testing.T) (*Rule, persistence.Persistence) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())

	return NewRule(slog.New(slog.NewTextHandler(io.Discard, nil)), p, nil), p
}

func validRule() *models.WorkflowRule {
	return &models.WorkflowRule{
		Name:     "High score follow up",
		Trigger:  models.TriggerAssessmentCompleted,
		Priority: models.PriorityHigh,
		IsActive: true,
		Conditions: models.Conditions{
			Score: &models.ScoreRange{Min: 8, Max: 10},
		},
		Actions: []models.ActionSpec{
			{Kind: models.ActionUpdateStatus, Status: "shortlisted"},
			{Kind: models.ActionNotifyManager},
		},
	}
}

func TestRule_Create(t *testing.T) {
	ctx := context.Background()
	service, _ := newRuleService(t)

	rule := validRule()
	rule.ExecutionCount = 42

	created, warnings, err := service.Create(ctx, rule)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Zero(t, created.ExecutionCount)

	fetched, err := service.FetchByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "High score follow up", fetched.Name)
	assert.Len(t, fetched.Actions, 2)
}

func TestRule_CreateGeneratesOrderedIDs(t *testing.T) {
	ctx := context.Background()
	service, _ := newRuleService(t)

	first, _, err := service.Create(ctx, validRule())
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)

	second, _, err := service.Create(ctx, validRule())
	require.NoError(t, err)

	assert.Less(t, first.ID, second.ID)
}

func TestRule_CreateWarnsOnEmptyRule(t *testing.T) {
	service, _ := newRuleService(t)

	created, warnings, err := service.Create(context.Background(), &models.WorkflowRule{
		Name:     "Catch all",
		Trigger:  models.TriggerAssessmentStarted,
		Priority: models.PriorityLow,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, []string{"rule has no conditions and no actions"}, warnings)
}

func TestRule_CreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.WorkflowRule)
		message string
	}{
		{
			name:    "missing name",
			mutate:  func(r *models.WorkflowRule) { r.Name = "" },
			message: "Name",
		},
		{
			name:    "unknown trigger",
			mutate:  func(r *models.WorkflowRule) { r.Trigger = "assessment_paused" },
			message: "unknown trigger",
		},
		{
			name:    "unknown priority",
			mutate:  func(r *models.WorkflowRule) { r.Priority = "urgent" },
			message: "unknown priority",
		},
		{
			name:    "inverted score range",
			mutate:  func(r *models.WorkflowRule) { r.Conditions.Score = &models.ScoreRange{Min: 9, Max: 3} },
			message: "greater than max",
		},
		{
			name: "negative threshold",
			mutate: func(r *models.WorkflowRule) {
				r.Conditions.Elapsed = &models.TimeThreshold{Hours: -1}
			},
			message: "zero or positive",
		},
		{
			name: "unknown threshold field",
			mutate: func(r *models.WorkflowRule) {
				r.Conditions.Elapsed = &models.TimeThreshold{Field: "daysSince", Hours: 1}
			},
			message: "unknown time threshold field",
		},
		{
			name:    "status update without status",
			mutate:  func(r *models.WorkflowRule) { r.Actions[0].Status = "" },
			message: "update_status requires a status",
		},
		{
			name: "notification without template",
			mutate: func(r *models.WorkflowRule) {
				r.Actions = append(r.Actions, models.ActionSpec{Kind: models.ActionSendNotification})
			},
			message: "send_notification requires a template",
		},
		{
			name: "unknown action",
			mutate: func(r *models.WorkflowRule) {
				r.Actions = append(r.Actions, models.ActionSpec{Kind: "send_sms"})
			},
			message: "unknown action kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, p := newRuleService(t)

			rule := validRule()
			tt.mutate(rule)

			_, _, err := service.Create(context.Background(), rule)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.ErrorIs(t, err, ErrInvalidRule)
			assert.Equal(t, "INVALID_RULE", Code(err))
			assert.Contains(t, err.Error(), tt.message)

			listed, err := p.RuleRepository().List(context.Background(), persistence.ListRulesOptions{})
			require.NoError(t, err)
			assert.Zero(t, listed.TotalCount)
		})
	}
}

func TestRule_CreateNil(t *testing.T) {
	service, _ := newRuleService(t)

	_, _, err := service.Create(context.Background(), nil)
	require.ErrorIs(t, err, ErrInvalidRule)
}

func TestRule_Update(t *testing.T) {
	ctx := context.Background()
	service, p := newRuleService(t)

	created, _, err := service.Create(ctx, validRule())
	require.NoError(t, err)

	require.NoError(t, p.RuleRepository().RecordExecution(ctx, created.ID, time.Now()))

	name := "Renamed rule"
	priority := models.PriorityLow

	updated, _, err := service.Update(ctx, created.ID, models.RulePatch{Name: &name, Priority: &priority})
	require.NoError(t, err)
	assert.Equal(t, "Renamed rule", updated.Name)
	assert.Equal(t, models.PriorityLow, updated.Priority)
	assert.Equal(t, int64(1), updated.ExecutionCount)
	assert.Equal(t, models.TriggerAssessmentCompleted, updated.Trigger)

	bad := models.Conditions{Score: &models.ScoreRange{Min: 5, Max: 1}}

	_, _, err = service.Update(ctx, created.ID, models.RulePatch{Conditions: &bad})
	require.ErrorIs(t, err, ErrInvalidRule)

	short := "ab"

	_, _, err = service.Update(ctx, created.ID, models.RulePatch{Name: &short})
	require.ErrorIs(t, err, ErrInvalidRule)

	fetched, err := service.FetchByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(8), fetched.Conditions.Score.Min)

	_, _, err = service.Update(ctx, "missing", models.RulePatch{Name: &name})
	assert.True(t, persistence.IsRuleNotFound(err))
}

func TestRule_SetActiveAndDelete(t *testing.T) {
	ctx := context.Background()
	service, _ := newRuleService(t)

	created, _, err := service.Create(ctx, validRule())
	require.NoError(t, err)

	disabled, err := service.SetActive(ctx, created.ID, false)
	require.NoError(t, err)
	assert.False(t, disabled.IsActive)

	active, err := service.ListActiveByTrigger(ctx, models.TriggerAssessmentCompleted)
	require.NoError(t, err)
	assert.Empty(t, active)

	enabled, err := service.SetActive(ctx, created.ID, true)
	require.NoError(t, err)
	assert.True(t, enabled.IsActive)

	require.NoError(t, service.Delete(ctx, created.ID))

	_, err = service.FetchByID(ctx, created.ID)
	assert.True(t, errors.Is(err, ErrRuleNotFound))

	_, err = service.SetActive(ctx, created.ID, true)
	assert.True(t, persistence.IsRuleNotFound(err))

	assert.True(t, persistence.IsRuleNotFound(service.Delete(ctx, created.ID)))
}

func TestRule_List(t *testing.T) {
	ctx := context.Background()
	service, _ := newRuleService(t)

	for range 3 {
		_, _, err := service.Create(ctx, validRule())
		require.NoError(t, err)
	}

	started := validRule()
	started.Trigger = models.TriggerAssessmentStarted
	started.IsActive = false

	_, _, err := service.Create(ctx, started)
	require.NoError(t, err)

	all, err := service.List(ctx, ListRulesRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), all.TotalCount)
	assert.False(t, all.HasNextPage)

	trigger := models.TriggerAssessmentCompleted

	page, err := service.List(ctx, ListRulesRequest{Trigger: &trigger, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalCount)
	assert.Len(t, page.Rules, 2)
	assert.True(t, page.HasNextPage)

	inactive := false

	disabled, err := service.List(ctx, ListRulesRequest{Active: &inactive})
	require.NoError(t, err)
	require.Len(t, disabled.Rules, 1)
	assert.Equal(t, models.TriggerAssessmentStarted, disabled.Rules[0].Trigger)

	unknown := models.TriggerKind("bogus")

	_, err = service.List(ctx, ListRulesRequest{Trigger: &unknown})
	require.ErrorIs(t, err, ErrInvalidTrigger)

	_, err = service.ListActiveByTrigger(ctx, unknown)
	require.ErrorIs(t, err, ErrInvalidTrigger)
}

func TestRule_Revalidate(t *testing.T) {
	ctx := context.Background()
	service, p := newRuleService(t)

	_, _, err := service.Create(ctx, validRule())
	require.NoError(t, err)

	// Written around the service, as an older release could have stored it.
	broken := &models.WorkflowRule{
		ID:       "legacy-rule",
		Name:     "Legacy",
		Trigger:  models.TriggerAssessmentExpired,
		Priority: "urgent",
	}
	require.NoError(t, p.RuleRepository().Create(ctx, broken))

	reports, err := service.Revalidate(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	var legacy RuleReport

	for _, report := range reports {
		if report.RuleID == "legacy-rule" {
			legacy = report
		} else {
			assert.Empty(t, report.Errors)
		}
	}

	require.NotEmpty(t, legacy.Errors)
	assert.Contains(t, legacy.Errors[0], "unknown priority")
	assert.Equal(t, []string{"rule has no conditions and no actions"}, legacy.Warnings)
}

func TestRule_HealthCheck(t *testing.T) {
	service, _ := newRuleService(t)

	message, ok := service.HealthCheck(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "Persistence layer is healthy", message)

	nilService := &Rule{}

	_, ok = nilService.HealthCheck(context.Background())
	assert.False(t, ok)
}
