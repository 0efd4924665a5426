package file

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/hireflow/pkg/models"
	"github.com/dukex/hireflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRule(id string, trigger models.TriggerKind, priority models.Priority, createdAt time.Time) *models.WorkflowRule {
	return &models.WorkflowRule{
		ID:        id,
		Name:      "rule " + id,
		Trigger:   trigger,
		Priority:  priority,
		IsActive:  true,
		CreatedAt: createdAt,
		Actions: []models.ActionSpec{
			{Kind: models.ActionNotifyManager},
		},
	}
}

func TestRuleRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewRuleRepository(t.TempDir())

	rule := newRule("rule-1", models.TriggerAssessmentCompleted, models.PriorityHigh, time.Time{})
	require.NoError(t, repo.Create(ctx, rule))
	assert.False(t, rule.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, "rule-1")
	require.NoError(t, err)
	assert.Equal(t, "rule rule-1", got.Name)
	assert.Equal(t, models.PriorityHigh, got.Priority)
	assert.Len(t, got.Actions, 1)

	err = repo.Create(ctx, rule)
	assert.ErrorIs(t, err, persistence.ErrRuleAlreadyExists)
}

func TestRuleRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewRuleRepository(t.TempDir())

	_, err := repo.GetByID(ctx, "missing")
	assert.True(t, persistence.IsRuleNotFound(err))

	_, err = repo.GetByID(ctx, "../etc/passwd")
	assert.True(t, persistence.IsRuleNotFound(err))

	assert.True(t, persistence.IsRuleNotFound(repo.SetActive(ctx, "missing", true)))
	assert.True(t, persistence.IsRuleNotFound(repo.Delete(ctx, "missing")))
	assert.True(t, persistence.IsRuleNotFound(repo.Update(ctx, &models.WorkflowRule{ID: "missing"})))
}

func TestRuleRepository_UpdatePreservesCounters(t *testing.T) {
	ctx := context.Background()
	repo := NewRuleRepository(t.TempDir())

	rule := newRule("rule-1", models.TriggerAssessmentCompleted, models.PriorityLow, time.Time{})
	require.NoError(t, repo.Create(ctx, rule))
	require.NoError(t, repo.RecordExecution(ctx, "rule-1", time.Now()))

	update := *rule
	update.Name = "renamed"
	update.ExecutionCount = 0

	require.NoError(t, repo.Update(ctx, &update))

	got, err := repo.GetByID(ctx, "rule-1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, int64(1), got.ExecutionCount)
	assert.NotNil(t, got.LastExecutedAt)
	assert.True(t, got.CreatedAt.Equal(rule.CreatedAt))
}

func TestRuleRepository_SoftDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewRuleRepository(t.TempDir())

	require.NoError(t, repo.Create(ctx, newRule("rule-1", models.TriggerAssessmentCompleted, models.PriorityHigh, time.Time{})))
	require.NoError(t, repo.Delete(ctx, "rule-1"))

	_, err := repo.GetByID(ctx, "rule-1")
	assert.True(t, persistence.IsRuleNotFound(err))

	active, err := repo.ListActiveByTrigger(ctx, models.TriggerAssessmentCompleted)
	require.NoError(t, err)
	assert.Empty(t, active)

	// Executions still pending for a deleted rule may complete.
	assert.NoError(t, repo.RecordExecution(ctx, "rule-1", time.Now()))
}

func TestRuleRepository_ListActiveByTrigger_Order(t *testing.T) {
	ctx := context.Background()
	repo := NewRuleRepository(t.TempDir())
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rules := []*models.WorkflowRule{
		newRule("low-old", models.TriggerAssessmentCompleted, models.PriorityLow, base),
		newRule("high-new", models.TriggerAssessmentCompleted, models.PriorityHigh, base.Add(time.Hour)),
		newRule("high-old", models.TriggerAssessmentCompleted, models.PriorityHigh, base),
		newRule("medium", models.TriggerAssessmentCompleted, models.PriorityMedium, base),
		newRule("other-trigger", models.TriggerAssessmentExpired, models.PriorityHigh, base),
	}

	inactive := newRule("inactive", models.TriggerAssessmentCompleted, models.PriorityHigh, base)
	inactive.IsActive = false
	rules = append(rules, inactive)

	for _, rule := range rules {
		require.NoError(t, repo.Create(ctx, rule))
	}

	active, err := repo.ListActiveByTrigger(ctx, models.TriggerAssessmentCompleted)
	require.NoError(t, err)

	ids := make([]string, 0, len(active))
	for _, rule := range active {
		ids = append(ids, rule.ID)
	}

	assert.Equal(t, []string{"high-old", "high-new", "medium", "low-old"}, ids)
}

func TestRuleRepository_SetActive(t *testing.T) {
	ctx := context.Background()
	repo := NewRuleRepository(t.TempDir())

	require.NoError(t, repo.Create(ctx, newRule("rule-1", models.TriggerAssessmentStarted, models.PriorityHigh, time.Time{})))
	require.NoError(t, repo.SetActive(ctx, "rule-1", false))

	active, err := repo.ListActiveByTrigger(ctx, models.TriggerAssessmentStarted)
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, repo.SetActive(ctx, "rule-1", true))

	active, err = repo.ListActiveByTrigger(ctx, models.TriggerAssessmentStarted)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestRuleRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewRuleRepository(t.TempDir())
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		rule := newRule(id, models.TriggerAssessmentCompleted, models.PriorityHigh, base.Add(time.Duration(i)*time.Minute))
		rule.IsActive = id != "b"
		require.NoError(t, repo.Create(ctx, rule))
	}

	require.NoError(t, repo.Create(ctx, newRule("d", models.TriggerAssessmentExpired, models.PriorityHigh, base)))

	tests := []struct {
		name      string
		opts      persistence.ListRulesOptions
		wantIDs   []string
		wantTotal int64
		wantNext  bool
	}{
		{
			name:      "all rules",
			opts:      persistence.ListRulesOptions{},
			wantIDs:   []string{"a", "d", "b", "c"},
			wantTotal: 4,
		},
		{
			name:      "by trigger",
			opts:      persistence.ListRulesOptions{Trigger: ptr(models.TriggerAssessmentCompleted)},
			wantIDs:   []string{"a", "b", "c"},
			wantTotal: 3,
		},
		{
			name:      "inactive only",
			opts:      persistence.ListRulesOptions{Active: ptr(false)},
			wantIDs:   []string{"b"},
			wantTotal: 1,
		},
		{
			name:      "paginated",
			opts:      persistence.ListRulesOptions{Limit: 2, Offset: 1},
			wantIDs:   []string{"d", "b"},
			wantTotal: 4,
			wantNext:  true,
		},
		{
			name:      "offset past end",
			opts:      persistence.ListRulesOptions{Offset: 10},
			wantIDs:   []string{},
			wantTotal: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := repo.List(ctx, tt.opts)
			require.NoError(t, err)

			ids := make([]string, 0, len(result.Rules))
			for _, rule := range result.Rules {
				ids = append(ids, rule.ID)
			}

			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantTotal, result.TotalCount)
			assert.Equal(t, tt.wantNext, result.HasNextPage)
		})
	}
}

func ptr[T any](v T) *T {
	return &v
}
