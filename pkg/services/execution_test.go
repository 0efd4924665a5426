package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dukex/hireflow/pkg/models"
	"github.com/dukex/hireflow/pkg/persistence"
	"github.com/dukex/hireflow/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedExecutions(t *testing.T, p persistence.Persistence) {
	t.Helper()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := range 5 {
		ruleID := "rule-a"
		if i%2 == 1 {
			ruleID = "rule-b"
		}

		status := models.ExecutionStatusSuccess
		if i == 4 {
			status = models.ExecutionStatusFailed
		}

		require.NoError(t, p.ExecutionRepository().Create(context.Background(), &models.WorkflowExecution{
			ID:             fmt.Sprintf("exec-%d", i),
			RuleID:         ruleID,
			Trigger:        models.TriggerAssessmentCompleted,
			IdempotencyKey: fmt.Sprintf("%s:assessment_completed:cand-%d", ruleID, i),
			Status:         status,
			ExecutedAt:     base.Add(time.Duration(i) * time.Minute),
		}))
	}
}

func TestExecution_List(t *testing.T) {
	ctx := context.Background()
	p := file.NewPersistence(t.TempDir())
	seedExecutions(t, p)

	service := NewExecution(p)

	all, err := service.List(ctx, ListExecutionsRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(5), all.TotalCount)
	assert.Equal(t, "exec-4", all.Executions[0].ID)
	assert.Equal(t, "exec-0", all.Executions[4].ID)

	byRule, err := service.List(ctx, ListExecutionsRequest{RuleID: "rule-a", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), byRule.TotalCount)
	assert.Len(t, byRule.Executions, 2)
	assert.True(t, byRule.HasNextPage)

	failed := models.ExecutionStatusFailed

	onlyFailed, err := service.List(ctx, ListExecutionsRequest{Status: &failed, Offset: -3})
	require.NoError(t, err)
	require.Len(t, onlyFailed.Executions, 1)
	assert.Equal(t, "exec-4", onlyFailed.Executions[0].ID)

	bogus := models.ExecutionStatus("done")

	_, err = service.List(ctx, ListExecutionsRequest{Status: &bogus})
	require.ErrorIs(t, err, ErrInvalidStatus)
	assert.True(t, IsValidationError(err))
	assert.Equal(t, "INVALID_STATUS", Code(err))
}

func TestExecution_FetchByID(t *testing.T) {
	ctx := context.Background()
	p := file.NewPersistence(t.TempDir())
	seedExecutions(t, p)

	service := NewExecution(p)

	execution, err := service.FetchByID(ctx, "exec-2")
	require.NoError(t, err)
	assert.Equal(t, "rule-a", execution.RuleID)

	_, err = service.FetchByID(ctx, "exec-99")
	assert.True(t, persistence.IsExecutionNotFound(err))
}
