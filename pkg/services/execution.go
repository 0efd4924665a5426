package services

import (
	"context"
	"fmt"

	"github.com/dukex/hireflow/pkg/models"
	"github.com/dukex/hireflow/pkg/persistence"
)

type Execution struct {
	persistence persistence.Persistence
}

func NewExecution(persistence persistence.Persistence) *Execution {
	return &Execution{persistence: persistence}
}

// ListExecutionsRequest contains options for listing executions.
type ListExecutionsRequest struct {
	RuleID string
	Status *models.ExecutionStatus
	Limit  int
	Offset int
}

// ListExecutionsResponse contains the result of listing executions.
type ListExecutionsResponse struct {
	Executions  []*models.WorkflowExecution `json:"executions"`
	TotalCount  int64                       `json:"total_count"`
	HasNextPage bool                        `json:"has_next_page"`
}

// List returns executions most recent first.
func (e *Execution) List(ctx context.Context, req ListExecutionsRequest) (*ListExecutionsResponse, error) {
	if req.Status != nil && !req.Status.Valid() {
		return nil, NewValidationError(
			"List",
			"INVALID_STATUS",
			fmt.Sprintf("invalid status '%s', allowed: pending, success, failed", *req.Status),
			ErrInvalidStatus,
		)
	}

	if req.Offset < 0 {
		req.Offset = 0
	}

	result, err := e.persistence.ExecutionRepository().List(ctx, persistence.ListExecutionsOptions{
		RuleID: req.RuleID,
		Status: req.Status,
		Limit:  persistence.NormalizeLimit(req.Limit),
		Offset: req.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return &ListExecutionsResponse{
		Executions:  result.Executions,
		TotalCount:  result.TotalCount,
		HasNextPage: result.HasNextPage,
	}, nil
}

func (e *Execution) FetchByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	return e.persistence.ExecutionRepository().GetByID(ctx, id)
}
