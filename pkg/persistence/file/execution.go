package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dukex/hireflow/pkg/models"
	"github.com/dukex/hireflow/pkg/persistence"
)

// ExecutionRepository handles execution-related file operations.
type ExecutionRepository struct {
	dir string
	mu  sync.RWMutex
}

func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{dir: filepath.Join(root, "executions")}
}

func (er *ExecutionRepository) Create(_ context.Context, execution *models.WorkflowExecution) error {
	if err := validateID(execution.ID); err != nil {
		return persistence.NewExecutionError("Create", execution.ID, err)
	}

	er.mu.Lock()
	defer er.mu.Unlock()

	if execution.TriggerPayload == nil {
		execution.TriggerPayload = make(map[string]any)
	}

	return writeJSON(er.dir, execution.ID, execution)
}

func (er *ExecutionRepository) Complete(_ context.Context, execution *models.WorkflowExecution) error {
	er.mu.Lock()
	defer er.mu.Unlock()

	stored, err := er.load("Complete", execution.ID)
	if err != nil {
		return err
	}

	if stored.Status != models.ExecutionStatusPending {
		return persistence.NewExecutionError("Complete", execution.ID, persistence.ErrExecutionNotPending)
	}

	if execution.Status == models.ExecutionStatusSuccess {
		duplicate, err := er.succeeded(stored.RuleID, stored.IdempotencyKey, stored.ID)
		if err != nil {
			return persistence.NewExecutionError("Complete", execution.ID, err)
		}

		if duplicate {
			return persistence.NewExecutionError("Complete", execution.ID, persistence.ErrDuplicateSuccess)
		}
	}

	stored.Status = execution.Status
	stored.Result = execution.Result
	stored.Error = execution.Error
	stored.ActionResults = execution.ActionResults
	stored.CompletedAt = execution.CompletedAt

	return writeJSON(er.dir, stored.ID, stored)
}

func (er *ExecutionRepository) GetByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	er.mu.RLock()
	defer er.mu.RUnlock()

	return er.load("GetByID", id)
}

// List returns executions most recent first.
func (er *ExecutionRepository) List(_ context.Context, opts persistence.ListExecutionsOptions) (*persistence.ExecutionListResult, error) {
	er.mu.RLock()
	executions, err := er.all()
	er.mu.RUnlock()

	if err != nil {
		return nil, err
	}

	filtered := make([]*models.WorkflowExecution, 0, len(executions))

	for _, execution := range executions {
		if opts.RuleID != "" && execution.RuleID != opts.RuleID {
			continue
		}

		if opts.Status != nil && execution.Status != *opts.Status {
			continue
		}

		filtered = append(filtered, execution)
	}

	slices.SortFunc(filtered, func(a, b *models.WorkflowExecution) int {
		if c := b.ExecutedAt.Compare(a.ExecutedAt); c != 0 {
			return c
		}

		return strings.Compare(b.ID, a.ID)
	})

	paged, next := page(filtered, opts.Limit, opts.Offset)

	return &persistence.ExecutionListResult{
		Executions:  paged,
		TotalCount:  int64(len(filtered)),
		HasNextPage: next,
	}, nil
}

func (er *ExecutionRepository) HasSucceeded(_ context.Context, ruleID, idempotencyKey string) (bool, error) {
	er.mu.RLock()
	defer er.mu.RUnlock()

	return er.succeeded(ruleID, idempotencyKey, "")
}

func (er *ExecutionRepository) ListPendingBefore(_ context.Context, before time.Time) ([]*models.WorkflowExecution, error) {
	er.mu.RLock()
	defer er.mu.RUnlock()

	executions, err := er.all()
	if err != nil {
		return nil, err
	}

	pending := make([]*models.WorkflowExecution, 0)

	for _, execution := range executions {
		if execution.Status == models.ExecutionStatusPending && execution.ExecutedAt.Before(before) {
			pending = append(pending, execution)
		}
	}

	slices.SortFunc(pending, func(a, b *models.WorkflowExecution) int {
		return a.ExecutedAt.Compare(b.ExecutedAt)
	})

	return pending, nil
}

func (er *ExecutionRepository) succeeded(ruleID, idempotencyKey, exceptID string) (bool, error) {
	executions, err := er.all()
	if err != nil {
		return false, err
	}

	for _, execution := range executions {
		if execution.ID == exceptID {
			continue
		}

		if execution.RuleID == ruleID &&
			execution.IdempotencyKey == idempotencyKey &&
			execution.Status == models.ExecutionStatusSuccess {
			return true, nil
		}
	}

	return false, nil
}

func (er *ExecutionRepository) all() ([]*models.WorkflowExecution, error) {
	ids, err := listIDs(er.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list execution files: %w", err)
	}

	executions := make([]*models.WorkflowExecution, 0, len(ids))

	for _, id := range ids {
		var execution models.WorkflowExecution
		if err := readJSON(er.dir, id, &execution); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}

			return nil, fmt.Errorf("failed to load execution %s: %w", id, err)
		}

		executions = append(executions, &execution)
	}

	return executions, nil
}

func (er *ExecutionRepository) load(op, id string) (*models.WorkflowExecution, error) {
	if err := validateID(id); err != nil {
		return nil, persistence.NewExecutionError(op, id, persistence.ErrExecutionNotFound)
	}

	var execution models.WorkflowExecution
	if err := readJSON(er.dir, id, &execution); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.NewExecutionError(op, id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError(op, id, err)
	}

	return &execution, nil
}
