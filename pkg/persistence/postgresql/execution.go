package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/hireflow/pkg/models"
	"github.com/dukex/hireflow/pkg/persistence"
)

const executionColumns = `
			id
		  , rule_id
		  , rule_name
		  , trigger_kind
		  , event_id
		  , idempotency_key
		  , trigger_payload
		  , status
		  , result
		  , error_message
		  , action_results
		  , executed_at
		  , completed_at`

// ExecutionRepository handles execution-related database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

func (r *ExecutionRepository) Create(ctx context.Context, execution *models.WorkflowExecution) error {
	payload := execution.TriggerPayload
	if payload == nil {
		payload = map[string]any{}
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return persistence.NewExecutionError("Create", execution.ID, fmt.Errorf("failed to marshal trigger payload: %w", err))
	}

	resultsJSON, err := marshalActionResults(execution.ActionResults)
	if err != nil {
		return persistence.NewExecutionError("Create", execution.ID, err)
	}

	query := `
		INSERT INTO workflow_executions (
			id, rule_id, rule_name, trigger_kind, event_id, idempotency_key,
			trigger_payload, status, result, error_message, action_results, executed_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID, execution.RuleID, execution.RuleName, string(execution.Trigger),
		nullString(execution.EventID), execution.IdempotencyKey, payloadJSON, string(execution.Status),
		nullString(execution.Result), nullString(execution.Error), resultsJSON,
		execution.ExecutedAt, execution.CompletedAt,
	)
	if err != nil {
		return persistence.NewExecutionError("Create", execution.ID, err)
	}

	return nil
}

// Complete writes the terminal state only while the row is still pending.
func (r *ExecutionRepository) Complete(ctx context.Context, execution *models.WorkflowExecution) error {
	resultsJSON, err := marshalActionResults(execution.ActionResults)
	if err != nil {
		return persistence.NewExecutionError("Complete", execution.ID, err)
	}

	query := `
		UPDATE workflow_executions
		SET status = $2, result = $3, error_message = $4, action_results = $5, completed_at = $6
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query,
		execution.ID, string(execution.Status), nullString(execution.Result), nullString(execution.Error),
		resultsJSON, execution.CompletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.NewExecutionError("Complete", execution.ID, persistence.ErrDuplicateSuccess)
		}

		return persistence.NewExecutionError("Complete", execution.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewExecutionError("Complete", execution.ID, err)
	}

	if affected == 1 {
		return nil
	}

	var status string

	err = r.db.QueryRowContext(ctx, `SELECT status FROM workflow_executions WHERE id = $1`, execution.ID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.NewExecutionError("Complete", execution.ID, persistence.ErrExecutionNotFound)
	}

	if err != nil {
		return persistence.NewExecutionError("Complete", execution.ID, err)
	}

	return persistence.NewExecutionError("Complete", execution.ID, persistence.ErrExecutionNotPending)
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	query := `SELECT` + executionColumns + `
		FROM workflow_executions
		WHERE id = $1
	`

	execution, err := scanExecution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	return execution, nil
}

// List returns executions most recent first.
func (r *ExecutionRepository) List(ctx context.Context, opts persistence.ListExecutionsOptions) (*persistence.ExecutionListResult, error) {
	where := []string{"TRUE"}
	args := make([]any, 0, 4)

	if opts.RuleID != "" {
		args = append(args, opts.RuleID)
		where = append(where, "rule_id = $"+strconv.Itoa(len(args)))
	}

	if opts.Status != nil {
		args = append(args, string(*opts.Status))
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}

	filter := strings.Join(where, " AND ")

	var total int64

	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM workflow_executions WHERE "+filter, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count executions: %w", err)
	}

	limit := persistence.NormalizeLimit(opts.Limit)
	offset := max(opts.Offset, 0)

	args = append(args, limit, offset)
	query := `SELECT` + executionColumns + `
		FROM workflow_executions
		WHERE ` + filter + `
		ORDER BY executed_at DESC, id DESC
		LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	executions, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &persistence.ExecutionListResult{
		Executions:  executions,
		TotalCount:  total,
		HasNextPage: int64(offset+len(executions)) < total,
	}, nil
}

func (r *ExecutionRepository) HasSucceeded(ctx context.Context, ruleID, idempotencyKey string) (bool, error) {
	var exists bool

	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM workflow_executions WHERE rule_id = $1 AND idempotency_key = $2 AND status = 'success')`,
		ruleID, idempotencyKey,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check idempotency key %s: %w", idempotencyKey, err)
	}

	return exists, nil
}

func (r *ExecutionRepository) ListPendingBefore(ctx context.Context, before time.Time) ([]*models.WorkflowExecution, error) {
	query := `SELECT` + executionColumns + `
		FROM workflow_executions
		WHERE status = 'pending' AND executed_at < $1
		ORDER BY executed_at ASC
	`

	return r.query(ctx, query, before.UTC())
}

func (r *ExecutionRepository) query(ctx context.Context, query string, args ...any) ([]*models.WorkflowExecution, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	executions := make([]*models.WorkflowExecution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

func scanExecution(row scanner) (*models.WorkflowExecution, error) {
	var (
		execution                 models.WorkflowExecution
		trigger, status           string
		eventID, result, errorMsg sql.NullString
		payload, actionResults    []byte
		completedAt               sql.NullTime
	)

	err := row.Scan(
		&execution.ID, &execution.RuleID, &execution.RuleName, &trigger, &eventID, &execution.IdempotencyKey,
		&payload, &status, &result, &errorMsg, &actionResults, &execution.ExecutedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	execution.Trigger = models.TriggerKind(trigger)
	execution.Status = models.ExecutionStatus(status)
	execution.EventID = eventID.String
	execution.Result = result.String
	execution.Error = errorMsg.String

	execution.TriggerPayload = make(map[string]any)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &execution.TriggerPayload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger payload: %w", err)
		}
	}

	if len(actionResults) > 0 {
		if err := json.Unmarshal(actionResults, &execution.ActionResults); err != nil {
			return nil, fmt.Errorf("failed to unmarshal action results: %w", err)
		}
	}

	if completedAt.Valid {
		execution.CompletedAt = &completedAt.Time
	}

	return &execution, nil
}

func marshalActionResults(results []models.ActionResult) ([]byte, error) {
	if results == nil {
		results = []models.ActionResult{}
	}

	data, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal action results: %w", err)
	}

	return data, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
