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
	"github.com/lib/pq"
)

const ruleColumns = `
			id
		  , name
		  , description
		  , trigger_kind
		  , conditions
		  , actions
		  , priority
		  , is_active
		  , execution_count
		  , last_executed_at
		  , created_at
		  , updated_at
		  , deleted_at`

const priorityRank = `CASE priority WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END`

// RuleRepository handles rule-related database operations.
type RuleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRuleRepository creates a new rule repository.
func NewRuleRepository(db *sql.DB, logger *slog.Logger) *RuleRepository {
	return &RuleRepository{db: db, logger: logger}
}

func (r *RuleRepository) Create(ctx context.Context, rule *models.WorkflowRule) error {
	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}

	rule.UpdatedAt = now

	conditions, actions, err := marshalRuleBody(rule)
	if err != nil {
		return persistence.NewRuleError("Create", rule.ID, err)
	}

	query := `
		INSERT INTO workflow_rules (
			id, name, description, trigger_kind, conditions, actions, priority,
			is_active, execution_count, last_executed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.db.ExecContext(ctx, query,
		rule.ID, rule.Name, rule.Description, string(rule.Trigger), conditions, actions, string(rule.Priority),
		rule.IsActive, rule.ExecutionCount, rule.LastExecutedAt, rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.NewRuleError("Create", rule.ID, persistence.ErrRuleAlreadyExists)
		}

		return persistence.NewRuleError("Create", rule.ID, err)
	}

	return nil
}

// Update overwrites the editable fields of a rule. Execution counters are untouched.
func (r *RuleRepository) Update(ctx context.Context, rule *models.WorkflowRule) error {
	rule.UpdatedAt = time.Now().UTC()

	conditions, actions, err := marshalRuleBody(rule)
	if err != nil {
		return persistence.NewRuleError("Update", rule.ID, err)
	}

	query := `
		UPDATE workflow_rules
		SET name = $2, description = $3, trigger_kind = $4, conditions = $5, actions = $6,
			priority = $7, is_active = $8, updated_at = $9
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.Name, rule.Description, string(rule.Trigger), conditions, actions,
		string(rule.Priority), rule.IsActive, rule.UpdatedAt,
	)

	return r.expectOne("Update", rule.ID, result, err)
}

func (r *RuleRepository) GetByID(ctx context.Context, id string) (*models.WorkflowRule, error) {
	query := `SELECT` + ruleColumns + `
		FROM workflow_rules
		WHERE id = $1 AND deleted_at IS NULL
	`

	rule, err := scanRule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRuleError("GetByID", id, persistence.ErrRuleNotFound)
		}

		return nil, persistence.NewRuleError("GetByID", id, err)
	}

	return rule, nil
}

func (r *RuleRepository) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE workflow_rules SET is_active = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`,
		id, active, time.Now().UTC(),
	)

	return r.expectOne("SetActive", id, result, err)
}

// Delete soft deletes a rule so executions keep referencing it.
func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	now := time.Now().UTC()

	result, err := r.db.ExecContext(ctx,
		`UPDATE workflow_rules SET is_active = false, deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, now,
	)

	return r.expectOne("Delete", id, result, err)
}

func (r *RuleRepository) RecordExecution(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE workflow_rules SET execution_count = execution_count + 1, last_executed_at = $2 WHERE id = $1`,
		id, at.UTC(),
	)

	return r.expectOne("RecordExecution", id, result, err)
}

func (r *RuleRepository) List(ctx context.Context, opts persistence.ListRulesOptions) (*persistence.RuleListResult, error) {
	where := []string{"deleted_at IS NULL"}
	args := make([]any, 0, 4)

	if opts.Trigger != nil {
		args = append(args, string(*opts.Trigger))
		where = append(where, "trigger_kind = $"+strconv.Itoa(len(args)))
	}

	if opts.Active != nil {
		args = append(args, *opts.Active)
		where = append(where, "is_active = $"+strconv.Itoa(len(args)))
	}

	filter := strings.Join(where, " AND ")

	var total int64

	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM workflow_rules WHERE "+filter, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count rules: %w", err)
	}

	limit := persistence.NormalizeLimit(opts.Limit)
	offset := max(opts.Offset, 0)

	args = append(args, limit, offset)
	query := `SELECT` + ruleColumns + `
		FROM workflow_rules
		WHERE ` + filter + `
		ORDER BY created_at ASC, id ASC
		LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rules, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &persistence.RuleListResult{
		Rules:       rules,
		TotalCount:  total,
		HasNextPage: int64(offset+len(rules)) < total,
	}, nil
}

func (r *RuleRepository) ListActiveByTrigger(ctx context.Context, trigger models.TriggerKind) ([]*models.WorkflowRule, error) {
	query := `SELECT` + ruleColumns + `
		FROM workflow_rules
		WHERE trigger_kind = $1 AND is_active = true AND deleted_at IS NULL
		ORDER BY ` + priorityRank + ` DESC, created_at ASC, id ASC
	`

	return r.query(ctx, query, string(trigger))
}

func (r *RuleRepository) query(ctx context.Context, query string, args ...any) ([]*models.WorkflowRule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	rules := make([]*models.WorkflowRule, 0)

	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}

		rules = append(rules, rule)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}

func (r *RuleRepository) expectOne(op, id string, result sql.Result, err error) error {
	if err != nil {
		return persistence.NewRuleError(op, id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewRuleError(op, id, err)
	}

	if affected == 0 {
		return persistence.NewRuleError(op, id, persistence.ErrRuleNotFound)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRule(row scanner) (*models.WorkflowRule, error) {
	var (
		rule                models.WorkflowRule
		trigger, priority   string
		conditions, actions []byte
		lastExecutedAt      sql.NullTime
		deletedAt           sql.NullTime
	)

	err := row.Scan(
		&rule.ID, &rule.Name, &rule.Description, &trigger, &conditions, &actions, &priority,
		&rule.IsActive, &rule.ExecutionCount, &lastExecutedAt, &rule.CreatedAt, &rule.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.Trigger = models.TriggerKind(trigger)
	rule.Priority = models.Priority(priority)

	if len(conditions) > 0 {
		if err := json.Unmarshal(conditions, &rule.Conditions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal conditions: %w", err)
		}
	}

	if len(actions) > 0 {
		if err := json.Unmarshal(actions, &rule.Actions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
		}
	}

	if lastExecutedAt.Valid {
		rule.LastExecutedAt = &lastExecutedAt.Time
	}

	if deletedAt.Valid {
		rule.DeletedAt = &deletedAt.Time
	}

	return &rule, nil
}

func marshalRuleBody(rule *models.WorkflowRule) ([]byte, []byte, error) {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal conditions: %w", err)
	}

	ruleActions := rule.Actions
	if ruleActions == nil {
		ruleActions = []models.ActionSpec{}
	}

	actions, err := json.Marshal(ruleActions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal actions: %w", err)
	}

	return conditions, actions, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error

	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
