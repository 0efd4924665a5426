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

// RuleRepository handles rule-related file operations.
type RuleRepository struct {
	dir string
	mu  sync.RWMutex
}

func NewRuleRepository(root string) *RuleRepository {
	return &RuleRepository{dir: filepath.Join(root, "rules")}
}

func (rr *RuleRepository) Create(_ context.Context, rule *models.WorkflowRule) error {
	if err := validateID(rule.ID); err != nil {
		return persistence.NewRuleError("Create", rule.ID, err)
	}

	rr.mu.Lock()
	defer rr.mu.Unlock()

	var existing models.WorkflowRule

	err := readJSON(rr.dir, rule.ID, &existing)
	if err == nil {
		return persistence.NewRuleError("Create", rule.ID, persistence.ErrRuleAlreadyExists)
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return persistence.NewRuleError("Create", rule.ID, err)
	}

	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}

	rule.UpdatedAt = now

	return writeJSON(rr.dir, rule.ID, rule)
}

func (rr *RuleRepository) Update(_ context.Context, rule *models.WorkflowRule) error {
	return rr.modify("Update", rule.ID, func(stored *models.WorkflowRule) {
		counted, last := stored.ExecutionCount, stored.LastExecutedAt
		created := stored.CreatedAt

		*stored = *rule
		stored.ExecutionCount, stored.LastExecutedAt = counted, last
		stored.CreatedAt = created
		stored.UpdatedAt = time.Now().UTC()

		*rule = *stored
	})
}

func (rr *RuleRepository) GetByID(_ context.Context, id string) (*models.WorkflowRule, error) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	return rr.load("GetByID", id)
}

func (rr *RuleRepository) SetActive(_ context.Context, id string, active bool) error {
	return rr.modify("SetActive", id, func(stored *models.WorkflowRule) {
		stored.IsActive = active
		stored.UpdatedAt = time.Now().UTC()
	})
}

func (rr *RuleRepository) Delete(_ context.Context, id string) error {
	return rr.modify("Delete", id, func(stored *models.WorkflowRule) {
		now := time.Now().UTC()
		stored.IsActive = false
		stored.DeletedAt = &now
		stored.UpdatedAt = now
	})
}

func (rr *RuleRepository) RecordExecution(_ context.Context, id string, at time.Time) error {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	var stored models.WorkflowRule
	if err := readJSON(rr.dir, id, &stored); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return persistence.NewRuleError("RecordExecution", id, persistence.ErrRuleNotFound)
		}

		return persistence.NewRuleError("RecordExecution", id, err)
	}

	// Counting continues after a soft delete so in-flight firings are not lost.
	at = at.UTC()
	stored.ExecutionCount++
	stored.LastExecutedAt = &at

	return writeJSON(rr.dir, id, &stored)
}

func (rr *RuleRepository) List(_ context.Context, opts persistence.ListRulesOptions) (*persistence.RuleListResult, error) {
	rules, err := rr.all()
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.WorkflowRule, 0, len(rules))

	for _, rule := range rules {
		if opts.Trigger != nil && rule.Trigger != *opts.Trigger {
			continue
		}

		if opts.Active != nil && rule.IsActive != *opts.Active {
			continue
		}

		filtered = append(filtered, rule)
	}

	slices.SortFunc(filtered, func(a, b *models.WorkflowRule) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return strings.Compare(a.ID, b.ID)
	})

	paged, next := page(filtered, opts.Limit, opts.Offset)

	return &persistence.RuleListResult{
		Rules:       paged,
		TotalCount:  int64(len(filtered)),
		HasNextPage: next,
	}, nil
}

func (rr *RuleRepository) ListActiveByTrigger(_ context.Context, trigger models.TriggerKind) ([]*models.WorkflowRule, error) {
	rules, err := rr.all()
	if err != nil {
		return nil, err
	}

	active := make([]*models.WorkflowRule, 0)

	for _, rule := range rules {
		if rule.IsActive && rule.Trigger == trigger {
			active = append(active, rule)
		}
	}

	slices.SortStableFunc(active, func(a, b *models.WorkflowRule) int {
		switch {
		case a.RunsBefore(b):
			return -1
		case b.RunsBefore(a):
			return 1
		default:
			return 0
		}
	})

	return active, nil
}

// all returns every rule that is not deleted.
func (rr *RuleRepository) all() ([]*models.WorkflowRule, error) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	ids, err := listIDs(rr.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list rule files: %w", err)
	}

	rules := make([]*models.WorkflowRule, 0, len(ids))

	for _, id := range ids {
		var rule models.WorkflowRule
		if err := readJSON(rr.dir, id, &rule); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}

			return nil, fmt.Errorf("failed to load rule %s: %w", id, err)
		}

		if !rule.IsDeleted() {
			rules = append(rules, &rule)
		}
	}

	return rules, nil
}

func (rr *RuleRepository) load(op, id string) (*models.WorkflowRule, error) {
	if err := validateID(id); err != nil {
		return nil, persistence.NewRuleError(op, id, persistence.ErrRuleNotFound)
	}

	var rule models.WorkflowRule
	if err := readJSON(rr.dir, id, &rule); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.NewRuleError(op, id, persistence.ErrRuleNotFound)
		}

		return nil, persistence.NewRuleError(op, id, err)
	}

	if rule.IsDeleted() {
		return nil, persistence.NewRuleError(op, id, persistence.ErrRuleNotFound)
	}

	return &rule, nil
}

func (rr *RuleRepository) modify(op, id string, change func(*models.WorkflowRule)) error {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	stored, err := rr.load(op, id)
	if err != nil {
		return err
	}

	change(stored)

	return writeJSON(rr.dir, id, stored)
}
