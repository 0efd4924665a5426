package mocks

import (
	"context"
	"time"

	"github.com/dukex/hireflow/pkg/models"
	"github.com/dukex/hireflow/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockRuleRepository is a mock implementation of persistence.RuleRepository interface.
type MockRuleRepository struct {
	mock.Mock
}

func (m *MockRuleRepository) Create(ctx context.Context, rule *models.WorkflowRule) error {
	args := m.Called(ctx, rule)

	return args.Error(0)
}

func (m *MockRuleRepository) Update(ctx context.Context, rule *models.WorkflowRule) error {
	args := m.Called(ctx, rule)

	return args.Error(0)
}

func (m *MockRuleRepository) GetByID(ctx context.Context, id string) (*models.WorkflowRule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowRule), args.Error(1)
}

func (m *MockRuleRepository) SetActive(ctx context.Context, id string, active bool) error {
	args := m.Called(ctx, id, active)

	return args.Error(0)
}

func (m *MockRuleRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockRuleRepository) List(ctx context.Context, opts persistence.ListRulesOptions) (*persistence.RuleListResult, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*persistence.RuleListResult), args.Error(1)
}

func (m *MockRuleRepository) ListActiveByTrigger(ctx context.Context, trigger models.TriggerKind) ([]*models.WorkflowRule, error) {
	args := m.Called(ctx, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowRule), args.Error(1)
}

func (m *MockRuleRepository) RecordExecution(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)

	return args.Error(0)
}

// MockExecutionRepository is a mock implementation of persistence.ExecutionRepository interface.
type MockExecutionRepository struct {
	mock.Mock
}

func (m *MockExecutionRepository) Create(ctx context.Context, execution *models.WorkflowExecution) error {
	args := m.Called(ctx, execution)

	return args.Error(0)
}

func (m *MockExecutionRepository) Complete(ctx context.Context, execution *models.WorkflowExecution) error {
	args := m.Called(ctx, execution)

	return args.Error(0)
}

func (m *MockExecutionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowExecution), args.Error(1)
}

func (m *MockExecutionRepository) List(ctx context.Context, opts persistence.ListExecutionsOptions) (*persistence.ExecutionListResult, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*persistence.ExecutionListResult), args.Error(1)
}

func (m *MockExecutionRepository) HasSucceeded(ctx context.Context, ruleID, idempotencyKey string) (bool, error) {
	args := m.Called(ctx, ruleID, idempotencyKey)

	return args.Bool(0), args.Error(1)
}

func (m *MockExecutionRepository) ListPendingBefore(ctx context.Context, before time.Time) ([]*models.WorkflowExecution, error) {
	args := m.Called(ctx, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowExecution), args.Error(1)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	ruleRepo      *MockRuleRepository
	executionRepo *MockExecutionRepository
}

// NewMockPersistence creates a new MockPersistence with all mock repositories.
func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		ruleRepo:      &MockRuleRepository{},
		executionRepo: &MockExecutionRepository{},
	}
}

// GetMockRuleRepository returns the underlying mock rule repository for setting up expectations.
func (m *MockPersistence) GetMockRuleRepository() *MockRuleRepository {
	return m.ruleRepo
}

// GetMockExecutionRepository returns the underlying mock execution repository for setting up expectations.
func (m *MockPersistence) GetMockExecutionRepository() *MockExecutionRepository {
	return m.executionRepo
}

func (m *MockPersistence) RuleRepository() persistence.RuleRepository {
	return m.ruleRepo
}

func (m *MockPersistence) ExecutionRepository() persistence.ExecutionRepository {
	return m.executionRepo
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
