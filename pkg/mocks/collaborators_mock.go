package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockNotifier is a mock implementation of actions.Notifier interface.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendEmail(ctx context.Context, templateID, recipient string, variables map[string]any) error {
	args := m.Called(ctx, templateID, recipient, variables)

	return args.Error(0)
}

// MockStatusService is a mock implementation of actions.StatusService interface.
type MockStatusService struct {
	mock.Mock
}

func (m *MockStatusService) UpdateStatus(ctx context.Context, entityID, newStatus string) error {
	args := m.Called(ctx, entityID, newStatus)

	return args.Error(0)
}

// MockScheduler is a mock implementation of actions.Scheduler interface.
type MockScheduler struct {
	mock.Mock
}

func (m *MockScheduler) ScheduleInterview(ctx context.Context, entityID string, constraints map[string]string) error {
	args := m.Called(ctx, entityID, constraints)

	return args.Error(0)
}

func (m *MockScheduler) CreateFollowUp(ctx context.Context, entityID string, dueInHours float64, params map[string]string) error {
	args := m.Called(ctx, entityID, dueInHours, params)

	return args.Error(0)
}

// MockManagerNotifier is a mock implementation of actions.ManagerNotifier interface.
type MockManagerNotifier struct {
	mock.Mock
}

func (m *MockManagerNotifier) NotifyManager(ctx context.Context, entityID, summary string) error {
	args := m.Called(ctx, entityID, summary)

	return args.Error(0)
}
