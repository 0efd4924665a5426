package assessment_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/dukex/hireflow/pkg/events"
	"github.com/dukex/hireflow/pkg/mocks"
	"github.com/dukex/hireflow/pkg/models"
	"github.com/dukex/hireflow/pkg/sources/assessment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newSource(t *testing.T) (*assessment.Source, *mocks.MockEventBus) {
	t.Helper()

	bus := &mocks.MockEventBus{}
	t.Cleanup(func() { bus.AssertExpectations(t) })

	source, err := assessment.NewSource(slog.New(slog.NewTextHandler(io.Discard, nil)), bus)
	require.NoError(t, err)

	return source, bus
}

func TestSource_Validate(t *testing.T) {
	source, _ := newSource(t)

	tests := []struct {
		name    string
		trigger models.TriggerKind
		payload map[string]any
		valid   bool
	}{
		{
			name:    "completed with score",
			trigger: models.TriggerAssessmentCompleted,
			payload: map[string]any{"entityId": "cand-1", "score": 8.5, "assessmentType": "technical"},
			valid:   true,
		},
		{
			name:    "completed without score",
			trigger: models.TriggerAssessmentCompleted,
			payload: map[string]any{"entityId": "cand-1"},
		},
		{
			name:    "score as string",
			trigger: models.TriggerAssessmentCompleted,
			payload: map[string]any{"entityId": "cand-1", "score": "high"},
		},
		{
			name:    "expired with hours until expiry",
			trigger: models.TriggerAssessmentExpired,
			payload: map[string]any{"entityId": "cand-1", "hoursUntilExpiry": -2.0},
			valid:   true,
		},
		{
			name:    "negative hours since event",
			trigger: models.TriggerAssessmentStarted,
			payload: map[string]any{"entityId": "cand-1", "hoursSinceEvent": -1.0},
		},
		{
			name:    "empty entity",
			trigger: models.TriggerCandidateHired,
			payload: map[string]any{"entityId": ""},
		},
		{
			name:    "nil payload",
			trigger: models.TriggerCandidateRejected,
		},
		{
			name:    "extra fields are kept",
			trigger: models.TriggerCandidateRejected,
			payload: map[string]any{"entityId": "cand-1", "reason": "position filled"},
			valid:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := source.Validate(tt.trigger, tt.payload)
			if tt.valid {
				assert.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.True(t, assessment.IsValidationError(err))
		})
	}
}

func TestSource_ValidateUnknownTrigger(t *testing.T) {
	source, _ := newSource(t)

	err := source.Validate("assessment_paused", map[string]any{"entityId": "cand-1"})
	require.ErrorIs(t, err, assessment.ErrUnknownTrigger)
	assert.False(t, assessment.IsValidationError(err))
}

func TestSource_Publish(t *testing.T) {
	source, bus := newSource(t)

	bus.On("Publish", mock.Anything, "cand-1", mock.MatchedBy(func(event *events.AssessmentEvent) bool {
		return event.Trigger == models.TriggerAssessmentCompleted && event.Depth == 0 && event.RootEventID == event.ID
	})).Return(nil).Once()

	event, err := source.Publish(context.Background(), models.TriggerAssessmentCompleted, map[string]any{
		"entityId": "cand-1",
		"score":    9.0,
	})
	require.NoError(t, err)
	assert.Equal(t, "cand-1", event.EntityID())
}

func TestSource_PublishRejectsInvalidPayload(t *testing.T) {
	source, _ := newSource(t)

	_, err := source.Publish(context.Background(), models.TriggerAssessmentCompleted, map[string]any{"score": 9.0})
	require.Error(t, err)

	var validationErr *assessment.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.NotEmpty(t, validationErr.Errors)
}

func TestSource_PublishFailure(t *testing.T) {
	source, bus := newSource(t)

	bus.On("Publish", mock.Anything, "cand-1", mock.Anything).Return(errors.New("broker down")).Once()

	_, err := source.Publish(context.Background(), models.TriggerCandidateHired, map[string]any{"entityId": "cand-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}
