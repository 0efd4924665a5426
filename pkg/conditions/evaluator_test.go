package conditions_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/dukex/hireflow/pkg/conditions"
	"github.com/dukex/hireflow/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestMatches_ScoreRange(t *testing.T) {
	t.Parallel()

	cond := models.Conditions{Score: &models.ScoreRange{Min: 8, Max: 10}}

	tests := []struct {
		name    string
		payload map[string]any
		want    bool
	}{
		{name: "lower bound inclusive", payload: map[string]any{"score": 8.0}, want: true},
		{name: "upper bound inclusive", payload: map[string]any{"score": 10}, want: true},
		{name: "inside", payload: map[string]any{"score": 8.5}, want: true},
		{name: "just below", payload: map[string]any{"score": 7.999}, want: false},
		{name: "above", payload: map[string]any{"score": 10.01}, want: false},
		{name: "json number", payload: map[string]any{"score": json.Number("9")}, want: true},
		{name: "int64", payload: map[string]any{"score": int64(9)}, want: true},
		{name: "missing score fails closed", payload: map[string]any{}, want: false},
		{name: "nil payload fails closed", payload: nil, want: false},
		{name: "string score", payload: map[string]any{"score": "9"}, want: false},
		{name: "null score", payload: map[string]any{"score": nil}, want: false},
		{name: "NaN score", payload: map[string]any{"score": math.NaN()}, want: false},
		{name: "bool score", payload: map[string]any{"score": true}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, conditions.Matches(cond, tt.payload))
		})
	}
}

func TestMatches_SetMembership(t *testing.T) {
	t.Parallel()

	cond := models.Conditions{
		AssessmentTypes: []string{"technical", "cognitive"},
		CandidateLevels: []string{"senior"},
	}

	tests := []struct {
		name    string
		payload map[string]any
		want    bool
	}{
		{
			name:    "both in set",
			payload: map[string]any{"assessmentType": "technical", "candidateLevel": "senior"},
			want:    true,
		},
		{
			name:    "type not in set",
			payload: map[string]any{"assessmentType": "personality", "candidateLevel": "senior"},
			want:    false,
		},
		{
			name:    "level missing",
			payload: map[string]any{"assessmentType": "technical"},
			want:    false,
		},
		{
			name:    "case sensitive",
			payload: map[string]any{"assessmentType": "Technical", "candidateLevel": "senior"},
			want:    false,
		},
		{
			name:    "non string value",
			payload: map[string]any{"assessmentType": 1, "candidateLevel": "senior"},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, conditions.Matches(cond, tt.payload))
		})
	}
}

func TestMatches_EmptySetIsUnconstrained(t *testing.T) {
	t.Parallel()

	cond := models.Conditions{AssessmentTypes: []string{}}

	assert.True(t, conditions.Matches(cond, map[string]any{"assessmentType": "anything"}))
	assert.True(t, conditions.Matches(cond, map[string]any{}))
}

func TestMatches_EmptyConditionsMatchEverything(t *testing.T) {
	t.Parallel()

	assert.True(t, conditions.Matches(models.Conditions{}, nil))
	assert.True(t, conditions.Matches(models.Conditions{}, map[string]any{"score": "garbage"}))
}

func TestMatches_TimeThreshold(t *testing.T) {
	t.Parallel()

	sinceEvent := models.Conditions{Elapsed: &models.TimeThreshold{Hours: 48}}
	untilExpiry := models.Conditions{Elapsed: &models.TimeThreshold{Field: models.PayloadHoursUntilExpiry, Hours: 24}}

	assert.True(t, conditions.Matches(sinceEvent, map[string]any{"hoursSinceEvent": 48}))
	assert.True(t, conditions.Matches(sinceEvent, map[string]any{"hoursSinceEvent": 72.5}))
	assert.False(t, conditions.Matches(sinceEvent, map[string]any{"hoursSinceEvent": 47.9}))
	assert.False(t, conditions.Matches(sinceEvent, map[string]any{"hoursUntilExpiry": 100}))

	assert.True(t, conditions.Matches(untilExpiry, map[string]any{"hoursUntilExpiry": 24}))
	assert.False(t, conditions.Matches(untilExpiry, map[string]any{"hoursUntilExpiry": 12}))
}

func TestMatches_Conjunction(t *testing.T) {
	t.Parallel()

	cond := models.Conditions{
		Score:           &models.ScoreRange{Min: 8, Max: 10},
		AssessmentTypes: []string{"technical"},
	}

	assert.True(t, conditions.Matches(cond, map[string]any{"score": 9, "assessmentType": "technical"}))
	assert.False(t, conditions.Matches(cond, map[string]any{"score": 9, "assessmentType": "cognitive"}))
	assert.False(t, conditions.Matches(cond, map[string]any{"score": 5, "assessmentType": "technical"}))
}

func TestEvaluate_ReportsReason(t *testing.T) {
	t.Parallel()

	cond := models.Conditions{Score: &models.ScoreRange{Min: 8, Max: 10}}

	result := conditions.Evaluate(cond, map[string]any{"score": 5})
	assert.False(t, result.Matched)
	assert.Contains(t, result.Reason, "outside")

	result = conditions.Evaluate(cond, map[string]any{})
	assert.False(t, result.Matched)
	assert.Contains(t, result.Reason, "no numeric score")

	result = conditions.Evaluate(cond, map[string]any{"score": 9})
	assert.True(t, result.Matched)
	assert.Empty(t, result.Reason)
}

func TestMatches_DoesNotMutatePayload(t *testing.T) {
	t.Parallel()

	payload := map[string]any{"score": 9, "assessmentType": "technical"}
	cond := models.Conditions{Score: &models.ScoreRange{Min: 8, Max: 10}, AssessmentTypes: []string{"technical"}}

	conditions.Matches(cond, payload)

	assert.Equal(t, map[string]any{"score": 9, "assessmentType": "technical"}, payload)
}
