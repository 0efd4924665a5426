// Package events defines the assessment lifecycle events consumed by the rule engine.
package events

import (
	"time"

	"github.com/dukex/hireflow/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Kafka topics.
const Topic = "hireflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

// Assessment lifecycle events, one per trigger kind.
const (
	AssessmentCompletedEvent EventType = EventType(models.TriggerAssessmentCompleted)
	AssessmentStartedEvent   EventType = EventType(models.TriggerAssessmentStarted)
	AssessmentExpiredEvent   EventType = EventType(models.TriggerAssessmentExpired)
	CandidateHiredEvent      EventType = EventType(models.TriggerCandidateHired)
	CandidateRejectedEvent   EventType = EventType(models.TriggerCandidateRejected)
)

// IsAssessmentEvent reports whether t carries an AssessmentEvent.
func IsAssessmentEvent(t EventType) bool {
	return models.TriggerKind(t).Valid()
}

// AssessmentEventTypes returns the event type of every trigger kind.
func AssessmentEventTypes() []EventType {
	kinds := models.TriggerKinds()
	types := make([]EventType, 0, len(kinds))

	for _, kind := range kinds {
		types = append(types, TypeFor(kind))
	}

	return types
}

// TypeFor returns the event type carrying the given trigger kind.
func TypeFor(trigger models.TriggerKind) EventType {
	return EventType(trigger)
}

// AssessmentEvent is emitted when an assessment or candidate changes state.
// Depth counts how many rule-driven re-triggers separate it from the original event.
type AssessmentEvent struct {
	ID          string             `json:"id"`
	Trigger     models.TriggerKind `json:"trigger"`
	Payload     map[string]any     `json:"payload"`
	OccurredAt  time.Time          `json:"occurred_at"`
	Depth       int                `json:"depth"`
	RootEventID string             `json:"root_event_id,omitempty"`
}

func (e AssessmentEvent) GetType() EventType {
	return TypeFor(e.Trigger)
}

// EntityID returns the payload's entity identifier, or "" when absent or not a string.
func (e AssessmentEvent) EntityID() string {
	id, _ := e.Payload[models.PayloadEntityID].(string)

	return id
}

// NewAssessmentEvent creates a root event for the trigger.
func NewAssessmentEvent(trigger models.TriggerKind, payload map[string]any) *AssessmentEvent {
	id := uuid.New().String()

	if payload == nil {
		payload = make(map[string]any)
	}

	return &AssessmentEvent{
		ID:          id,
		Trigger:     trigger,
		Payload:     payload,
		OccurredAt:  time.Now().UTC(),
		RootEventID: id,
	}
}

// Derive creates the event caused by e one level deeper in the re-trigger chain.
func (e AssessmentEvent) Derive(trigger models.TriggerKind, payload map[string]any) *AssessmentEvent {
	next := NewAssessmentEvent(trigger, payload)
	next.Depth = e.Depth + 1

	next.RootEventID = e.RootEventID
	if next.RootEventID == "" {
		next.RootEventID = e.ID
	}

	return next
}
