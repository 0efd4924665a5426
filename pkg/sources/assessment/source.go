// Package assessment turns assessment lifecycle notifications into events on the bus.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/hireflow/pkg/eventbus"
	"github.com/dukex/hireflow/pkg/events"
	"github.com/dukex/hireflow/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

var ErrUnknownTrigger = errors.New("unknown trigger")

// ValidationError lists why a payload was rejected.
type ValidationError struct {
	Trigger models.TriggerKind
	Errors  []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s payload: %s", e.Trigger, strings.Join(e.Errors, "; "))
}

func IsValidationError(err error) bool {
	var validationErr *ValidationError

	return errors.As(err, &validationErr)
}

// Source validates incoming payloads against the schema of their trigger and publishes them.
type Source struct {
	publisher eventbus.EventPublisher
	schemas   map[models.TriggerKind]*gojsonschema.Schema
	logger    *slog.Logger
}

func NewSource(logger *slog.Logger, publisher eventbus.EventPublisher) (*Source, error) {
	schemas := make(map[models.TriggerKind]*gojsonschema.Schema)

	for _, trigger := range models.TriggerKinds() {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(PayloadSchema(trigger)))
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s schema: %w", trigger, err)
		}

		schemas[trigger] = schema
	}

	return &Source{
		publisher: publisher,
		schemas:   schemas,
		logger:    logger.With("module", "assessment_source"),
	}, nil
}

// Validate checks payload against the schema of trigger.
func (s *Source) Validate(trigger models.TriggerKind, payload map[string]any) error {
	schema, ok := s.schemas[trigger]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownTrigger, trigger)
	}

	if payload == nil {
		payload = map[string]any{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(payload))
	if err != nil {
		return &ValidationError{Trigger: trigger, Errors: []string{err.Error()}}
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}

		return &ValidationError{Trigger: trigger, Errors: messages}
	}

	return nil
}

// Publish validates payload and publishes it as a new root event keyed by its entity.
func (s *Source) Publish(ctx context.Context, trigger models.TriggerKind, payload map[string]any) (*events.AssessmentEvent, error) {
	if err := s.Validate(trigger, payload); err != nil {
		return nil, err
	}

	event := events.NewAssessmentEvent(trigger, payload)

	key := event.EntityID()
	if key == "" {
		key = event.ID
	}

	if err := s.publisher.Publish(ctx, key, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish assessment event", "trigger", trigger, "error", err)

		return nil, fmt.Errorf("failed to publish %s event: %w", trigger, err)
	}

	s.logger.InfoContext(ctx, "Published assessment event", "event_id", event.ID, "trigger", trigger, "entity_id", event.EntityID())

	return event, nil
}
