// Package eventbus delivers assessment events between the ingest surface and the rule engine.
package eventbus

import (
	"context"

	"github.com/dukex/hireflow/pkg/events"
)

type EventPublisher interface {
	// Publish sends event with key as its partition key. Events sharing a key keep their
	// order; an empty key falls back to the event's entity.
	Publish(ctx context.Context, key string, event *events.AssessmentEvent) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
	// Wait returns once cancelled subscriptions stopped handing events to handlers.
	Wait()
}

// EventHandler returns an error to have the event delivered again.
type EventHandler func(ctx context.Context, event *events.AssessmentEvent) error

// Dispatcher runs a handler invocation, possibly on another goroutine.
type Dispatcher interface {
	Go(task func())
}

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
