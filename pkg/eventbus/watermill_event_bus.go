package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/hireflow/pkg/events"
)

type WatermillEventBus struct {
	publisher     message.Publisher
	subscriber    message.Subscriber
	logger        *slog.Logger
	dispatcher    Dispatcher
	mu            sync.RWMutex
	subscriptions map[events.EventType]EventHandler
	loops         sync.WaitGroup
}

type Option func(*WatermillEventBus)

// WithDispatcher runs handlers through d instead of on the subscription goroutine.
func WithDispatcher(d Dispatcher) Option {
	return func(eb *WatermillEventBus) {
		eb.dispatcher = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(eb *WatermillEventBus) {
		eb.logger = logger
	}
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber, opts ...Option) *WatermillEventBus {
	eb := &WatermillEventBus{
		publisher:     pub,
		subscriber:    sub,
		logger:        slog.Default(),
		dispatcher:    inline{},
		subscriptions: make(map[events.EventType]EventHandler),
	}

	for _, opt := range opts {
		opt(eb)
	}

	eb.logger = eb.logger.With("module", "event_bus")

	return eb
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

func (eb *WatermillEventBus) Publish(_ context.Context, key string, event *events.AssessmentEvent) error {
	if event == nil {
		return errors.New("cannot publish a nil event")
	}

	if key == "" {
		key = event.EntityID()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	return eb.publisher.Publish(events.Topic, msg)
}

func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	messages, err := eb.subscriber.Subscribe(ctx, events.Topic)
	if err != nil {
		return err
	}

	eb.loops.Add(1)

	go func() {
		defer eb.loops.Done()

		for msg := range messages {
			if ctx.Err() != nil {
				msg.Nack()

				continue
			}

			eb.dispatch(ctx, msg)
		}
	}()

	return nil
}

// Wait blocks until the message loops of every subscription have exited, which happens
// after the Subscribe context is cancelled. Once it returns no more handlers are dispatched.
func (eb *WatermillEventBus) Wait() {
	eb.loops.Wait()
}

func (eb *WatermillEventBus) dispatch(ctx context.Context, msg *message.Message) {
	eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

	eb.mu.RLock()
	handler, exists := eb.subscriptions[eventType]
	eb.mu.RUnlock()

	if !exists {
		msg.Ack()

		return
	}

	event, err := decode(eventType, msg.Payload)
	if err != nil {
		// Redelivering a message that cannot be decoded would loop forever.
		eb.logger.ErrorContext(ctx, "Dropping undecodable event", "message_id", msg.UUID, "event_type", eventType, "error", err)
		msg.Ack()

		return
	}

	eb.dispatcher.Go(func() {
		err := handler(ctx, event)
		if err != nil {
			eb.logger.WarnContext(ctx, "Event handler failed, requesting redelivery", "message_id", msg.UUID, "error", err)
			msg.Nack()

			return
		}

		msg.Ack()
	})
}

func decode(eventType events.EventType, payload []byte) (*events.AssessmentEvent, error) {
	if !events.IsAssessmentEvent(eventType) {
		return nil, &UnknownEventTypeError{EventType: eventType}
	}

	var event events.AssessmentEvent

	err := json.Unmarshal(payload, &event)
	if err != nil {
		return nil, err
	}

	if event.Payload == nil {
		event.Payload = make(map[string]any)
	}

	return &event, nil
}

func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscriptions[eventType] = handler

	return nil
}

func (eb *WatermillEventBus) Close() error {
	err := eb.publisher.Close()
	if err != nil {
		return err
	}

	return eb.subscriber.Close()
}

type UnknownEventTypeError struct {
	EventType events.EventType
}

func (e *UnknownEventTypeError) Error() string {
	return "unknown event type " + string(e.EventType)
}

type inline struct{}

func (inline) Go(task func()) {
	task()
}
