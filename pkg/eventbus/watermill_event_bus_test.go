package eventbus_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/hireflow/pkg/channels/gochannel"
	"github.com/dukex/hireflow/pkg/eventbus"
	"github.com/dukex/hireflow/pkg/events"
	"github.com/dukex/hireflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBus(t *testing.T) *eventbus.WatermillEventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	t.Cleanup(func() {
		_ = bus.Close()
	})

	return bus
}

func TestWatermillEventBus_DeliversAssessmentEvents(t *testing.T) {
	bus := newBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *events.AssessmentEvent, 1)

	require.NoError(t, bus.Handle(events.AssessmentCompletedEvent, func(_ context.Context, event *events.AssessmentEvent) error {
		received <- event

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	sent := events.NewAssessmentEvent(models.TriggerAssessmentCompleted, map[string]any{
		"entityId": "cand-1",
		"score":    8.5,
	})
	require.NoError(t, bus.Publish(ctx, sent.EntityID(), sent))

	select {
	case got := <-received:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, models.TriggerAssessmentCompleted, got.Trigger)
		assert.Equal(t, "cand-1", got.EntityID())
		assert.InDelta(t, 8.5, got.Payload["score"], 0.0001)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestWatermillEventBus_IgnoresUnhandledTypes(t *testing.T) {
	bus := newBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32

	require.NoError(t, bus.Handle(events.CandidateHiredEvent, func(context.Context, *events.AssessmentEvent) error {
		calls.Add(1)

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	// The test channel blocks until the message is acked.
	other := events.NewAssessmentEvent(models.TriggerAssessmentStarted, nil)
	require.NoError(t, bus.Publish(ctx, "cand-1", other))

	assert.Equal(t, int32(0), calls.Load())
}

func TestWatermillEventBus_RedeliversOnHandlerError(t *testing.T) {
	bus := newBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32

	done := make(chan struct{})

	require.NoError(t, bus.Handle(events.AssessmentExpiredEvent, func(context.Context, *events.AssessmentEvent) error {
		if calls.Add(1) == 1 {
			return errors.New("rule store unavailable")
		}

		close(done)

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	require.NoError(t, bus.Publish(ctx, "cand-1", events.NewAssessmentEvent(models.TriggerAssessmentExpired, nil)))

	select {
	case <-done:
		assert.Equal(t, int32(2), calls.Load())
	case <-time.After(5 * time.Second):
		t.Fatal("event was not redelivered")
	}
}

func TestWatermillEventBus_AcksUndecodablePayload(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32

	require.NoError(t, bus.Handle(events.AssessmentCompletedEvent, func(context.Context, *events.AssessmentEvent) error {
		calls.Add(1)

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	msg := message.NewMessage(watermill.NewUUID(), []byte("not json"))
	msg.Metadata.Set(events.EventTypeMetadataKey, string(events.AssessmentCompletedEvent))

	// Returns once the bus acks, which it must do for undecodable messages.
	require.NoError(t, pub.Publish(events.Topic, msg))
	assert.Equal(t, int32(0), calls.Load())
}

type countingDispatcher struct {
	tasks atomic.Int32
}

func (d *countingDispatcher) Go(task func()) {
	d.tasks.Add(1)
	task()
}

func TestWatermillEventBus_UsesDispatcher(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	dispatcher := &countingDispatcher{}
	bus := eventbus.NewWatermillEventBus(pub, sub, eventbus.WithDispatcher(dispatcher))
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Handle(events.CandidateRejectedEvent, func(context.Context, *events.AssessmentEvent) error { return nil }))
	require.NoError(t, bus.Subscribe(ctx))
	require.NoError(t, bus.Publish(ctx, "cand-1", events.NewAssessmentEvent(models.TriggerCandidateRejected, nil)))

	assert.Equal(t, int32(1), dispatcher.tasks.Load())
}

func TestWatermillEventBus_PublishKeys(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := sub.Subscribe(ctx, events.Topic)
	require.NoError(t, err)

	event := events.NewAssessmentEvent(models.TriggerCandidateHired, map[string]any{"entityId": "cand-7"})
	published := make(chan error, 1)

	go func() {
		published <- bus.Publish(ctx, "", event)
	}()

	select {
	case msg := <-messages:
		assert.Equal(t, "cand-7", msg.Metadata.Get(events.EventMetadataKey))
		assert.Equal(t, string(events.CandidateHiredEvent), msg.Metadata.Get(events.EventTypeMetadataKey))
		msg.Ack()
	case <-time.After(5 * time.Second):
		t.Fatal("event was not published")
	}

	require.NoError(t, <-published)
	require.Error(t, bus.Publish(ctx, "cand-7", nil))
}

type gatedDispatcher struct {
	entered chan struct{}
	gate    chan struct{}
	tasks   atomic.Int32
}

func (d *gatedDispatcher) Go(task func()) {
	d.tasks.Add(1)
	d.entered <- struct{}{}
	<-d.gate
	task()
}

func TestWatermillEventBus_WaitCoversBlockedDispatch(t *testing.T) {
	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	dispatcher := &gatedDispatcher{entered: make(chan struct{}, 1), gate: make(chan struct{})}
	bus := eventbus.NewWatermillEventBus(pub, sub, eventbus.WithDispatcher(dispatcher))
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, bus.Handle(events.AssessmentStartedEvent, func(context.Context, *events.AssessmentEvent) error {
		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))
	require.NoError(t, bus.Publish(ctx, "cand-1", events.NewAssessmentEvent(models.TriggerAssessmentStarted, nil)))

	select {
	case <-dispatcher.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("event was not dispatched")
	}

	cancel()

	waited := make(chan struct{})

	go func() {
		bus.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		t.Fatal("Wait returned while the message loop was blocked in the dispatcher")
	case <-time.After(100 * time.Millisecond):
	}

	close(dispatcher.gate)

	select {
	case <-waited:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after the message loop exited")
	}

	assert.Equal(t, int32(1), dispatcher.tasks.Load())
}

// One subscription hands events to the dispatcher one at a time: the next message is
// delivered only after the previous one was acked.
func TestWatermillEventBus_SubscriptionIsSequential(t *testing.T) {
	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub, eventbus.WithDispatcher(&parallelDispatcher{}))
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var running, peak, handled atomic.Int32

	require.NoError(t, bus.Handle(events.AssessmentCompletedEvent, func(context.Context, *events.AssessmentEvent) error {
		current := running.Add(1)
		for {
			seen := peak.Load()
			if current <= seen || peak.CompareAndSwap(seen, current) {
				break
			}
		}

		time.Sleep(20 * time.Millisecond)
		running.Add(-1)
		handled.Add(1)

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	for range 4 {
		require.NoError(t, bus.Publish(ctx, "", events.NewAssessmentEvent(models.TriggerAssessmentCompleted, nil)))
	}

	assert.Eventually(t, func() bool { return handled.Load() == 4 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), peak.Load())
}

type parallelDispatcher struct{}

func (parallelDispatcher) Go(task func()) {
	go task()
}
