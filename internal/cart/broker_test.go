package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/abgdnv/bathifarms/pkg/messaging"
	"github.com/abgdnv/bathifarms/pkg/messaging/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingPublisher struct {
	mu     sync.Mutex
	events []messaging.Event
	err    error
}

func (c *capturingPublisher) Publish(_ context.Context, e messaging.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return c.err
}

func (c *capturingPublisher) published() []messaging.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]messaging.Event(nil), c.events...)
}

func TestBroker_DeliversToSessionSubscribers(t *testing.T) {
	// given
	broker := NewBroker(4, nil, discardLogger())
	mine, cancelMine := broker.Subscribe(session)
	defer cancelMine()
	other, cancelOther := broker.Subscribe("other-session")
	defer cancelOther()

	// when
	broker.Publish(context.Background(), Event{SessionID: session, Reason: ReasonAdd, Count: 1})

	// then
	select {
	case e := <-mine:
		assert.Equal(t, ReasonAdd, e.Reason)
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
	select {
	case e := <-other:
		t.Fatalf("unexpected event for another session: %+v", e)
	default:
	}
}

func TestBroker_SlowSubscriberDoesNotBlock(t *testing.T) {
	// given
	broker := NewBroker(1, nil, discardLogger())
	ch, cancel := broker.Subscribe(session)
	defer cancel()

	// when
	done := make(chan struct{})
	go func() {
		for i := range 10 {
			broker.Publish(context.Background(), Event{SessionID: session, Count: int64(i)})
		}
		close(done)
	}()

	// then
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	e := <-ch
	assert.Equal(t, int64(0), e.Count)
}

func TestBroker_CancelClosesChannel(t *testing.T) {
	broker := NewBroker(1, nil, discardLogger())
	ch, cancel := broker.Subscribe(session)
	require.Equal(t, 1, broker.subscribers(session))

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, broker.subscribers(session))
	broker.Publish(context.Background(), Event{SessionID: session})
}

func TestBroker_ForwardsToExternalPublisher(t *testing.T) {
	// given
	external := &capturingPublisher{err: assert.AnError}
	broker := NewBroker(1, external, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- broker.Run(ctx) }()

	// when
	broker.Publish(ctx, Event{
		SessionID: session,
		Reason:    ReasonQuantity,
		Items:     []LineItem{eggs},
		Count:     1,
		Subtotal:  650,
	})

	// then
	require.Eventually(t, func() bool { return len(external.published()) == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	event, ok := external.published()[0].(events.CartChangedEvent)
	require.True(t, ok)
	assert.Equal(t, messaging.CartsChangedSubject, event.Subject())
	assert.Equal(t, session, event.Key())
	assert.Equal(t, "quantity", event.Reason)
	assert.Equal(t, []events.Item{{ID: "eggs", Name: "Fresh Eggs", Price: 650, Quantity: 1, Image: "/img/eggs.jpg"}}, event.Items)
}

func TestBroker_RunFlushesOutboxOnShutdown(t *testing.T) {
	// given
	external := &capturingPublisher{}
	broker := NewBroker(1, external, discardLogger())
	for range 3 {
		broker.Publish(context.Background(), Event{SessionID: session})
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// when
	err := broker.Run(ctx)

	// then
	require.NoError(t, err)
	assert.Len(t, external.published(), 3)
}
