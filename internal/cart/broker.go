package cart

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/abgdnv/bathifarms/pkg/messaging"
	"github.com/abgdnv/bathifarms/pkg/messaging/events"
)

// Reason names the mutation that produced an Event.
type Reason string

const (
	ReasonAdd      Reason = "add"
	ReasonRemove   Reason = "remove"
	ReasonQuantity Reason = "quantity"
	ReasonClear    Reason = "clear"
)

const (
	outboxSize     = 256
	forwardTimeout = 5 * time.Second
)

// Event carries the full cart contents after a mutation.
type Event struct {
	SessionID  string     `json:"sessionId"`
	Reason     Reason     `json:"reason"`
	Items      []LineItem `json:"items"`
	Count      int64      `json:"count"`
	Subtotal   int64      `json:"subtotal"`
	OccurredAt time.Time  `json:"occurredAt"`
}

// Notifier receives every committed cart change.
type Notifier interface {
	Publish(ctx context.Context, e Event)
}

var _ Notifier = (*Broker)(nil)

// Broker fans cart changes out to in-process subscribers of a session and
// forwards them to an external messaging.Publisher. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type Broker struct {
	mu       sync.RWMutex
	subs     map[string]map[chan Event]struct{}
	buffer   int
	outbox   chan Event
	external messaging.Publisher
	logger   *slog.Logger
}

// NewBroker creates a broker. A nil external publisher disables forwarding.
func NewBroker(buffer int, external messaging.Publisher, logger *slog.Logger) *Broker {
	if buffer <= 0 {
		buffer = 1
	}
	b := &Broker{
		subs:     make(map[string]map[chan Event]struct{}),
		buffer:   buffer,
		external: external,
		logger:   logger.With("component", "cart-broker"),
	}
	if external != nil {
		b.outbox = make(chan Event, outboxSize)
	}
	return b
}

// Subscribe registers a listener for one session. The returned cancel func
// unregisters it and closes the channel; it is safe to call more than once.
func (b *Broker) Subscribe(sessionID string) (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan Event]struct{})
	}
	b.subs[sessionID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[sessionID], ch)
			if len(b.subs[sessionID]) == 0 {
				delete(b.subs, sessionID)
			}
			close(ch)
		})
	}
	return ch, cancel
}

func (b *Broker) subscribers(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[sessionID])
}

func (b *Broker) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	for ch := range b.subs[e.SessionID] {
		select {
		case ch <- e:
		default:
			b.logger.WarnContext(ctx, "subscriber is too slow, dropping cart event", "reason", e.Reason)
		}
	}
	b.mu.RUnlock()

	if b.outbox == nil {
		return
	}
	select {
	case b.outbox <- e:
	default:
		b.logger.WarnContext(ctx, "outbox is full, cart event not forwarded", "reason", e.Reason)
	}
}

// Run forwards queued events to the external publisher until ctx is done,
// then flushes what is left in the outbox.
func (b *Broker) Run(ctx context.Context) error {
	if b.outbox == nil {
		<-ctx.Done()
		return nil
	}
	for {
		select {
		case e := <-b.outbox:
			b.forward(ctx, e)
		case <-ctx.Done():
			for {
				select {
				case e := <-b.outbox:
					b.forward(ctx, e)
				default:
					return nil
				}
			}
		}
	}
}

func (b *Broker) forward(ctx context.Context, e Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), forwardTimeout)
	defer cancel()
	event := events.CartChangedEvent{
		SessionID:  e.SessionID,
		Reason:     string(e.Reason),
		Items:      ToEventItems(e.Items),
		Count:      e.Count,
		Subtotal:   e.Subtotal,
		OccurredAt: e.OccurredAt,
	}
	if err := b.external.Publish(ctx, event); err != nil {
		b.logger.ErrorContext(ctx, "Failed to publish CartChangedEvent", "error", err)
	}
}
