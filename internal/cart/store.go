package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	carterrors "github.com/abgdnv/bathifarms/internal/errors"
	"github.com/abgdnv/bathifarms/internal/snapshot"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// View is a consistent read of a cart.
type View struct {
	Items        []LineItem `json:"items"`
	Count        int64      `json:"count"`
	Subtotal     int64      `json:"subtotal"`
	BadgeVisible bool       `json:"badgeVisible"`
}

// Store is the single owner of one session's cart. Every operation runs to
// completion under the store lock; the persisted snapshot is written before
// the in-memory state changes, so a failed write leaves both as they were.
type Store struct {
	mu        sync.Mutex
	sessionID string
	key       string
	slots     snapshot.Store
	notifier  Notifier
	opts      Options
	logger    *slog.Logger
	mutations metric.Int64Counter
	now       func() time.Time
	items     []LineItem
}

func (s *Store) SessionID() string {
	return s.sessionID
}

// Add merges item into the cart: an existing id gains item.Quantity units,
// a new id is appended. A merge past MaxQuantity or a line past MaxLines is
// rejected with ErrInvalidLineItem.
func (s *Store) Add(ctx context.Context, item LineItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	return s.mutate(ctx, true, func(items []LineItem) ([]LineItem, Reason, error) {
		if i := indexOf(items, item.ID); i >= 0 {
			if items[i].Quantity > MaxQuantity-item.Quantity {
				return nil, "", fmt.Errorf("%w: quantity of %q would exceed %d", carterrors.ErrInvalidLineItem, item.ID, MaxQuantity)
			}
			items[i].Quantity += item.Quantity
			return items, ReasonAdd, nil
		}
		if len(items) >= MaxLines {
			return nil, "", fmt.Errorf("%w: cart already holds %d lines", carterrors.ErrInvalidLineItem, MaxLines)
		}
		return append(items, item), ReasonAdd, nil
	})
}

// Remove deletes the item with the given id. Removing an absent id is a no-op.
func (s *Store) Remove(ctx context.Context, id string) error {
	return s.mutate(ctx, true, func(items []LineItem) ([]LineItem, Reason, error) {
		i := indexOf(items, id)
		if i < 0 {
			return items, "", nil
		}
		return slices.Delete(items, i, i+1), ReasonRemove, nil
	})
}

// SetQuantityDelta changes the quantity of id by delta and removes the item
// once its quantity drops to zero or below. An absent id is a no-op.
func (s *Store) SetQuantityDelta(ctx context.Context, id string, delta int64) error {
	return s.mutate(ctx, true, func(items []LineItem) ([]LineItem, Reason, error) {
		i := indexOf(items, id)
		if i < 0 || delta == 0 {
			return items, "", nil
		}
		if delta > MaxQuantity-items[i].Quantity {
			return nil, "", fmt.Errorf("%w: quantity of %q would exceed %d", carterrors.ErrInvalidLineItem, id, MaxQuantity)
		}
		if delta <= -items[i].Quantity {
			return slices.Delete(items, i, i+1), ReasonRemove, nil
		}
		items[i].Quantity += delta
		return items, ReasonQuantity, nil
	})
}

// Clear empties the cart and persists the empty snapshot.
func (s *Store) Clear(ctx context.Context) error {
	return s.mutate(ctx, false, func([]LineItem) ([]LineItem, Reason, error) {
		return []LineItem{}, ReasonClear, nil
	})
}

// Discard empties the cart and deletes its snapshot instead of storing [].
// Subscribers see a clear event.
func (s *Store) Discard(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.slots.Delete(ctx, s.key); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete cart snapshot", "key", s.key, "error", err)
		return storageError(err)
	}
	s.items = []LineItem{}
	s.announce(ctx, ReasonClear)
	return nil
}

func (s *Store) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.items)
}

func (s *Store) Count() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Count(s.items)
}

func (s *Store) BadgeVisible() bool {
	return s.Count() > 0
}

func (s *Store) Subtotal() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Subtotal(s.items)
}

func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

func (s *Store) view() View {
	count := Count(s.items)
	return View{
		Items:        clone(s.items),
		Count:        count,
		Subtotal:     Subtotal(s.items),
		BadgeVisible: count > 0,
	}
}

// mutate applies fn to a copy of the cart. An empty Reason means nothing changed.
func (s *Store) mutate(ctx context.Context, reload bool, fn func([]LineItem) ([]LineItem, Reason, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := s.items
	discarded := false
	if reload && s.opts.ReloadBeforeMutate {
		items, reset, err := s.load(ctx)
		if err != nil {
			return err
		}
		base, discarded = items, reset
		if !reset {
			s.items = items
		}
	}

	next, reason, err := fn(clone(base))
	if err != nil {
		return err
	}
	if reason == "" {
		if !discarded {
			return nil
		}
		reason = ReasonClear
	}
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.items = next
	s.announce(ctx, reason)
	return nil
}

func (s *Store) announce(ctx context.Context, reason Reason) {
	s.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", string(reason))))

	view := s.view()
	s.notifier.Publish(ctx, Event{
		SessionID:  s.sessionID,
		Reason:     reason,
		Items:      view.Items,
		Count:      view.Count,
		Subtotal:   view.Subtotal,
		OccurredAt: s.now(),
	})
}

// load reads the persisted snapshot. reset reports that a malformed snapshot
// was discarded under the reset policy.
func (s *Store) load(ctx context.Context) (items []LineItem, reset bool, err error) {
	payload, err := s.slots.Load(ctx, s.key)
	if errors.Is(err, carterrors.ErrSnapshotNotFound) {
		return []LineItem{}, false, nil
	}
	if err != nil {
		return nil, false, storageError(err)
	}

	items, err = Decode(payload)
	if err == nil {
		return items, false, nil
	}
	if s.opts.OnMalformed == PolicyFail {
		s.logger.ErrorContext(ctx, "cart snapshot is malformed", "key", s.key, "error", err)
		return nil, false, err
	}
	s.logger.WarnContext(ctx, "discarding malformed cart snapshot", "key", s.key, "error", err)
	return []LineItem{}, true, nil
}

func (s *Store) persist(ctx context.Context, items []LineItem) error {
	payload, err := Encode(items)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := s.slots.Save(ctx, s.key, payload); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist cart snapshot", "key", s.key, "error", err)
		return storageError(err)
	}
	return nil
}

func storageError(err error) error {
	if errors.Is(err, carterrors.ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", carterrors.ErrStorageUnavailable, err)
}
