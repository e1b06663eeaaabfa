package cart

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/abgdnv/bathifarms/internal/snapshot"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// MalformedPolicy decides what happens when a stored snapshot cannot be decoded.
type MalformedPolicy string

const (
	// PolicyReset logs a warning and replaces the snapshot with an empty cart.
	PolicyReset MalformedPolicy = "reset"
	// PolicyFail surfaces ErrMalformedSnapshot until the cart is reset explicitly.
	PolicyFail MalformedPolicy = "fail"
)

const DefaultKeyPrefix = "bathiFarmsCart"

type Options struct {
	KeyPrefix          string
	ReloadBeforeMutate bool
	OnMalformed        MalformedPolicy
}

// Key returns the snapshot storage key of a session.
func (o Options) Key(sessionID string) string {
	prefix := o.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return prefix + "." + sessionID
}

// Registry owns every session store of the process. Consumers that ask for
// the same session always get the same *Store until it is evicted as idle.
type Registry struct {
	mu        sync.Mutex
	stores    map[string]*entry
	slots     snapshot.Store
	notifier  Notifier
	opts      Options
	logger    *slog.Logger
	mutations metric.Int64Counter
	now       func() time.Time
}

type entry struct {
	store    *Store
	lastUsed time.Time
}

func NewRegistry(slots snapshot.Store, notifier Notifier, opts Options, logger *slog.Logger) *Registry {
	meter := otel.Meter("storefront")
	mutations, err := meter.Int64Counter("cart_mutations", metric.WithDescription("Total number of committed cart mutations"))
	if err != nil {
		panic(fmt.Sprintf("failed to create cart_mutations counter: %v", err))
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if opts.OnMalformed == "" {
		opts.OnMalformed = PolicyReset
	}
	return &Registry{
		stores:    make(map[string]*entry),
		slots:     slots,
		notifier:  notifier,
		opts:      opts,
		logger:    logger.With("component", "cart"),
		mutations: mutations,
		now:       time.Now,
	}
}

// Open returns the store of a session, loading its snapshot on first use.
// A missing snapshot opens an empty cart. Under PolicyFail a malformed
// snapshot returns ErrMalformedSnapshot and the store is not cached.
// The snapshot is read without holding the registry lock.
func (r *Registry) Open(ctx context.Context, sessionID string) (*Store, error) {
	if s, ok := r.cached(sessionID); ok {
		return s, nil
	}

	s := r.newStore(sessionID)
	items, reset, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if reset {
		if err := s.persist(ctx, items); err != nil {
			return nil, err
		}
	}
	s.items = items

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.stores[sessionID]; ok {
		e.lastUsed = r.now()
		return e.store, nil
	}
	r.stores[sessionID] = &entry{store: s, lastUsed: r.now()}
	return s, nil
}

// Reset empties the cart of a session without reading the stored snapshot,
// which makes it the way out of a malformed snapshot under PolicyFail.
func (r *Registry) Reset(ctx context.Context, sessionID string) (*Store, error) {
	s := r.acquire(sessionID)
	if err := s.Clear(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Discard empties the cart of a session and deletes its snapshot. Like Reset
// it never reads the stored snapshot.
func (r *Registry) Discard(ctx context.Context, sessionID string) error {
	return r.acquire(sessionID).Discard(ctx)
}

// Evict drops stores that have not been opened for idle. Their snapshots stay
// in storage and the next Open of an evicted session loads them again.
func (r *Registry) Evict(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-idle)
	evicted := 0
	for id, e := range r.stores {
		if e.lastUsed.Before(cutoff) {
			delete(r.stores, id)
			evicted++
		}
	}
	return evicted
}

func (r *Registry) cached(sessionID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.stores[sessionID]
	if !ok {
		return nil, false
	}
	e.lastUsed = r.now()
	return e.store, true
}

// acquire returns the cached store of a session or caches an empty one.
func (r *Registry) acquire(sessionID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.stores[sessionID]; ok {
		e.lastUsed = r.now()
		return e.store
	}
	s := r.newStore(sessionID)
	r.stores[sessionID] = &entry{store: s, lastUsed: r.now()}
	return s
}

func (r *Registry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

func (r *Registry) newStore(sessionID string) *Store {
	return &Store{
		sessionID: sessionID,
		key:       r.opts.Key(sessionID),
		slots:     r.slots,
		notifier:  r.notifier,
		opts:      r.opts,
		logger:    r.logger,
		mutations: r.mutations,
		now:       time.Now,
		items:     []LineItem{},
	}
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, Event) {}
