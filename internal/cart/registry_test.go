package cart

import (
	"context"
	"testing"
	"time"

	carterrors "github.com/abgdnv/bathifarms/internal/errors"
	"github.com/abgdnv/bathifarms/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_Key(t *testing.T) {
	assert.Equal(t, "bathiFarmsCart."+session, Options{}.Key(session))
	assert.Equal(t, "carts."+session, Options{KeyPrefix: "carts"}.Key(session))
}

func TestRegistry_OpenReturnsSameStore(t *testing.T) {
	registry, _ := newTestRegistry(t, snapshot.NewInMemoryStore(), Options{})

	first := openStore(t, registry)
	second := openStore(t, registry)

	assert.Same(t, first, second)
	assert.Equal(t, 1, registry.size())
}

func TestRegistry_OpenLoadsPersistedCart(t *testing.T) {
	// given
	ctx := context.Background()
	slots := snapshot.NewInMemoryStore()
	payload, err := Encode([]LineItem{sheep, eggs})
	require.NoError(t, err)
	require.NoError(t, slots.Save(ctx, Options{}.Key(session), payload))
	registry, _ := newTestRegistry(t, slots, Options{})

	// when
	store := openStore(t, registry)

	// then
	assert.Equal(t, []LineItem{sheep, eggs}, store.Items())
	assert.Equal(t, int64(2), store.Count())
}

func TestRegistry_MissingSnapshotIsEmptyCart(t *testing.T) {
	registry, _ := newTestRegistry(t, snapshot.NewInMemoryStore(), Options{OnMalformed: PolicyFail})

	store := openStore(t, registry)

	assert.Empty(t, store.Items())
	assert.False(t, store.BadgeVisible())
}

func TestRegistry_MalformedSnapshot(t *testing.T) {
	t.Run("reset policy persists an empty cart", func(t *testing.T) {
		// given
		ctx := context.Background()
		slots := snapshot.NewInMemoryStore()
		require.NoError(t, slots.Save(ctx, Options{}.Key(session), []byte(`{garbage`)))
		registry, _ := newTestRegistry(t, slots, Options{OnMalformed: PolicyReset})

		// when
		store := openStore(t, registry)

		// then
		assert.Empty(t, store.Items())
		payload, err := slots.Load(ctx, Options{}.Key(session))
		require.NoError(t, err)
		assert.Equal(t, "[]", string(payload))
	})

	t.Run("fail policy surfaces the error until reset", func(t *testing.T) {
		// given
		ctx := context.Background()
		slots := snapshot.NewInMemoryStore()
		require.NoError(t, slots.Save(ctx, Options{}.Key(session), []byte(`[{"id":"eggs","quantity":-2}]`)))
		registry, _ := newTestRegistry(t, slots, Options{OnMalformed: PolicyFail})

		// when
		_, err := registry.Open(ctx, session)

		// then
		require.ErrorIs(t, err, carterrors.ErrMalformedSnapshot)
		assert.Zero(t, registry.size())

		// when
		store, err := registry.Reset(ctx, session)

		// then
		require.NoError(t, err)
		assert.Empty(t, store.Items())
		reopened := openStore(t, registry)
		assert.Same(t, store, reopened)
	})

	t.Run("fail policy on reload rejects the mutation", func(t *testing.T) {
		// given
		ctx := context.Background()
		slots := snapshot.NewInMemoryStore()
		opts := Options{OnMalformed: PolicyFail, ReloadBeforeMutate: true}
		registry, notifier := newTestRegistry(t, slots, opts)
		store := openStore(t, registry)
		require.NoError(t, store.Add(ctx, eggs))
		require.NoError(t, slots.Save(ctx, opts.Key(session), []byte(`nope`)))

		// when
		err := store.Add(ctx, milk)

		// then
		require.ErrorIs(t, err, carterrors.ErrMalformedSnapshot)
		assert.Equal(t, []LineItem{eggs}, store.Items())
		assert.Len(t, notifier.all(), 1)
	})

	t.Run("reset policy on reload starts from an empty cart", func(t *testing.T) {
		// given
		ctx := context.Background()
		slots := snapshot.NewInMemoryStore()
		opts := Options{OnMalformed: PolicyReset, ReloadBeforeMutate: true}
		registry, _ := newTestRegistry(t, slots, opts)
		store := openStore(t, registry)
		require.NoError(t, store.Add(ctx, eggs))
		require.NoError(t, slots.Save(ctx, opts.Key(session), []byte(`nope`)))

		// when
		err := store.Remove(ctx, "eggs")

		// then
		require.NoError(t, err)
		assert.Empty(t, store.Items())
		assert.Empty(t, persisted(t, slots, opts))
	})
}

func TestRegistry_StorageUnavailableOnOpen(t *testing.T) {
	registry, _ := newTestRegistry(t, brokenSlots{}, Options{})

	_, err := registry.Open(context.Background(), session)

	require.ErrorIs(t, err, carterrors.ErrStorageUnavailable)
	assert.Zero(t, registry.size())
}

func TestRegistry_EvictIdleStores(t *testing.T) {
	// given
	ctx := context.Background()
	slots := snapshot.NewInMemoryStore()
	registry, _ := newTestRegistry(t, slots, Options{})
	start := time.Now()
	registry.now = func() time.Time { return start }
	idle := openStore(t, registry)
	require.NoError(t, idle.Add(ctx, eggs))
	const other = "a0b1c2d3-e4f5-4a6b-8c7d-9e0f1a2b3c4d"

	// when
	registry.now = func() time.Time { return start.Add(20 * time.Minute) }
	_, err := registry.Open(ctx, other)
	require.NoError(t, err)
	registry.now = func() time.Time { return start.Add(31 * time.Minute) }
	evicted := registry.Evict(30 * time.Minute)

	// then
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, registry.size())
	reopened := openStore(t, registry)
	assert.NotSame(t, idle, reopened)
	assert.Equal(t, []LineItem{eggs}, reopened.Items(), "an evicted cart is reloaded from its snapshot")
}

func TestRegistry_OpenRefreshesIdleClock(t *testing.T) {
	registry, _ := newTestRegistry(t, snapshot.NewInMemoryStore(), Options{})
	start := time.Now()
	registry.now = func() time.Time { return start }
	first := openStore(t, registry)

	registry.now = func() time.Time { return start.Add(25 * time.Minute) }
	openStore(t, registry)
	registry.now = func() time.Time { return start.Add(40 * time.Minute) }

	assert.Zero(t, registry.Evict(30*time.Minute))
	assert.Same(t, first, openStore(t, registry))
}

func TestRegistry_Discard(t *testing.T) {
	// given
	ctx := context.Background()
	slots := snapshot.NewInMemoryStore()
	registry, notifier := newTestRegistry(t, slots, Options{OnMalformed: PolicyFail})
	require.NoError(t, slots.Save(ctx, Options{}.Key(session), []byte(`{garbage`)))

	// when
	err := registry.Discard(ctx, session)

	// then
	require.NoError(t, err)
	_, err = slots.Load(ctx, Options{}.Key(session))
	require.ErrorIs(t, err, carterrors.ErrSnapshotNotFound)
	assert.Empty(t, openStore(t, registry).Items())
	require.Len(t, notifier.all(), 1)
	assert.Equal(t, ReasonClear, notifier.all()[0].Reason)
}

// gatedSlots blocks loads of one key until release is closed.
type gatedSlots struct {
	*snapshot.InMemoryStore
	key     string
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSlots) Load(ctx context.Context, key string) ([]byte, error) {
	if key == g.key {
		close(g.entered)
		<-g.release
	}
	return g.InMemoryStore.Load(ctx, key)
}

func TestRegistry_SlowLoadDoesNotBlockOtherSessions(t *testing.T) {
	// given
	ctx := context.Background()
	slots := &gatedSlots{
		InMemoryStore: snapshot.NewInMemoryStore(),
		key:           Options{}.Key(session),
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	registry, _ := newTestRegistry(t, slots, Options{})
	slow := make(chan error, 1)
	go func() {
		_, err := registry.Open(ctx, session)
		slow <- err
	}()
	<-slots.entered

	// when
	_, err := registry.Open(ctx, "a0b1c2d3-e4f5-4a6b-8c7d-9e0f1a2b3c4d")

	// then
	require.NoError(t, err)
	close(slots.release)
	require.NoError(t, <-slow)
	assert.Equal(t, 2, registry.size())
}

type brokenSlots struct{}

func (brokenSlots) Load(context.Context, string) ([]byte, error) {
	return nil, assert.AnError
}

func (brokenSlots) Save(context.Context, string, []byte) error {
	return assert.AnError
}

func (brokenSlots) Delete(context.Context, string) error {
	return assert.AnError
}
