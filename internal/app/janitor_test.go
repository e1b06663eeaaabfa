package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/abgdnv/bathifarms/internal/cart"
	"github.com/abgdnv/bathifarms/internal/catalog"
	"github.com/abgdnv/bathifarms/internal/checkout"
	"github.com/abgdnv/bathifarms/internal/payment"
	"github.com/abgdnv/bathifarms/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJanitor(t *testing.T, idle time.Duration) (*Janitor, *cart.Registry, *catalog.Service) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	products, err := catalog.New(nil)
	require.NoError(t, err)
	registry := cart.NewRegistry(snapshot.NewInMemoryStore(), nil, cart.Options{}, logger)
	carousels := catalog.NewService(products, registry)
	payments := checkout.NewService(registry, payment.NewSandbox(""), nil, testConfig().Checkout, logger)
	return NewJanitor(time.Millisecond, idle, registry, carousels, payments, logger), registry, carousels
}

func TestJanitor_SweepEvictsIdleSessions(t *testing.T) {
	// given
	ctx := context.Background()
	janitor, registry, carousels := newTestJanitor(t, time.Nanosecond)
	store, err := registry.Open(ctx, session)
	require.NoError(t, err)
	require.NoError(t, store.Add(ctx, cart.LineItem{ID: "eggs", Name: "Fresh Eggs", Price: 650, Quantity: 1}))
	carousels.Next(session)
	time.Sleep(time.Millisecond)

	// when
	janitor.Sweep(ctx)

	// then
	reopened, err := registry.Open(ctx, session)
	require.NoError(t, err)
	assert.NotSame(t, store, reopened)
	assert.Equal(t, int64(1), reopened.Count(), "the persisted cart survives eviction")
	assert.Equal(t, 0, carousels.State(session).Index)
}

func TestJanitor_SweepKeepsActiveSessions(t *testing.T) {
	ctx := context.Background()
	janitor, registry, carousels := newTestJanitor(t, time.Hour)
	store, err := registry.Open(ctx, session)
	require.NoError(t, err)
	carousels.Next(session)

	janitor.Sweep(ctx)

	reopened, err := registry.Open(ctx, session)
	require.NoError(t, err)
	assert.Same(t, store, reopened)
	assert.Equal(t, 1, carousels.State(session).Index)
}

func TestJanitor_RunStopsWithContext(t *testing.T) {
	janitor, _, _ := newTestJanitor(t, time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := janitor.Run(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
