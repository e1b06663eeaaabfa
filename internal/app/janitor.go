package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/abgdnv/bathifarms/internal/cart"
	"github.com/abgdnv/bathifarms/internal/catalog"
	"github.com/abgdnv/bathifarms/internal/checkout"
)

const (
	defaultIdleTimeout   = 30 * time.Minute
	defaultSweepInterval = time.Minute
)

// Janitor drops in-memory session state nobody used for a while: cart stores,
// carousels and payments past their retention. Persisted carts are untouched.
type Janitor struct {
	interval  time.Duration
	idle      time.Duration
	carts     *cart.Registry
	carousels *catalog.Service
	payments  *checkout.Service
	logger    *slog.Logger
}

func NewJanitor(interval, idle time.Duration, carts *cart.Registry, carousels *catalog.Service, payments *checkout.Service, logger *slog.Logger) *Janitor {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if idle <= 0 {
		idle = defaultIdleTimeout
	}
	return &Janitor{
		interval:  interval,
		idle:      idle,
		carts:     carts,
		carousels: carousels,
		payments:  payments,
		logger:    logger.With("component", "janitor"),
	}
}

// Run sweeps every interval until ctx is done.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

func (j *Janitor) Sweep(ctx context.Context) {
	carts := j.carts.Evict(j.idle)
	carousels := j.carousels.Evict(j.idle)
	payments := j.payments.Evict()
	if carts+carousels+payments > 0 {
		j.logger.DebugContext(ctx, "evicted idle session state",
			"carts", carts, "carousels", carousels, "payments", payments)
	}
}
