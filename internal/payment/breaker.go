package payment

import (
	"context"
	"errors"
	"fmt"

	carterrors "github.com/abgdnv/bathifarms/internal/errors"
	"github.com/abgdnv/bathifarms/pkg/config"
	"github.com/sony/gobreaker/v2"
)

var _ Gateway = (*Breaker)(nil)

// Breaker guards order creation of a Gateway with a circuit breaker. Only
// gateway outages count as failures; a rejected payment is a normal outcome.
// VerifyPayment is a local signature check and bypasses the breaker.
type Breaker struct {
	next Gateway
	cb   *gobreaker.CircuitBreaker[*Order]
}

func NewBreaker(next Gateway, cfg config.CircuitBreakerConfig) *Breaker {
	st := gobreaker.Settings{
		Name:        "payment-gateway-cb",
		MaxRequests: 3,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			total := counts.TotalSuccesses + counts.TotalFailures
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures ||
				(total > cfg.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(total)*100 > float64(cfg.ErrorRatePercent))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, carterrors.ErrPaymentRejected)
		},
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker[*Order](st)}
}

func (b *Breaker) KeyID() string {
	return b.next.KeyID()
}

func (b *Breaker) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	order, err := b.cb.Execute(func() (*Order, error) {
		return b.next.CreateOrder(ctx, req)
	})
	return order, b.mapErr(err)
}

func (b *Breaker) VerifyPayment(ctx context.Context, v Verification) error {
	return b.next.VerifyPayment(ctx, v)
}

// State returns the current breaker state, for readiness reporting.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func (b *Breaker) mapErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", carterrors.ErrPaymentGatewayUnavailable, err)
	}
	return err
}
