package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/abgdnv/bathifarms/internal/cart"
	"github.com/abgdnv/bathifarms/internal/config"
	carterrors "github.com/abgdnv/bathifarms/internal/errors"
	"github.com/abgdnv/bathifarms/internal/payment"
	"github.com/abgdnv/bathifarms/pkg/messaging"
	"github.com/abgdnv/bathifarms/pkg/messaging/events"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
)

const (
	themeColor = "#1a6f3c"

	defaultPaymentRetention = 24 * time.Hour
	refAttempts             = 10
)

// CheckoutService drives the checkout of a session cart.
type CheckoutService interface {
	// Summary returns the order lines and totals.
	// Returns ErrEmptyCartAtCheckout if the cart is empty.
	Summary(ctx context.Context, sessionID string) (*Summary, error)

	// StartPayment opens a gateway order for the cart total.
	// Returns ErrEmptyCartAtCheckout, ErrPaymentInProgress while another payment of the session
	// is open, or ErrPaymentGatewayUnavailable.
	StartPayment(ctx context.Context, sessionID string, customer CustomerDto) (*PaymentSession, error)

	// Confirm verifies the widget response, clears the cart and announces the order.
	// A payment stays confirmable after the pending TTL and after a newer payment
	// was started, until it is confirmed, dismissed or outlives the retention.
	// Returns ErrPaymentNotFound for an unknown reference and ErrPaymentRejected for a bad signature.
	Confirm(ctx context.Context, sessionID, orderRef string, dto ConfirmDto) (*Confirmation, error)

	// Dismiss abandons an open payment. The cart is left untouched.
	// Returns ErrPaymentNotFound for an unknown reference.
	Dismiss(ctx context.Context, sessionID, orderRef string) error
}

type paymentKey struct {
	sessionID string
	ref       string
}

type pendingPayment struct {
	key            paymentKey
	ref            string
	gatewayOrderID string
	customer       CustomerDto
	items          []cart.LineItem
	totals         Totals
	startedAt      time.Time
	confirming     bool
}

var _ CheckoutService = (*Service)(nil)

type Service struct {
	carts     *cart.Registry
	gateway   payment.Gateway
	publisher messaging.Publisher
	cfg       config.CheckoutConfig
	logger    *slog.Logger

	mu sync.Mutex
	// payments holds every unsettled payment until the retention runs out.
	payments map[paymentKey]*pendingPayment
	// latest is the newest payment of each session. It blocks StartPayment
	// for the pending TTL only.
	latest map[string]*pendingPayment

	newRef func() string
	now    func() time.Time

	paymentsStarted metric.Int64Counter
	ordersConfirmed metric.Int64Counter
}

func NewService(carts *cart.Registry, gateway payment.Gateway, publisher messaging.Publisher, cfg config.CheckoutConfig, logger *slog.Logger) *Service {
	meter := otel.Meter("storefront")
	paymentsStarted, err := meter.Int64Counter("payments_started", metric.WithDescription("Total number of opened gateway payments"))
	if err != nil {
		panic(fmt.Sprintf("failed to create payments_started counter: %v", err))
	}
	ordersConfirmed, err := meter.Int64Counter("orders_confirmed", metric.WithDescription("Total number of confirmed orders"))
	if err != nil {
		panic(fmt.Sprintf("failed to create orders_confirmed counter: %v", err))
	}
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	if cfg.PaymentRetention <= 0 {
		cfg.PaymentRetention = defaultPaymentRetention
	}
	return &Service{
		carts:           carts,
		gateway:         gateway,
		publisher:       publisher,
		cfg:             cfg,
		logger:          logger.With("component", "checkout"),
		payments:        make(map[paymentKey]*pendingPayment),
		latest:          make(map[string]*pendingPayment),
		newRef:          func() string { return NewOrderRef(cfg.OrderPrefix) },
		now:             time.Now,
		paymentsStarted: paymentsStarted,
		ordersConfirmed: ordersConfirmed,
	}
}

func (s *Service) rules() Rules {
	return Rules{Shipping: s.cfg.Shipping, TaxPercent: s.cfg.TaxPercent}
}

func (s *Service) Summary(ctx context.Context, sessionID string) (*Summary, error) {
	items, err := s.cartItems(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	inProgress := s.blocking(sessionID) != nil
	s.mu.Unlock()
	return &Summary{Items: items, Totals: Calculate(items, s.rules()), PaymentInProgress: inProgress}, nil
}

func (s *Service) StartPayment(ctx context.Context, sessionID string, customer CustomerDto) (*PaymentSession, error) {
	items, err := s.cartItems(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	totals := Calculate(items, s.rules())

	s.mu.Lock()
	if s.blocking(sessionID) != nil {
		s.mu.Unlock()
		return nil, carterrors.ErrPaymentInProgress
	}
	key, err := s.allocateKey(sessionID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	p := &pendingPayment{
		key:       key,
		ref:       key.ref,
		customer:  customer,
		items:     items,
		totals:    totals,
		startedAt: s.now(),
	}
	s.payments[key] = p
	s.latest[sessionID] = p
	s.mu.Unlock()

	notes := map[string]string{
		"address":   customer.AddressLine(),
		"order_ref": p.ref,
	}
	order, err := s.gateway.CreateOrder(ctx, payment.OrderRequest{
		Amount:   totals.AmountMinor(),
		Currency: s.cfg.Currency,
		Receipt:  p.ref,
		Notes:    notes,
	})
	if err != nil {
		s.release(p)
		if !errors.Is(err, carterrors.ErrPaymentGatewayUnavailable) {
			err = fmt.Errorf("%w: %w", carterrors.ErrPaymentGatewayUnavailable, err)
		}
		return nil, err
	}

	s.mu.Lock()
	p.gatewayOrderID = order.ID
	s.mu.Unlock()
	s.paymentsStarted.Add(ctx, 1)
	s.logger.InfoContext(ctx, "payment started", "order_ref", p.ref, "gateway_order_id", order.ID, "amount", order.Amount)

	return &PaymentSession{
		OrderRef: p.ref,
		Totals:   totals,
		Widget: WidgetOptions{
			Key:         s.gateway.KeyID(),
			Amount:      totals.AmountMinor(),
			Currency:    s.cfg.Currency,
			Name:        s.cfg.MerchantName,
			Description: "Order " + p.ref,
			OrderID:     order.ID,
			Prefill: Prefill{
				Name:    customer.Name,
				Email:   customer.Email,
				Contact: customer.Phone,
			},
			Notes: notes,
			Theme: Theme{Color: themeColor},
		},
	}, nil
}

func (s *Service) Confirm(ctx context.Context, sessionID, orderRef string, dto ConfirmDto) (*Confirmation, error) {
	s.mu.Lock()
	p := s.lookup(sessionID, orderRef)
	if p == nil || p.gatewayOrderID == "" {
		s.mu.Unlock()
		return nil, carterrors.ErrPaymentNotFound
	}
	if p.confirming {
		s.mu.Unlock()
		return nil, carterrors.ErrPaymentInProgress
	}
	p.confirming = true
	s.mu.Unlock()

	confirmation, err := s.confirm(ctx, sessionID, p, dto)
	if err != nil {
		s.mu.Lock()
		p.confirming = false
		s.mu.Unlock()
		return nil, err
	}
	s.release(p)
	return confirmation, nil
}

func (s *Service) confirm(ctx context.Context, sessionID string, p *pendingPayment, dto ConfirmDto) (*Confirmation, error) {
	if dto.GatewayOrderID != p.gatewayOrderID {
		s.logger.WarnContext(ctx, "payment response for a different gateway order", "order_ref", p.ref)
		return nil, carterrors.ErrPaymentRejected
	}
	err := s.gateway.VerifyPayment(ctx, payment.Verification{
		OrderID:   p.gatewayOrderID,
		PaymentID: dto.GatewayPaymentID,
		Signature: dto.Signature,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "payment verification failed", "order_ref", p.ref, "error", err)
		return nil, err
	}

	if err := s.carts.Discard(ctx, sessionID); err != nil {
		s.logger.ErrorContext(ctx, "paid order could not clear the cart", "order_ref", p.ref, "error", err)
		return nil, err
	}

	confirmedAt := s.now()
	carrier := make(propagation.MapCarrier)
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	event := events.OrderConfirmedEvent{
		Carrier:          carrier,
		OrderRef:         p.ref,
		SessionID:        sessionID,
		GatewayOrderID:   p.gatewayOrderID,
		GatewayPaymentID: dto.GatewayPaymentID,
		Customer: events.Customer{
			Name:    p.customer.Name,
			Email:   p.customer.Email,
			Contact: p.customer.Phone,
			Address: p.customer.AddressLine(),
		},
		Items:       cart.ToEventItems(p.items),
		Subtotal:    p.totals.Subtotal,
		Shipping:    p.totals.Shipping,
		Tax:         p.totals.Tax,
		Total:       p.totals.Total,
		Currency:    s.cfg.Currency,
		ConfirmedAt: confirmedAt,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish OrderConfirmedEvent", "order_ref", p.ref, "error", err)
	}
	s.ordersConfirmed.Add(ctx, 1)
	s.logger.InfoContext(ctx, "order confirmed", "order_ref", p.ref, "total", p.totals.Total)

	return &Confirmation{OrderRef: p.ref, Totals: p.totals, ConfirmedAt: confirmedAt}, nil
}

func (s *Service) Dismiss(ctx context.Context, sessionID, orderRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.lookup(sessionID, orderRef)
	if p == nil {
		return carterrors.ErrPaymentNotFound
	}
	if p.confirming {
		return carterrors.ErrPaymentInProgress
	}
	s.forget(p)
	s.logger.InfoContext(ctx, "payment dismissed", "order_ref", orderRef)
	return nil
}

// Evict drops unsettled payments that outlived the retention and returns how
// many were dropped.
func (s *Service) Evict() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for _, p := range s.payments {
		if s.retired(p) {
			s.forget(p)
			evicted++
		}
	}
	return evicted
}

// blocking returns the payment of a session that keeps a new one from
// starting. Callers hold s.mu.
func (s *Service) blocking(sessionID string) *pendingPayment {
	p, ok := s.latest[sessionID]
	if !ok {
		return nil
	}
	if !p.confirming && s.now().Sub(p.startedAt) > s.cfg.PendingTTL {
		delete(s.latest, sessionID)
		return nil
	}
	return p
}

// lookup returns an unsettled payment of a session by reference regardless
// of the pending TTL. Callers hold s.mu.
func (s *Service) lookup(sessionID, orderRef string) *pendingPayment {
	p, ok := s.payments[paymentKey{sessionID: sessionID, ref: orderRef}]
	if !ok {
		return nil
	}
	if s.retired(p) {
		s.forget(p)
		return nil
	}
	return p
}

func (s *Service) retired(p *pendingPayment) bool {
	return !p.confirming && s.now().Sub(p.startedAt) > s.cfg.PaymentRetention
}

// allocateKey picks an order reference not used by another unsettled payment
// of the session. Callers hold s.mu.
func (s *Service) allocateKey(sessionID string) (paymentKey, error) {
	for range refAttempts {
		key := paymentKey{sessionID: sessionID, ref: s.newRef()}
		if _, taken := s.payments[key]; !taken {
			return key, nil
		}
	}
	return paymentKey{}, fmt.Errorf("%w: no free order reference", carterrors.ErrPaymentInProgress)
}

// forget drops p. Callers hold s.mu.
func (s *Service) forget(p *pendingPayment) {
	if s.payments[p.key] == p {
		delete(s.payments, p.key)
	}
	if s.latest[p.key.sessionID] == p {
		delete(s.latest, p.key.sessionID)
	}
}

func (s *Service) release(p *pendingPayment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forget(p)
}

func (s *Service) cartItems(ctx context.Context, sessionID string) ([]cart.LineItem, error) {
	store, err := s.carts.Open(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	items := store.Items()
	if len(items) == 0 {
		return nil, carterrors.ErrEmptyCartAtCheckout
	}
	return items, nil
}
