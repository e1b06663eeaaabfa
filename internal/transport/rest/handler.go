// Package rest provides HTTP handlers for the storefront cart, carousel and checkout.
package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/abgdnv/bathifarms/internal/cart"
	"github.com/abgdnv/bathifarms/internal/catalog"
	"github.com/abgdnv/bathifarms/internal/checkout"
	carterrors "github.com/abgdnv/bathifarms/internal/errors"
	"github.com/abgdnv/bathifarms/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const defaultHeartbeat = 15 * time.Second

// Check reports whether a dependency is able to serve traffic.
type Check func(ctx context.Context) error

type Options struct {
	// LandingURL is where GET /checkout sends a browser with an empty cart.
	LandingURL string
	// Heartbeat is the interval of SSE keep-alive comments.
	Heartbeat time.Duration
	// Checks are run by the readiness endpoint, keyed by dependency name.
	Checks map[string]Check
}

type Handler struct {
	carts    *cart.Registry
	broker   *cart.Broker
	carousel catalog.CarouselService
	checkout checkout.CheckoutService
	opts     Options
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new Handler. broker may be nil, in which case the event stream is not served.
func NewHandler(carts *cart.Registry, broker *cart.Broker, carousel catalog.CarouselService, checkout checkout.CheckoutService, opts Options, logger *slog.Logger) *Handler {
	if opts.LandingURL == "" {
		opts.LandingURL = "/"
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = defaultHeartbeat
	}
	return &Handler{
		carts:    carts,
		broker:   broker,
		carousel: carousel,
		checkout: checkout,
		opts:     opts,
		validate: validator.New(),

		logger: logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes of the storefront.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(web.SessionMiddleware)
		r.Route("/api/v1", func(r chi.Router) {
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Delete("/", h.ClearCart)
				if h.broker != nil {
					r.Get("/events", h.CartEvents)
				}
				r.Post("/items", h.AddItem)
				r.Route("/items/{id}", func(r chi.Router) {
					r.Delete("/", h.RemoveItem)
					r.Patch("/", h.ChangeQuantity)
				})
			})

			r.Get("/products", h.Products)
			r.Route("/carousel", func(r chi.Router) {
				r.Get("/", h.CarouselState)
				r.Post("/next", h.CarouselNext)
				r.Post("/prev", h.CarouselPrev)
				r.Post("/add", h.CarouselAdd)
				r.Put("/{index}", h.CarouselSelect)
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", h.CheckoutSummary)
				r.Post("/payments", h.StartPayment)
				r.Route("/payments/{ref}", func(r chi.Router) {
					r.Post("/confirm", h.ConfirmPayment)
					r.Post("/dismiss", h.DismissPayment)
				})
			})
		})
	})
	r.Get("/healthz", h.HealthCheck)
	r.Get("/readyz", h.ReadinessCheck)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// ReadinessCheck runs the configured dependency checks and answers 503 if any of them fails.
func (h *Handler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := make(map[string]string)
	for name, check := range h.opts.Checks {
		if err := check(ctx); err != nil {
			h.logger.WarnContext(ctx, "Readiness check failed", "dependency", name, "error", err)
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		web.RespondJSON(w, h.logger, http.StatusServiceUnavailable, map[string]any{"failed": failed})
		return
	}
	w.WriteHeader(http.StatusOK)
}

// respondServiceError maps a cart, catalog or checkout error to an HTTP response.
// fallback is the message sent for unexpected errors.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	ctx := r.Context()
	switch {
	case errors.Is(err, carterrors.ErrInvalidLineItem), errors.Is(err, carterrors.ErrInvalidIndex):
		h.logger.WarnContext(ctx, "Rejected request", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, carterrors.ErrMalformedSnapshot):
		h.logger.WarnContext(ctx, "Stored cart is malformed", "error", err)
		web.RespondError(w, h.logger, http.StatusConflict, "Stored cart is unreadable, reset it with DELETE /api/v1/cart")
	case errors.Is(err, carterrors.ErrEmptyCartAtCheckout):
		h.logger.WarnContext(ctx, "Checkout with empty cart")
		web.RespondError(w, h.logger, http.StatusConflict, "Cart is empty")
	case errors.Is(err, carterrors.ErrPaymentInProgress):
		h.logger.WarnContext(ctx, "Payment already in progress")
		web.RespondError(w, h.logger, http.StatusConflict, "A payment is already in progress")
	case errors.Is(err, carterrors.ErrPaymentNotFound):
		h.logger.WarnContext(ctx, "Payment not found", "error", err)
		web.RespondError(w, h.logger, http.StatusNotFound, "Payment not found")
	case errors.Is(err, carterrors.ErrPaymentRejected):
		h.logger.WarnContext(ctx, "Payment rejected", "error", err)
		web.RespondError(w, h.logger, http.StatusPaymentRequired, "Payment verification failed")
	case errors.Is(err, carterrors.ErrStorageUnavailable):
		h.logger.ErrorContext(ctx, "Cart storage unavailable", "error", err)
		web.RespondError(w, h.logger, http.StatusServiceUnavailable, "Cart storage is unavailable, try again later")
	case errors.Is(err, carterrors.ErrPaymentGatewayUnavailable):
		h.logger.ErrorContext(ctx, "Payment gateway unavailable", "error", err)
		web.RespondError(w, h.logger, http.StatusServiceUnavailable, "Payment gateway is unavailable, try again later")
	default:
		h.logger.ErrorContext(ctx, fallback, "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, fallback)
	}
}
