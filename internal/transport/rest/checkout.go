package rest

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/abgdnv/bathifarms/internal/checkout"
	carterrors "github.com/abgdnv/bathifarms/internal/errors"
	"github.com/abgdnv/bathifarms/pkg/web"
)

// CheckoutSummary returns the order summary. A browser with an empty cart is sent back to the landing page.
func (h *Handler) CheckoutSummary(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := web.GetSession(w, r, h.logger)
	if !ok {
		return
	}
	summary, err := h.checkout.Summary(r.Context(), sessionID)
	if errors.Is(err, carterrors.ErrEmptyCartAtCheckout) {
		h.logger.DebugContext(r.Context(), "Empty cart at checkout, redirecting", "location", h.opts.LandingURL)
		http.Redirect(w, r, h.opts.LandingURL, http.StatusSeeOther)
		return
	} else if err != nil {
		h.respondServiceError(w, r, err, "Failed to build order summary")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, summary)
}

// StartPayment validates the checkout form and opens a payment with the gateway.
func (h *Handler) StartPayment(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := web.GetSession(w, r, h.logger)
	if !ok {
		return
	}
	var customer checkout.CustomerDto
	if !web.DecodeAndValidate(w, r, h.logger, h.validate, &customer) {
		return
	}
	session, err := h.checkout.StartPayment(r.Context(), sessionID, customer)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to start payment")
		return
	}
	h.logger.InfoContext(r.Context(), "Payment started",
		slog.String("order_ref", session.OrderRef), slog.Int64("total", session.Totals.Total))
	web.RespondJSON(w, h.logger, http.StatusCreated, session)
}

// ConfirmPayment verifies the payment widget response and completes the order.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := web.GetSession(w, r, h.logger)
	if !ok {
		return
	}
	ref := r.PathValue("ref")
	var dto checkout.ConfirmDto
	if !web.DecodeAndValidate(w, r, h.logger, h.validate, &dto) {
		return
	}
	confirmation, err := h.checkout.Confirm(r.Context(), sessionID, ref, dto)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to confirm payment")
		return
	}
	h.logger.InfoContext(r.Context(), "Order confirmed", slog.String("order_ref", confirmation.OrderRef))
	web.RespondJSON(w, h.logger, http.StatusOK, confirmation)
}

// DismissPayment closes the payment widget without paying. The cart is kept.
func (h *Handler) DismissPayment(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := web.GetSession(w, r, h.logger)
	if !ok {
		return
	}
	ref := r.PathValue("ref")
	if err := h.checkout.Dismiss(r.Context(), sessionID, ref); err != nil {
		h.respondServiceError(w, r, err, "Failed to dismiss payment")
		return
	}
	h.logger.InfoContext(r.Context(), "Payment dismissed", slog.String("order_ref", ref))
	w.WriteHeader(http.StatusNoContent)
}
