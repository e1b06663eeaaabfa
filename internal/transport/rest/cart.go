package rest

import (
	"log/slog"
	"net/http"

	"github.com/abgdnv/bathifarms/internal/cart"
	"github.com/abgdnv/bathifarms/pkg/web"
)

// AddItemDto is a catalog product added to the cart. A missing quantity means one unit.
// Name, price and image are taken from the catalog; any sent by the client are ignored.
type AddItemDto struct {
	ID       string `json:"id" validate:"required,max=64"`
	Quantity *int64 `json:"quantity,omitempty" validate:"omitempty,min=1,max=999"`
}

// QuantityDto changes the quantity of a line by Delta units.
type QuantityDto struct {
	Delta *int64 `json:"delta" validate:"required,min=-999,max=999"`
}

// GetCart returns the cart of the session.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.openCart(w, r)
	if !ok {
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, store.View())
}

// AddItem adds a catalog product to the cart, or increases its quantity when the id is already present.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := web.GetSession(w, r, h.logger)
	if !ok {
		return
	}
	var dto AddItemDto
	if !web.DecodeAndValidate(w, r, h.logger, h.validate, &dto) {
		return
	}
	quantity := int64(1)
	if dto.Quantity != nil {
		quantity = *dto.Quantity
	}
	result, err := h.carousel.AddProduct(r.Context(), sessionID, dto.ID, quantity)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to add item to cart")
		return
	}
	h.logger.DebugContext(r.Context(), "Item added to cart", slog.String("ID", dto.ID), slog.Int64("quantity", quantity))
	web.RespondJSON(w, h.logger, http.StatusOK, result.Cart)
}

// RemoveItem removes a line from the cart. Removing an absent line is not an error.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	store, ok := h.openCart(w, r)
	if !ok {
		return
	}
	if err := store.Remove(r.Context(), id); err != nil {
		h.respondServiceError(w, r, err, "Failed to remove item from cart")
		return
	}
	h.logger.DebugContext(r.Context(), "Item removed from cart", slog.String("ID", id))
	web.RespondJSON(w, h.logger, http.StatusOK, store.View())
}

// ChangeQuantity adds delta to the quantity of a line, removing it once the quantity drops to zero.
func (h *Handler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var dto QuantityDto
	if !web.DecodeAndValidate(w, r, h.logger, h.validate, &dto) {
		return
	}
	store, ok := h.openCart(w, r)
	if !ok {
		return
	}
	if err := store.SetQuantityDelta(r.Context(), id, *dto.Delta); err != nil {
		h.respondServiceError(w, r, err, "Failed to change item quantity")
		return
	}
	h.logger.DebugContext(r.Context(), "Item quantity changed", slog.String("ID", id), slog.Int64("delta", *dto.Delta))
	web.RespondJSON(w, h.logger, http.StatusOK, store.View())
}

// ClearCart empties the cart. It also recovers a session whose stored cart cannot be read.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := web.GetSession(w, r, h.logger)
	if !ok {
		return
	}
	store, err := h.carts.Reset(r.Context(), sessionID)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to clear cart")
		return
	}
	h.logger.InfoContext(r.Context(), "Cart cleared")
	web.RespondJSON(w, h.logger, http.StatusOK, store.View())
}

func (h *Handler) openCart(w http.ResponseWriter, r *http.Request) (*cart.Store, bool) {
	sessionID, ok := web.GetSession(w, r, h.logger)
	if !ok {
		return nil, false
	}
	store, err := h.carts.Open(r.Context(), sessionID)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to load cart")
		return nil, false
	}
	return store, true
}
