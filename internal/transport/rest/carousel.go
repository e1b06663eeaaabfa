package rest

import (
	"log/slog"
	"net/http"

	"github.com/abgdnv/bathifarms/pkg/web"
)

// AddCurrentDto is the quantity selector next to the centered product. A missing quantity means one unit.
type AddCurrentDto struct {
	Quantity *int64 `json:"quantity,omitempty" validate:"omitempty,min=1,max=999"`
}

// Products returns the catalog in carousel order.
func (h *Handler) Products(w http.ResponseWriter, _ *http.Request) {
	web.RespondJSON(w, h.logger, http.StatusOK, h.carousel.Products())
}

// CarouselState returns the centered product of the session carousel.
func (h *Handler) CarouselState(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := web.GetSession(w, r, h.logger)
	if !ok {
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, h.carousel.State(sessionID))
}

func (h *Handler) CarouselNext(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := web.GetSession(w, r, h.logger)
	if !ok {
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, h.carousel.Next(sessionID))
}

func (h *Handler) CarouselPrev(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := web.GetSession(w, r, h.logger)
	if !ok {
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, h.carousel.Prev(sessionID))
}

// CarouselSelect centers the product at the index path parameter.
func (h *Handler) CarouselSelect(w http.ResponseWriter, r *http.Request) {
	index, ok := web.ParsePathGte(r, w, h.logger, "index", 0)
	if !ok {
		return
	}
	sessionID, ok := web.GetSession(w, r, h.logger)
	if !ok {
		return
	}
	state, err := h.carousel.Select(sessionID, index)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to select product")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, state)
}

// CarouselAdd adds the centered product to the cart. The request body is optional.
func (h *Handler) CarouselAdd(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := web.GetSession(w, r, h.logger)
	if !ok {
		return
	}
	var dto AddCurrentDto
	if r.ContentLength != 0 && !web.DecodeAndValidate(w, r, h.logger, h.validate, &dto) {
		return
	}
	quantity := int64(1)
	if dto.Quantity != nil {
		quantity = *dto.Quantity
	}
	result, err := h.carousel.AddCurrent(r.Context(), sessionID, quantity)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to add product to cart")
		return
	}
	h.logger.DebugContext(r.Context(), "Centered product added to cart",
		slog.String("ID", result.Added.ID), slog.Int64("quantity", quantity))
	web.RespondJSON(w, h.logger, http.StatusOK, result)
}
