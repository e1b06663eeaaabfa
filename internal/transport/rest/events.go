package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/abgdnv/bathifarms/pkg/web"
)

const (
	eventSnapshot = "snapshot"
	eventCart     = "cart"
)

// CartEvents streams cart changes of the session as Server-Sent Events.
// The first event is a snapshot of the current cart, every mutation after it is sent as a cart event.
func (h *Handler) CartEvents(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := web.GetSession(w, r, h.logger)
	if !ok {
		return
	}
	rc := http.NewResponseController(w)
	// the stream outlives the server write timeout
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.DebugContext(r.Context(), "Write deadline cannot be cleared", "error", err)
	}

	// subscribe before reading the cart so no change is lost in between
	events, cancel := h.broker.Subscribe(sessionID)
	defer cancel()

	store, ok := h.openCart(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, eventSnapshot, store.View()); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to write cart snapshot", "error", err)
		return
	}
	if err := rc.Flush(); err != nil {
		h.logger.ErrorContext(r.Context(), "Streaming is not supported", "error", err)
		return
	}
	h.logger.DebugContext(r.Context(), "Cart event stream opened")

	heartbeat := time.NewTicker(h.opts.Heartbeat)
	defer heartbeat.Stop()
	for {
		var err error
		select {
		case <-r.Context().Done():
			h.logger.DebugContext(r.Context(), "Cart event stream closed")
			return
		case e, open := <-events:
			if !open {
				return
			}
			err = writeEvent(w, eventCart, e)
		case <-heartbeat.C:
			_, err = io.WriteString(w, ": ping\n\n")
		}
		if err == nil {
			err = rc.Flush()
		}
		if err != nil {
			h.logger.DebugContext(r.Context(), "Cart event stream aborted", "error", err)
			return
		}
	}
}

func writeEvent(w io.Writer, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", name, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}
