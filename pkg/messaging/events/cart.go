package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/bathifarms/pkg/messaging"
)

// Item is a cart line as carried by events.
type Item struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
	Image    string `json:"image,omitempty"`
}

// CartChangedEvent carries the full cart contents after a mutation.
type CartChangedEvent struct {
	SessionID  string    `json:"session_id"`
	Reason     string    `json:"reason"`
	Items      []Item    `json:"items"`
	Count      int64     `json:"count"`
	Subtotal   int64     `json:"subtotal"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (c CartChangedEvent) Subject() string {
	return messaging.CartsChangedSubject
}

func (c CartChangedEvent) Key() string {
	return c.SessionID
}

func (c CartChangedEvent) Payload() ([]byte, error) {
	return json.Marshal(c)
}
