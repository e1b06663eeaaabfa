package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/bathifarms/pkg/messaging"
	"go.opentelemetry.io/otel/propagation"
)

// OrderConfirmedEvent is published once the payment gateway reports a successful payment.
type OrderConfirmedEvent struct {
	Carrier          propagation.MapCarrier `json:"carrier,omitempty"`
	OrderRef         string                 `json:"order_ref"`
	SessionID        string                 `json:"session_id"`
	GatewayOrderID   string                 `json:"gateway_order_id"`
	GatewayPaymentID string                 `json:"gateway_payment_id"`
	Customer         Customer               `json:"customer"`
	Items            []Item                 `json:"items"`
	Subtotal         int64                  `json:"subtotal"`
	Shipping         int64                  `json:"shipping"`
	Tax              int64                  `json:"tax"`
	Total            int64                  `json:"total"`
	Currency         string                 `json:"currency"`
	ConfirmedAt      time.Time              `json:"confirmed_at"`
}

type Customer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
	Address string `json:"address"`
}

func (o OrderConfirmedEvent) Subject() string {
	return messaging.OrdersConfirmedSubject
}

func (o OrderConfirmedEvent) Key() string {
	return o.OrderRef
}

func (o OrderConfirmedEvent) Payload() ([]byte, error) {
	return json.Marshal(o)
}
