package checkout

import (
	"fmt"
	"time"

	"github.com/abgdnv/bathifarms/internal/cart"
)

// CustomerDto is the checkout form.
type CustomerDto struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"required,min=7,max=20"`
	Address string `json:"address" validate:"required,max=200"`
	City    string `json:"city" validate:"required,max=100"`
	State   string `json:"state" validate:"required,max=100"`
	Pincode string `json:"pincode" validate:"required,numeric,len=6"`
	Country string `json:"country" validate:"omitempty,max=100"`
}

// AddressLine formats the shipping address the way it is sent to the gateway.
func (c CustomerDto) AddressLine() string {
	country := c.Country
	if country == "" {
		country = "India"
	}
	return fmt.Sprintf("%s, %s, %s %s, %s", c.Address, c.City, c.State, c.Pincode, country)
}

// ConfirmDto is the response of the payment widget.
type ConfirmDto struct {
	GatewayOrderID   string `json:"gateway_order_id" validate:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required"`
	Signature        string `json:"signature" validate:"required"`
}

type Summary struct {
	Items             []cart.LineItem `json:"items"`
	Totals            Totals          `json:"totals"`
	PaymentInProgress bool            `json:"paymentInProgress"`
}

// PaymentSession is everything the browser needs to open the payment widget.
type PaymentSession struct {
	OrderRef string        `json:"orderRef"`
	Totals   Totals        `json:"totals"`
	Widget   WidgetOptions `json:"widget"`
}

type WidgetOptions struct {
	Key         string            `json:"key"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	OrderID     string            `json:"order_id"`
	Prefill     Prefill           `json:"prefill"`
	Notes       map[string]string `json:"notes"`
	Theme       Theme             `json:"theme"`
}

type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

type Theme struct {
	Color string `json:"color"`
}

type Confirmation struct {
	OrderRef    string    `json:"orderRef"`
	Totals      Totals    `json:"totals"`
	ConfirmedAt time.Time `json:"confirmedAt"`
}
