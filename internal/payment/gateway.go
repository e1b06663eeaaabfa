// Package payment talks to the payment collaborator that collects the money
// for a checkout.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// OrderRequest asks the gateway to open an order. Amount is in the minor unit (paise).
type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order is an order opened at the gateway.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Verification is what the browser widget hands back after a successful payment.
type Verification struct {
	OrderID   string
	PaymentID string
	Signature string
}

// Gateway is the payment collaborator.
type Gateway interface {
	// CreateOrder opens an order for the given amount.
	// Returns ErrPaymentGatewayUnavailable when the gateway cannot be reached or refuses the request.
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)

	// VerifyPayment checks the signature the widget returned.
	// Returns ErrPaymentRejected if the signature does not match.
	VerifyPayment(ctx context.Context, v Verification) error

	// KeyID is the public key the browser widget is opened with.
	KeyID() string
}

// Sign computes the payment signature: hex(HMAC-SHA256(order_id|payment_id, secret)).
func Sign(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func verifySignature(v Verification, secret string) bool {
	if v.OrderID == "" || v.PaymentID == "" || v.Signature == "" {
		return false
	}
	expected := Sign(v.OrderID, v.PaymentID, secret)
	return hmac.Equal([]byte(expected), []byte(v.Signature))
}

// APIError is an error response returned by the gateway.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway responded %d %s: %s", e.StatusCode, e.Code, e.Description)
}

// Temporary reports whether retrying the request can succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
