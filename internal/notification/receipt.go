package notification

import (
	"fmt"
	"strings"

	"github.com/abgdnv/bathifarms/pkg/messaging/events"
)

// FormatReceipt renders the plain text receipt sent to the customer.
func FormatReceipt(e events.OrderConfirmedEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bathi Farms order %s\n", e.OrderRef)
	fmt.Fprintf(&b, "Ship to: %s, %s\n", e.Customer.Name, e.Customer.Address)
	for _, item := range e.Items {
		fmt.Fprintf(&b, "  %d x %s @ %d = %d\n", item.Quantity, item.Name, item.Price, item.Price*item.Quantity)
	}
	fmt.Fprintf(&b, "Subtotal: %d %s\n", e.Subtotal, e.Currency)
	fmt.Fprintf(&b, "Shipping: %d %s\n", e.Shipping, e.Currency)
	fmt.Fprintf(&b, "Tax: %d %s\n", e.Tax, e.Currency)
	fmt.Fprintf(&b, "Total: %d %s\n", e.Total, e.Currency)
	fmt.Fprintf(&b, "Payment: %s", e.GatewayPaymentID)
	return b.String()
}
