// Package cart implements the per-session shopping cart: the owned store,
// the registry that hands the same store to every consumer of a session, and
// the broker that announces every change.
package cart

import (
	"fmt"

	carterrors "github.com/abgdnv/bathifarms/internal/errors"
	"github.com/abgdnv/bathifarms/pkg/messaging/events"
)

// Bounds on a cart. With these limits Subtotal cannot overflow int64.
const (
	MaxQuantity int64 = 999
	MaxPrice    int64 = 10_000_000
	MaxLines          = 100
)

// LineItem is one product in the cart. Price is in whole rupees.
type LineItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
	Image    string `json:"image"`
}

// Validate reports whether the item may be added to a cart.
func (i LineItem) Validate() error {
	switch {
	case i.ID == "":
		return fmt.Errorf("%w: id is empty", carterrors.ErrInvalidLineItem)
	case i.Name == "":
		return fmt.Errorf("%w: name is empty", carterrors.ErrInvalidLineItem)
	case i.Price < 0:
		return fmt.Errorf("%w: price %d is negative", carterrors.ErrInvalidLineItem, i.Price)
	case i.Price > MaxPrice:
		return fmt.Errorf("%w: price %d exceeds %d", carterrors.ErrInvalidLineItem, i.Price, MaxPrice)
	case i.Quantity < 1:
		return fmt.Errorf("%w: quantity %d is less than 1", carterrors.ErrInvalidLineItem, i.Quantity)
	case i.Quantity > MaxQuantity:
		return fmt.Errorf("%w: quantity %d exceeds %d", carterrors.ErrInvalidLineItem, i.Quantity, MaxQuantity)
	}
	return nil
}

// Count returns the total number of units across all items.
func Count(items []LineItem) int64 {
	var n int64
	for _, item := range items {
		n += item.Quantity
	}
	return n
}

// Subtotal returns the sum of price times quantity.
func Subtotal(items []LineItem) int64 {
	var sum int64
	for _, item := range items {
		sum += item.Price * item.Quantity
	}
	return sum
}

func clone(items []LineItem) []LineItem {
	if items == nil {
		return []LineItem{}
	}
	return append(make([]LineItem, 0, len(items)), items...)
}

func indexOf(items []LineItem, id string) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// ToEventItems converts cart lines to their event representation.
func ToEventItems(items []LineItem) []events.Item {
	out := make([]events.Item, 0, len(items))
	for _, item := range items {
		out = append(out, events.Item{
			ID:       item.ID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
			Image:    item.Image,
		})
	}
	return out
}
