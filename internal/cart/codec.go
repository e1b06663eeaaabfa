package cart

import (
	"bytes"
	"encoding/json"
	"fmt"

	carterrors "github.com/abgdnv/bathifarms/internal/errors"
)

// Encode serializes items as a JSON array. An empty cart encodes as [].
func Encode(items []LineItem) ([]byte, error) {
	return json.Marshal(clone(items))
}

// Decode parses a stored snapshot. A null or empty payload is an empty cart.
// Invalid JSON and item lists that break cart invariants are reported as
// ErrMalformedSnapshot.
func Decode(payload []byte) ([]LineItem, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []LineItem{}, nil
	}

	var items []LineItem
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("%w: %w", carterrors.ErrMalformedSnapshot, err)
	}

	if len(items) > MaxLines {
		return nil, fmt.Errorf("%w: %d lines exceed %d", carterrors.ErrMalformedSnapshot, len(items), MaxLines)
	}
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.ID == "" {
			return nil, fmt.Errorf("%w: item without id", carterrors.ErrMalformedSnapshot)
		}
		if _, dup := seen[item.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate item %q", carterrors.ErrMalformedSnapshot, item.ID)
		}
		if item.Quantity < 1 || item.Quantity > MaxQuantity {
			return nil, fmt.Errorf("%w: item %q has quantity %d", carterrors.ErrMalformedSnapshot, item.ID, item.Quantity)
		}
		if item.Price < 0 || item.Price > MaxPrice {
			return nil, fmt.Errorf("%w: item %q has price %d", carterrors.ErrMalformedSnapshot, item.ID, item.Price)
		}
		seen[item.ID] = struct{}{}
	}
	return clone(items), nil
}
