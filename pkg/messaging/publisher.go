// Package messaging declares the broker-agnostic event publishing contract.
package messaging

import (
	"context"
)

const (
	CartsChangedSubject    = "carts.changed"
	OrdersConfirmedSubject = "orders.confirmed"
)

type Event interface {
	Subject() string
	Key() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards every event. Used when no external broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
