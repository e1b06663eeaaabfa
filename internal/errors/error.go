// Package errors provides sentinel errors for cart, checkout and payment operations.
package errors

import "errors"

var ErrStorageUnavailable = errors.New("cart storage unavailable")
var ErrMalformedSnapshot = errors.New("malformed cart snapshot")
var ErrSnapshotNotFound = errors.New("cart snapshot not found")

var ErrInvalidLineItem = errors.New("invalid line item")
var ErrInvalidIndex = errors.New("carousel index out of range")

var ErrEmptyCartAtCheckout = errors.New("cart is empty")
var ErrPaymentInProgress = errors.New("payment already in progress")
var ErrPaymentNotFound = errors.New("payment not found")
var ErrPaymentRejected = errors.New("payment verification failed")
var ErrPaymentGatewayUnavailable = errors.New("payment gateway unavailable")
