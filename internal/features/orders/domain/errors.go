package domain

import "errors"

var (
	// ErrOrderNotFound is returned when the order does not exist.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidTransition is returned when a transition guard rejects a status change.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrMissingTrackingNumber is returned when shipping or delivering without a tracking number.
	ErrMissingTrackingNumber = errors.New("tracking number is required")
	// ErrStaleOrderVersion is returned when another write changed the order first.
	ErrStaleOrderVersion = errors.New("order was modified concurrently")
	// ErrNotOrderOwner is returned when a customer acts on someone else's order.
	ErrNotOrderOwner = errors.New("order belongs to another customer")
	// ErrInvalidStatus is returned for an unknown status literal.
	ErrInvalidStatus = errors.New("unknown order status")
	// ErrInvalidOrder is returned when an order cannot be placed as requested.
	ErrInvalidOrder = errors.New("invalid order")
	// ErrInvalidPaymentTransition is returned when a payment status change is not allowed.
	ErrInvalidPaymentTransition = errors.New("invalid payment status transition")
)
