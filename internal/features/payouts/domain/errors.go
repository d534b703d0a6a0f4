package domain

import "errors"

var (
	// ErrAlreadySettled reports that payouts already exist for the order. It is informational.
	ErrAlreadySettled = errors.New("order already settled")
	// ErrSellerMissing reports a seller unknown to the seller directory.
	ErrSellerMissing = errors.New("seller missing")
	// ErrAlreadyPaid reports that the payout was already marked paid. It is informational.
	ErrAlreadyPaid = errors.New("payout already paid")
	// ErrPayoutNotFound is returned when the payout does not exist.
	ErrPayoutNotFound = errors.New("payout not found")
	// ErrNotDelivered is returned when settling an order that has not been delivered.
	ErrNotDelivered = errors.New("order is not delivered")
	// ErrUnknownPolicy is returned for an unknown shipping allocation policy name.
	ErrUnknownPolicy = errors.New("unknown shipping allocation policy")
)
