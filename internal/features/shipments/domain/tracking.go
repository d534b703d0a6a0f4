package domain

import (
	"errors"
	"time"
)

var (
	// ErrCourierNotSupported is returned when no provider handles the requested courier.
	ErrCourierNotSupported = errors.New("courier not supported")
	// ErrTrackingUnavailable is returned when the order has no tracking number yet.
	ErrTrackingUnavailable = errors.New("tracking unavailable")
)

// TrackingStatus represents the overall state of a shipment.
type TrackingStatus string

const (
	// TrackingStatusOrigin indicates the parcel was picked up and sits at the origin hub.
	TrackingStatusOrigin TrackingStatus = "ORIGIN"
	// TrackingStatusProcessing indicates the parcel is moving through the network.
	TrackingStatusProcessing TrackingStatus = "PROCESSING"
	// TrackingStatusCompleted indicates the parcel was delivered.
	TrackingStatusCompleted TrackingStatus = "COMPLETED"
	// TrackingStatusReturn indicates the parcel is going back to the seller.
	TrackingStatusReturn TrackingStatus = "RETURN"
	// TrackingStatusIncidence indicates a delivery problem was reported.
	TrackingStatusIncidence TrackingStatus = "INCIDENCE"
)

// TrackingHistory is the courier's view of a shipment.
type TrackingHistory struct {
	// OrderID is the order the shipment belongs to.
	OrderID string `json:"orderId,omitempty"`
	// TrackingNumber is the courier's shipment identifier.
	TrackingNumber string `json:"trackingNumber,omitempty"`
	// Courier is the carrier that reported the history.
	Courier string `json:"courier,omitempty"`
	// GlobalStatus summarises the latest event.
	GlobalStatus TrackingStatus `json:"globalStatus"`
	// History lists the events oldest first.
	History []TrackingEvent `json:"history"`
}

// TrackingEvent is one scan or status update reported by the courier.
type TrackingEvent struct {
	Date time.Time `json:"date"`
	Text string    `json:"text"`
	City string    `json:"city"`
	Code string    `json:"code"`
}
