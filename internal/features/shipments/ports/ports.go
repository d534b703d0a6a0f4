package ports

import (
	"context"

	"order-settlement/internal/features/shipments/domain"
)

// TrackingProvider fetches shipment history from one or more couriers.
type TrackingProvider interface {
	// GetTrackingHistory retrieves the history of a shipment.
	GetTrackingHistory(ctx context.Context, courier, trackingNumber string) (*domain.TrackingHistory, error)
	// SupportsCourier returns true if this provider handles the given courier name.
	SupportsCourier(courier string) bool
}
