package service

import (
	"context"
	"fmt"
	"strings"

	"order-settlement/internal/core/identity"
	ordersdomain "order-settlement/internal/features/orders/domain"
	ordersports "order-settlement/internal/features/orders/ports"
	"order-settlement/internal/features/shipments/domain"
	"order-settlement/internal/features/shipments/ports"
)

// TrackingService routes an order's tracking lookup to the courier provider that handles it.
type TrackingService struct {
	orders    ordersports.OrderRepository
	providers []ports.TrackingProvider
}

// NewTrackingService creates a new TrackingService with the given providers, tried in order.
func NewTrackingService(orders ordersports.OrderRepository, providers []ports.TrackingProvider) *TrackingService {
	return &TrackingService{
		orders:    orders,
		providers: providers,
	}
}

// TrackOrder returns the shipment history of an order. courier overrides the order's courier when set.
func (s *TrackingService) TrackOrder(ctx context.Context, orderID string, actor identity.Actor, courier string) (*domain.TrackingHistory, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.VisibleTo(actor) {
		return nil, fmt.Errorf("%w: order %s", ordersdomain.ErrNotOrderOwner, orderID)
	}
	if order.TrackingNumber == "" {
		return nil, fmt.Errorf("%w: order %s has no tracking number", domain.ErrTrackingUnavailable, orderID)
	}

	if courier == "" {
		courier = order.Courier
	}
	courier = strings.TrimSpace(courier)

	for _, provider := range s.providers {
		if !provider.SupportsCourier(courier) {
			continue
		}
		history, err := provider.GetTrackingHistory(ctx, courier, order.TrackingNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to get tracking from provider: %w", err)
		}
		history.OrderID = order.ID
		history.TrackingNumber = order.TrackingNumber
		history.Courier = courier
		return history, nil
	}

	return nil, fmt.Errorf("%w: %q", domain.ErrCourierNotSupported, courier)
}
