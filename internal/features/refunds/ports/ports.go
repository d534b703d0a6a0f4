package ports

import (
	"context"

	"order-settlement/internal/features/refunds/domain"
)

// RefundRepository persists the refund ledger. Records are never updated or deleted.
type RefundRepository interface {
	Insert(ctx context.Context, record domain.RefundRecord) error
	// ListByOrder returns the order's refunds, oldest first.
	ListByOrder(ctx context.Context, orderID string) ([]domain.RefundRecord, error)
}
