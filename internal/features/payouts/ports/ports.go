package ports

import (
	"context"
	"time"

	"order-settlement/internal/features/payouts/domain"
)

// PayoutFilter narrows a payout listing. Zero values mean "any".
type PayoutFilter struct {
	SellerID string
	Status   domain.PayoutStatus
	From     time.Time
	To       time.Time
}

// PayoutRepository persists payout records.
type PayoutRepository interface {
	// InsertAll stores every record or none. Existing (orderId, sellerId) pairs yield domain.ErrAlreadySettled.
	InsertAll(ctx context.Context, records []domain.PayoutRecord) error
	// ListByOrder returns the payouts of one order in creation order.
	ListByOrder(ctx context.Context, orderID string) ([]domain.PayoutRecord, error)
	// GetByID returns domain.ErrPayoutNotFound when missing.
	GetByID(ctx context.Context, id string) (*domain.PayoutRecord, error)
	// MarkPaid persists a paid transition. A payout already paid yields domain.ErrAlreadyPaid.
	MarkPaid(ctx context.Context, record *domain.PayoutRecord) error
	// List returns one page of matching payouts, newest first, and the total match count.
	List(ctx context.Context, filter PayoutFilter, offset, limit int) ([]domain.PayoutRecord, int64, error)
	// ListAll returns every matching payout, oldest first.
	ListAll(ctx context.Context, filter PayoutFilter) ([]domain.PayoutRecord, error)
}

// SellerDirectory answers whether a seller account still exists.
type SellerDirectory interface {
	Exists(ctx context.Context, sellerID string) (bool, error)
}

// SummaryInvalidator drops cached settlement summaries of a seller.
type SummaryInvalidator interface {
	InvalidateSeller(ctx context.Context, sellerID string) error
}
