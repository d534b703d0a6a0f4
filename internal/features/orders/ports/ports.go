package ports

import (
	"context"

	"order-settlement/internal/core/identity"
	"order-settlement/internal/features/orders/domain"

	"github.com/shopspring/decimal"
)

// OrderRepository persists orders and their status history.
type OrderRepository interface {
	// Create stores a newly placed order with its items and first history entry.
	Create(ctx context.Context, order *domain.Order) error
	// GetByID loads an order with items and history. Returns domain.ErrOrderNotFound when missing.
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// Update writes the mutable order fields guarded by order.Version.
	// On success order.Version is incremented; a concurrent write yields domain.ErrStaleOrderVersion.
	Update(ctx context.Context, order *domain.Order) error
	// AppendHistory appends one entry to the order's status history.
	AppendHistory(ctx context.Context, orderID string, change domain.StatusChange) error
	// History returns the status history in chronological order.
	History(ctx context.Context, orderID string) ([]domain.StatusChange, error)
}

// TxRunner runs a unit of work atomically.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RefundIssuer records a refund against an order in the caller's transaction.
// It mutates order (refundedAmount, paymentStatus); the caller saves it.
type RefundIssuer interface {
	Issue(ctx context.Context, order *domain.Order, amount decimal.Decimal, reason string, actor identity.Actor, markRefunded bool) error
}

// Settler computes seller payouts for a delivered order.
type Settler interface {
	// SettleDelivery returns the number of payout records created.
	SettleDelivery(ctx context.Context, order *domain.Order) (int, error)
	// InvalidateSummaries drops cached summaries of the order's payees after commit.
	InvalidateSummaries(ctx context.Context, orderID string)
}

// StockRestorer notifies the catalog that cancelled items are back in stock.
type StockRestorer interface {
	// EnqueueStockRestoration stores the event in the caller's transaction.
	EnqueueStockRestoration(ctx context.Context, order *domain.Order, reason string) error
	// Relay publishes pending events.
	Relay(ctx context.Context) error
}
