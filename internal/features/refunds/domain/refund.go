package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"order-settlement/internal/core/identity"
	ordersdomain "order-settlement/internal/features/orders/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrRefundExceedsBalance is returned when a refund is not a positive whole-cent amount
// or exceeds the remaining balance.
var ErrRefundExceedsBalance = errors.New("refund exceeds remaining balance")

// RefundRecord is one entry of an order's append-only refund ledger.
type RefundRecord struct {
	// ID is the unique identifier for the refund.
	ID string `json:"id"`
	// OrderID is the refunded order.
	OrderID string `json:"orderId"`
	// Amount is the refunded amount, always positive.
	Amount decimal.Decimal `json:"amount"`
	// Reason explains the refund.
	Reason string `json:"reason"`
	// ProcessedBy is the actor who issued the refund.
	ProcessedBy string `json:"processedBy"`
	// ProcessedAt is when the refund was recorded.
	ProcessedAt time.Time `json:"processedAt"`
}

// Apply validates amount against the order's remaining balance, increments
// order.RefundedAmount and returns the ledger entry to persist.
// paymentStatus becomes refunded at full refund, or earlier when markRefunded is set.
func Apply(order *ordersdomain.Order, amount decimal.Decimal, reason string, actor identity.Actor, markRefunded bool, now time.Time) (RefundRecord, error) {
	remaining := order.RemainingBalance()

	if !amount.IsPositive() {
		return RefundRecord{}, fmt.Errorf("%w: amount must be positive, got %s", ErrRefundExceedsBalance, amount.StringFixed(2))
	}
	if !ordersdomain.IsMoney(amount) {
		return RefundRecord{}, fmt.Errorf("%w: amount %s has more than %d decimals", ErrRefundExceedsBalance, amount.String(), ordersdomain.MoneyScale)
	}
	if amount.GreaterThan(remaining) {
		return RefundRecord{}, fmt.Errorf("%w: requested %s, remaining %s", ErrRefundExceedsBalance, amount.StringFixed(2), remaining.StringFixed(2))
	}

	order.RefundedAmount = order.RefundedAmount.Add(amount)
	if markRefunded || order.RefundedAmount.Equal(order.Total) {
		order.PaymentStatus = ordersdomain.PaymentStatusRefunded
	}
	order.UpdatedAt = now

	return RefundRecord{
		ID:          uuid.NewString(),
		OrderID:     order.ID,
		Amount:      amount,
		Reason:      strings.TrimSpace(reason),
		ProcessedBy: actor.ID,
		ProcessedAt: now,
	}, nil
}

// Total sums the amounts of records.
func Total(records []RefundRecord) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range records {
		sum = sum.Add(r.Amount)
	}
	return sum
}
