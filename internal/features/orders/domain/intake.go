package domain

import (
	"fmt"
	"strings"
	"time"

	"order-settlement/internal/core/identity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlaceOrderInput carries the checkout data used to create an order.
type PlaceOrderInput struct {
	Buyer          identity.Actor
	CustomerName   string
	Items          []Item
	ShippingCost   decimal.Decimal
	Tax            decimal.Decimal
	CouponDiscount decimal.Decimal
}

// NewOrder validates the checkout data and builds a pending order with its first history entry.
func NewOrder(in PlaceOrderInput, now time.Time) (*Order, error) {
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrInvalidOrder)
	}

	subtotal := decimal.Zero
	items := make([]Item, len(in.Items))
	for i, item := range in.Items {
		if strings.TrimSpace(item.BookID) == "" {
			return nil, fmt.Errorf("%w: item %d has no book", ErrInvalidOrder, i)
		}
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: item %d quantity must be at least 1", ErrInvalidOrder, i)
		}
		if item.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: item %d has a negative price", ErrInvalidOrder, i)
		}
		if !IsMoney(item.UnitPrice) {
			return nil, fmt.Errorf("%w: item %d price has more than %d decimals", ErrInvalidOrder, i, MoneyScale)
		}
		items[i] = item
		subtotal = subtotal.Add(item.LineTotal())
	}

	for name, amount := range map[string]decimal.Decimal{
		"shipping cost":   in.ShippingCost,
		"tax":             in.Tax,
		"coupon discount": in.CouponDiscount,
	} {
		if amount.IsNegative() {
			return nil, fmt.Errorf("%w: %s cannot be negative", ErrInvalidOrder, name)
		}
		if !IsMoney(amount) {
			return nil, fmt.Errorf("%w: %s has more than %d decimals", ErrInvalidOrder, name, MoneyScale)
		}
	}

	gross := subtotal.Add(in.ShippingCost).Add(in.Tax)
	if in.CouponDiscount.GreaterThan(gross) {
		return nil, fmt.Errorf("%w: coupon discount exceeds order amount", ErrInvalidOrder)
	}

	now = now.UTC()
	order := &Order{
		ID:             uuid.NewString(),
		OrderNumber:    NewOrderNumber(now),
		BuyerID:        in.Buyer.ID,
		CustomerName:   in.CustomerName,
		Items:          items,
		Subtotal:       subtotal,
		ShippingCost:   in.ShippingCost,
		Tax:            in.Tax,
		CouponDiscount: in.CouponDiscount,
		Total:          gross.Sub(in.CouponDiscount),
		Status:         OrderStatusPending,
		PaymentStatus:  PaymentStatusPending,
		RefundedAmount: decimal.Zero,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if order.CustomerName == "" {
		order.CustomerName = in.Buyer.Name
	}
	order.StatusHistory = []StatusChange{{
		Status:    OrderStatusPending,
		Timestamp: now,
		ActorID:   in.Buyer.ID,
		ActorRole: in.Buyer.Role,
		Notes:     "order placed",
	}}

	return order, nil
}

// NewOrderNumber returns a human-readable order number such as ORD-20261017-1A2B3C4D.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}

// Valid reports whether p is a known payment status.
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// ApplyPayment records a gateway outcome. It returns false when nothing changed.
// Refunded is only reachable through the refund ledger.
func (o *Order) ApplyPayment(status PaymentStatus, now time.Time) (bool, error) {
	if !status.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidPaymentTransition, status)
	}
	if status == o.PaymentStatus {
		return false, nil
	}

	allowed := false
	switch o.PaymentStatus {
	case PaymentStatusPending:
		allowed = status == PaymentStatusPaid || status == PaymentStatusFailed
	case PaymentStatusFailed:
		allowed = status == PaymentStatusPaid
	}
	if !allowed {
		return false, fmt.Errorf("%w: %s to %s", ErrInvalidPaymentTransition, o.PaymentStatus, status)
	}

	o.PaymentStatus = status
	o.UpdatedAt = now
	return true, nil
}
