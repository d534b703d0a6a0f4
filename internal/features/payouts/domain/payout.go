package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PayoutStatus is the settlement state of a payout.
type PayoutStatus string

const (
	// PayoutStatusPending is a payout computed but not yet released for payment.
	PayoutStatusPending PayoutStatus = "pending"
	// PayoutStatusDue is a payout owed to the seller.
	PayoutStatusDue PayoutStatus = "due"
	// PayoutStatusPaid is a payout transferred to the seller.
	PayoutStatusPaid PayoutStatus = "paid"
)

// Valid reports whether s is a known payout status.
func (s PayoutStatus) Valid() bool {
	return s == PayoutStatusPending || s == PayoutStatusDue || s == PayoutStatusPaid
}

// PayoutRecord is one seller's settlement for one delivered order.
type PayoutRecord struct {
	ID              string          `json:"id"`
	OrderID         string          `json:"orderId"`
	OrderNumber     string          `json:"orderNumber"`
	CustomerName    string          `json:"customer"`
	SellerID        string          `json:"sellerId"`
	ItemsTotal      decimal.Decimal `json:"itemsTotal"`
	CommissionRate  decimal.Decimal `json:"commissionRate"`
	AdminCommission decimal.Decimal `json:"adminCommission"`
	ShippingCharge  decimal.Decimal `json:"shippingCharges"`
	NetAmount       decimal.Decimal `json:"netAmount"`
	PaymentStatus   PayoutStatus    `json:"paymentStatus"`
	PaidAt          *time.Time      `json:"paidAt"`
	PaidBy          string          `json:"paidBy,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// MarkPaid moves a pending or due payout to paid.
func (p *PayoutRecord) MarkPaid(actorID, notes string, now time.Time) error {
	if p.PaymentStatus == PayoutStatusPaid {
		return fmt.Errorf("%w: payout %s", ErrAlreadyPaid, p.ID)
	}

	p.PaymentStatus = PayoutStatusPaid
	p.PaidAt = &now
	p.PaidBy = actorID
	if notes != "" {
		p.Notes = notes
	}
	return nil
}
