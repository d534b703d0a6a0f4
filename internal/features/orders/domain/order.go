package domain

import (
	"time"

	"order-settlement/internal/core/identity"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the current state of an order.
type OrderStatus string

const (
	// OrderStatusPending indicates the order was placed and awaits confirmation.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed indicates the order was accepted.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusProcessing indicates the items are being packed.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped indicates the order has been handed to the carrier.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered indicates the order reached the buyer.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled indicates the order was cancelled before shipping.
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusReturned indicates the shipment came back to the seller.
	OrderStatusReturned OrderStatus = "returned"
)

// PaymentStatus represents the state of the buyer's payment.
type PaymentStatus string

const (
	// PaymentStatusPending indicates no gateway outcome has been recorded.
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusPaid indicates the gateway captured the payment.
	PaymentStatusPaid PaymentStatus = "paid"
	// PaymentStatusFailed indicates the gateway rejected the payment.
	PaymentStatusFailed PaymentStatus = "failed"
	// PaymentStatusRefunded indicates the payment was returned to the buyer.
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Item is a line of an order. Items never change once the order is placed.
type Item struct {
	// BookID identifies the catalog entry.
	BookID string `json:"bookId"`
	// SellerID identifies the seller who fulfils the line.
	SellerID string `json:"sellerId"`
	// Title is the book title at checkout time.
	Title string `json:"title,omitempty"`
	// UnitPrice is the price of a single copy.
	UnitPrice decimal.Decimal `json:"unitPrice"`
	// Quantity is the number of copies.
	Quantity int `json:"quantity"`
}

// MoneyScale is the number of decimal places every stored amount carries.
const MoneyScale = 2

// IsMoney reports whether d fits MoneyScale without rounding.
func IsMoney(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyScale))
}

// LineTotal returns UnitPrice × Quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// StatusChange is one entry of an order's append-only status history.
type StatusChange struct {
	// Status is the status the order entered.
	Status OrderStatus `json:"status"`
	// Timestamp is when the change was recorded.
	Timestamp time.Time `json:"timestamp"`
	// ActorID is who requested the change.
	ActorID string `json:"actorId"`
	// ActorRole is the role the actor acted in.
	ActorRole identity.Role `json:"actorRole"`
	// Notes carries the free-text notes or cancellation reason.
	Notes string `json:"notes,omitempty"`
}

// Order is a buyer's purchase, referenced by every seller whose items it contains.
type Order struct {
	// ID is the unique identifier for the order.
	ID string `json:"id"`
	// OrderNumber is the human-readable unique number shown to buyers and sellers.
	OrderNumber string `json:"orderNumber"`
	// BuyerID is the customer who owns the order.
	BuyerID string `json:"buyerId"`
	// CustomerName is the buyer's display name.
	CustomerName string `json:"customerName"`
	// Items are the purchased lines, in checkout order.
	Items []Item `json:"items"`
	// Subtotal is the sum of all line totals.
	Subtotal decimal.Decimal `json:"subtotal"`
	// ShippingCost is the shipping charged to the buyer.
	ShippingCost decimal.Decimal `json:"shippingCost"`
	// Tax is the tax charged to the buyer.
	Tax decimal.Decimal `json:"tax"`
	// CouponDiscount is the discount granted by the coupon service.
	CouponDiscount decimal.Decimal `json:"couponDiscount"`
	// Total is Subtotal + ShippingCost + Tax − CouponDiscount, fixed at placement.
	Total decimal.Decimal `json:"total"`
	// Status is the lifecycle status.
	Status OrderStatus `json:"orderStatus"`
	// PaymentStatus is the payment state.
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	// RefundedAmount is the cumulative amount refunded so far.
	RefundedAmount decimal.Decimal `json:"refundedAmount"`
	// TrackingNumber is the carrier's shipment identifier.
	TrackingNumber string `json:"trackingNumber,omitempty"`
	// Courier is the carrier name used to route tracking lookups.
	Courier string `json:"courier,omitempty"`
	// StatusHistory is the append-only audit trail.
	StatusHistory []StatusChange `json:"statusHistory"`
	// Version is the optimistic-concurrency revision.
	Version int64 `json:"version"`
	// CreatedAt is the timestamp when the order was placed.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the timestamp of the last change.
	UpdatedAt time.Time `json:"updatedAt"`
}

// RemainingBalance returns Total − RefundedAmount.
func (o *Order) RemainingBalance() decimal.Decimal {
	return o.Total.Sub(o.RefundedAmount)
}

// SellerIDs returns the distinct sellers of the order in first-appearance order.
func (o *Order) SellerIDs() []string {
	seen := make(map[string]struct{}, len(o.Items))
	ids := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		if _, ok := seen[item.SellerID]; ok {
			continue
		}
		seen[item.SellerID] = struct{}{}
		ids = append(ids, item.SellerID)
	}
	return ids
}

// OwnedBy reports whether the actor is the buyer of the order.
func (o *Order) OwnedBy(actor identity.Actor) bool {
	return o.BuyerID == actor.ID
}

// VisibleTo reports whether the actor may read the order: admins always,
// customers when they own it, sellers when it contains one of their items.
func (o *Order) VisibleTo(actor identity.Actor) bool {
	switch actor.Role {
	case identity.RoleAdmin:
		return true
	case identity.RoleCustomer:
		return o.OwnedBy(actor)
	case identity.RoleSeller:
		for _, item := range o.Items {
			if item.SellerID == actor.ID {
				return true
			}
		}
	}
	return false
}
