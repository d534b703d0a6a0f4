package domain

import (
	"time"

	ordersdomain "order-settlement/internal/features/orders/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Config is the platform payout policy.
type Config struct {
	// CommissionRate is a percentage of the seller's item sales, e.g. 2.5.
	CommissionRate decimal.Decimal
	// Policy splits the order's shipping cost between sellers.
	Policy AllocationPolicy
	// PlatformPayeeID receives payouts of sellers that no longer exist.
	PlatformPayeeID string
}

// Calculator derives per-seller payouts of a delivered order.
type Calculator struct {
	cfg Config
}

// NewCalculator creates a Calculator. A nil policy means proportional allocation.
func NewCalculator(cfg Config) *Calculator {
	if cfg.Policy == nil {
		cfg.Policy = ProportionalPolicy{}
	}
	return &Calculator{cfg: cfg}
}

// Config returns the policy the calculator applies.
func (c *Calculator) Config() Config {
	return c.cfg
}

// Commission returns itemsTotal × rate / 100 rounded to 2 decimals.
func (c *Calculator) Commission(itemsTotal decimal.Decimal) decimal.Decimal {
	return itemsTotal.Mul(c.cfg.CommissionRate).Div(hundred).Round(2)
}

type sellerGroup struct {
	sellerID   string
	itemsTotal decimal.Decimal
}

// Calculate returns one due payout per payee of the order, in first-appearance order.
// payee maps an item's seller to the account credited with its sales.
func (c *Calculator) Calculate(order *ordersdomain.Order, payee func(sellerID string) string, now time.Time) []PayoutRecord {
	var groups []*sellerGroup
	index := make(map[string]*sellerGroup)

	for _, item := range order.Items {
		id := payee(item.SellerID)
		g, ok := index[id]
		if !ok {
			g = &sellerGroup{sellerID: id, itemsTotal: decimal.Zero}
			index[id] = g
			groups = append(groups, g)
		}
		g.itemsTotal = g.itemsTotal.Add(item.LineTotal())
	}

	totals := make([]decimal.Decimal, len(groups))
	for i, g := range groups {
		totals[i] = g.itemsTotal
	}
	shipping := c.cfg.Policy.Allocate(order.ShippingCost, totals)

	records := make([]PayoutRecord, 0, len(groups))
	for i, g := range groups {
		commission := c.Commission(g.itemsTotal)
		net := g.itemsTotal.Sub(commission).Sub(shipping[i])
		if net.IsNegative() {
			net = decimal.Zero
		}

		records = append(records, PayoutRecord{
			ID:              uuid.NewString(),
			OrderID:         order.ID,
			OrderNumber:     order.OrderNumber,
			CustomerName:    order.CustomerName,
			SellerID:        g.sellerID,
			ItemsTotal:      g.itemsTotal,
			CommissionRate:  c.cfg.CommissionRate,
			AdminCommission: commission,
			ShippingCharge:  shipping[i],
			NetAmount:       net,
			PaymentStatus:   PayoutStatusDue,
			CreatedAt:       now,
		})
	}

	return records
}
