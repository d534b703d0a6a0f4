package domain

import (
	"errors"
	"sort"
	"time"

	payoutsdomain "order-settlement/internal/features/payouts/domain"

	"github.com/shopspring/decimal"
)

// MonthLayout formats the month key of a summary.
const MonthLayout = "2006-01"

// ErrInvalidRange is returned when a period's start falls after its end.
var ErrInvalidRange = errors.New("invalid date range")

// StatusTotals aggregates the payouts of one status within a month.
type StatusTotals struct {
	Count     int             `json:"count"`
	NetAmount decimal.Decimal `json:"netAmount"`
}

// MonthlySummary rolls up a seller's payouts for one calendar month (UTC).
type MonthlySummary struct {
	Month           string                                     `json:"month"`
	Orders          int                                        `json:"orders"`
	ItemsTotal      decimal.Decimal                            `json:"itemsTotal"`
	AdminCommission decimal.Decimal                            `json:"adminCommission"`
	ShippingCharges decimal.Decimal                            `json:"shippingCharges"`
	NetAmount       decimal.Decimal                            `json:"netAmount"`
	ByStatus        map[payoutsdomain.PayoutStatus]StatusTotals `json:"byStatus"`
}

// Period bounds a report by payout creation time. Zero bounds are open.
type Period struct {
	From time.Time
	To   time.Time
}

// Validate rejects a period whose start falls after its end.
func (p Period) Validate() error {
	if !p.From.IsZero() && !p.To.IsZero() && p.From.After(p.To) {
		return ErrInvalidRange
	}
	return nil
}

func newMonthlySummary(month string) *MonthlySummary {
	return &MonthlySummary{
		Month: month,
		ByStatus: map[payoutsdomain.PayoutStatus]StatusTotals{
			payoutsdomain.PayoutStatusPending: {NetAmount: decimal.Zero},
			payoutsdomain.PayoutStatusDue:     {NetAmount: decimal.Zero},
			payoutsdomain.PayoutStatusPaid:    {NetAmount: decimal.Zero},
		},
	}
}

// Summarize groups payouts by the UTC calendar month of their creation, oldest month first.
func Summarize(records []payoutsdomain.PayoutRecord) []MonthlySummary {
	byMonth := make(map[string]*MonthlySummary)
	orders := make(map[string]map[string]struct{})

	for _, r := range records {
		month := r.CreatedAt.UTC().Format(MonthLayout)
		s, ok := byMonth[month]
		if !ok {
			s = newMonthlySummary(month)
			byMonth[month] = s
			orders[month] = make(map[string]struct{})
		}

		orders[month][r.OrderID] = struct{}{}
		s.ItemsTotal = s.ItemsTotal.Add(r.ItemsTotal)
		s.AdminCommission = s.AdminCommission.Add(r.AdminCommission)
		s.ShippingCharges = s.ShippingCharges.Add(r.ShippingCharge)
		s.NetAmount = s.NetAmount.Add(r.NetAmount)

		st := s.ByStatus[r.PaymentStatus]
		st.Count++
		st.NetAmount = st.NetAmount.Add(r.NetAmount)
		s.ByStatus[r.PaymentStatus] = st
	}

	out := make([]MonthlySummary, 0, len(byMonth))
	for month, s := range byMonth {
		s.Orders = len(orders[month])
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// Page is one page of a payout listing.
type Page struct {
	Payouts []payoutsdomain.PayoutRecord `json:"payouts"`
	Total   int64                        `json:"total"`
	Page    int                          `json:"page"`
	Limit   int                          `json:"limit"`
}
