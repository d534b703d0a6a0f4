package domain

import (
	"testing"
	"time"

	payoutsdomain "order-settlement/internal/features/payouts/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payout(orderID string, created time.Time, status payoutsdomain.PayoutStatus, net string) payoutsdomain.PayoutRecord {
	return payoutsdomain.PayoutRecord{
		OrderID:         orderID,
		SellerID:        "X",
		ItemsTotal:      decimal.RequireFromString(net),
		AdminCommission: decimal.Zero,
		ShippingCharge:  decimal.Zero,
		NetAmount:       decimal.RequireFromString(net),
		PaymentStatus:   status,
		CreatedAt:       created,
	}
}

func TestSummarize_GroupsByUTCMonth(t *testing.T) {
	bogota := time.FixedZone("COT", -5*3600)
	records := []payoutsdomain.PayoutRecord{
		payout("o1", time.Date(2026, 10, 2, 9, 0, 0, 0, time.UTC), payoutsdomain.PayoutStatusDue, "100.00"),
		payout("o2", time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC), payoutsdomain.PayoutStatusPaid, "50.25"),
		// 2026-09-30 21:00 in Bogota is already October in UTC.
		payout("o3", time.Date(2026, 9, 30, 21, 0, 0, 0, bogota), payoutsdomain.PayoutStatusDue, "10.00"),
		payout("o4", time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), payoutsdomain.PayoutStatusPending, "7.50"),
	}

	got := Summarize(records)
	require.Len(t, got, 2)

	sep, oct := got[0], got[1]
	assert.Equal(t, "2026-09", sep.Month)
	assert.Equal(t, 1, sep.Orders)
	assert.Equal(t, "7.50", sep.NetAmount.StringFixed(2))
	assert.Equal(t, 1, sep.ByStatus[payoutsdomain.PayoutStatusPending].Count)
	assert.Equal(t, 0, sep.ByStatus[payoutsdomain.PayoutStatusPaid].Count)

	assert.Equal(t, "2026-10", oct.Month)
	assert.Equal(t, 3, oct.Orders)
	assert.Equal(t, "160.25", oct.NetAmount.StringFixed(2))
	assert.Equal(t, 2, oct.ByStatus[payoutsdomain.PayoutStatusDue].Count)
	assert.Equal(t, "110.00", oct.ByStatus[payoutsdomain.PayoutStatusDue].NetAmount.StringFixed(2))
	assert.Equal(t, "50.25", oct.ByStatus[payoutsdomain.PayoutStatusPaid].NetAmount.StringFixed(2))
	assert.Len(t, oct.ByStatus, 3)
}

func TestSummarize_Empty(t *testing.T) {
	got := Summarize(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPeriod_Validate(t *testing.T) {
	now := time.Now()
	assert.NoError(t, Period{}.Validate())
	assert.NoError(t, Period{From: now}.Validate())
	assert.NoError(t, Period{From: now, To: now}.Validate())
	assert.ErrorIs(t, Period{From: now, To: now.Add(-time.Hour)}.Validate(), ErrInvalidRange)
}
