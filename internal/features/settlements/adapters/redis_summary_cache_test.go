package adapter

import (
	"context"
	"testing"
	"time"

	"order-settlement/internal/core/cache"
	payoutsdomain "order-settlement/internal/features/payouts/domain"
	"order-settlement/internal/features/settlements/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*RedisSummaryCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	adapter, err := cache.NewRedisAdapter("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { adapter.Close() })

	return NewRedisSummaryCache(adapter, ttl), mr
}

func october() domain.Period {
	return domain.Period{
		From: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 10, 31, 23, 59, 59, 0, time.UTC),
	}
}

func TestRedisSummaryCache_SetGet(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, found, err := c.Get(ctx, "X", october())
	require.NoError(t, err)
	assert.False(t, found)

	summaries := domain.Summarize([]payoutsdomain.PayoutRecord{{
		OrderID:       "o1",
		NetAmount:     decimal.RequireFromString("33.60"),
		PaymentStatus: payoutsdomain.PayoutStatusDue,
		CreatedAt:     time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC),
	}})
	require.NoError(t, c.Set(ctx, "X", october(), summaries))

	got, found, err := c.Get(ctx, "X", october())
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got, 1)
	assert.Equal(t, "2026-10", got[0].Month)
	assert.Equal(t, "33.60", got[0].NetAmount.StringFixed(2))
	assert.Equal(t, 1, got[0].ByStatus[payoutsdomain.PayoutStatusDue].Count)

	_, found, err = c.Get(ctx, "X", domain.Period{})
	require.NoError(t, err)
	assert.False(t, found, "a different period is a separate entry")

	mr.FastForward(2 * time.Minute)
	_, found, err = c.Get(ctx, "X", october())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisSummaryCache_InvalidateSeller(t *testing.T) {
	c, _ := newTestCache(t, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "X", october(), []domain.MonthlySummary{}))
	require.NoError(t, c.Set(ctx, "X", domain.Period{}, []domain.MonthlySummary{}))
	require.NoError(t, c.Set(ctx, "XY", october(), []domain.MonthlySummary{}))

	require.NoError(t, c.InvalidateSeller(ctx, "X"))

	_, found, _ := c.Get(ctx, "X", october())
	assert.False(t, found)
	_, found, _ = c.Get(ctx, "X", domain.Period{})
	assert.False(t, found)
	_, found, _ = c.Get(ctx, "XY", october())
	assert.True(t, found, "seller ids sharing a prefix are left alone")
}

func TestRedisSummaryCache_Unreachable(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	mr.Close()

	_, _, err := c.Get(context.Background(), "X", october())
	assert.Error(t, err)
}
