package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"order-settlement/internal/core/cache"
	"order-settlement/internal/features/settlements/domain"
)

const summaryKeyPrefix = "settlement:summary:"

// RedisSummaryCache implements ports.SummaryCache on top of the cache port.
type RedisSummaryCache struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewRedisSummaryCache creates a new RedisSummaryCache. A ttl of 0 keeps entries until invalidated.
func NewRedisSummaryCache(c cache.Cache, ttl time.Duration) *RedisSummaryCache {
	return &RedisSummaryCache{
		cache: c,
		ttl:   ttl,
	}
}

func sellerPrefix(sellerID string) string {
	return summaryKeyPrefix + sellerID + ":"
}

func summaryKey(sellerID string, period domain.Period) string {
	return fmt.Sprintf("%s%s:%s", sellerPrefix(sellerID), bound(period.From), bound(period.To))
}

func bound(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

// Get retrieves the cached summaries of a seller's period.
func (r *RedisSummaryCache) Get(ctx context.Context, sellerID string, period domain.Period) ([]domain.MonthlySummary, bool, error) {
	data, err := r.cache.Get(ctx, summaryKey(sellerID, period))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get summary from cache: %w", err)
	}

	var summaries []domain.MonthlySummary
	if err := json.Unmarshal(data, &summaries); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal summary: %w", err)
	}
	return summaries, true, nil
}

// Set stores the summaries of a seller's period.
func (r *RedisSummaryCache) Set(ctx context.Context, sellerID string, period domain.Period, summaries []domain.MonthlySummary) error {
	data, err := json.Marshal(summaries)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	if err := r.cache.Set(ctx, summaryKey(sellerID, period), data, r.ttl); err != nil {
		return fmt.Errorf("failed to save summary to cache: %w", err)
	}
	return nil
}

// InvalidateSeller removes every cached summary of the seller.
func (r *RedisSummaryCache) InvalidateSeller(ctx context.Context, sellerID string) error {
	if err := r.cache.DeletePrefix(ctx, sellerPrefix(sellerID)); err != nil {
		return fmt.Errorf("failed to invalidate summaries of seller %s: %w", sellerID, err)
	}
	return nil
}

// NopSummaryCache never stores anything. Used when no Redis is configured.
type NopSummaryCache struct{}

func (NopSummaryCache) Get(context.Context, string, domain.Period) ([]domain.MonthlySummary, bool, error) {
	return nil, false, nil
}

func (NopSummaryCache) Set(context.Context, string, domain.Period, []domain.MonthlySummary) error {
	return nil
}

func (NopSummaryCache) InvalidateSeller(context.Context, string) error { return nil }
