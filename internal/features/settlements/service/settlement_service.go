package service

import (
	"context"
	"fmt"
	"time"

	"order-settlement/internal/core/identity"
	"order-settlement/internal/core/logger"
	ordersports "order-settlement/internal/features/orders/ports"
	payoutsdomain "order-settlement/internal/features/payouts/domain"
	payoutsports "order-settlement/internal/features/payouts/ports"
	"order-settlement/internal/features/settlements/domain"
	"order-settlement/internal/features/settlements/ports"

	"go.uber.org/zap"
)

// MaxPageSize caps the page size a client may request.
const MaxPageSize = 100

// SettlementService serves payout reports and payout status changes.
type SettlementService struct {
	repo     payoutsports.PayoutRepository
	tx       ordersports.TxRunner
	cache    ports.SummaryCache
	exporter ports.Exporter
	pageSize int
	now      func() time.Time
}

// NewSettlementService creates a new instance of SettlementService.
func NewSettlementService(
	repo payoutsports.PayoutRepository,
	tx ordersports.TxRunner,
	cache ports.SummaryCache,
	exporter ports.Exporter,
	pageSize int,
) *SettlementService {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &SettlementService{
		repo:     repo,
		tx:       tx,
		cache:    cache,
		exporter: exporter,
		pageSize: pageSize,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ListPayouts returns one page of payouts. page starts at 1; limit <= 0 uses the configured page size.
func (s *SettlementService) ListPayouts(ctx context.Context, filter payoutsports.PayoutFilter, page, limit int) (*domain.Page, error) {
	if err := (domain.Period{From: filter.From, To: filter.To}).Validate(); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = s.pageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	payouts, total, err := s.repo.List(ctx, filter, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list payouts: %w", err)
	}
	if payouts == nil {
		payouts = []payoutsdomain.PayoutRecord{}
	}

	return &domain.Page{Payouts: payouts, Total: total, Page: page, Limit: limit}, nil
}

// MonthlySummary returns the seller's payouts grouped by month, served from cache when present.
func (s *SettlementService) MonthlySummary(ctx context.Context, sellerID string, period domain.Period) ([]domain.MonthlySummary, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}

	log := logger.Get()

	cached, found, err := s.cache.Get(ctx, sellerID, period)
	if err != nil {
		log.Warn("Summary cache read failed", zap.String("seller_id", sellerID), zap.Error(err))
	}
	if found {
		return cached, nil
	}

	records, err := s.repo.ListAll(ctx, payoutsports.PayoutFilter{SellerID: sellerID, From: period.From, To: period.To})
	if err != nil {
		return nil, fmt.Errorf("service: failed to load payouts: %w", err)
	}

	summaries := domain.Summarize(records)
	if err := s.cache.Set(ctx, sellerID, period, summaries); err != nil {
		log.Warn("Summary cache write failed", zap.String("seller_id", sellerID), zap.Error(err))
	}

	return summaries, nil
}

// MarkPaid moves a payout to paid and drops the seller's cached summaries.
func (s *SettlementService) MarkPaid(ctx context.Context, payoutID string, actor identity.Actor, notes string) (*payoutsdomain.PayoutRecord, error) {
	var record *payoutsdomain.PayoutRecord

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetByID(ctx, payoutID)
		if err != nil {
			return err
		}
		if err := p.MarkPaid(actor.ID, notes, s.now()); err != nil {
			return err
		}
		if err := s.repo.MarkPaid(ctx, p); err != nil {
			return err
		}
		record = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service: failed to mark payout paid: %w", err)
	}

	logger.Get().Info("Payout marked paid",
		zap.String("payout_id", record.ID),
		zap.String("order_id", record.OrderID),
		zap.String("seller_id", record.SellerID),
		zap.String("net_amount", record.NetAmount.StringFixed(2)),
		zap.String("paid_by", actor.ID),
	)

	if err := s.cache.InvalidateSeller(ctx, record.SellerID); err != nil {
		logger.Get().Warn("Summary cache invalidation failed", zap.String("seller_id", record.SellerID), zap.Error(err))
	}

	return record, nil
}

// Export renders the seller's payouts of a period and returns the document with its MIME type.
func (s *SettlementService) Export(ctx context.Context, sellerID string, period domain.Period) ([]byte, string, error) {
	if err := period.Validate(); err != nil {
		return nil, "", err
	}

	records, err := s.repo.ListAll(ctx, payoutsports.PayoutFilter{SellerID: sellerID, From: period.From, To: period.To})
	if err != nil {
		return nil, "", fmt.Errorf("service: failed to load payouts: %w", err)
	}

	data, err := s.exporter.Export(records, domain.Summarize(records))
	if err != nil {
		return nil, "", fmt.Errorf("service: failed to export payouts: %w", err)
	}

	return data, s.exporter.ContentType(), nil
}
