package service

import (
	"context"
	"fmt"
	"time"

	"order-settlement/internal/core/identity"
	"order-settlement/internal/core/logger"
	ordersdomain "order-settlement/internal/features/orders/domain"
	ordersports "order-settlement/internal/features/orders/ports"
	ordersservice "order-settlement/internal/features/orders/service"
	"order-settlement/internal/features/refunds/domain"
	"order-settlement/internal/features/refunds/ports"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RefundService maintains the refund ledger of orders.
type RefundService struct {
	repo   ports.RefundRepository
	orders ordersports.OrderRepository
	writer *ordersservice.OrderWriter
	now    func() time.Time
}

// NewRefundService creates a new instance of RefundService.
func NewRefundService(repo ports.RefundRepository, orders ordersports.OrderRepository, writer *ordersservice.OrderWriter) *RefundService {
	return &RefundService{
		repo:   repo,
		orders: orders,
		writer: writer,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Issue applies a refund to an order loaded in the caller's transaction and
// appends it to the ledger. The caller saves the order.
func (s *RefundService) Issue(ctx context.Context, order *ordersdomain.Order, amount decimal.Decimal, reason string, actor identity.Actor, markRefunded bool) error {
	_, err := s.issue(ctx, order, amount, reason, actor, markRefunded)
	return err
}

func (s *RefundService) issue(ctx context.Context, order *ordersdomain.Order, amount decimal.Decimal, reason string, actor identity.Actor, markRefunded bool) (domain.RefundRecord, error) {
	record, err := domain.Apply(order, amount, reason, actor, markRefunded, s.now())
	if err != nil {
		return domain.RefundRecord{}, err
	}

	if err := s.repo.Insert(ctx, record); err != nil {
		return domain.RefundRecord{}, fmt.Errorf("service: failed to record refund: %w", err)
	}

	logger.Get().Info("Refund recorded",
		zap.String("order_id", order.ID),
		zap.String("refund_id", record.ID),
		zap.String("amount", record.Amount.StringFixed(2)),
		zap.String("refunded_total", order.RefundedAmount.StringFixed(2)),
		zap.String("payment_status", string(order.PaymentStatus)),
		zap.String("actor_id", actor.ID),
	)

	return record, nil
}

// RecordRefund refunds part or all of the order's remaining balance.
// The ledger entry and the order's refundedAmount commit together.
func (s *RefundService) RecordRefund(
	ctx context.Context,
	orderID string,
	amount decimal.Decimal,
	reason string,
	actor identity.Actor,
	markRefunded bool,
	expectedVersion *int64,
) (*domain.RefundRecord, error) {
	var record domain.RefundRecord

	_, err := s.writer.Mutate(ctx, orderID, expectedVersion, func(ctx context.Context, order *ordersdomain.Order) (bool, error) {
		var err error
		record, err = s.issue(ctx, order, amount, reason, actor, markRefunded)
		if err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	return &record, nil
}

// ListRefunds returns the order's ledger, oldest first.
func (s *RefundService) ListRefunds(ctx context.Context, orderID string) ([]domain.RefundRecord, error) {
	if _, err := s.orders.GetByID(ctx, orderID); err != nil {
		return nil, err
	}

	records, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list refunds: %w", err)
	}
	return records, nil
}
