package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"order-settlement/internal/core/logger"
	ordersdomain "order-settlement/internal/features/orders/domain"
	ordersports "order-settlement/internal/features/orders/ports"
	"order-settlement/internal/features/payouts/domain"
	"order-settlement/internal/features/payouts/ports"

	"go.uber.org/zap"
)

// Outcome tells callers whether a settle request created payouts.
type Outcome string

const (
	// OutcomeSettled means payouts were created by this call.
	OutcomeSettled Outcome = "settled"
	// OutcomeAlreadySettled means the order had been settled before; nothing changed.
	OutcomeAlreadySettled Outcome = "already_settled"
)

// SettleResult is the result of an explicit settle request.
type SettleResult struct {
	Outcome Outcome               `json:"outcome"`
	Payouts []domain.PayoutRecord `json:"payouts"`
}

// PayoutService computes and stores seller payouts for delivered orders.
type PayoutService struct {
	repo        ports.PayoutRepository
	orders      ordersports.OrderRepository
	tx          ordersports.TxRunner
	sellers     ports.SellerDirectory
	invalidator ports.SummaryInvalidator
	calc        *domain.Calculator
	now         func() time.Time
}

// NewPayoutService creates a new instance of PayoutService.
func NewPayoutService(
	repo ports.PayoutRepository,
	orders ordersports.OrderRepository,
	tx ordersports.TxRunner,
	sellers ports.SellerDirectory,
	invalidator ports.SummaryInvalidator,
	calc *domain.Calculator,
) *PayoutService {
	return &PayoutService{
		repo:        repo,
		orders:      orders,
		tx:          tx,
		sellers:     sellers,
		invalidator: invalidator,
		calc:        calc,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SettleDelivery creates one due payout per seller of a delivered order and
// returns how many were created. An order settled before yields domain.ErrAlreadySettled.
// Call it inside the delivery transaction so the payouts commit with the status change,
// then InvalidateSummaries once that transaction has committed.
func (s *PayoutService) SettleDelivery(ctx context.Context, order *ordersdomain.Order) (int, error) {
	existing, err := s.repo.ListByOrder(ctx, order.ID)
	if err != nil {
		return 0, fmt.Errorf("service: failed to check existing payouts: %w", err)
	}
	if len(existing) > 0 {
		return 0, fmt.Errorf("%w: order %s has %d payouts", domain.ErrAlreadySettled, order.ID, len(existing))
	}

	payees, err := s.resolvePayees(ctx, order)
	if err != nil {
		return 0, err
	}

	records := s.calc.Calculate(order, func(sellerID string) string { return payees[sellerID] }, s.now())

	if err := s.repo.InsertAll(ctx, records); err != nil {
		if errors.Is(err, domain.ErrAlreadySettled) {
			return 0, err
		}
		return 0, fmt.Errorf("service: failed to store payouts: %w", err)
	}

	for _, r := range records {
		logger.Get().Info("Payout created",
			zap.String("order_id", order.ID),
			zap.String("seller_id", r.SellerID),
			zap.String("items_total", r.ItemsTotal.StringFixed(2)),
			zap.String("commission", r.AdminCommission.StringFixed(2)),
			zap.String("shipping", r.ShippingCharge.StringFixed(2)),
			zap.String("net", r.NetAmount.StringFixed(2)),
		)
	}

	return len(records), nil
}

// resolvePayees maps each seller of the order to the account paid for its items.
// Sellers unknown to the directory are paid to the platform payee.
func (s *PayoutService) resolvePayees(ctx context.Context, order *ordersdomain.Order) (map[string]string, error) {
	platform := s.calc.Config().PlatformPayeeID
	payees := make(map[string]string)

	for _, sellerID := range order.SellerIDs() {
		exists := false
		if strings.TrimSpace(sellerID) != "" {
			var err error
			exists, err = s.sellers.Exists(ctx, sellerID)
			if err != nil {
				return nil, fmt.Errorf("service: failed to resolve seller %s: %w", sellerID, err)
			}
		}

		if exists {
			payees[sellerID] = sellerID
			continue
		}

		payees[sellerID] = platform
		logger.Get().Warn("Seller missing, paying platform payee",
			zap.String("order_id", order.ID),
			zap.String("seller_id", sellerID),
			zap.String("payee_id", platform),
			zap.Error(domain.ErrSellerMissing),
		)
	}

	return payees, nil
}

// Settle settles a delivered order on request. Repeating it is safe and
// reports OutcomeAlreadySettled with the payouts created the first time.
func (s *PayoutService) Settle(ctx context.Context, orderID string) (*SettleResult, error) {
	result := &SettleResult{Outcome: OutcomeSettled}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		order, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != ordersdomain.OrderStatusDelivered {
			return fmt.Errorf("%w: order %s is %s", domain.ErrNotDelivered, order.ID, order.Status)
		}

		if _, err := s.SettleDelivery(ctx, order); err != nil {
			if !errors.Is(err, domain.ErrAlreadySettled) {
				return err
			}
			result.Outcome = OutcomeAlreadySettled
			logger.Get().Info("Order already settled", zap.String("order_id", order.ID))
		}

		result.Payouts, err = s.repo.ListByOrder(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if result.Outcome == OutcomeSettled {
		for _, p := range result.Payouts {
			s.invalidate(ctx, p.SellerID)
		}
	}

	return result, nil
}

// InvalidateSummaries drops the cached monthly summaries of every payee of the order.
// Run it after the transaction that created the payouts has committed.
func (s *PayoutService) InvalidateSummaries(ctx context.Context, orderID string) {
	if s.invalidator == nil {
		return
	}

	payouts, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		logger.Get().Warn("Failed to load payouts for summary invalidation",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return
	}

	for _, p := range payouts {
		s.invalidate(ctx, p.SellerID)
	}
}

func (s *PayoutService) invalidate(ctx context.Context, sellerID string) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.InvalidateSeller(ctx, sellerID); err != nil {
		logger.Get().Warn("Failed to invalidate settlement summary",
			zap.String("seller_id", sellerID),
			zap.Error(err),
		)
	}
}
