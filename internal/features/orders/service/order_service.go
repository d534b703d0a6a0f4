package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"order-settlement/internal/core/identity"
	"order-settlement/internal/core/logger"
	"order-settlement/internal/features/orders/domain"
	"order-settlement/internal/features/orders/ports"
	payoutsdomain "order-settlement/internal/features/payouts/domain"

	"go.uber.org/zap"
)

// OrderService runs the order lifecycle: placement, status transitions and payment bookkeeping.
type OrderService struct {
	repo    ports.OrderRepository
	writer  *OrderWriter
	refunds ports.RefundIssuer
	settler ports.Settler
	stock   ports.StockRestorer
	now     func() time.Time
}

// NewOrderService creates a new instance of OrderService.
func NewOrderService(
	repo ports.OrderRepository,
	writer *OrderWriter,
	refunds ports.RefundIssuer,
	settler ports.Settler,
	stock ports.StockRestorer,
) *OrderService {
	return &OrderService{
		repo:    repo,
		writer:  writer,
		refunds: refunds,
		settler: settler,
		stock:   stock,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrder validates the checkout data and stores a new pending order.
func (s *OrderService) PlaceOrder(ctx context.Context, in domain.PlaceOrderInput) (*domain.Order, error) {
	order, err := domain.NewOrder(in, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("service: failed to place order: %w", err)
	}

	logger.Get().Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("buyer_id", order.BuyerID),
		zap.String("total", order.Total.StringFixed(2)),
	)

	return order, nil
}

// GetOrder returns the order if the actor may see it.
func (s *OrderService) GetOrder(ctx context.Context, id string, actor identity.Actor) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !order.VisibleTo(actor) {
		return nil, domain.ErrNotOrderOwner
	}

	return order, nil
}

// History returns the status history of an order visible to the actor.
func (s *OrderService) History(ctx context.Context, id string, actor identity.Actor) ([]domain.StatusChange, error) {
	if _, err := s.GetOrder(ctx, id, actor); err != nil {
		return nil, err
	}

	history, err := s.repo.History(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load history: %w", err)
	}
	return history, nil
}

// Transition moves the order to req.Target. A cancellation records the automatic
// refund and the stock-restoration event, a delivery computes seller payouts;
// both commit together with the status change.
// expectedVersion pins the write to a revision the client has seen.
func (s *OrderService) Transition(ctx context.Context, id string, req domain.TransitionRequest, expectedVersion *int64) (*domain.Order, error) {
	var plan domain.TransitionPlan

	order, err := s.writer.Mutate(ctx, id, expectedVersion, func(ctx context.Context, order *domain.Order) (bool, error) {
		var err error
		plan, err = order.PlanTransition(req)
		if err != nil {
			return false, err
		}

		change, changed := order.ApplyTransition(plan, req, s.now())
		if !changed {
			return false, nil
		}

		if plan.RefundAmount.IsPositive() {
			if err := s.refunds.Issue(ctx, order, plan.RefundAmount, cancellationReason(req), req.Actor, false); err != nil {
				return false, fmt.Errorf("service: failed to refund cancelled order: %w", err)
			}
		}

		if plan.RestoreStock {
			if err := s.stock.EnqueueStockRestoration(ctx, order, cancellationReason(req)); err != nil {
				return false, fmt.Errorf("service: failed to enqueue stock restoration: %w", err)
			}
		}

		if plan.Settle {
			created, err := s.settler.SettleDelivery(ctx, order)
			if err != nil && !errors.Is(err, payoutsdomain.ErrAlreadySettled) {
				return false, fmt.Errorf("service: failed to settle delivered order: %w", err)
			}
			logger.Get().Info("Order settled",
				zap.String("order_id", order.ID),
				zap.Int("payouts", created),
			)
		}

		if err := s.repo.AppendHistory(ctx, order.ID, change); err != nil {
			return false, err
		}

		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if plan.NoOp {
		logger.Get().Debug("Status unchanged",
			zap.String("order_id", order.ID),
			zap.String("status", string(order.Status)),
		)
		return order, nil
	}

	logger.Get().Info("Order status changed",
		zap.String("order_id", order.ID),
		zap.String("from", string(plan.From)),
		zap.String("to", string(plan.To)),
		zap.String("actor_id", req.Actor.ID),
		zap.String("refund", plan.RefundAmount.StringFixed(2)),
	)

	if plan.Settle {
		s.settler.InvalidateSummaries(ctx, order.ID)
	}

	if plan.RestoreStock {
		if err := s.stock.Relay(ctx); err != nil {
			logger.Get().Warn("Stock restoration relay deferred",
				zap.String("order_id", order.ID),
				zap.Error(err),
			)
		}
	}

	return order, nil
}

// Cancel cancels the order on behalf of actor.
func (s *OrderService) Cancel(ctx context.Context, id string, actor identity.Actor, reason, notes string, expectedVersion *int64) (*domain.Order, error) {
	return s.Transition(ctx, id, domain.TransitionRequest{
		Target: domain.OrderStatusCancelled,
		Actor:  actor,
		Reason: reason,
		Notes:  notes,
	}, expectedVersion)
}

// RecordPayment applies a payment gateway outcome to the order.
func (s *OrderService) RecordPayment(ctx context.Context, id string, status domain.PaymentStatus, actor identity.Actor, expectedVersion *int64) (*domain.Order, error) {
	order, err := s.writer.Mutate(ctx, id, expectedVersion, func(ctx context.Context, order *domain.Order) (bool, error) {
		return order.ApplyPayment(status, s.now())
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Info("Payment status recorded",
		zap.String("order_id", order.ID),
		zap.String("payment_status", string(order.PaymentStatus)),
		zap.String("actor_id", actor.ID),
	)

	return order, nil
}

func cancellationReason(req domain.TransitionRequest) string {
	if req.Reason != "" {
		return req.Reason
	}
	return "order cancelled by " + string(req.Actor.Role)
}
