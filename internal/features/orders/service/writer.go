package service

import (
	"context"
	"errors"
	"fmt"

	"order-settlement/internal/core/logger"
	"order-settlement/internal/features/orders/domain"
	"order-settlement/internal/features/orders/ports"

	"go.uber.org/zap"
)

// MutateFunc changes a loaded order inside the write transaction.
// It reports whether the order row must be saved.
type MutateFunc func(ctx context.Context, order *domain.Order) (bool, error)

// OrderWriter serializes writes to one order with an optimistic version check.
type OrderWriter struct {
	repo ports.OrderRepository
	tx   ports.TxRunner
	// retries is the number of attempts on a version conflict for unpinned writes.
	retries int
}

// NewOrderWriter creates a new instance of OrderWriter.
func NewOrderWriter(repo ports.OrderRepository, tx ports.TxRunner, retries int) *OrderWriter {
	if retries < 1 {
		retries = 1
	}
	return &OrderWriter{repo: repo, tx: tx, retries: retries}
}

// Mutate loads the order, applies fn and saves it in one transaction.
// Version conflicts are retried unless the caller pinned expectedVersion,
// in which case domain.ErrStaleOrderVersion is returned as is.
func (w *OrderWriter) Mutate(ctx context.Context, id string, expectedVersion *int64, fn MutateFunc) (*domain.Order, error) {
	attempts := w.retries
	if expectedVersion != nil {
		attempts = 1
	}

	var result *domain.Order
	var err error

	for attempt := 1; attempt <= attempts; attempt++ {
		err = w.tx.WithinTx(ctx, func(ctx context.Context) error {
			order, err := w.repo.GetByID(ctx, id)
			if err != nil {
				return err
			}

			if expectedVersion != nil && order.Version != *expectedVersion {
				return fmt.Errorf("%w: expected version %d, found %d", domain.ErrStaleOrderVersion, *expectedVersion, order.Version)
			}

			changed, err := fn(ctx, order)
			if err != nil {
				return err
			}

			if changed {
				if err := w.repo.Update(ctx, order); err != nil {
					return err
				}
			}

			result = order
			return nil
		})

		if err == nil || !errors.Is(err, domain.ErrStaleOrderVersion) {
			break
		}

		logger.Get().Warn("Order version conflict",
			zap.String("order_id", id),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
		)
	}

	if err != nil {
		return nil, err
	}
	return result, nil
}
