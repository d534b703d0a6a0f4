package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"order-settlement/internal/core/logger"
	"order-settlement/internal/features/catalog/domain"
	"order-settlement/internal/features/catalog/ports"
	ordersdomain "order-settlement/internal/features/orders/domain"

	"go.uber.org/zap"
)

// DefaultBatchSize bounds how many events one flush publishes.
const DefaultBatchSize = 100

// StockRelay records stock-restoration events in the outbox and relays them to the catalog.
type StockRelay struct {
	repo      ports.OutboxRepository
	publisher ports.Publisher
	topic     string
	batchSize int
	now       func() time.Time

	// flushing serialises relays so one event is never published twice concurrently.
	flushing sync.Mutex
}

// NewStockRelay creates a new instance of StockRelay.
func NewStockRelay(repo ports.OutboxRepository, publisher ports.Publisher, topic string, batchSize int) *StockRelay {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &StockRelay{
		repo:      repo,
		publisher: publisher,
		topic:     topic,
		batchSize: batchSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// EnqueueStockRestoration stores the event for a cancelled order. Call it inside the
// cancellation transaction.
func (s *StockRelay) EnqueueStockRestoration(ctx context.Context, order *ordersdomain.Order, reason string) error {
	event, err := domain.NewStockRestorationEvent(order, reason, s.topic, s.now())
	if err != nil {
		return err
	}
	if err := s.repo.Insert(ctx, event); err != nil {
		return fmt.Errorf("service: failed to enqueue stock restoration: %w", err)
	}
	return nil
}

// Relay publishes pending events and reports only storage failures.
func (s *StockRelay) Relay(ctx context.Context) error {
	_, err := s.Flush(ctx)
	return err
}

// Flush publishes up to one batch of pending events, oldest first. A failed publish
// is recorded on the event, which stays pending for the next flush.
func (s *StockRelay) Flush(ctx context.Context) (domain.FlushResult, error) {
	s.flushing.Lock()
	defer s.flushing.Unlock()

	var result domain.FlushResult
	log := logger.Named("outbox")

	events, err := s.repo.ListPending(ctx, s.batchSize)
	if err != nil {
		return result, fmt.Errorf("service: failed to load outbox: %w", err)
	}

	for _, e := range events {
		if err := s.publisher.Publish(ctx, e.Topic, e.Key, e.Payload); err != nil {
			result.Failed++
			log.Warn("Outbox publish failed",
				zap.String("event_id", e.ID),
				zap.String("key", e.Key),
				zap.Int("attempts", e.Attempts+1),
				zap.Error(err),
			)
			if err := s.repo.MarkFailed(ctx, e.ID, err.Error()); err != nil {
				return result, fmt.Errorf("service: failed to record publish failure: %w", err)
			}
			continue
		}

		if err := s.repo.MarkPublished(ctx, e.ID, s.now()); err != nil {
			return result, fmt.Errorf("service: failed to mark event published: %w", err)
		}
		result.Published++
	}

	if len(events) > 0 {
		log.Info("Outbox flushed",
			zap.Int("published", result.Published),
			zap.Int("failed", result.Failed),
		)
	}
	return result, nil
}
