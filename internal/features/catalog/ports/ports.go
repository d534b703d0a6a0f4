package ports

import (
	"context"
	"time"

	"order-settlement/internal/features/catalog/domain"
)

// OutboxRepository stores events until they are relayed.
type OutboxRepository interface {
	// Insert stores the event in the caller's transaction.
	Insert(ctx context.Context, event *domain.OutboxEvent) error
	// ListPending returns up to limit unpublished events, oldest first.
	ListPending(ctx context.Context, limit int) ([]domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, at time.Time) error
	// MarkFailed records a failed attempt; the event stays pending.
	MarkFailed(ctx context.Context, id string, reason string) error
}

// Publisher delivers an event payload to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
	Close() error
}
