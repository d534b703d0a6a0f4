package adapter

import (
	"context"
	"fmt"
	"time"

	"order-settlement/internal/core/database"
	"order-settlement/internal/features/catalog/domain"

	"gorm.io/gorm"
)

const maxErrorLength = 1000

type outboxRecord struct {
	ID          string     `gorm:"primaryKey;size:36"`
	Topic       string     `gorm:"size:255;not null"`
	Key         string     `gorm:"column:event_key;size:64;not null"`
	Payload     []byte     `gorm:"not null"`
	CreatedAt   time.Time  `gorm:"not null;index:idx_outbox_pending"`
	PublishedAt *time.Time `gorm:"index:idx_outbox_pending"`
	Attempts    int        `gorm:"not null;default:0"`
	LastError   string     `gorm:"type:text"`
}

func (outboxRecord) TableName() string { return "outbox_events" }

// GormOutboxRepository implements ports.OutboxRepository.
type GormOutboxRepository struct {
	db *gorm.DB
}

// NewGormOutboxRepository creates a new instance of GormOutboxRepository.
func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

// Migrate creates or updates the outbox table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&outboxRecord{})
}

// Insert stores the event using the transaction in ctx, if any.
func (r *GormOutboxRepository) Insert(ctx context.Context, event *domain.OutboxEvent) error {
	rec := outboxRecord{
		ID:        event.ID,
		Topic:     event.Topic,
		Key:       event.Key,
		Payload:   event.Payload,
		CreatedAt: event.CreatedAt,
	}
	if err := database.Conn(ctx, r.db).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to insert outbox event %s: %w", event.ID, err)
	}
	return nil
}

// ListPending returns unpublished events, oldest first.
func (r *GormOutboxRepository) ListPending(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	var recs []outboxRecord
	err := database.Conn(ctx, r.db).
		Where("published_at IS NULL").
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending outbox events: %w", err)
	}

	events := make([]domain.OutboxEvent, 0, len(recs))
	for _, rec := range recs {
		events = append(events, domain.OutboxEvent{
			ID:          rec.ID,
			Topic:       rec.Topic,
			Key:         rec.Key,
			Payload:     rec.Payload,
			CreatedAt:   rec.CreatedAt,
			PublishedAt: rec.PublishedAt,
			Attempts:    rec.Attempts,
			LastError:   rec.LastError,
		})
	}
	return events, nil
}

// MarkPublished stamps the event as delivered.
func (r *GormOutboxRepository) MarkPublished(ctx context.Context, id string, at time.Time) error {
	err := database.Conn(ctx, r.db).Model(&outboxRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"published_at": at, "last_error": ""}).Error
	if err != nil {
		return fmt.Errorf("failed to mark outbox event %s published: %w", id, err)
	}
	return nil
}

// MarkFailed increments the attempt counter and keeps the last error.
func (r *GormOutboxRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	if len(reason) > maxErrorLength {
		reason = reason[:maxErrorLength]
	}
	err := database.Conn(ctx, r.db).Model(&outboxRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": reason,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark outbox event %s failed: %w", id, err)
	}
	return nil
}
