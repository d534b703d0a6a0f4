package adapter

import (
	"context"
	"fmt"
	"time"

	"order-settlement/internal/core/database"
	"order-settlement/internal/features/refunds/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type refundRecord struct {
	ID          string          `gorm:"primaryKey;size:36"`
	OrderID     string          `gorm:"size:36;index;not null"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Reason      string          `gorm:"type:text"`
	ProcessedBy string          `gorm:"size:64;not null"`
	ProcessedAt time.Time       `gorm:"not null;index"`
	Seq         int64           `gorm:"not null"`
}

func (refundRecord) TableName() string { return "refunds" }

// GormRepository implements ports.RefundRepository.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new instance of GormRepository.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Migrate creates or updates the refunds table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&refundRecord{})
}

// Insert appends a record to the ledger.
func (r *GormRepository) Insert(ctx context.Context, record domain.RefundRecord) error {
	conn := database.Conn(ctx, r.db)

	var count int64
	if err := conn.Model(&refundRecord{}).Where("order_id = ?", record.OrderID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count refunds for order %s: %w", record.OrderID, err)
	}

	rec := refundRecord{
		ID:          record.ID,
		OrderID:     record.OrderID,
		Amount:      record.Amount,
		Reason:      record.Reason,
		ProcessedBy: record.ProcessedBy,
		ProcessedAt: record.ProcessedAt,
		Seq:         count + 1,
	}
	if err := conn.Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to insert refund for order %s: %w", record.OrderID, err)
	}
	return nil
}

// ListByOrder returns the ledger of one order in insertion order.
func (r *GormRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.RefundRecord, error) {
	var recs []refundRecord
	if err := database.Conn(ctx, r.db).Where("order_id = ?", orderID).Order("seq ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list refunds for order %s: %w", orderID, err)
	}

	records := make([]domain.RefundRecord, 0, len(recs))
	for _, rec := range recs {
		records = append(records, domain.RefundRecord{
			ID:          rec.ID,
			OrderID:     rec.OrderID,
			Amount:      rec.Amount,
			Reason:      rec.Reason,
			ProcessedBy: rec.ProcessedBy,
			ProcessedAt: rec.ProcessedAt.UTC(),
		})
	}
	return records, nil
}
