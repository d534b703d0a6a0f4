package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"order-settlement/internal/core/database"
	"order-settlement/internal/features/payouts/domain"
	"order-settlement/internal/features/payouts/ports"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type payoutRecord struct {
	ID              string          `gorm:"primaryKey;size:36"`
	OrderID         string          `gorm:"size:36;not null;uniqueIndex:idx_payout_order_seller"`
	SellerID        string          `gorm:"size:64;not null;uniqueIndex:idx_payout_order_seller;index:idx_payout_seller_created"`
	OrderNumber     string          `gorm:"size:32;not null"`
	CustomerName    string          `gorm:"size:255"`
	ItemsTotal      decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	CommissionRate  decimal.Decimal `gorm:"type:numeric(5,2);not null"`
	AdminCommission decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	ShippingCharge  decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	NetAmount       decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	PaymentStatus   string          `gorm:"size:16;not null;index"`
	PaidAt          *time.Time
	PaidBy          string    `gorm:"size:64"`
	Notes           string    `gorm:"type:text"`
	CreatedAt       time.Time `gorm:"not null;index:idx_payout_seller_created"`
	Seq             int       `gorm:"not null"`
}

func (payoutRecord) TableName() string { return "payouts" }

// GormRepository implements ports.PayoutRepository.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new instance of GormRepository.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Migrate creates or updates the payouts table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&payoutRecord{})
}

// InsertAll inserts the order's payouts in one statement.
func (r *GormRepository) InsertAll(ctx context.Context, records []domain.PayoutRecord) error {
	if len(records) == 0 {
		return nil
	}

	recs := make([]payoutRecord, 0, len(records))
	for i, p := range records {
		rec := toRecord(p)
		rec.Seq = i
		recs = append(recs, rec)
	}

	if err := database.Conn(ctx, r.db).Create(&recs).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: order %s", domain.ErrAlreadySettled, records[0].OrderID)
		}
		return fmt.Errorf("failed to insert payouts for order %s: %w", records[0].OrderID, err)
	}
	return nil
}

// ListByOrder returns the order's payouts.
func (r *GormRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.PayoutRecord, error) {
	var recs []payoutRecord
	if err := database.Conn(ctx, r.db).Where("order_id = ?", orderID).Order("seq ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list payouts for order %s: %w", orderID, err)
	}
	return mapAll(recs), nil
}

// GetByID loads one payout.
func (r *GormRepository) GetByID(ctx context.Context, id string) (*domain.PayoutRecord, error) {
	var rec payoutRecord
	if err := database.Conn(ctx, r.db).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPayoutNotFound
		}
		return nil, fmt.Errorf("failed to load payout %s: %w", id, err)
	}
	p := mapToDomain(rec)
	return &p, nil
}

// MarkPaid stamps the paid fields unless the stored payout is already paid.
func (r *GormRepository) MarkPaid(ctx context.Context, record *domain.PayoutRecord) error {
	res := database.Conn(ctx, r.db).Model(&payoutRecord{}).
		Where("id = ? AND payment_status <> ?", record.ID, string(domain.PayoutStatusPaid)).
		Updates(map[string]interface{}{
			"payment_status": string(domain.PayoutStatusPaid),
			"paid_at":        record.PaidAt,
			"paid_by":        record.PaidBy,
			"notes":          record.Notes,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to mark payout %s paid: %w", record.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: payout %s", domain.ErrAlreadyPaid, record.ID)
	}
	return nil
}

// List returns a page of payouts matching filter.
func (r *GormRepository) List(ctx context.Context, filter ports.PayoutFilter, offset, limit int) ([]domain.PayoutRecord, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count payouts: %w", err)
	}

	var recs []payoutRecord
	if err := r.filtered(ctx, filter).Order("created_at DESC").Order("seq ASC").Offset(offset).Limit(limit).Find(&recs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list payouts: %w", err)
	}
	return mapAll(recs), total, nil
}

// ListAll returns every payout matching filter.
func (r *GormRepository) ListAll(ctx context.Context, filter ports.PayoutFilter) ([]domain.PayoutRecord, error) {
	var recs []payoutRecord
	if err := r.filtered(ctx, filter).Order("created_at ASC").Order("seq ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list payouts: %w", err)
	}
	return mapAll(recs), nil
}

func (r *GormRepository) filtered(ctx context.Context, filter ports.PayoutFilter) *gorm.DB {
	query := database.Conn(ctx, r.db).Model(&payoutRecord{})
	if filter.SellerID != "" {
		query = query.Where("seller_id = ?", filter.SellerID)
	}
	if filter.Status != "" {
		query = query.Where("payment_status = ?", string(filter.Status))
	}
	if !filter.From.IsZero() {
		query = query.Where("created_at >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		query = query.Where("created_at < ?", filter.To.UTC())
	}
	return query
}

func toRecord(p domain.PayoutRecord) payoutRecord {
	return payoutRecord{
		ID:              p.ID,
		OrderID:         p.OrderID,
		SellerID:        p.SellerID,
		OrderNumber:     p.OrderNumber,
		CustomerName:    p.CustomerName,
		ItemsTotal:      p.ItemsTotal,
		CommissionRate:  p.CommissionRate,
		AdminCommission: p.AdminCommission,
		ShippingCharge:  p.ShippingCharge,
		NetAmount:       p.NetAmount,
		PaymentStatus:   string(p.PaymentStatus),
		PaidAt:          p.PaidAt,
		PaidBy:          p.PaidBy,
		Notes:           p.Notes,
		CreatedAt:       p.CreatedAt,
	}
}

func mapAll(recs []payoutRecord) []domain.PayoutRecord {
	out := make([]domain.PayoutRecord, 0, len(recs))
	for _, rec := range recs {
		out = append(out, mapToDomain(rec))
	}
	return out
}

// mapToDomain converts a persisted row into the domain entity.
func mapToDomain(rec payoutRecord) domain.PayoutRecord {
	p := domain.PayoutRecord{
		ID:              rec.ID,
		OrderID:         rec.OrderID,
		OrderNumber:     rec.OrderNumber,
		CustomerName:    rec.CustomerName,
		SellerID:        rec.SellerID,
		ItemsTotal:      rec.ItemsTotal,
		CommissionRate:  rec.CommissionRate,
		AdminCommission: rec.AdminCommission,
		ShippingCharge:  rec.ShippingCharge,
		NetAmount:       rec.NetAmount,
		PaymentStatus:   domain.PayoutStatus(rec.PaymentStatus),
		PaidBy:          rec.PaidBy,
		Notes:           rec.Notes,
		CreatedAt:       rec.CreatedAt.UTC(),
	}
	if rec.PaidAt != nil {
		paidAt := rec.PaidAt.UTC()
		p.PaidAt = &paidAt
	}
	return p
}
