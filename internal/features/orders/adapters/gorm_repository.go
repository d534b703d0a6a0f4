package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"order-settlement/internal/core/database"
	"order-settlement/internal/core/identity"
	"order-settlement/internal/features/orders/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// orderRecord is the persistence shape of domain.Order.
type orderRecord struct {
	ID             string          `gorm:"primaryKey;size:36"`
	OrderNumber    string          `gorm:"size:32;uniqueIndex;not null"`
	BuyerID        string          `gorm:"size:64;index;not null"`
	CustomerName   string          `gorm:"size:255"`
	Subtotal       decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	ShippingCost   decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Tax            decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	CouponDiscount decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Total          decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Status         string          `gorm:"size:16;index;not null"`
	PaymentStatus  string          `gorm:"size:16;not null"`
	RefundedAmount decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	TrackingNumber string          `gorm:"size:64"`
	Courier        string          `gorm:"size:64"`
	Version        int64           `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Items   []orderItemRecord     `gorm:"foreignKey:OrderID"`
	History []statusHistoryRecord `gorm:"foreignKey:OrderID"`
}

func (orderRecord) TableName() string { return "orders" }

type orderItemRecord struct {
	ID        uint            `gorm:"primaryKey"`
	OrderID   string          `gorm:"size:36;index;not null"`
	Position  int             `gorm:"not null"`
	BookID    string          `gorm:"size:64;not null"`
	SellerID  string          `gorm:"size:64;index"`
	Title     string          `gorm:"size:255"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Quantity  int             `gorm:"not null"`
}

func (orderItemRecord) TableName() string { return "order_items" }

type statusHistoryRecord struct {
	ID        uint      `gorm:"primaryKey"`
	OrderID   string    `gorm:"size:36;index;not null"`
	Status    string    `gorm:"size:16;not null"`
	Timestamp time.Time `gorm:"not null"`
	ActorID   string    `gorm:"size:64"`
	ActorRole string    `gorm:"size:16"`
	Notes     string    `gorm:"type:text"`
}

func (statusHistoryRecord) TableName() string { return "order_status_history" }

// GormRepository implements ports.OrderRepository on a relational database.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new instance of GormRepository.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Migrate creates or updates the order tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&orderRecord{}, &orderItemRecord{}, &statusHistoryRecord{})
}

// Create inserts the order, its items and its initial history.
func (r *GormRepository) Create(ctx context.Context, order *domain.Order) error {
	rec := toRecord(order)
	if err := database.Conn(ctx, r.db).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to insert order %s: %w", order.ID, err)
	}
	return nil
}

// GetByID loads the order with items and history.
func (r *GormRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var rec orderRecord
	err := database.Conn(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&rec, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order %s: %w", id, err)
	}
	return mapToDomain(rec), nil
}

// Update writes the mutable fields when the stored version still matches order.Version.
func (r *GormRepository) Update(ctx context.Context, order *domain.Order) error {
	conn := database.Conn(ctx, r.db)

	res := conn.Model(&orderRecord{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(map[string]interface{}{
			"status":          string(order.Status),
			"payment_status":  string(order.PaymentStatus),
			"refunded_amount": order.RefundedAmount,
			"tracking_number": order.TrackingNumber,
			"courier":         order.Courier,
			"updated_at":      order.UpdatedAt,
			"version":         gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update order %s: %w", order.ID, res.Error)
	}

	if res.RowsAffected == 0 {
		var count int64
		if err := conn.Model(&orderRecord{}).Where("id = ?", order.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check order %s: %w", order.ID, err)
		}
		if count == 0 {
			return domain.ErrOrderNotFound
		}
		return domain.ErrStaleOrderVersion
	}

	order.Version++
	return nil
}

// AppendHistory inserts one history entry.
func (r *GormRepository) AppendHistory(ctx context.Context, orderID string, change domain.StatusChange) error {
	rec := toHistoryRecord(orderID, change)
	if err := database.Conn(ctx, r.db).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to append history for order %s: %w", orderID, err)
	}
	return nil
}

// History returns the order's history, oldest first.
func (r *GormRepository) History(ctx context.Context, orderID string) ([]domain.StatusChange, error) {
	var recs []statusHistoryRecord
	if err := database.Conn(ctx, r.db).Where("order_id = ?", orderID).Order("id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to load history for order %s: %w", orderID, err)
	}

	history := make([]domain.StatusChange, 0, len(recs))
	for _, rec := range recs {
		history = append(history, historyToDomain(rec))
	}
	return history, nil
}

func toRecord(o *domain.Order) orderRecord {
	rec := orderRecord{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		BuyerID:        o.BuyerID,
		CustomerName:   o.CustomerName,
		Subtotal:       o.Subtotal,
		ShippingCost:   o.ShippingCost,
		Tax:            o.Tax,
		CouponDiscount: o.CouponDiscount,
		Total:          o.Total,
		Status:         string(o.Status),
		PaymentStatus:  string(o.PaymentStatus),
		RefundedAmount: o.RefundedAmount,
		TrackingNumber: o.TrackingNumber,
		Courier:        o.Courier,
		Version:        o.Version,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}

	for i, item := range o.Items {
		rec.Items = append(rec.Items, orderItemRecord{
			OrderID:   o.ID,
			Position:  i,
			BookID:    item.BookID,
			SellerID:  item.SellerID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	for _, change := range o.StatusHistory {
		rec.History = append(rec.History, toHistoryRecord(o.ID, change))
	}

	return rec
}

func toHistoryRecord(orderID string, change domain.StatusChange) statusHistoryRecord {
	return statusHistoryRecord{
		OrderID:   orderID,
		Status:    string(change.Status),
		Timestamp: change.Timestamp,
		ActorID:   change.ActorID,
		ActorRole: string(change.ActorRole),
		Notes:     change.Notes,
	}
}

// mapToDomain converts the persisted rows into the domain entity.
func mapToDomain(rec orderRecord) *domain.Order {
	order := &domain.Order{
		ID:             rec.ID,
		OrderNumber:    rec.OrderNumber,
		BuyerID:        rec.BuyerID,
		CustomerName:   rec.CustomerName,
		Subtotal:       rec.Subtotal,
		ShippingCost:   rec.ShippingCost,
		Tax:            rec.Tax,
		CouponDiscount: rec.CouponDiscount,
		Total:          rec.Total,
		Status:         domain.OrderStatus(rec.Status),
		PaymentStatus:  domain.PaymentStatus(rec.PaymentStatus),
		RefundedAmount: rec.RefundedAmount,
		TrackingNumber: rec.TrackingNumber,
		Courier:        rec.Courier,
		Version:        rec.Version,
		CreatedAt:      rec.CreatedAt.UTC(),
		UpdatedAt:      rec.UpdatedAt.UTC(),
		Items:          make([]domain.Item, 0, len(rec.Items)),
		StatusHistory:  make([]domain.StatusChange, 0, len(rec.History)),
	}

	for _, item := range rec.Items {
		order.Items = append(order.Items, domain.Item{
			BookID:    item.BookID,
			SellerID:  item.SellerID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	for _, h := range rec.History {
		order.StatusHistory = append(order.StatusHistory, historyToDomain(h))
	}

	return order
}

func historyToDomain(rec statusHistoryRecord) domain.StatusChange {
	return domain.StatusChange{
		Status:    domain.OrderStatus(rec.Status),
		Timestamp: rec.Timestamp.UTC(),
		ActorID:   rec.ActorID,
		ActorRole: identity.Role(rec.ActorRole),
		Notes:     rec.Notes,
	}
}
