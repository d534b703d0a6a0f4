package domain

import (
	"encoding/json"
	"fmt"
	"time"

	ordersdomain "order-settlement/internal/features/orders/domain"

	"github.com/google/uuid"
)

// StockItem is one catalog entry whose copies return to stock.
type StockItem struct {
	BookID   string `json:"bookId"`
	Quantity int    `json:"quantity"`
}

// StockRestoration is the payload sent to the catalog when an order is cancelled.
type StockRestoration struct {
	OrderID     string      `json:"orderId"`
	OrderNumber string      `json:"orderNumber"`
	Items       []StockItem `json:"items"`
	Reason      string      `json:"reason,omitempty"`
	OccurredAt  time.Time   `json:"occurredAt"`
}

// OutboxEvent is a message waiting to be relayed to a topic.
type OutboxEvent struct {
	ID          string
	Topic       string
	Key         string
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
	Attempts    int
	LastError   string
}

// Pending reports whether the event still has to be published.
func (e *OutboxEvent) Pending() bool {
	return e.PublishedAt == nil
}

// FlushResult counts the outcome of one relay pass.
type FlushResult struct {
	Published int `json:"published"`
	Failed    int `json:"failed"`
}

// NewStockRestorationEvent builds the outbox event for a cancelled order, keyed by order id.
// Quantities of the same book are merged.
func NewStockRestorationEvent(order *ordersdomain.Order, reason, topic string, now time.Time) (*OutboxEvent, error) {
	items := make([]StockItem, 0, len(order.Items))
	index := make(map[string]int, len(order.Items))
	for _, it := range order.Items {
		if i, ok := index[it.BookID]; ok {
			items[i].Quantity += it.Quantity
			continue
		}
		index[it.BookID] = len(items)
		items = append(items, StockItem{BookID: it.BookID, Quantity: it.Quantity})
	}

	payload, err := json.Marshal(StockRestoration{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Items:       items,
		Reason:      reason,
		OccurredAt:  now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stock restoration: %w", err)
	}

	return &OutboxEvent{
		ID:        uuid.NewString(),
		Topic:     topic,
		Key:       order.ID,
		Payload:   payload,
		CreatedAt: now,
	}, nil
}
