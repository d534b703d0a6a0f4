package ports

import (
	"context"

	payoutsdomain "order-settlement/internal/features/payouts/domain"
	"order-settlement/internal/features/settlements/domain"
)

// SummaryCache stores computed monthly summaries per seller and period.
type SummaryCache interface {
	// Get reports found=false on a miss.
	Get(ctx context.Context, sellerID string, period domain.Period) ([]domain.MonthlySummary, bool, error)
	Set(ctx context.Context, sellerID string, period domain.Period, summaries []domain.MonthlySummary) error
	// InvalidateSeller drops every cached period of the seller.
	InvalidateSeller(ctx context.Context, sellerID string) error
}

// Exporter renders a seller's payouts as a downloadable workbook.
type Exporter interface {
	Export(payouts []payoutsdomain.PayoutRecord, summaries []domain.MonthlySummary) ([]byte, error)
	// ContentType is the MIME type of the rendered document.
	ContentType() string
}
