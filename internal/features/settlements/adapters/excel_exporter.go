package adapter

import (
	"fmt"
	"time"

	payoutsdomain "order-settlement/internal/features/payouts/domain"
	"order-settlement/internal/features/settlements/domain"

	"github.com/xuri/excelize/v2"
)

const (
	payoutsSheet = "Payouts"
	monthlySheet = "Monthly"
)

var payoutHeaders = []string{
	"Order Number", "Customer", "Items Total", "Commission Rate", "Admin Commission",
	"Shipping Charges", "Net Amount", "Payment Status", "Created At", "Paid At",
}

var monthlyHeaders = []string{
	"Month", "Orders", "Items Total", "Admin Commission", "Shipping Charges", "Net Amount",
	"Pending", "Pending Net", "Due", "Due Net", "Paid", "Paid Net",
}

// ExcelExporter renders payouts as an XLSX workbook.
type ExcelExporter struct{}

// NewExcelExporter creates a new instance of ExcelExporter.
func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{}
}

// ContentType returns the XLSX MIME type.
func (e *ExcelExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Export writes a "Payouts" sheet with one row per payout and a "Monthly" sheet with the rollup.
func (e *ExcelExporter) Export(payouts []payoutsdomain.PayoutRecord, summaries []domain.MonthlySummary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", payoutsSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(monthlySheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	rows := make([][]interface{}, 0, len(payouts))
	for _, p := range payouts {
		paidAt := ""
		if p.PaidAt != nil {
			paidAt = p.PaidAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, []interface{}{
			p.OrderNumber,
			p.CustomerName,
			p.ItemsTotal.InexactFloat64(),
			p.CommissionRate.InexactFloat64(),
			p.AdminCommission.InexactFloat64(),
			p.ShippingCharge.InexactFloat64(),
			p.NetAmount.InexactFloat64(),
			string(p.PaymentStatus),
			p.CreatedAt.UTC().Format(time.RFC3339),
			paidAt,
		})
	}
	if err := writeSheet(f, payoutsSheet, payoutHeaders, rows); err != nil {
		return nil, err
	}

	rows = rows[:0]
	for _, s := range summaries {
		pending := s.ByStatus[payoutsdomain.PayoutStatusPending]
		due := s.ByStatus[payoutsdomain.PayoutStatusDue]
		paid := s.ByStatus[payoutsdomain.PayoutStatusPaid]
		rows = append(rows, []interface{}{
			s.Month,
			s.Orders,
			s.ItemsTotal.InexactFloat64(),
			s.AdminCommission.InexactFloat64(),
			s.ShippingCharges.InexactFloat64(),
			s.NetAmount.InexactFloat64(),
			pending.Count, pending.NetAmount.InexactFloat64(),
			due.Count, due.NetAmount.InexactFloat64(),
			paid.Count, paid.NetAmount.InexactFloat64(),
		})
	}
	if err := writeSheet(f, monthlySheet, monthlyHeaders, rows); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]interface{}) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to write %s header: %w", sheet, err)
		}
	}

	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("failed to write %s row %d: %w", sheet, r+1, err)
			}
		}
	}

	return f.SetColWidth(sheet, "A", "B", 20)
}
