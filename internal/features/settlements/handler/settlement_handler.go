package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"order-settlement/internal/core/auth"
	"order-settlement/internal/core/identity"
	"order-settlement/internal/core/logger"
	"order-settlement/internal/core/validation"
	payoutsdomain "order-settlement/internal/features/payouts/domain"
	payoutsports "order-settlement/internal/features/payouts/ports"
	"order-settlement/internal/features/settlements/domain"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// SettlementService defines the operations the settlement handler depends on.
type SettlementService interface {
	ListPayouts(ctx context.Context, filter payoutsports.PayoutFilter, page, limit int) (*domain.Page, error)
	MonthlySummary(ctx context.Context, sellerID string, period domain.Period) ([]domain.MonthlySummary, error)
	MarkPaid(ctx context.Context, payoutID string, actor identity.Actor, notes string) (*payoutsdomain.PayoutRecord, error)
	Export(ctx context.Context, sellerID string, period domain.Period) ([]byte, string, error)
}

// SettlementHandler serves seller payout reports and admin payout operations.
type SettlementHandler struct {
	service SettlementService
}

// NewSettlementHandler creates a new instance of SettlementHandler.
func NewSettlementHandler(s SettlementService) *SettlementHandler {
	return &SettlementHandler{service: s}
}

// ErrorResponse represents the structure of an error response.
type ErrorResponse struct {
	Message string `json:"message"`
	RayID   string `json:"ray_id"`
}

// PeriodQuery bounds a report by day, both ends inclusive.
type PeriodQuery struct {
	From string `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `query:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
}

// ListQuery selects one page of payouts.
type ListQuery struct {
	From     string `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To       string `query:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
	SellerID string `query:"sellerId" json:"sellerId"`
	Status   string `query:"status" json:"status" validate:"omitempty,oneof=pending due paid"`
	Page     int    `query:"page" json:"page" validate:"omitempty,min=1"`
	Limit    int    `query:"limit" json:"limit" validate:"omitempty,min=1,max=100"`
}

// MarkPaidRequest is the optional body of a mark-paid request.
type MarkPaidRequest struct {
	Notes string `json:"notes" validate:"max=500"`
}

// period converts the query into UTC bounds. The end day is included whole.
func (q PeriodQuery) period() domain.Period {
	var p domain.Period
	if q.From != "" {
		p.From, _ = time.Parse(dateLayout, q.From)
	}
	if q.To != "" {
		to, _ := time.Parse(dateLayout, q.To)
		p.To = to.Add(24*time.Hour - time.Nanosecond)
	}
	return p
}

// SellerPayments godoc
// @Summary List the caller's payouts
// @Tags settlements
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, due or paid"
// @Param page query int false "Page, starting at 1"
// @Param limit query int false "Page size"
// @Param from query string false "First day (YYYY-MM-DD)"
// @Param to query string false "Last day (YYYY-MM-DD)"
// @Success 200 {object} domain.Page
// @Failure 400 {object} ErrorResponse
// @Router /seller/payments [get]
func (h *SettlementHandler) SellerPayments(c *fiber.Ctx) error {
	var q ListQuery
	if ok, err := h.query(c, &q); !ok {
		return err
	}

	actor, _ := auth.ActorFrom(c)
	return h.list(c, actor.ID, q)
}

// AdminPayouts godoc
// @Summary List payouts of every seller
// @Tags settlements
// @Produce json
// @Security BearerAuth
// @Param sellerId query string false "Seller ID"
// @Param status query string false "pending, due or paid"
// @Param page query int false "Page, starting at 1"
// @Param limit query int false "Page size"
// @Success 200 {object} domain.Page
// @Failure 400 {object} ErrorResponse
// @Router /admin/payouts [get]
func (h *SettlementHandler) AdminPayouts(c *fiber.Ctx) error {
	var q ListQuery
	if ok, err := h.query(c, &q); !ok {
		return err
	}
	return h.list(c, q.SellerID, q)
}

func (h *SettlementHandler) list(c *fiber.Ctx, sellerID string, q ListQuery) error {
	period := PeriodQuery{From: q.From, To: q.To}.period()
	filter := payoutsports.PayoutFilter{
		SellerID: sellerID,
		Status:   payoutsdomain.PayoutStatus(q.Status),
		From:     period.From,
		To:       period.To,
	}

	page, err := h.service.ListPayouts(c.UserContext(), filter, q.Page, q.Limit)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(page)
}

// Summary godoc
// @Summary Monthly payout summary of the caller
// @Tags settlements
// @Produce json
// @Security BearerAuth
// @Param from query string false "First day (YYYY-MM-DD)"
// @Param to query string false "Last day (YYYY-MM-DD)"
// @Success 200 {array} domain.MonthlySummary
// @Failure 400 {object} ErrorResponse
// @Router /seller/payments/summary [get]
func (h *SettlementHandler) Summary(c *fiber.Ctx) error {
	var q PeriodQuery
	if ok, err := h.query(c, &q); !ok {
		return err
	}

	actor, _ := auth.ActorFrom(c)
	summaries, err := h.service.MonthlySummary(c.UserContext(), actor.ID, q.period())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(summaries)
}

// Export godoc
// @Summary Download the caller's payouts as a spreadsheet
// @Tags settlements
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param from query string false "First day (YYYY-MM-DD)"
// @Param to query string false "Last day (YYYY-MM-DD)"
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponse
// @Router /seller/payments/export [get]
func (h *SettlementHandler) Export(c *fiber.Ctx) error {
	var q PeriodQuery
	if ok, err := h.query(c, &q); !ok {
		return err
	}

	actor, _ := auth.ActorFrom(c)
	data, contentType, err := h.service.Export(c.UserContext(), actor.ID, q.period())
	if err != nil {
		return h.fail(c, err)
	}

	filename := fmt.Sprintf("payouts-%s-%s.xlsx", actor.ID, time.Now().UTC().Format(dateLayout))
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(data)
}

// MarkPaid godoc
// @Summary Mark a payout as paid
// @Tags settlements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payout ID"
// @Param request body MarkPaidRequest false "Notes"
// @Success 200 {object} payoutsdomain.PayoutRecord
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /admin/payouts/{id}/paid [patch]
func (h *SettlementHandler) MarkPaid(c *fiber.Ctx) error {
	var req MarkPaidRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(http.StatusBadRequest).JSON(ErrorResponse{Message: "invalid request body", RayID: auth.RayID(c)})
		}
		if err := validation.Struct(&req); err != nil {
			return c.Status(http.StatusBadRequest).JSON(ErrorResponse{Message: err.Error(), RayID: auth.RayID(c)})
		}
	}

	actor, _ := auth.ActorFrom(c)
	record, err := h.service.MarkPaid(c.UserContext(), c.Params("id"), actor, req.Notes)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(record)
}

func (h *SettlementHandler) query(c *fiber.Ctx, dst interface{}) (bool, error) {
	if err := c.QueryParser(dst); err != nil {
		return false, c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid query parameters",
			RayID:   auth.RayID(c),
		})
	}
	if err := validation.Struct(dst); err != nil {
		return false, c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: err.Error(),
			RayID:   auth.RayID(c),
		})
	}
	return true, nil
}

func (h *SettlementHandler) fail(c *fiber.Ctx, err error) error {
	rayID := auth.RayID(c)

	status := http.StatusInternalServerError
	msg := "Internal Server Error"

	switch {
	case errors.Is(err, domain.ErrInvalidRange):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, payoutsdomain.ErrPayoutNotFound):
		status, msg = http.StatusNotFound, "Payout not found"
	case errors.Is(err, payoutsdomain.ErrAlreadyPaid):
		status, msg = http.StatusConflict, err.Error()
	default:
		logger.Get().Error("Settlement request failed",
			zap.String("path", c.Path()),
			zap.String("ray_id", rayID),
			zap.Error(err),
		)
	}

	return c.Status(status).JSON(ErrorResponse{Message: msg, RayID: rayID})
}
