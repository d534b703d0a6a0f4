package handler

import (
	"context"
	"errors"
	"net/http"

	"order-settlement/internal/core/auth"
	"order-settlement/internal/core/identity"
	"order-settlement/internal/core/logger"
	"order-settlement/internal/core/validation"
	ordersdomain "order-settlement/internal/features/orders/domain"
	"order-settlement/internal/features/refunds/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RefundService is the refund ledger used by the handler.
type RefundService interface {
	RecordRefund(ctx context.Context, orderID string, amount decimal.Decimal, reason string, actor identity.Actor, markRefunded bool, expectedVersion *int64) (*domain.RefundRecord, error)
	ListRefunds(ctx context.Context, orderID string) ([]domain.RefundRecord, error)
}

// RefundHandler handles HTTP requests for order refunds.
type RefundHandler struct {
	service RefundService
}

// NewRefundHandler creates a new instance of RefundHandler.
func NewRefundHandler(s RefundService) *RefundHandler {
	return &RefundHandler{service: s}
}

// ErrorResponse represents the structure of an error response.
type ErrorResponse struct {
	Message string `json:"message"`
	RayID   string `json:"ray_id"`
}

// RefundRequest asks for a refund against an order.
type RefundRequest struct {
	RefundAmount    decimal.Decimal `json:"refundAmount" swaggertype:"string"`
	Reason          string          `json:"reason" validate:"required,max=500"`
	MarkRefunded    bool            `json:"markRefunded"`
	ExpectedVersion *int64          `json:"expectedVersion"`
}

// RecordRefund godoc
// @Summary Refund an order
// @Description Appends a refund to the order's ledger. The amount cannot exceed the remaining balance.
// @Tags refunds
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Param request body RefundRequest true "Refund"
// @Success 201 {object} domain.RefundRecord
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /orders/{id}/refund [post]
func (h *RefundHandler) RecordRefund(c *fiber.Ctx) error {
	actor, _ := auth.ActorFrom(c)
	orderID := c.Params("id")

	var req RefundRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   auth.RayID(c),
		})
	}
	if err := validation.Struct(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: err.Error(),
			RayID:   auth.RayID(c),
		})
	}

	record, err := h.service.RecordRefund(c.UserContext(), orderID, req.RefundAmount, req.Reason, actor, req.MarkRefunded, req.ExpectedVersion)
	if err != nil {
		return h.fail(c, orderID, err)
	}

	return c.Status(http.StatusCreated).JSON(record)
}

// ListRefunds godoc
// @Summary List an order's refunds
// @Tags refunds
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {array} domain.RefundRecord
// @Failure 404 {object} ErrorResponse
// @Router /orders/{id}/refunds [get]
func (h *RefundHandler) ListRefunds(c *fiber.Ctx) error {
	orderID := c.Params("id")

	records, err := h.service.ListRefunds(c.UserContext(), orderID)
	if err != nil {
		return h.fail(c, orderID, err)
	}

	return c.Status(http.StatusOK).JSON(records)
}

func (h *RefundHandler) fail(c *fiber.Ctx, orderID string, err error) error {
	rayID := auth.RayID(c)

	status := http.StatusInternalServerError
	msg := "Internal Server Error"

	switch {
	case errors.Is(err, ordersdomain.ErrOrderNotFound):
		status, msg = http.StatusNotFound, "Order not found"
	case errors.Is(err, domain.ErrRefundExceedsBalance):
		status, msg = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, ordersdomain.ErrStaleOrderVersion):
		status, msg = http.StatusConflict, err.Error()
	default:
		logger.Get().Error("Refund request failed",
			zap.String("order_id", orderID),
			zap.String("ray_id", rayID),
			zap.Error(err),
		)
	}

	return c.Status(status).JSON(ErrorResponse{
		Message: msg,
		RayID:   rayID,
	})
}
