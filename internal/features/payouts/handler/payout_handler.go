package handler

import (
	"context"
	"errors"
	"net/http"

	"order-settlement/internal/core/auth"
	"order-settlement/internal/core/logger"
	ordersdomain "order-settlement/internal/features/orders/domain"
	"order-settlement/internal/features/payouts/domain"
	"order-settlement/internal/features/payouts/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Settler settles delivered orders on request.
type Settler interface {
	Settle(ctx context.Context, orderID string) (*service.SettleResult, error)
}

// PayoutHandler handles settlement requests for orders.
type PayoutHandler struct {
	settler Settler
}

// NewPayoutHandler creates a new instance of PayoutHandler.
func NewPayoutHandler(s Settler) *PayoutHandler {
	return &PayoutHandler{settler: s}
}

// ErrorResponse represents the structure of an error response.
type ErrorResponse struct {
	Message string `json:"message"`
	RayID   string `json:"ray_id"`
}

// Settle godoc
// @Summary Settle a delivered order
// @Description Computes seller payouts. Repeating the call returns the existing payouts with outcome already_settled.
// @Tags payouts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 201 {object} service.SettleResult
// @Success 200 {object} service.SettleResult
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /orders/{id}/settle [post]
func (h *PayoutHandler) Settle(c *fiber.Ctx) error {
	orderID := c.Params("id")
	rayID := auth.RayID(c)

	result, err := h.settler.Settle(c.UserContext(), orderID)
	if err != nil {
		status := http.StatusInternalServerError
		msg := "Internal Server Error"

		switch {
		case errors.Is(err, ordersdomain.ErrOrderNotFound):
			status, msg = http.StatusNotFound, "Order not found"
		case errors.Is(err, domain.ErrNotDelivered):
			status, msg = http.StatusConflict, err.Error()
		default:
			logger.Get().Error("Settlement failed",
				zap.String("order_id", orderID),
				zap.String("ray_id", rayID),
				zap.Error(err),
			)
		}

		return c.Status(status).JSON(ErrorResponse{Message: msg, RayID: rayID})
	}

	if result.Outcome == service.OutcomeAlreadySettled {
		return c.Status(http.StatusOK).JSON(result)
	}
	return c.Status(http.StatusCreated).JSON(result)
}
