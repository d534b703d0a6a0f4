package handler

import (
	"context"
	"errors"
	"net/http"

	"order-settlement/internal/core/auth"
	"order-settlement/internal/core/identity"
	"order-settlement/internal/core/logger"
	ordersdomain "order-settlement/internal/features/orders/domain"
	"order-settlement/internal/features/shipments/domain"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Tracker looks up the shipment of an order.
type Tracker interface {
	TrackOrder(ctx context.Context, orderID string, actor identity.Actor, courier string) (*domain.TrackingHistory, error)
}

// TrackingHandler handles HTTP requests for shipment tracking.
type TrackingHandler struct {
	tracker Tracker
}

// NewTrackingHandler creates a new TrackingHandler.
func NewTrackingHandler(t Tracker) *TrackingHandler {
	return &TrackingHandler{
		tracker: t,
	}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id"`
}

// TrackOrder godoc
// @Summary Get the shipment history of an order
// @Description Looks up the order's tracking number with its courier. The courier query parameter overrides the order's courier.
// @Tags tracking
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Param courier query string false "Courier name"
// @Success 200 {object} domain.TrackingHistory
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /orders/{id}/tracking [get]
func (h *TrackingHandler) TrackOrder(c *fiber.Ctx) error {
	orderID := c.Params("id")
	actor, _ := auth.ActorFrom(c)
	rayID := auth.RayID(c)

	history, err := h.tracker.TrackOrder(c.UserContext(), orderID, actor, c.Query("courier"))
	if err != nil {
		status := http.StatusInternalServerError
		msg := "Internal Server Error"

		switch {
		case errors.Is(err, ordersdomain.ErrOrderNotFound):
			status, msg = http.StatusNotFound, "Order not found"
		case errors.Is(err, domain.ErrCourierNotSupported):
			status, msg = http.StatusNotFound, "courier not supported"
		case errors.Is(err, ordersdomain.ErrNotOrderOwner):
			status, msg = http.StatusForbidden, err.Error()
		case errors.Is(err, domain.ErrTrackingUnavailable):
			status, msg = http.StatusUnprocessableEntity, err.Error()
		default:
			logger.Get().Error("Tracking lookup failed",
				zap.String("order_id", orderID),
				zap.String("ray_id", rayID),
				zap.Error(err),
			)
		}

		return c.Status(status).JSON(ErrorResponse{Message: msg, RayID: rayID})
	}

	return c.JSON(history)
}
