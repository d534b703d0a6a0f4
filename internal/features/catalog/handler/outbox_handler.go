package handler

import (
	"context"
	"net/http"

	"order-settlement/internal/core/auth"
	"order-settlement/internal/core/logger"
	"order-settlement/internal/features/catalog/domain"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Flusher relays pending outbox events.
type Flusher interface {
	Flush(ctx context.Context) (domain.FlushResult, error)
}

// OutboxHandler lets operators trigger an outbox relay.
type OutboxHandler struct {
	flusher Flusher
}

// NewOutboxHandler creates a new instance of OutboxHandler.
func NewOutboxHandler(f Flusher) *OutboxHandler {
	return &OutboxHandler{flusher: f}
}

// ErrorResponse represents the structure of an error response.
type ErrorResponse struct {
	Message string `json:"message"`
	RayID   string `json:"ray_id"`
}

// Flush godoc
// @Summary Relay pending catalog events
// @Description Publishes pending stock-restoration events. Events that fail stay pending.
// @Tags outbox
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.FlushResult
// @Failure 500 {object} ErrorResponse
// @Router /admin/outbox/flush [post]
func (h *OutboxHandler) Flush(c *fiber.Ctx) error {
	result, err := h.flusher.Flush(c.UserContext())
	if err != nil {
		rayID := auth.RayID(c)
		logger.Get().Error("Outbox flush failed", zap.String("ray_id", rayID), zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Message: "Internal Server Error",
			RayID:   rayID,
		})
	}
	return c.JSON(result)
}
