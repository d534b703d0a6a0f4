package handler

import (
	"context"
	"errors"
	"net/http"

	"order-settlement/internal/core/auth"
	"order-settlement/internal/core/identity"
	"order-settlement/internal/core/logger"
	"order-settlement/internal/core/validation"
	"order-settlement/internal/features/orders/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService is the order lifecycle used by the handler.
type OrderService interface {
	PlaceOrder(ctx context.Context, in domain.PlaceOrderInput) (*domain.Order, error)
	GetOrder(ctx context.Context, id string, actor identity.Actor) (*domain.Order, error)
	History(ctx context.Context, id string, actor identity.Actor) ([]domain.StatusChange, error)
	Transition(ctx context.Context, id string, req domain.TransitionRequest, expectedVersion *int64) (*domain.Order, error)
	Cancel(ctx context.Context, id string, actor identity.Actor, reason, notes string, expectedVersion *int64) (*domain.Order, error)
	RecordPayment(ctx context.Context, id string, status domain.PaymentStatus, actor identity.Actor, expectedVersion *int64) (*domain.Order, error)
}

// OrderHandler handles HTTP requests related to orders.
type OrderHandler struct {
	// service is the order lifecycle service.
	service OrderService
}

// NewOrderHandler creates a new instance of OrderHandler.
func NewOrderHandler(s OrderService) *OrderHandler {
	return &OrderHandler{
		service: s,
	}
}

// ErrorResponse represents the structure of an error response.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for debugging.
	RayID string `json:"ray_id"`
}

// ItemRequest is one checkout line.
type ItemRequest struct {
	BookID    string          `json:"bookId" validate:"required"`
	SellerID  string          `json:"sellerId" validate:"required"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unitPrice" swaggertype:"string"`
	Quantity  int             `json:"quantity" validate:"required,min=1"`
}

// PlaceOrderRequest is the checkout payload.
type PlaceOrderRequest struct {
	CustomerName   string          `json:"customerName" validate:"max=255"`
	Items          []ItemRequest   `json:"items" validate:"required,min=1,dive"`
	ShippingCost   decimal.Decimal `json:"shippingCost" swaggertype:"string"`
	Tax            decimal.Decimal `json:"tax" swaggertype:"string"`
	CouponDiscount decimal.Decimal `json:"couponDiscount" swaggertype:"string"`
}

// StatusRequest asks for a status change.
type StatusRequest struct {
	OrderStatus     string `json:"orderStatus" validate:"required"`
	TrackingNumber  string `json:"trackingNumber" validate:"max=64"`
	Courier         string `json:"courier" validate:"max=64"`
	Notes           string `json:"notes" validate:"max=1000"`
	Reason          string `json:"reason" validate:"max=500"`
	ExpectedVersion *int64 `json:"expectedVersion"`
}

// CancelRequest carries the optional cancellation details.
type CancelRequest struct {
	Reason          string `json:"reason" validate:"max=500"`
	Notes           string `json:"notes" validate:"max=1000"`
	ExpectedVersion *int64 `json:"expectedVersion"`
}

// PaymentRequest records a payment gateway outcome.
type PaymentRequest struct {
	PaymentStatus   string `json:"paymentStatus" validate:"required,oneof=pending paid failed refunded"`
	ExpectedVersion *int64 `json:"expectedVersion"`
}

// PlaceOrder godoc
// @Summary Place an order
// @Description Creates a pending order from the checkout payload.
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PlaceOrderRequest true "Checkout"
// @Success 201 {object} domain.Order
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /orders [post]
func (h *OrderHandler) PlaceOrder(c *fiber.Ctx) error {
	actor, _ := auth.ActorFrom(c)

	var req PlaceOrderRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	in := domain.PlaceOrderInput{
		Buyer:          actor,
		CustomerName:   req.CustomerName,
		ShippingCost:   req.ShippingCost,
		Tax:            req.Tax,
		CouponDiscount: req.CouponDiscount,
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, domain.Item{
			BookID:    item.BookID,
			SellerID:  item.SellerID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}

	order, err := h.service.PlaceOrder(c.UserContext(), in)
	if err != nil {
		return h.fail(c, "", err)
	}

	return c.Status(http.StatusCreated).JSON(order)
}

// GetOrder godoc
// @Summary Get order by ID
// @Description Fetch an order with its status history. Customers only see their own orders.
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	actor, _ := auth.ActorFrom(c)
	orderID := c.Params("id")

	order, err := h.service.GetOrder(c.UserContext(), orderID, actor)
	if err != nil {
		return h.fail(c, orderID, err)
	}

	return c.Status(http.StatusOK).JSON(order)
}

// GetHistory godoc
// @Summary Get order status history
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {array} domain.StatusChange
// @Failure 404 {object} ErrorResponse
// @Router /orders/{id}/history [get]
func (h *OrderHandler) GetHistory(c *fiber.Ctx) error {
	actor, _ := auth.ActorFrom(c)
	orderID := c.Params("id")

	history, err := h.service.History(c.UserContext(), orderID, actor)
	if err != nil {
		return h.fail(c, orderID, err)
	}

	return c.Status(http.StatusOK).JSON(history)
}

// UpdateStatus godoc
// @Summary Change order status
// @Description Moves the order along its lifecycle. Shipping and delivery need a tracking number.
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Param request body StatusRequest true "Target status"
// @Success 200 {object} domain.Order
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /orders/{id}/status [patch]
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, _ := auth.ActorFrom(c)
	orderID := c.Params("id")

	var req StatusRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	order, err := h.service.Transition(c.UserContext(), orderID, domain.TransitionRequest{
		Target:         domain.OrderStatus(req.OrderStatus),
		Actor:          actor,
		TrackingNumber: req.TrackingNumber,
		Courier:        req.Courier,
		Notes:          req.Notes,
		Reason:         req.Reason,
	}, req.ExpectedVersion)
	if err != nil {
		return h.fail(c, orderID, err)
	}

	return c.Status(http.StatusOK).JSON(order)
}

// CancelOrder godoc
// @Summary Cancel an order
// @Description Cancels the order, refunds the remaining balance and restores stock.
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Param request body CancelRequest false "Cancellation details"
// @Success 200 {object} domain.Order
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /orders/{id}/cancel [patch]
func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	actor, _ := auth.ActorFrom(c)
	orderID := c.Params("id")

	var req CancelRequest
	if len(c.Body()) > 0 {
		if ok, err := h.bind(c, &req); !ok {
			return err
		}
	}

	order, err := h.service.Cancel(c.UserContext(), orderID, actor, req.Reason, req.Notes, req.ExpectedVersion)
	if err != nil {
		return h.fail(c, orderID, err)
	}

	return c.Status(http.StatusOK).JSON(order)
}

// UpdatePayment godoc
// @Summary Record a payment outcome
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Param request body PaymentRequest true "Payment status"
// @Success 200 {object} domain.Order
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /orders/{id}/payment [patch]
func (h *OrderHandler) UpdatePayment(c *fiber.Ctx) error {
	actor, _ := auth.ActorFrom(c)
	orderID := c.Params("id")

	var req PaymentRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	order, err := h.service.RecordPayment(c.UserContext(), orderID, domain.PaymentStatus(req.PaymentStatus), actor, req.ExpectedVersion)
	if err != nil {
		return h.fail(c, orderID, err)
	}

	return c.Status(http.StatusOK).JSON(order)
}

// bind parses and validates the body. When it reports false the 400 response is already written.
func (h *OrderHandler) bind(c *fiber.Ctx, dst interface{}) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		return false, c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
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

func (h *OrderHandler) fail(c *fiber.Ctx, orderID string, err error) error {
	rayID := auth.RayID(c)

	status := http.StatusInternalServerError
	msg := "Internal Server Error"

	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		status, msg = http.StatusNotFound, "Order not found"
	case errors.Is(err, domain.ErrNotOrderOwner):
		status, msg = http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrStaleOrderVersion),
		errors.Is(err, domain.ErrInvalidPaymentTransition):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrMissingTrackingNumber),
		errors.Is(err, domain.ErrInvalidOrder):
		status, msg = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, domain.ErrInvalidStatus):
		status, msg = http.StatusBadRequest, err.Error()
	}

	if status == http.StatusInternalServerError {
		logger.Get().Error("Order request failed",
			zap.String("order_id", orderID),
			zap.String("ray_id", rayID),
			zap.Error(err),
		)
	} else {
		logger.Get().Info("Order request rejected",
			zap.String("order_id", orderID),
			zap.String("ray_id", rayID),
			zap.Int("status", status),
			zap.String("reason", msg),
		)
	}

	return c.Status(status).JSON(ErrorResponse{
		Message: msg,
		RayID:   rayID,
	})
}
