package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"order-settlement/internal/core/auth"
	"order-settlement/internal/core/identity"
	ordersdomain "order-settlement/internal/features/orders/domain"
	"order-settlement/internal/features/refunds/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRefundService is a mock implementation of RefundService.
type MockRefundService struct {
	mock.Mock
}

func (m *MockRefundService) RecordRefund(ctx context.Context, orderID string, amount decimal.Decimal, reason string, actor identity.Actor, markRefunded bool, expectedVersion *int64) (*domain.RefundRecord, error) {
	args := m.Called(ctx, orderID, amount, reason, actor, markRefunded, expectedVersion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefundRecord), args.Error(1)
}

func (m *MockRefundService) ListRefunds(ctx context.Context, orderID string) ([]domain.RefundRecord, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RefundRecord), args.Error(1)
}

var admin = identity.Actor{ID: "admin-1", Role: identity.RoleAdmin}

func setupApp(svc RefundService) *fiber.App {
	h := NewRefundHandler(svc)
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("requestid", "test-ray-id")
		return c.Next()
	})
	app.Use(auth.WithActor(admin))
	app.Post("/orders/:id/refund", h.RecordRefund)
	app.Get("/orders/:id/refunds", h.ListRefunds)
	return app
}

func postRefund(app *fiber.App, body string) (*http.Response, error) {
	req := httptest.NewRequest("POST", "/orders/order-1/refund", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return app.Test(req)
}

func amountIs(v string) interface{} {
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.RequireFromString(v)) })
}

func TestRefundHandler_RecordRefund(t *testing.T) {
	svc := new(MockRefundService)
	svc.On("RecordRefund", mock.Anything, "order-1", amountIs("1000"), "damaged", admin, false, (*int64)(nil)).
		Return(&domain.RefundRecord{ID: "r-1", OrderID: "order-1", Amount: decimal.NewFromInt(1000)}, nil)

	resp, err := postRefund(setupApp(svc), `{"refundAmount":1000,"reason":"damaged"}`)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var record domain.RefundRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&record))
	assert.Equal(t, "r-1", record.ID)
}

func TestRefundHandler_RecordRefund_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "Exceeds balance", err: domain.ErrRefundExceedsBalance, wantStatus: http.StatusUnprocessableEntity},
		{name: "Unknown order", err: ordersdomain.ErrOrderNotFound, wantStatus: http.StatusNotFound},
		{name: "Stale version", err: ordersdomain.ErrStaleOrderVersion, wantStatus: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockRefundService)
			svc.On("RecordRefund", mock.Anything, "order-1", amountIs("1200"), "damaged", admin, false, (*int64)(nil)).
				Return(nil, tt.err)

			resp, err := postRefund(setupApp(svc), `{"refundAmount":"1200","reason":"damaged"}`)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestRefundHandler_RecordRefund_MissingReason(t *testing.T) {
	svc := new(MockRefundService)

	resp, err := postRefund(setupApp(svc), `{"refundAmount":10}`)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	svc.AssertNotCalled(t, "RecordRefund")
}

func TestRefundHandler_ListRefunds(t *testing.T) {
	svc := new(MockRefundService)
	svc.On("ListRefunds", mock.Anything, "order-1").
		Return([]domain.RefundRecord{{ID: "r-1"}, {ID: "r-2"}}, nil)

	resp, err := setupApp(svc).Test(httptest.NewRequest("GET", "/orders/order-1/refunds", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var records []domain.RefundRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	assert.Len(t, records, 2)
}
