package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	ordersdomain "order-settlement/internal/features/orders/domain"
	"order-settlement/internal/features/payouts/domain"
	"order-settlement/internal/features/payouts/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSettler is a mock implementation of Settler.
type MockSettler struct {
	mock.Mock
}

func (m *MockSettler) Settle(ctx context.Context, orderID string) (*service.SettleResult, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SettleResult), args.Error(1)
}

func setupApp(s Settler) *fiber.App {
	h := NewPayoutHandler(s)
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("requestid", "test-ray-id")
		return c.Next()
	})
	app.Post("/orders/:id/settle", h.Settle)
	return app
}

func TestPayoutHandler_Settle(t *testing.T) {
	tests := []struct {
		name        string
		result      *service.SettleResult
		err         error
		wantStatus  int
		wantOutcome string
	}{
		{
			name:        "Settled",
			result:      &service.SettleResult{Outcome: service.OutcomeSettled, Payouts: []domain.PayoutRecord{{SellerID: "X"}}},
			wantStatus:  http.StatusCreated,
			wantOutcome: "settled",
		},
		{
			name:        "Already settled",
			result:      &service.SettleResult{Outcome: service.OutcomeAlreadySettled, Payouts: []domain.PayoutRecord{{SellerID: "X"}}},
			wantStatus:  http.StatusOK,
			wantOutcome: "already_settled",
		},
		{name: "Unknown order", err: ordersdomain.ErrOrderNotFound, wantStatus: http.StatusNotFound},
		{name: "Not delivered", err: domain.ErrNotDelivered, wantStatus: http.StatusConflict},
		{name: "Failure", err: assert.AnError, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := new(MockSettler)
			if tt.err != nil {
				s.On("Settle", mock.Anything, "order-1").Return(nil, tt.err)
			} else {
				s.On("Settle", mock.Anything, "order-1").Return(tt.result, nil)
			}

			resp, err := setupApp(s).Test(httptest.NewRequest("POST", "/orders/order-1/settle", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantOutcome != "" {
				var body map[string]interface{}
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tt.wantOutcome, body["outcome"])
			}
		})
	}
}
