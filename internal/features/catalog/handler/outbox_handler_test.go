package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"order-settlement/internal/features/catalog/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockFlusher is a mock implementation of Flusher.
type MockFlusher struct {
	mock.Mock
}

func (m *MockFlusher) Flush(ctx context.Context) (domain.FlushResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.FlushResult), args.Error(1)
}

func setupApp(f Flusher) *fiber.App {
	h := NewOutboxHandler(f)
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("requestid", "test-ray-id")
		return c.Next()
	})
	app.Post("/admin/outbox/flush", h.Flush)
	return app
}

func TestOutboxHandler_Flush(t *testing.T) {
	f := new(MockFlusher)
	f.On("Flush", mock.Anything).Return(domain.FlushResult{Published: 3, Failed: 1}, nil)

	resp, err := setupApp(f).Test(httptest.NewRequest("POST", "/admin/outbox/flush", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body domain.FlushResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, domain.FlushResult{Published: 3, Failed: 1}, body)
}

func TestOutboxHandler_Flush_Error(t *testing.T) {
	f := new(MockFlusher)
	f.On("Flush", mock.Anything).Return(domain.FlushResult{}, assert.AnError)

	resp, err := setupApp(f).Test(httptest.NewRequest("POST", "/admin/outbox/flush", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "test-ray-id", body.RayID)
}
