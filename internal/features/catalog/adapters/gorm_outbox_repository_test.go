package adapter

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"order-settlement/internal/core/config"
	"order-settlement/internal/core/database"
	"order-settlement/internal/features/catalog/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *GormOutboxRepository {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "outbox.db"),
	}, "error")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return NewGormOutboxRepository(db)
}

func event(id string, created time.Time) *domain.OutboxEvent {
	return &domain.OutboxEvent{
		ID:        id,
		Topic:     "catalog.stock-restoration",
		Key:       "order-" + id,
		Payload:   []byte(`{"orderId":"order-` + id + `"}`),
		CreatedAt: created,
	}
}

func TestGormOutboxRepository_PendingLifecycle(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Insert(ctx, event("b", base.Add(time.Minute))))
	require.NoError(t, repo.Insert(ctx, event("a", base)))
	require.NoError(t, repo.Insert(ctx, event("c", base.Add(2*time.Minute))))

	pending, err := repo.ListPending(ctx, 2)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "a", pending[0].ID)
	assert.Equal(t, "b", pending[1].ID)
	assert.Equal(t, `{"orderId":"order-a"}`, string(pending[0].Payload))
	assert.True(t, pending[0].Pending())

	require.NoError(t, repo.MarkPublished(ctx, "a", base.Add(time.Hour)))
	require.NoError(t, repo.MarkFailed(ctx, "b", "broker unavailable"))
	require.NoError(t, repo.MarkFailed(ctx, "b", "broker still unavailable"))

	pending, err = repo.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "b", pending[0].ID)
	assert.Equal(t, 2, pending[0].Attempts)
	assert.Equal(t, "broker still unavailable", pending[0].LastError)
	assert.Equal(t, "c", pending[1].ID)
}
