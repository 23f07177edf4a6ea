package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garment-portal-backend/internal/identity"
	"garment-portal-backend/internal/model"
	"garment-portal-backend/internal/store"
)

func TestLoadCountsOrders(t *testing.T) {
	st := store.NewMemory(nil, nil)
	ctx := context.Background()
	require.NoError(t, st.PutProfile(ctx, model.ProfileItem{UserID: "u1", CompanyName: "Loom & Co"}))

	orders := []model.OrderItem{
		{ID: "o1", UserID: "u1", Status: model.OrderStatusProduction, CreatedAt: "2026-01-01T00:00:00.000000Z"},
		{ID: "o2", UserID: "u1", Status: model.OrderStatusDelivered, CreatedAt: "2026-01-02T00:00:00.000000Z"},
		{ID: "o3", UserID: "u1", Status: model.OrderStatusCancelled, CreatedAt: "2026-01-03T00:00:00.000000Z"},
		{ID: "o4", UserID: "u2", Status: model.OrderStatusPending, CreatedAt: "2026-01-04T00:00:00.000000Z"},
	}
	for _, o := range orders {
		require.NoError(t, st.CreateOrder(ctx, o))
	}

	res, err := New(st).Load(ctx, identity.Identity{UserID: "u1"})
	require.NoError(t, err)
	require.NotNil(t, res.Profile)
	assert.Equal(t, "Loom & Co", res.Profile.CompanyName)
	require.Len(t, res.Orders, 3)
	assert.Equal(t, "o3", res.Orders[0].ID)
	assert.Equal(t, -1, res.Orders[0].Step)
	assert.Equal(t, 5, res.Orders[1].Step)
	assert.Equal(t, 2, res.Orders[2].Step)
	assert.Equal(t, 1, res.Active)
	assert.Equal(t, 1, res.Completed)
	assert.Len(t, res.Steps, 6)
}

func TestLoadWithoutProfile(t *testing.T) {
	res, err := New(store.NewMemory(nil, nil)).Load(context.Background(), identity.Identity{UserID: "nobody"})
	require.NoError(t, err)
	assert.Nil(t, res.Profile)
	assert.Empty(t, res.Orders)
}

type failingOrders struct {
	*store.Memory
}

func (failingOrders) ListOrdersByUser(context.Context, string) ([]model.OrderItem, error) {
	return nil, errors.New("throttled")
}

func TestLoadStoreFailure(t *testing.T) {
	_, err := New(failingOrders{store.NewMemory(nil, nil)}).Load(context.Background(), identity.Identity{UserID: "u1"})
	var dErr *Error
	require.True(t, errors.As(err, &dErr))
	assert.Equal(t, ErrorCodeInternal, dErr.Code)
	assert.Equal(t, "failed to load orders", dErr.Message)
}
