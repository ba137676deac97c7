package services

import (
	"context"
	"errors"
	"testing"

	"github.com/princinho/smartshop/models"
	"github.com/princinho/smartshop/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutService_Checkout(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	lamp := seedProduct(t, s, "Lamp", "Home", 10.1)
	mug := seedProduct(t, s, "Mug", "Kitchen", 0.2)
	seedUser(t, s, "u1",
		models.CartItem{ProductID: lamp.Id.Hex(), Quantity: 1},
		models.CartItem{ProductID: mug.Id.Hex(), Quantity: 3},
	)
	svc := NewCheckoutService(s, s, s)

	order, err := svc.Checkout(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 10.7, order.Total)
	assert.Equal(t, models.OrderStatusProcessing, order.Status)
	assert.Equal(t, "u1@example.com", order.Email)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "Lamp", order.Items[0].Name)

	u, err := s.GetUserBySupabaseID(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, u.Cart)

	orders, err := s.ListOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	_, err = svc.Checkout(ctx, "u1")
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutService_Errors(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	svc := NewCheckoutService(s, s, s)

	_, err := svc.Checkout(ctx, "")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = svc.Checkout(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestCheckoutService_RestoresCartWhenOrderFails(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	lamp := seedProduct(t, s, "Lamp", "Home", 10)
	cart := []models.CartItem{{ProductID: lamp.Id.Hex(), Quantity: 2}}
	seedUser(t, s, "u1", cart...)
	s.FailCreateOrder = errors.New("insert failed")
	svc := NewCheckoutService(s, s, s)

	_, err := svc.Checkout(ctx, "u1")
	require.Error(t, err)

	u, err := s.GetUserBySupabaseID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, cart, u.Cart)
}
