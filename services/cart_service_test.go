package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/storefront-service/models"
	"github.com/yashrajoria/storefront-service/repository"
	"github.com/yashrajoria/storefront-service/services"
	"go.uber.org/zap"
)

func newCartService() (services.CartService, *repository.MemoryStore) {
	store := repository.NewMemoryStore()
	return services.NewCartService(store, zap.NewNop()), store
}

func TestAddToCart_StopsAtStock(t *testing.T) {
	svc, store := newCartService()
	ctx := context.Background()
	userID := uuid.New()
	item := seedItem(t, store, "Kettle", "30.00", 5)

	for i := 1; i <= 5; i++ {
		line, err := svc.AddToCart(ctx, userID, item.ID)
		require.NoError(t, err)
		assert.Equal(t, i, line.Quantity)
	}

	_, err := svc.AddToCart(ctx, userID, item.ID)
	var stockErr *services.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, item.ID, stockErr.ItemID)
	assert.Equal(t, 6, stockErr.Requested)
	assert.Equal(t, 5, stockErr.Available)

	view, err := svc.ViewCart(ctx, userID)
	require.NoError(t, err)
	require.Len(t, view.LineItems, 1)
	assert.Equal(t, 5, view.LineItems[0].Quantity)
	assert.Equal(t, 5, stockOf(t, store, item.ID))
}

func TestAddToCart_OutOfStockCreatesNothing(t *testing.T) {
	svc, store := newCartService()
	ctx := context.Background()
	userID := uuid.New()
	item := seedItem(t, store, "Kettle", "30.00", 0)

	_, err := svc.AddToCart(ctx, userID, item.ID)
	var stockErr *services.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 1, stockErr.Requested)

	_, err = store.FindCart(ctx, userID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAddToCart_UnknownItem(t *testing.T) {
	svc, _ := newCartService()

	_, err := svc.AddToCart(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, services.ErrItemNotFound)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestAddToCart_OneCartPerUser(t *testing.T) {
	svc, store := newCartService()
	ctx := context.Background()
	userID := uuid.New()
	a := seedItem(t, store, "A", "1.00", 3)
	b := seedItem(t, store, "B", "2.00", 3)

	first, err := svc.AddToCart(ctx, userID, a.ID)
	require.NoError(t, err)
	second, err := svc.AddToCart(ctx, userID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, first.CartID, second.CartID)

	other, err := svc.AddToCart(ctx, uuid.New(), a.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.CartID, other.CartID)
}

func TestRemoveFromCart(t *testing.T) {
	svc, store := newCartService()
	ctx := context.Background()
	userID := uuid.New()
	item := seedItem(t, store, "Kettle", "30.00", 5)

	_, err := svc.AddToCart(ctx, userID, item.ID)
	require.NoError(t, err)
	_, err = svc.AddToCart(ctx, userID, item.ID)
	require.NoError(t, err)

	t.Run("quantity two decrements", func(t *testing.T) {
		line, err := svc.RemoveFromCart(ctx, userID, item.ID)
		require.NoError(t, err)
		require.NotNil(t, line)
		assert.Equal(t, 1, line.Quantity)
	})

	t.Run("quantity one deletes the row", func(t *testing.T) {
		line, err := svc.RemoveFromCart(ctx, userID, item.ID)
		require.NoError(t, err)
		assert.Nil(t, line)

		view, err := svc.ViewCart(ctx, userID)
		require.NoError(t, err)
		assert.Empty(t, view.LineItems)
	})

	t.Run("missing line", func(t *testing.T) {
		_, err := svc.RemoveFromCart(ctx, userID, item.ID)
		assert.ErrorIs(t, err, services.ErrLineItemNotFound)
	})
}

func TestRemoveFromCart_NoCart(t *testing.T) {
	svc, store := newCartService()
	ctx := context.Background()
	userID := uuid.New()
	item := seedItem(t, store, "Kettle", "30.00", 5)

	_, err := svc.RemoveFromCart(ctx, userID, item.ID)
	assert.ErrorIs(t, err, services.ErrCartNotFound)
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = store.FindCart(ctx, userID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestViewCart_Empty(t *testing.T) {
	svc, _ := newCartService()

	view, err := svc.ViewCart(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, view.CartID)
	assert.Empty(t, view.LineItems)
	assert.Equal(t, 0, view.TotalUnits)
}

func TestViewCart_SubtotalUsesDiscountPrice(t *testing.T) {
	svc, store := newCartService()
	ctx := context.Background()
	userID := uuid.New()

	plain := seedItem(t, store, "Plain", "10.00", 5)
	discounted := &models.Item{
		Name:          "Sale",
		Price:         decimal.RequireFromString("20.00"),
		DiscountPrice: decimal.NewNullDecimal(decimal.RequireFromString("15.50")),
		IsDiscount:    true,
		Quantity:      5,
	}
	require.NoError(t, store.CreateItem(ctx, discounted))

	for _, id := range []uuid.UUID{plain.ID, plain.ID, discounted.ID} {
		_, err := svc.AddToCart(ctx, userID, id)
		require.NoError(t, err)
	}

	view, err := svc.ViewCart(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 3, view.TotalUnits)
	assert.Equal(t, "35.50", view.Subtotal.StringFixed(2))
}
