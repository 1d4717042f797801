package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/storefront-service/repository"
	"github.com/yashrajoria/storefront-service/services"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type checkoutFixture struct {
	store     *repository.MemoryStore
	cart      services.CartService
	checkout  services.CheckoutService
	publisher *mockPublisher
	cache     *mockCatalogCache
	idem      *mockIdempotencyStore
	metrics   *mockMetrics
}

func newCheckoutFixture() *checkoutFixture {
	f := &checkoutFixture{
		store:     repository.NewMemoryStore(),
		publisher: &mockPublisher{},
		cache:     newMockCatalogCache(),
		idem:      newMockIdempotencyStore(),
		metrics:   &mockMetrics{},
	}
	logger := zap.NewNop()
	f.cart = services.NewCartService(f.store, logger)
	f.checkout = services.NewCheckoutService(f.store, f.publisher, f.cache, f.idem, f.metrics, logger)
	return f
}

func (f *checkoutFixture) add(t *testing.T, userID, itemID uuid.UUID, times int) {
	t.Helper()
	for i := 0; i < times; i++ {
		_, err := f.cart.AddToCart(context.Background(), userID, itemID)
		require.NoError(t, err)
	}
}

func TestCheckout_Commits(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	userID := uuid.New()
	item := seedItem(t, f.store, "Teapot", "25.00", 3)
	f.add(t, userID, item.ID, 3)

	result, err := f.checkout.Checkout(ctx, userID, "")
	require.NoError(t, err)
	assert.Equal(t, services.CheckoutCommitted, result.State)
	assert.False(t, result.Replayed)
	require.NotNil(t, result.Order)
	require.Len(t, result.Order.LineItems, 1)
	assert.Equal(t, item.ID, result.Order.LineItems[0].ItemID)
	assert.Equal(t, 3, result.Order.LineItems[0].Quantity)

	assert.Equal(t, 0, stockOf(t, f.store, item.ID))

	_, err = f.store.FindCart(ctx, userID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	orders, err := f.store.ListOrders(ctx, userID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, result.Order.ID, orders[0].ID)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, "order.completed", f.publisher.events[0].EventType)
	assert.Equal(t, 3, f.publisher.events[0].TotalUnits)
	assert.Equal(t, 1, f.cache.invalidated)
	assert.Equal(t, 1, f.metrics.count["OrdersCompleted"])
	assert.Equal(t, 1, f.metrics.count["CartCheckouts"])
}

func TestCheckout_RejectsWholeCart(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	userID := uuid.New()
	fine := seedItem(t, f.store, "Cup", "5.00", 10)
	short := seedItem(t, f.store, "Saucer", "4.00", 4)
	f.add(t, userID, fine.ID, 2)
	f.add(t, userID, short.ID, 4)

	// stock dropped after the add
	_, err := f.store.SetStock(ctx, short.ID, 1)
	require.NoError(t, err)

	result, err := f.checkout.Checkout(ctx, userID, "")
	var stockErr *services.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, short.ID, stockErr.ItemID)
	assert.Equal(t, "Saucer", stockErr.ItemName)
	assert.Equal(t, 4, stockErr.Requested)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, services.CheckoutRejected, result.State)
	assert.Nil(t, result.Order)

	assert.Equal(t, 10, stockOf(t, f.store, fine.ID))
	assert.Equal(t, 1, stockOf(t, f.store, short.ID))

	orders, err := f.store.ListOrders(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, orders)

	view, err := f.cart.ViewCart(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, view.LineItems, 2)
	assert.Equal(t, 6, view.TotalUnits)

	assert.Empty(t, f.publisher.events)
	assert.Equal(t, 0, f.cache.invalidated)
}

func TestCheckout_NoCart(t *testing.T) {
	f := newCheckoutFixture()

	_, err := f.checkout.Checkout(context.Background(), uuid.New(), "")
	assert.ErrorIs(t, err, services.ErrCartNotFound)
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	userID := uuid.New()
	item := seedItem(t, f.store, "Cup", "5.00", 10)
	f.add(t, userID, item.ID, 1)
	_, err := f.cart.RemoveFromCart(ctx, userID, item.ID)
	require.NoError(t, err)

	_, err = f.checkout.Checkout(ctx, userID, "")
	assert.ErrorIs(t, err, services.ErrEmptyCart)
}

func TestCheckout_IdempotencyKeyReplays(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	userID := uuid.New()
	item := seedItem(t, f.store, "Cup", "5.00", 10)
	f.add(t, userID, item.ID, 2)

	first, err := f.checkout.Checkout(ctx, userID, "key-1")
	require.NoError(t, err)

	second, err := f.checkout.Checkout(ctx, userID, "key-1")
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, services.CheckoutCommitted, second.State)
	assert.Equal(t, first.Order.ID, second.Order.ID)

	assert.Equal(t, 8, stockOf(t, f.store, item.ID))
	assert.Len(t, f.publisher.events, 1)

	// another user's key space is separate
	_, err = f.checkout.Checkout(ctx, uuid.New(), "key-1")
	assert.ErrorIs(t, err, services.ErrCartNotFound)
}

func TestCheckout_SameKeyAfterCartDeletedReplays(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	userID := uuid.New()
	item := seedItem(t, f.store, "Cup", "5.00", 10)
	f.add(t, userID, item.ID, 2)

	first, err := f.checkout.Checkout(ctx, userID, "key-1")
	require.NoError(t, err)

	// the second request looked the key up before the first stored it
	f.idem.misses = 1
	second, err := f.checkout.Checkout(ctx, userID, "key-1")
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Order.ID, second.Order.ID)
	assert.Equal(t, 8, stockOf(t, f.store, item.ID))

	// without a key the missing cart is still an error
	_, err = f.checkout.Checkout(ctx, userID, "")
	assert.ErrorIs(t, err, services.ErrCartNotFound)
}

func TestCheckout_PublishFailureKeepsOrder(t *testing.T) {
	f := newCheckoutFixture()
	f.publisher.err = errBoom
	ctx := context.Background()
	userID := uuid.New()
	item := seedItem(t, f.store, "Cup", "5.00", 1)
	f.add(t, userID, item.ID, 1)

	result, err := f.checkout.Checkout(ctx, userID, "")
	require.NoError(t, err)
	assert.Equal(t, services.CheckoutCommitted, result.State)
	assert.Equal(t, 0, stockOf(t, f.store, item.ID))
}

func TestCheckout_OptionalDependencies(t *testing.T) {
	store := repository.NewMemoryStore()
	cart := services.NewCartService(store, zap.NewNop())
	checkout := services.NewCheckoutService(store, nil, nil, nil, nil, zap.NewNop())
	ctx := context.Background()
	userID := uuid.New()
	item := seedItem(t, store, "Cup", "5.00", 1)

	_, err := cart.AddToCart(ctx, userID, item.ID)
	require.NoError(t, err)

	result, err := checkout.Checkout(ctx, userID, "ignored")
	require.NoError(t, err)
	assert.Equal(t, services.CheckoutCommitted, result.State)
}

func TestCheckout_LastUnitConcurrently(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newCheckoutFixture()
	ctx := context.Background()
	item := seedItem(t, f.store, "Last one", "99.00", 1)

	users := make([]uuid.UUID, 8)
	for i := range users {
		users[i] = uuid.New()
		f.add(t, users[i], item.ID, 1)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for _, userID := range users {
		wg.Add(1)
		go func(userID uuid.UUID) {
			defer wg.Done()
			_, err := f.checkout.Checkout(ctx, userID, "")

			mu.Lock()
			defer mu.Unlock()
			var stockErr *services.InsufficientStockError
			switch {
			case err == nil:
				succeeded++
			case errors.As(err, &stockErr):
				rejected++
			}
		}(userID)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, len(users)-1, rejected)
	assert.Equal(t, 0, stockOf(t, f.store, item.ID))
}

func TestSummary(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	userID := uuid.New()

	_, err := f.checkout.Summary(ctx, userID)
	assert.ErrorIs(t, err, services.ErrCartNotFound)

	item := seedItem(t, f.store, "Cup", "5.00", 10)
	f.add(t, userID, item.ID, 2)

	view, err := f.checkout.Summary(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, view.TotalUnits)
	assert.Equal(t, "10.00", view.Subtotal.StringFixed(2))
}
