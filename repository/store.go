package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/storefront-service/models"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ItemFilter narrows a catalog listing. Zero values match everything.
type ItemFilter struct {
	DiscountOnly bool
	AddedSince   time.Time
}

// ItemRepository is the inventory ledger: catalog rows and their stock
// counters.
type ItemRepository interface {
	ListItems(ctx context.Context, filter ItemFilter) ([]models.Item, error)
	GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error)
	// LockItems loads and row-locks the given items in ascending id order.
	LockItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Item, error)
	// DecrementStock subtracts qty from the item's stock, failing with
	// ErrInsufficientStock instead of going negative.
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) error
	CreateItem(ctx context.Context, item *models.Item) error
	SetStock(ctx context.Context, id uuid.UUID, qty int) (*models.Item, error)
}

// CartRepository manages carts and their line items.
type CartRepository interface {
	FindCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	// LockCart is FindCart with a row lock held until the transaction ends.
	LockCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	// EnsureCart returns the user's locked cart, creating it if needed.
	EnsureCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	DeleteDuplicateCarts(ctx context.Context, userID, keepID uuid.UUID) (int64, error)
	ListLineItems(ctx context.Context, cartID uuid.UUID) ([]models.CartLineItem, error)
	FindLineItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartLineItem, error)
	CreateLineItem(ctx context.Context, line *models.CartLineItem) error
	UpdateLineItemQuantity(ctx context.Context, id uuid.UUID, qty int) error
	DeleteLineItem(ctx context.Context, id uuid.UUID) error
	// DeleteCart removes the cart together with its line items.
	DeleteCart(ctx context.Context, cartID uuid.UUID) error
}

// OrderRepository stores completed orders.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	// ListOrders returns the user's orders that have at least one line,
	// newest first.
	ListOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	FindOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
}

// Store is the full persistence surface. WithinTransaction runs fn
// against a Store bound to one transaction; returning an error from fn
// rolls everything back.
type Store interface {
	ItemRepository
	CartRepository
	OrderRepository
	WithinTransaction(ctx context.Context, fn func(tx Store) error) error
}
