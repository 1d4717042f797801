package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is wrapped by every "missing row" error of this package.
	ErrNotFound = errors.New("not found")

	ErrItemNotFound     = fmt.Errorf("item %w", ErrNotFound)
	ErrCartNotFound     = fmt.Errorf("cart %w", ErrNotFound)
	ErrLineItemNotFound = fmt.Errorf("cart line item %w", ErrNotFound)
	ErrOrderNotFound    = fmt.Errorf("order %w", ErrNotFound)

	ErrEmptyCart   = errors.New("cart is empty")
	ErrInvalidItem = errors.New("invalid item")
)

// InsufficientStockError reports a cart or checkout request that asks for
// more units than the item has in stock. Nothing is changed when it is
// returned.
type InsufficientStockError struct {
	ItemID    uuid.UUID
	ItemName  string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d", e.ItemName, e.Requested, e.Available)
}
