package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yashrajoria/storefront-service/models"
	"github.com/yashrajoria/storefront-service/repository"
	"go.uber.org/zap"
)

// CartView is the read model of a cart. Subtotal is informational only.
type CartView struct {
	CartID     *uuid.UUID            `json:"cart_id,omitempty"`
	LineItems  []models.CartLineItem `json:"line_items"`
	TotalUnits int                   `json:"total_units"`
	Subtotal   decimal.Decimal       `json:"subtotal"`
}

// CartService manages the single active cart of each user.
type CartService interface {
	AddToCart(ctx context.Context, userID, itemID uuid.UUID) (*models.CartLineItem, error)
	RemoveFromCart(ctx context.Context, userID, itemID uuid.UUID) (*models.CartLineItem, error)
	ViewCart(ctx context.Context, userID uuid.UUID) (*CartView, error)
}

type cartServiceImpl struct {
	store  repository.Store
	logger *zap.Logger
}

// NewCartService creates a new CartService.
func NewCartService(store repository.Store, logger *zap.Logger) CartService {
	return &cartServiceImpl{store: store, logger: logger}
}

// AddToCart adds one unit of the item to the user's cart, creating the cart
// and the line on first use. A line may never hold more units than the
// item has in stock.
func (s *cartServiceImpl) AddToCart(ctx context.Context, userID, itemID uuid.UUID) (*models.CartLineItem, error) {
	var result *models.CartLineItem

	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		item, err := tx.GetItem(ctx, itemID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrItemNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load item: %w", err)
		}

		cart, err := tx.EnsureCart(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to get cart: %w", err)
		}

		purged, err := tx.DeleteDuplicateCarts(ctx, userID, cart.ID)
		if err != nil {
			return fmt.Errorf("failed to purge duplicate carts: %w", err)
		}
		if purged > 0 {
			s.logger.Warn("Removed duplicate carts",
				zap.String("user_id", userID.String()),
				zap.String("kept_cart_id", cart.ID.String()),
				zap.Int64("deleted", purged),
			)
		}

		line, err := tx.FindLineItem(ctx, cart.ID, item.ID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			if item.Quantity < 1 {
				return insufficientStock(item, 1)
			}
			line = &models.CartLineItem{CartID: cart.ID, ItemID: item.ID, Quantity: 1}
			if err := tx.CreateLineItem(ctx, line); err != nil {
				return fmt.Errorf("failed to create cart line: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to load cart line: %w", err)
		default:
			next := line.Quantity + 1
			if next > item.Quantity {
				return insufficientStock(item, next)
			}
			if err := tx.UpdateLineItemQuantity(ctx, line.ID, next); err != nil {
				return fmt.Errorf("failed to update cart line: %w", err)
			}
			line.Quantity = next
		}

		line.Item = *item
		result = line
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Item added to cart",
		zap.String("user_id", userID.String()),
		zap.String("item_id", itemID.String()),
		zap.Int("quantity", result.Quantity),
	)
	return result, nil
}

// RemoveFromCart takes one unit of the item out of the cart. The line is
// deleted when its last unit goes, in which case nil is returned.
func (s *cartServiceImpl) RemoveFromCart(ctx context.Context, userID, itemID uuid.UUID) (*models.CartLineItem, error) {
	var remaining *models.CartLineItem

	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		cart, err := tx.LockCart(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCartNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get cart: %w", err)
		}

		line, err := tx.FindLineItem(ctx, cart.ID, itemID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrLineItemNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load cart line: %w", err)
		}

		if line.Quantity > 1 {
			if err := tx.UpdateLineItemQuantity(ctx, line.ID, line.Quantity-1); err != nil {
				return fmt.Errorf("failed to update cart line: %w", err)
			}
			line.Quantity--
			remaining = line
			return nil
		}

		if err := tx.DeleteLineItem(ctx, line.ID); err != nil {
			return fmt.Errorf("failed to delete cart line: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return remaining, nil
}

// ViewCart returns the user's cart, or an empty view when there is none.
func (s *cartServiceImpl) ViewCart(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	cart, err := s.store.FindCart(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return &CartView{LineItems: []models.CartLineItem{}, Subtotal: decimal.Zero}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return buildCartView(ctx, s.store, cart)
}

func buildCartView(ctx context.Context, store repository.CartRepository, cart *models.Cart) (*CartView, error) {
	lines, err := store.ListLineItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart lines: %w", err)
	}

	view := &CartView{CartID: &cart.ID, LineItems: lines, Subtotal: decimal.Zero}
	for i := range lines {
		view.TotalUnits += lines[i].Quantity
		view.Subtotal = view.Subtotal.Add(lines[i].Item.EffectivePrice().Mul(decimal.NewFromInt(int64(lines[i].Quantity))))
	}
	return view, nil
}

func insufficientStock(item *models.Item, requested int) *InsufficientStockError {
	return &InsufficientStockError{
		ItemID:    item.ID,
		ItemName:  item.Name,
		Requested: requested,
		Available: item.Quantity,
	}
}
