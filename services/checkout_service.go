package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/storefront-service/events"
	"github.com/yashrajoria/storefront-service/models"
	aws_pkg "github.com/yashrajoria/storefront-service/pkg/aws"
	"github.com/yashrajoria/storefront-service/repository"
	"go.uber.org/zap"
)

// CheckoutState tracks one checkout attempt.
type CheckoutState string

const (
	CheckoutPending    CheckoutState = "pending"
	CheckoutValidating CheckoutState = "validating"
	CheckoutCommitted  CheckoutState = "committed"
	CheckoutRejected   CheckoutState = "rejected"
)

// CheckoutResult is the outcome of Checkout. Replayed is set when an
// idempotency key matched an earlier checkout and nothing was run.
type CheckoutResult struct {
	State    CheckoutState `json:"state"`
	Order    *models.Order `json:"order,omitempty"`
	Replayed bool          `json:"replayed"`
}

// CheckoutService turns a cart into a completed order.
type CheckoutService interface {
	Summary(ctx context.Context, userID uuid.UUID) (*CartView, error)
	Checkout(ctx context.Context, userID uuid.UUID, idempotencyKey string) (*CheckoutResult, error)
}

type checkoutServiceImpl struct {
	store     repository.Store
	publisher EventPublisher
	catalog   CatalogCache
	idem      IdempotencyStore
	metrics   MetricsRecorder
	logger    *zap.Logger
	now       func() time.Time
}

// NewCheckoutService creates a new CheckoutService. publisher, catalog,
// idem and metrics are optional.
func NewCheckoutService(
	store repository.Store,
	publisher EventPublisher,
	catalog CatalogCache,
	idem IdempotencyStore,
	metrics MetricsRecorder,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutServiceImpl{
		store:     store,
		publisher: publisher,
		catalog:   catalog,
		idem:      idem,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Summary is the cart as it would be checked out.
func (s *checkoutServiceImpl) Summary(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	cart, err := s.store.FindCart(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return buildCartView(ctx, s.store, cart)
}

// Checkout validates every cart line against locked stock and then, in the
// same transaction, records the order, decrements stock and deletes the
// cart. Any failure leaves all rows as they were.
func (s *checkoutServiceImpl) Checkout(ctx context.Context, userID uuid.UUID, idempotencyKey string) (*CheckoutResult, error) {
	if replay := s.replay(ctx, userID, idempotencyKey); replay != nil {
		return replay, nil
	}

	result := &CheckoutResult{State: CheckoutPending}
	var order *models.Order

	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		cart, err := tx.LockCart(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCartNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock cart: %w", err)
		}

		lines, err := tx.ListLineItems(ctx, cart.ID)
		if err != nil {
			return fmt.Errorf("failed to list cart lines: %w", err)
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		result.State = CheckoutValidating
		items, err := tx.LockItems(ctx, sortedItemIDs(lines))
		if err != nil {
			return fmt.Errorf("failed to lock items: %w", err)
		}

		for _, line := range lines {
			item, ok := items[line.ItemID]
			if !ok {
				return fmt.Errorf("cart line %s: %w", line.ID, ErrItemNotFound)
			}
			if line.Quantity > item.Quantity {
				result.State = CheckoutRejected
				return insufficientStock(item, line.Quantity)
			}
		}

		order = &models.Order{UserID: userID, CompletedAt: s.now().UTC()}
		for _, line := range lines {
			order.LineItems = append(order.LineItems, models.OrderLineItem{ItemID: line.ItemID, Quantity: line.Quantity})
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for _, line := range lines {
			item := items[line.ItemID]
			if err := tx.DecrementStock(ctx, line.ItemID, line.Quantity); err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					result.State = CheckoutRejected
					return insufficientStock(item, line.Quantity)
				}
				return fmt.Errorf("failed to decrement stock: %w", err)
			}
			item.Quantity -= line.Quantity
		}

		if err := tx.DeleteCart(ctx, cart.ID); err != nil {
			return fmt.Errorf("failed to delete cart: %w", err)
		}

		for i := range order.LineItems {
			order.LineItems[i].Item = *items[order.LineItems[i].ItemID]
		}
		return nil
	})
	if errors.Is(err, ErrCartNotFound) {
		// A concurrent checkout with the same key may have committed and
		// deleted the cart after the first lookup.
		if replay := s.replay(ctx, userID, idempotencyKey); replay != nil {
			return replay, nil
		}
	}
	if err != nil {
		var stockErr *InsufficientStockError
		if errors.As(err, &stockErr) {
			s.logger.Info("Checkout rejected",
				zap.String("user_id", userID.String()),
				zap.String("item_id", stockErr.ItemID.String()),
				zap.Int("requested", stockErr.Requested),
				zap.Int("available", stockErr.Available),
			)
		}
		return result, err
	}

	result.State = CheckoutCommitted
	result.Order = order

	s.logger.Info("Checkout committed",
		zap.String("user_id", userID.String()),
		zap.String("order_id", order.ID.String()),
		zap.Int("lines", len(order.LineItems)),
	)

	s.afterCommit(context.WithoutCancel(ctx), userID, idempotencyKey, order)
	return result, nil
}

// replay returns the earlier result for a known idempotency key. Lookup
// failures fall through to a normal checkout.
func (s *checkoutServiceImpl) replay(ctx context.Context, userID uuid.UUID, key string) *CheckoutResult {
	if s.idem == nil || key == "" {
		return nil
	}

	orderID, ok, err := s.idem.Get(ctx, userID, key)
	if err != nil {
		s.logger.Warn("Idempotency lookup failed", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	order, err := s.store.FindOrder(ctx, userID, orderID)
	if err != nil {
		s.logger.Warn("Idempotent order lookup failed",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
		return nil
	}
	return &CheckoutResult{State: CheckoutCommitted, Order: order, Replayed: true}
}

// afterCommit runs the best-effort side effects of a committed checkout.
// Failures are logged and never undo the order.
func (s *checkoutServiceImpl) afterCommit(ctx context.Context, userID uuid.UUID, key string, order *models.Order) {
	if s.idem != nil && key != "" {
		if err := s.idem.Set(ctx, userID, key, order.ID); err != nil {
			s.logger.Warn("Failed to store idempotency key", zap.Error(err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishOrderCompleted(ctx, events.NewOrderCompletedEvent(order)); err != nil {
			s.logger.Error("Failed to publish order event",
				zap.String("order_id", order.ID.String()),
				zap.Error(err),
			)
		}
	}

	if s.catalog != nil {
		if err := s.catalog.Invalidate(ctx); err != nil {
			s.logger.Warn("Failed to invalidate catalog cache", zap.Error(err))
		}
	}

	if s.metrics != nil {
		for _, name := range []string{aws_pkg.MetricOrdersCompleted, aws_pkg.MetricCartCheckouts} {
			if err := s.metrics.RecordCount(ctx, name, nil); err != nil {
				s.logger.Warn("Failed to record metric", zap.String("metric", name), zap.Error(err))
			}
		}
	}
}

// sortedItemIDs returns the distinct item ids of the lines in ascending
// order, the order in which row locks are taken.
func sortedItemIDs(lines []models.CartLineItem) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ItemID]; ok {
			continue
		}
		seen[line.ItemID] = struct{}{}
		ids = append(ids, line.ItemID)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}
