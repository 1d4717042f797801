package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yashrajoria/storefront-service/models"
	"github.com/yashrajoria/storefront-service/repository"
	"go.uber.org/zap"
)

// Cache list names.
const (
	ListAll          = "all"
	ListDiscounts    = "discounts"
	ListNewAdditions = "new_additions"
)

const DefaultNewAdditionsWindow = 7 * 24 * time.Hour

// CatalogService serves the catalog listings and the admin edits of items.
type CatalogService interface {
	ListItems(ctx context.Context) ([]models.Item, error)
	ListDiscounts(ctx context.Context) ([]models.Item, error)
	ListNewAdditions(ctx context.Context) ([]models.Item, error)
	GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error)
	CreateItem(ctx context.Context, req *models.CreateItemRequest) (*models.Item, error)
	SetStock(ctx context.Context, id uuid.UUID, qty int) (*models.Item, error)
}

type catalogServiceImpl struct {
	items     repository.ItemRepository
	cache     CatalogCache
	signer    ImageSigner
	newWindow time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewCatalogService creates a new CatalogService. cache and signer are
// optional; a zero newWindow means seven days.
func NewCatalogService(
	items repository.ItemRepository,
	cache CatalogCache,
	signer ImageSigner,
	newWindow time.Duration,
	logger *zap.Logger,
) CatalogService {
	if newWindow <= 0 {
		newWindow = DefaultNewAdditionsWindow
	}
	return &catalogServiceImpl{
		items:     items,
		cache:     cache,
		signer:    signer,
		newWindow: newWindow,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *catalogServiceImpl) ListItems(ctx context.Context) ([]models.Item, error) {
	return s.list(ctx, ListAll, repository.ItemFilter{})
}

func (s *catalogServiceImpl) ListDiscounts(ctx context.Context) ([]models.Item, error) {
	return s.list(ctx, ListDiscounts, repository.ItemFilter{DiscountOnly: true})
}

// ListNewAdditions returns the items created within the configured window.
func (s *catalogServiceImpl) ListNewAdditions(ctx context.Context) ([]models.Item, error) {
	since := s.now().Add(-s.newWindow)
	items, err := s.list(ctx, ListNewAdditions, repository.ItemFilter{AddedSince: since})
	if err != nil {
		return nil, err
	}

	// a cached list may predate the current window
	fresh := items[:0]
	for _, item := range items {
		if !item.CreatedAt.Before(since) {
			fresh = append(fresh, item)
		}
	}
	return fresh, nil
}

func (s *catalogServiceImpl) GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	item, err := s.items.GetItem(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	s.signImage(ctx, item)
	return item, nil
}

func (s *catalogServiceImpl) CreateItem(ctx context.Context, req *models.CreateItemRequest) (*models.Item, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidItem)
	}
	if !req.Price.IsPositive() {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidItem)
	}
	if req.Quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", ErrInvalidItem)
	}

	item := &models.Item{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		IsDiscount:  req.IsDiscount,
		Quantity:    req.Quantity,
	}
	if req.DiscountPrice != nil {
		if req.DiscountPrice.IsNegative() || req.DiscountPrice.GreaterThan(req.Price) {
			return nil, fmt.Errorf("%w: discount price must be between 0 and price", ErrInvalidItem)
		}
		item.DiscountPrice = decimal.NewNullDecimal(*req.DiscountPrice)
	}
	if req.ImageKey != "" {
		key := req.ImageKey
		item.ImageKey = &key
	}

	if err := s.items.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	s.logger.Info("Item created", zap.String("item_id", item.ID.String()), zap.String("name", item.Name))
	s.invalidate(ctx)
	s.signImage(ctx, item)
	return item, nil
}

// SetStock overwrites the stock counter. It is the restock path and sits
// outside the cart and checkout flow.
func (s *catalogServiceImpl) SetStock(ctx context.Context, id uuid.UUID, qty int) (*models.Item, error) {
	if qty < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", ErrInvalidItem)
	}

	item, err := s.items.SetStock(ctx, id, qty)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set stock: %w", err)
	}

	s.logger.Info("Stock set", zap.String("item_id", id.String()), zap.Int("quantity", qty))
	s.invalidate(ctx)
	return item, nil
}

// list is a read-through over the catalog cache. Cache errors fall back to
// the database.
func (s *catalogServiceImpl) list(ctx context.Context, name string, filter repository.ItemFilter) ([]models.Item, error) {
	var version int64
	cacheable := false
	if s.cache != nil {
		items, v, ok, err := s.cache.GetList(ctx, name)
		switch {
		case err != nil:
			s.logger.Warn("Catalog cache read failed", zap.String("list", name), zap.Error(err))
		case ok:
			s.signImages(ctx, items)
			return items, nil
		default:
			version, cacheable = v, true
		}
	}

	items, err := s.items.ListItems(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	if cacheable {
		if err := s.cache.SetList(ctx, name, version, items); err != nil {
			s.logger.Warn("Catalog cache write failed", zap.String("list", name), zap.Error(err))
		}
	}

	s.signImages(ctx, items)
	return items, nil
}

func (s *catalogServiceImpl) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("Failed to invalidate catalog cache", zap.Error(err))
	}
}

func (s *catalogServiceImpl) signImages(ctx context.Context, items []models.Item) {
	for i := range items {
		s.signImage(ctx, &items[i])
	}
}

func (s *catalogServiceImpl) signImage(ctx context.Context, item *models.Item) {
	if s.signer == nil || item.ImageKey == nil || *item.ImageKey == "" {
		return
	}
	url, err := s.signer.PresignGet(ctx, *item.ImageKey)
	if err != nil {
		s.logger.Warn("Failed to presign item image", zap.String("item_id", item.ID.String()), zap.Error(err))
		return
	}
	item.ImageURL = url
}
