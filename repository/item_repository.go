package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yashrajoria/storefront-service/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListItems returns catalog items, newest first.
func (s *GormStore) ListItems(ctx context.Context, filter ItemFilter) ([]models.Item, error) {
	var items []models.Item

	query := s.db.WithContext(ctx).Model(&models.Item{})
	if filter.DiscountOnly {
		query = query.Where("is_discount = ?", true)
	}
	if !filter.AddedSince.IsZero() {
		query = query.Where("created_at >= ?", filter.AddedSince)
	}

	if err := query.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *GormStore) GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

// LockItems takes FOR UPDATE locks on the items. Rows are read in id order
// so two checkouts touching the same items lock them in the same order.
func (s *GormStore) LockItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Item, error) {
	result := make(map[uuid.UUID]*models.Item, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var items []models.Item
	if err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Find(&items).Error; err != nil {
		return nil, err
	}

	for i := range items {
		result[items[i].ID] = &items[i]
	}
	return result, nil
}

// DecrementStock is a guarded update: the row only changes when enough
// stock is left.
func (s *GormStore) DecrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	result := s.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ? AND quantity >= ?", id, qty).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (s *GormStore) CreateItem(ctx context.Context, item *models.Item) error {
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *GormStore) SetStock(ctx context.Context, id uuid.UUID, qty int) (*models.Item, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ?", id).
		UpdateColumn("quantity", qty)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetItem(ctx, id)
}
