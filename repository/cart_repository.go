package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yashrajoria/storefront-service/models"
	"gorm.io/gorm/clause"
)

// FindCart returns the user's oldest cart. Duplicates left over from before
// the unique index are purged in favour of the same row.
func (s *GormStore) FindCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at, id").
		First(&cart).Error; err != nil {
		return nil, translate(err)
	}
	return &cart, nil
}

func (s *GormStore) LockCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		Order("created_at, id").
		First(&cart).Error; err != nil {
		return nil, translate(err)
	}
	return &cart, nil
}

// EnsureCart inserts a cart with ON CONFLICT DO NOTHING and then reads the
// winner back under a row lock, so concurrent first adds converge on the
// same cart.
func (s *GormStore) EnsureCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart := models.Cart{UserID: userID}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&cart).Error; err != nil {
		return nil, err
	}
	return s.LockCart(ctx, userID)
}

// DeleteDuplicateCarts removes every cart of the user except keepID. With
// the unique index in place this normally deletes nothing.
func (s *GormStore) DeleteDuplicateCarts(ctx context.Context, userID, keepID uuid.UUID) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND id <> ?", userID, keepID).
		Delete(&models.Cart{})
	return result.RowsAffected, result.Error
}

func (s *GormStore) ListLineItems(ctx context.Context, cartID uuid.UUID) ([]models.CartLineItem, error) {
	var lines []models.CartLineItem
	if err := s.db.WithContext(ctx).
		Preload("Item").
		Where("cart_id = ?", cartID).
		Order("created_at, id").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *GormStore) FindLineItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartLineItem, error) {
	var line models.CartLineItem
	if err := s.db.WithContext(ctx).
		Where("cart_id = ? AND item_id = ?", cartID, itemID).
		First(&line).Error; err != nil {
		return nil, translate(err)
	}
	return &line, nil
}

func (s *GormStore) CreateLineItem(ctx context.Context, line *models.CartLineItem) error {
	return s.db.WithContext(ctx).Omit("Item").Create(line).Error
}

func (s *GormStore) UpdateLineItemQuantity(ctx context.Context, id uuid.UUID, qty int) error {
	result := s.db.WithContext(ctx).
		Model(&models.CartLineItem{}).
		Where("id = ?", id).
		Update("quantity", qty)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteLineItem(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Delete(&models.CartLineItem{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteCart(ctx context.Context, cartID uuid.UUID) error {
	if err := s.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartLineItem{}).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(&models.Cart{}, "id = ?", cartID).Error
}
