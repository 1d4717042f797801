package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Item is a catalog entry. Quantity is the stock counter that the cart
// soft-checks and checkout decrements.
type Item struct {
	ID            uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name          string              `gorm:"type:varchar(200);not null" json:"name"`
	Description   string              `gorm:"type:text;not null;default:''" json:"description"`
	Price         decimal.Decimal     `gorm:"type:numeric(10,2);not null" json:"price"`
	DiscountPrice decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"discount_price"`
	IsDiscount    bool                `gorm:"not null;default:false;index" json:"is_discount"`
	Quantity      int                 `gorm:"not null;check:chk_items_quantity,quantity >= 0" json:"quantity"`
	ImageKey      *string             `gorm:"type:varchar(512)" json:"image_key,omitempty"`
	ImageURL      string              `gorm:"-" json:"image_url,omitempty"`
	CreatedAt     time.Time           `gorm:"autoCreateTime;index" json:"created_at"`
}

func (i *Item) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// EffectivePrice is the discount price when the item is on discount and
// one is set, the list price otherwise.
func (i *Item) EffectivePrice() decimal.Decimal {
	if i.IsDiscount && i.DiscountPrice.Valid {
		return i.DiscountPrice.Decimal
	}
	return i.Price
}

// CreateItemRequest is the admin payload for adding a catalog item.
type CreateItemRequest struct {
	Name          string           `json:"name" binding:"required,max=200"`
	Description   string           `json:"description"`
	Price         decimal.Decimal  `json:"price" binding:"required"`
	DiscountPrice *decimal.Decimal `json:"discount_price"`
	IsDiscount    bool             `json:"is_discount"`
	Quantity      int              `json:"quantity" binding:"gte=0"`
	ImageKey      string           `json:"image_key" binding:"max=512"`
}

// SetStockRequest overwrites the stock counter of an item.
type SetStockRequest struct {
	Quantity *int `json:"quantity" binding:"required,gte=0"`
}
