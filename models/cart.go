package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Cart is the single active cart of a user. The unique index on user_id
// is what keeps it single.
type Cart struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	LineItems []CartLineItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"line_items,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Cart) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// CartLineItem is one (cart, item) pair. Quantity is at least 1 and at
// most the item's stock at the time it was last changed.
type CartLineItem struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CartID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_line_items_cart_item" json:"cart_id"`
	ItemID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_line_items_cart_item" json:"item_id"`
	Item      Item      `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE" json:"item"`
	Quantity  int       `gorm:"not null;default:1;check:chk_cart_line_items_quantity,quantity >= 1" json:"quantity"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (li *CartLineItem) BeforeCreate(_ *gorm.DB) error {
	if li.ID == uuid.Nil {
		li.ID = uuid.New()
	}
	return nil
}
