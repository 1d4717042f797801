package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order is a completed checkout. It is never updated after creation.
type Order struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	CompletedAt time.Time       `gorm:"not null;index" json:"completed_at"`
	LineItems   []OrderLineItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"line_items"`
}

func (o *Order) BeforeCreate(_ *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderLineItem freezes the quantity bought at checkout time.
type OrderLineItem struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID  uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	ItemID   uuid.UUID `gorm:"type:uuid;not null;index" json:"item_id"`
	Item     Item      `gorm:"foreignKey:ItemID" json:"item"`
	Quantity int       `gorm:"not null" json:"quantity"`
}

func (li *OrderLineItem) BeforeCreate(_ *gorm.DB) error {
	if li.ID == uuid.Nil {
		li.ID = uuid.New()
	}
	return nil
}
