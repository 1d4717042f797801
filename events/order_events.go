package events

import (
	"time"

	"github.com/yashrajoria/storefront-service/models"
)

const OrderCompletedEventType = "order.completed"

// OrderLine is one line of a completed order as carried on the wire.
type OrderLine struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// OrderCompletedEvent is emitted once per committed checkout.
type OrderCompletedEvent struct {
	EventType   string      `json:"event_type"`
	OrderID     string      `json:"order_id"`
	UserID      string      `json:"user_id"`
	Lines       []OrderLine `json:"lines"`
	TotalUnits  int         `json:"total_units"`
	CompletedAt time.Time   `json:"completed_at"`
}

// NewOrderCompletedEvent builds the event payload for a stored order.
func NewOrderCompletedEvent(order *models.Order) OrderCompletedEvent {
	lines := make([]OrderLine, 0, len(order.LineItems))
	total := 0
	for _, li := range order.LineItems {
		lines = append(lines, OrderLine{ItemID: li.ItemID.String(), Quantity: li.Quantity})
		total += li.Quantity
	}
	return OrderCompletedEvent{
		EventType:   OrderCompletedEventType,
		OrderID:     order.ID.String(),
		UserID:      order.UserID.String(),
		Lines:       lines,
		TotalUnits:  total,
		CompletedAt: order.CompletedAt,
	}
}
