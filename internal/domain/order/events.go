package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderPlacedEvent is emitted once an order record exists for a checkout.
type OrderPlacedEvent struct {
	OrderID    string
	CartID     string
	Total      decimal.Decimal
	Currency   string
	ItemCount  int
	OccurredAt time.Time
}

func (OrderPlacedEvent) EventName() string { return "order.placed" }

func NewOrderPlacedEvent(o *Order) OrderPlacedEvent {
	return OrderPlacedEvent{
		OrderID:    o.ID,
		CartID:     o.CartID,
		Total:      o.Total,
		Currency:   o.Currency,
		ItemCount:  o.ItemCount(),
		OccurredAt: time.Now().UTC(),
	}
}
