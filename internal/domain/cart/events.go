package cart

import "time"

// CartOpenedEvent is emitted when a shopping session starts.
type CartOpenedEvent struct {
	CartID     string
	OccurredAt time.Time
}

func (CartOpenedEvent) EventName() string { return "cart.opened" }

func NewCartOpenedEvent(c *Cart) CartOpenedEvent {
	return CartOpenedEvent{CartID: c.ID, OccurredAt: time.Now().UTC()}
}

// CartRecalculatedEvent republishes the new snapshot after every mutation.
// Observers (totals display, checkout summary) render from State only.
type CartRecalculatedEvent struct {
	CartID     string
	Version    int
	Action     string
	State      CartState
	OccurredAt time.Time
}

func (CartRecalculatedEvent) EventName() string { return "cart.recalculated" }

func NewCartRecalculatedEvent(c *Cart, action string, state CartState) CartRecalculatedEvent {
	return CartRecalculatedEvent{
		CartID:     c.ID,
		Version:    c.Version,
		Action:     action,
		State:      state,
		OccurredAt: time.Now().UTC(),
	}
}

// StockLimitReachedEvent is emitted when an increment was refused.
type StockLimitReachedEvent struct {
	CartID     string
	ProductID  string
	StockLimit int
	OccurredAt time.Time
}

func (StockLimitReachedEvent) EventName() string { return "cart.stock_limit_reached" }

func NewStockLimitReachedEvent(cartID string, w StockLimitWarning) StockLimitReachedEvent {
	return StockLimitReachedEvent{
		CartID:     cartID,
		ProductID:  w.ProductID,
		StockLimit: w.StockLimit,
		OccurredAt: time.Now().UTC(),
	}
}

// CartCheckedOutEvent carries the final snapshot of a cart at checkout.
// It is intended to be handled by the order context.
type CartCheckedOutEvent struct {
	CheckoutID     string
	CartID         string
	IdempotencyKey string
	Currency       string
	State          CartState
	OccurredAt     time.Time
}

func (CartCheckedOutEvent) EventName() string { return "cart.checked_out" }

func NewCartCheckedOutEvent(checkoutID, cartID, idempotencyKey, currency string, state CartState) CartCheckedOutEvent {
	return CartCheckedOutEvent{
		CheckoutID:     checkoutID,
		CartID:         cartID,
		IdempotencyKey: idempotencyKey,
		Currency:       currency,
		State:          state,
		OccurredAt:     time.Now().UTC(),
	}
}

// CartClosedEvent is emitted when a session is discarded (logout).
type CartClosedEvent struct {
	CartID     string
	OccurredAt time.Time
}

func (CartClosedEvent) EventName() string { return "cart.closed" }

func NewCartClosedEvent(cartID string) CartClosedEvent {
	return CartClosedEvent{CartID: cartID, OccurredAt: time.Now().UTC()}
}
