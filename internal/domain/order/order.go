package order

import (
	"errors"
	"time"

	"github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("order: not found")
	ErrConflict     = errors.New("order: conflict")
	ErrInvalidID    = errors.New("order: id is required")
	ErrNoLines      = errors.New("order: at least one line is required")
	ErrInvalidTotal = errors.New("order: total must be zero or greater")
)

type Status string

const (
	StatusPlaced Status = "placed"
)

type Line struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	LineTotal decimal.Decimal
}

// Order is the record of a completed checkout, frozen from the cart
// snapshot at the moment of checkout.
type Order struct {
	ID             string
	CartID         string
	IdempotencyKey string
	Lines          []Line
	Subtotal       decimal.Decimal
	TaxPercent     decimal.Decimal
	Tax            decimal.Decimal
	Shipping       decimal.Decimal
	Discount       decimal.Decimal
	Total          decimal.Decimal
	PromoCode      string
	ShippingMethod string
	Country        string
	Currency       string
	Status         Status
	CreatedAt      time.Time
}

// FromCheckout builds the order record for a cart.checked_out event. The
// checkout id doubles as the order id.
func FromCheckout(evt cart.CartCheckedOutEvent) (*Order, error) {
	if evt.CheckoutID == "" {
		return nil, ErrInvalidID
	}
	state := evt.State
	if len(state.Items) == 0 {
		return nil, ErrNoLines
	}
	if state.FinalTotal.IsNegative() {
		return nil, ErrInvalidTotal
	}

	lines := make([]Line, 0, len(state.Items))
	for _, li := range state.Items {
		lines = append(lines, Line{
			ProductID: li.ProductID,
			Name:      li.Name,
			UnitPrice: li.UnitPrice,
			Quantity:  li.Quantity,
			LineTotal: li.LineTotal(),
		})
	}

	o := &Order{
		ID:             evt.CheckoutID,
		CartID:         evt.CartID,
		IdempotencyKey: evt.IdempotencyKey,
		Lines:          lines,
		Subtotal:       state.Subtotal,
		TaxPercent:     state.TaxPercent,
		Tax:            state.TaxAmount,
		Shipping:       state.ShippingAmount,
		Discount:       state.DiscountAmount,
		Total:          state.FinalTotal,
		ShippingMethod: string(state.ShippingMethod),
		Currency:       evt.Currency,
		Status:         StatusPlaced,
		CreatedAt:      time.Now().UTC(),
	}
	if state.Promo != nil {
		o.PromoCode = state.Promo.Code
	}
	if state.Address != nil {
		o.Country = state.Address.Country
	}
	return o, nil
}

// ItemCount is the number of units across all lines.
func (o *Order) ItemCount() int {
	n := 0
	for _, l := range o.Lines {
		n += l.Quantity
	}
	return n
}
