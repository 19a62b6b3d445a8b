package order

import (
	"testing"

	"github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkedOut(t *testing.T, promo *cart.PromoCode) cart.CartCheckedOutEvent {
	t.Helper()
	items := cart.AddItem(nil, cart.Product{
		ID: "widget", Name: "Widget", UnitPrice: decimal.RequireFromString("20.00"), StockLimit: 5,
	}, 2)
	state := cart.Recalculate(items, &cart.Address{Country: "NL"}, promo, cart.ShippingStandard, cart.DefaultRates())
	return cart.NewCartCheckedOutEvent("chk-1", "cart-1", "key-1", "USD", state)
}

func TestFromCheckoutCopiesTotals(t *testing.T) {
	// Arrange
	promo := &cart.PromoCode{Code: "TEN", DiscountType: cart.DiscountPercentage, DiscountValue: decimal.NewFromInt(10)}
	evt := checkedOut(t, promo)

	// Act
	o, err := FromCheckout(evt)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "chk-1", o.ID)
	assert.Equal(t, "cart-1", o.CartID)
	assert.Equal(t, "key-1", o.IdempotencyKey)
	assert.Equal(t, StatusPlaced, o.Status)
	assert.Equal(t, "TEN", o.PromoCode)
	assert.Equal(t, "NL", o.Country)
	assert.Equal(t, "standard", o.ShippingMethod)
	assert.Equal(t, 2, o.ItemCount())
	require.Len(t, o.Lines, 1)
	assert.True(t, decimal.RequireFromString("40").Equal(o.Lines[0].LineTotal))
	assert.True(t, decimal.RequireFromString("90").Equal(o.Total))
	assert.True(t, decimal.RequireFromString("4").Equal(o.Discount))
}

func TestFromCheckoutRejectsEmptyOrAnonymous(t *testing.T) {
	evt := checkedOut(t, nil)

	anonymous := evt
	anonymous.CheckoutID = ""
	_, err := FromCheckout(anonymous)
	assert.ErrorIs(t, err, ErrInvalidID)

	empty := evt
	empty.State = cart.Recalculate(nil, nil, nil, cart.ShippingStandard, cart.DefaultRates())
	_, err = FromCheckout(empty)
	assert.ErrorIs(t, err, ErrNoLines)
}
