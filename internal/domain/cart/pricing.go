package cart

import (
	"strings"

	"github.com/shopspring/decimal"
)

type ShippingMethod string

const (
	ShippingStandard ShippingMethod = "standard"
	ShippingExpress  ShippingMethod = "express"
)

// Address carries only what pricing needs: the destination country.
type Address struct {
	Country string
}

// Rates holds the tax and shipping lookup tables. Unknown countries and
// methods fall back to the defaults, so a cart is never silently tax-free.
type Rates struct {
	DefaultTaxPercent decimal.Decimal
	TaxPercent        map[string]decimal.Decimal
	DefaultShipping   decimal.Decimal
	Shipping          map[ShippingMethod]decimal.Decimal
}

// DefaultRates is the table used when no configuration overrides it.
func DefaultRates() Rates {
	return Rates{
		DefaultTaxPercent: decimal.NewFromInt(10),
		TaxPercent:        map[string]decimal.Decimal{},
		DefaultShipping:   decimal.NewFromInt(50),
		Shipping: map[ShippingMethod]decimal.Decimal{
			ShippingStandard: decimal.NewFromInt(50),
			ShippingExpress:  decimal.NewFromInt(100),
		},
	}
}

// TaxRateFor looks the destination country up, case-insensitively.
func (r Rates) TaxRateFor(addr *Address) decimal.Decimal {
	if addr == nil {
		return r.DefaultTaxPercent
	}
	if pct, ok := r.TaxPercent[strings.ToUpper(strings.TrimSpace(addr.Country))]; ok {
		return pct
	}
	return r.DefaultTaxPercent
}

// NormalizeShippingMethod is the canonical form of a method name: trimmed and
// lower case. Rate tables and carts both use it.
func NormalizeShippingMethod(raw string) ShippingMethod {
	return ShippingMethod(strings.ToLower(strings.TrimSpace(raw)))
}

// ShippingRateFor is a flat lookup; it does not depend on subtotal or address.
func (r Rates) ShippingRateFor(method ShippingMethod) decimal.Decimal {
	if rate, ok := r.Shipping[NormalizeShippingMethod(string(method))]; ok {
		return rate
	}
	return r.DefaultShipping
}

// KnownShippingMethod reports whether method has its own entry in the table.
func (r Rates) KnownShippingMethod(method ShippingMethod) bool {
	_, ok := r.Shipping[NormalizeShippingMethod(string(method))]
	return ok
}

// CartState is an immutable, fully derived snapshot of a cart.
type CartState struct {
	Items           []LineItem
	TotalItemCount  int
	UniqueItemCount int
	Subtotal        decimal.Decimal
	TaxPercent      decimal.Decimal
	TaxAmount       decimal.Decimal
	ShippingAmount  decimal.Decimal
	DiscountAmount  decimal.Decimal
	FinalTotal      decimal.Decimal
	Address         *Address
	Promo           *PromoCode
	ShippingMethod  ShippingMethod
}

// Recalculate derives every total from the primary inputs. It is total and
// pure: the same inputs always produce an equal snapshot, and no field is
// ever carried over from a previous one.
func Recalculate(items []LineItem, addr *Address, promo *PromoCode, method ShippingMethod, rates Rates) CartState {
	state := CartState{
		Items:          cloneItems(items),
		Address:        cloneAddress(addr),
		Promo:          clonePromo(promo),
		ShippingMethod: method,
		Subtotal:       decimal.Zero,
	}

	state.UniqueItemCount = len(items)
	for _, li := range items {
		state.TotalItemCount += li.Quantity
		state.Subtotal = state.Subtotal.Add(li.LineTotal())
	}

	state.TaxPercent = rates.TaxRateFor(addr)
	state.TaxAmount = state.Subtotal.Mul(state.TaxPercent).Div(hundred)
	state.ShippingAmount = rates.ShippingRateFor(method)
	state.DiscountAmount = discountFor(promo, state.Subtotal)
	state.FinalTotal = state.Subtotal.
		Add(state.TaxAmount).
		Add(state.ShippingAmount).
		Sub(state.DiscountAmount)

	return state
}

func cloneAddress(addr *Address) *Address {
	if addr == nil {
		return nil
	}
	c := *addr
	return &c
}

func clonePromo(p *PromoCode) *PromoCode {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
