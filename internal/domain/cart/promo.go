package cart

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

var hundred = decimal.NewFromInt(100)

// PromoCode is a resolved discount rule. Expiry and minimum spend are the
// promo service's concern, not the cart's.
type PromoCode struct {
	Code          string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
}

// Validate checks that the rule is one the engine can apply without driving
// the total below zero on its own account.
func (p PromoCode) Validate() error {
	switch p.DiscountType {
	case DiscountPercentage:
		if p.DiscountValue.IsNegative() || p.DiscountValue.GreaterThan(hundred) {
			return fmt.Errorf("%w: percentage must be between 0 and 100", ErrInvalidPromo)
		}
	case DiscountFixed:
		if p.DiscountValue.IsNegative() {
			return fmt.Errorf("%w: fixed discount cannot be negative", ErrInvalidPromo)
		}
	default:
		return fmt.Errorf("%w: unknown discount type %q", ErrInvalidPromo, p.DiscountType)
	}
	return nil
}

// NormalizeCode is the canonical form promo codes are stored and matched in.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// discountFor returns 0 without a promo, subtotal × value / 100 for a
// percentage and min(value, subtotal) for a fixed amount.
func discountFor(promo *PromoCode, subtotal decimal.Decimal) decimal.Decimal {
	if promo == nil {
		return decimal.Zero
	}
	switch promo.DiscountType {
	case DiscountPercentage:
		return subtotal.Mul(promo.DiscountValue).Div(hundred)
	case DiscountFixed:
		return decimal.Min(promo.DiscountValue, subtotal)
	default:
		return decimal.Zero
	}
}
