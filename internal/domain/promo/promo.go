package promo

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
)

var ErrNotFound = errors.New("promo: code not found")

// Repository resolves promo codes into discount rules. Lookups are
// case-insensitive (see cart.NormalizeCode).
type Repository interface {
	Lookup(ctx context.Context, code string) (cart.PromoCode, error)
	Save(ctx context.Context, p cart.PromoCode) error
}
