package cart

import (
	"context"

	domain "github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
)

type IDGenerator interface {
	NewID() string
}

// CatalogPort resolves a product id to its current price and stock.
type CatalogPort interface {
	Get(ctx context.Context, productID string) (*catalog.Item, error)
}

// PromoPort resolves a promo code entered by the shopper.
type PromoPort interface {
	Lookup(ctx context.Context, code string) (domain.PromoCode, error)
}
