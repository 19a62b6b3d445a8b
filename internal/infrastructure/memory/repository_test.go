package memory

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/promo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartRepositoryReturnsCopies(t *testing.T) {
	// Arrange
	ctx := context.Background()
	repo := NewCartRepository()
	c := cart.New("cart-1", cart.ShippingStandard)
	require.NoError(t, repo.Insert(ctx, c))

	// Act
	loaded, err := repo.Get(ctx, "cart-1")
	require.NoError(t, err)
	loaded.Replace(cart.AddItem(loaded.Items, cart.Product{ID: "p", UnitPrice: decimal.NewFromInt(1), StockLimit: 1}, 1))
	loaded.RecordCheckout("k", cart.CheckoutRecord{ID: "chk"})
	again, err := repo.Get(ctx, "cart-1")

	// Assert
	require.NoError(t, err)
	assert.Empty(t, again.Items)
	assert.Empty(t, again.Checkouts)
}

func TestCartRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewCartRepository()
	c := cart.New("cart-1", cart.ShippingStandard)

	require.NoError(t, repo.Insert(ctx, c))
	assert.ErrorIs(t, repo.Insert(ctx, c), cart.ErrConflict)
	assert.Equal(t, 1, repo.Len())

	loaded, err := repo.Get(ctx, "cart-1")
	require.NoError(t, err)
	loaded.SetShippingMethod(cart.ShippingExpress)
	require.NoError(t, repo.Update(ctx, loaded))

	stale := c.Clone()
	stale.Version = -1
	assert.ErrorIs(t, repo.Update(ctx, stale), cart.ErrConflict)
	assert.ErrorIs(t, repo.Update(ctx, loaded), cart.ErrConflict, "same version twice is stale")

	require.NoError(t, repo.Delete(ctx, "cart-1"))
	_, err = repo.Get(ctx, "cart-1")
	assert.ErrorIs(t, err, cart.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "cart-1"), cart.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, loaded), cart.ErrNotFound)
}

func TestCatalogRepository(t *testing.T) {
	ctx := context.Background()
	item, err := catalog.NewItem("widget", "Widget", decimal.RequireFromString("20.00"), 5)
	require.NoError(t, err)
	repo := NewCatalogRepository(item)

	got, err := repo.Get(ctx, "widget")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)

	require.NoError(t, got.Restock(7))
	require.NoError(t, repo.Save(ctx, got))
	again, err := repo.Get(ctx, "widget")
	require.NoError(t, err)
	assert.Equal(t, 7, again.Stock)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestPromoRepositoryIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	repo := NewPromoRepository(cart.PromoCode{
		Code: "save10", DiscountType: cart.DiscountPercentage, DiscountValue: decimal.NewFromInt(10),
	})

	got, err := repo.Lookup(ctx, " SAVE10 ")
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", got.Code)
	assert.Equal(t, cart.DiscountPercentage, got.DiscountType)

	_, err = repo.Lookup(ctx, "nope")
	assert.ErrorIs(t, err, promo.ErrNotFound)
	assert.Error(t, repo.Save(ctx, cart.PromoCode{Code: "  "}))
}

func TestOrderRepositoryIdempotencyIsScopedPerCart(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()
	first := &order.Order{ID: "o-1", CartID: "cart-a", IdempotencyKey: "k"}
	dup := &order.Order{ID: "o-2", CartID: "cart-a", IdempotencyKey: "k"}
	other := &order.Order{ID: "o-3", CartID: "cart-b", IdempotencyKey: "k"}

	require.NoError(t, repo.Insert(ctx, first))
	assert.ErrorIs(t, repo.Insert(ctx, first), order.ErrConflict)
	assert.ErrorIs(t, repo.Insert(ctx, dup), order.ErrConflict)
	require.NoError(t, repo.Insert(ctx, other))

	found, err := repo.FindByIdempotency(ctx, "cart-a", "k")
	require.NoError(t, err)
	assert.Equal(t, "o-1", found.ID)

	_, err = repo.FindByIdempotency(ctx, "cart-a", "")
	assert.ErrorIs(t, err, order.ErrNotFound)
	_, err = repo.Get(ctx, "o-9")
	assert.ErrorIs(t, err, order.ErrNotFound)
}
