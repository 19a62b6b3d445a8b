package cart

import (
	"context"
	"errors"
	"sync"
	"testing"

	domain "github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/observability/prometrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreOpenStartsEmptySession(t *testing.T) {
	// Arrange
	f := newFixture(t, StoreOptions{}, nil)

	// Act
	snap, err := f.store.Open(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "id-1", snap.CartID)
	assert.Empty(t, snap.State.Items)
	assert.Equal(t, domain.ShippingStandard, snap.State.ShippingMethod)
	assertDecimal(t, "50", snap.State.FinalTotal)
	assert.Equal(t, []string{"cart.opened"}, f.pub.names())
}

func TestStoreRepublishesSnapshotAfterEveryMutation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, StoreOptions{}, nil)
	opened, err := f.store.Open(ctx)
	require.NoError(t, err)

	snap, err := f.store.AddItem(ctx, opened.CartID, widgetProduct, 2)
	require.NoError(t, err)

	assertDecimal(t, "40.00", snap.State.Subtotal)
	assertDecimal(t, "4.00", snap.State.TaxAmount)
	assertDecimal(t, "94.00", snap.State.FinalTotal)
	evt, ok := f.pub.last().(domain.CartRecalculatedEvent)
	require.True(t, ok)
	assert.Equal(t, string(ActionAddItem), evt.Action)
	assert.Equal(t, snap.Version, evt.Version)
	assert.True(t, evt.State.FinalTotal.Equal(snap.State.FinalTotal))

	stored, err := f.store.Get(ctx, opened.CartID)
	require.NoError(t, err)
	assert.Equal(t, snap.Version, stored.Version)
}

func TestStoreIncrementAtStockLimitWarnsWithoutChange(t *testing.T) {
	// Arrange
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	counters, histograms := prometrics.Standard(prometrics.New("", "", reg))
	f := newFixture(t, StoreOptions{}, infraobs.New(nil, nil, counters, histograms))
	opened, err := f.store.Open(ctx)
	require.NoError(t, err)
	full, err := f.store.AddItem(ctx, opened.CartID, widgetProduct, 5)
	require.NoError(t, err)

	// Act
	snap, err := f.store.Increment(ctx, opened.CartID, "widget")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, snap.Warning)
	assert.Equal(t, "only 5 left in stock", snap.Warning.Message())
	assert.Equal(t, full.Version, snap.Version)
	assert.Equal(t, 5, snap.State.TotalItemCount)

	evt, ok := f.pub.last().(domain.StockLimitReachedEvent)
	require.True(t, ok)
	assert.Equal(t, "widget", evt.ProductID)

	n, err := testutil.GatherAndCount(reg, "cart_stock_warnings_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStoreAbsentProductIsSilentNoOp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, StoreOptions{}, nil)
	opened, err := f.store.Open(ctx)
	require.NoError(t, err)
	_, err = f.store.AddItem(ctx, opened.CartID, widgetProduct, 2)
	require.NoError(t, err)

	before, err := f.store.Get(ctx, opened.CartID)
	require.NoError(t, err)
	published := len(f.pub.names())

	for _, op := range []func() (Snapshot, error){
		func() (Snapshot, error) { return f.store.RemoveItem(ctx, opened.CartID, "ghost") },
		func() (Snapshot, error) { return f.store.Increment(ctx, opened.CartID, "ghost") },
		func() (Snapshot, error) { return f.store.Decrement(ctx, opened.CartID, "ghost") },
		func() (Snapshot, error) { return f.store.UpdateQuantity(ctx, opened.CartID, "ghost", 3) },
	} {
		snap, err := op()
		require.NoError(t, err)
		assert.Nil(t, snap.Warning)
		assert.Equal(t, before.Version, snap.Version)
		assert.Equal(t, 2, snap.State.TotalItemCount)
		assertDecimal(t, "94.00", snap.State.FinalTotal)
	}

	after, err := f.store.Get(ctx, opened.CartID)
	require.NoError(t, err)
	assert.Equal(t, before.Version, after.Version)
	assert.Len(t, f.pub.names(), published, "no-ops publish nothing")
}

func TestStoreBoundaryValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, StoreOptions{}, nil)
	opened, err := f.store.Open(ctx)
	require.NoError(t, err)

	_, err = f.store.AddItem(ctx, opened.CartID, widgetProduct, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = f.store.SetAddress(ctx, opened.CartID, domain.Address{Country: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)

	_, err = f.store.ApplyPromo(ctx, opened.CartID, domain.PromoCode{
		Code: "BAD", DiscountType: domain.DiscountPercentage, DiscountValue: dec("120"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPromo)

	_, err = f.store.AddItem(ctx, "missing", widgetProduct, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreAddressAndPromo(t *testing.T) {
	ctx := context.Background()
	rates := domain.DefaultRates()
	rates.TaxPercent["DE"] = dec("19")
	f := newFixture(t, StoreOptions{Rates: rates}, nil)
	opened, err := f.store.Open(ctx)
	require.NoError(t, err)
	_, err = f.store.AddItem(ctx, opened.CartID, widgetProduct, 2)
	require.NoError(t, err)

	withAddr, err := f.store.SetAddress(ctx, opened.CartID, domain.Address{Country: " de"})
	require.NoError(t, err)
	withPromo, err := f.store.ApplyPromo(ctx, opened.CartID, domain.PromoCode{
		Code: "save10", DiscountType: domain.DiscountPercentage, DiscountValue: dec("10"),
	})
	require.NoError(t, err)
	cleared, err := f.store.ClearAddress(ctx, opened.CartID)
	require.NoError(t, err)
	noPromo, err := f.store.RemovePromo(ctx, opened.CartID)
	require.NoError(t, err)

	assert.Equal(t, "DE", withAddr.State.Address.Country)
	assertDecimal(t, "7.60", withAddr.State.TaxAmount)
	assert.Equal(t, "SAVE10", withPromo.State.Promo.Code)
	assertDecimal(t, "4.00", withPromo.State.DiscountAmount)
	assertDecimal(t, "93.60", withPromo.State.FinalTotal)
	assert.Nil(t, cleared.State.Address)
	assertDecimal(t, "4.00", cleared.State.TaxAmount)
	assert.Nil(t, noPromo.State.Promo)
	assertDecimal(t, "94.00", noPromo.State.FinalTotal)
}

func TestStoreShippingMethodStrictness(t *testing.T) {
	ctx := context.Background()

	t.Run("permissive falls back to default rate", func(t *testing.T) {
		f := newFixture(t, StoreOptions{}, nil)
		opened, err := f.store.Open(ctx)
		require.NoError(t, err)

		snap, err := f.store.SetShippingMethod(ctx, opened.CartID, "Teleport")

		require.NoError(t, err)
		assert.Equal(t, domain.ShippingMethod("teleport"), snap.State.ShippingMethod)
		assertDecimal(t, "50", snap.State.ShippingAmount)
	})

	t.Run("strict rejects unknown methods", func(t *testing.T) {
		f := newFixture(t, StoreOptions{StrictShippingMethods: true}, nil)
		opened, err := f.store.Open(ctx)
		require.NoError(t, err)

		_, err = f.store.SetShippingMethod(ctx, opened.CartID, "teleport")
		assert.ErrorIs(t, err, domain.ErrUnknownShippingMethod)

		snap, err := f.store.SetShippingMethod(ctx, opened.CartID, domain.ShippingExpress)
		require.NoError(t, err)
		assertDecimal(t, "100", snap.State.ShippingAmount)
	})

	t.Run("empty method is rejected", func(t *testing.T) {
		f := newFixture(t, StoreOptions{}, nil)
		opened, err := f.store.Open(ctx)
		require.NoError(t, err)

		_, err = f.store.SetShippingMethod(ctx, opened.CartID, " ")
		assert.ErrorIs(t, err, domain.ErrUnknownShippingMethod)
	})
}

func TestStoreCheckoutResetsCartAndIsIdempotent(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture(t, StoreOptions{Currency: "EUR"}, nil)
	opened, err := f.store.Open(ctx)
	require.NoError(t, err)
	_, err = f.store.AddItem(ctx, opened.CartID, widgetProduct, 2)
	require.NoError(t, err)

	// Act
	first, err := f.store.Checkout(ctx, opened.CartID, "key-1")
	require.NoError(t, err)
	replay, err := f.store.Checkout(ctx, opened.CartID, "key-1")
	require.NoError(t, err)

	// Assert
	assert.False(t, first.Replayed)
	assertDecimal(t, "94.00", first.Checkout.FinalTotal)
	assert.Empty(t, first.Cart.State.Items)
	assertDecimal(t, "50", first.Cart.State.FinalTotal)

	assert.True(t, replay.Replayed)
	assert.Equal(t, first.CheckoutID, replay.CheckoutID)
	assertDecimal(t, "94.00", replay.Checkout.FinalTotal)
	require.Len(t, replay.Checkout.Items, 1)
	assert.Equal(t, 2, replay.Checkout.Items[0].Quantity)
	assert.Equal(t, first.Cart.Version, replay.Cart.Version)

	checkedOut := 0
	for _, e := range f.pub.events {
		if evt, ok := e.(domain.CartCheckedOutEvent); ok {
			checkedOut++
			assert.Equal(t, first.CheckoutID, evt.CheckoutID)
			assert.Equal(t, "EUR", evt.Currency)
			assert.Equal(t, "key-1", evt.IdempotencyKey)
			assert.Len(t, evt.State.Items, 1)
		}
	}
	assert.Equal(t, 1, checkedOut)

	_, err = f.store.Checkout(ctx, opened.CartID, "key-2")
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestStoreCheckoutKeepsCartWhenPublishFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, StoreOptions{}, nil)
	opened, err := f.store.Open(ctx)
	require.NoError(t, err)
	_, err = f.store.AddItem(ctx, opened.CartID, widgetProduct, 1)
	require.NoError(t, err)
	f.pub.err = errors.New("bus down")

	_, err = f.store.Checkout(ctx, opened.CartID, "k")

	assert.ErrorIs(t, err, ErrPublish)
	snap, err := f.store.Get(ctx, opened.CartID)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.State.TotalItemCount)

	f.pub.err = nil
	retry, err := f.store.Checkout(ctx, opened.CartID, "k")
	require.NoError(t, err)
	assert.False(t, retry.Replayed, "a failed checkout is not remembered")
	assertDecimal(t, "72.00", retry.Checkout.FinalTotal)
}

// failingCartRepo fails the next Update it sees.
type failingCartRepo struct {
	*memory.CartRepository
	failNext bool
}

func (r *failingCartRepo) Update(ctx context.Context, c *domain.Cart) error {
	if r.failNext {
		r.failNext = false
		return errors.New("disk full")
	}
	return r.CartRepository.Update(ctx, c)
}

func TestStoreCheckoutPublishesNothingWhenSaveFails(t *testing.T) {
	// Arrange
	ctx := context.Background()
	repo := &failingCartRepo{CartRepository: memory.NewCartRepository()}
	pub := &recordingPublisher{}
	store := NewStore(repo, pub, &seqIDs{}, StoreOptions{}, nil)
	opened, err := store.Open(ctx)
	require.NoError(t, err)
	_, err = store.AddItem(ctx, opened.CartID, widgetProduct, 1)
	require.NoError(t, err)
	repo.failNext = true

	// Act
	_, failedErr := store.Checkout(ctx, opened.CartID, "k")
	retry, retryErr := store.Checkout(ctx, opened.CartID, "k")

	// Assert
	assert.ErrorIs(t, failedErr, ErrRepository)
	require.NoError(t, retryErr)
	assert.False(t, retry.Replayed)

	var checkoutIDs []string
	for _, e := range pub.events {
		if evt, ok := e.(domain.CartCheckedOutEvent); ok {
			checkoutIDs = append(checkoutIDs, evt.CheckoutID)
		}
	}
	assert.Equal(t, []string{retry.CheckoutID}, checkoutIDs)
}

func TestStoreCloseDiscardsSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, StoreOptions{}, nil)
	opened, err := f.store.Open(ctx)
	require.NoError(t, err)

	require.NoError(t, f.store.Close(ctx, opened.CartID))

	_, err = f.store.Get(ctx, opened.CartID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.store.Close(ctx, opened.CartID), ErrNotFound)
	assert.Equal(t, "cart.closed", f.pub.last().EventName())
	assert.Equal(t, 0, f.repo.Len())
}

func TestStoreSerializesConcurrentMutations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, StoreOptions{}, nil)
	opened, err := f.store.Open(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.store.AddItem(ctx, opened.CartID, widgetProduct, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := f.store.Get(ctx, opened.CartID)
	require.NoError(t, err)
	assert.Equal(t, 50, snap.State.TotalItemCount)
	assert.Equal(t, 50, snap.Version)
}
