package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	domain "github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	domoutbox "github.com/Zhima-Mochi/minishop-cart/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability/logctx"
)

const (
	componentStore  = "cart_store"
	publishPeer     = "outbox"
	publishTimeout  = 300 * time.Millisecond
	defaultCurrency = "USD"
)

var (
	ErrNotFound   = domain.ErrNotFound
	ErrConflict   = domain.ErrConflict
	ErrRepository = errors.New("cart: repository failure")
	ErrPublish    = errors.New("cart: event publish failure")
)

// Action names one kind of cart mutation. It is carried on every
// cart.recalculated event.
type Action string

const (
	ActionAddItem           Action = "add_item"
	ActionRemoveItem        Action = "remove_item"
	ActionIncrement         Action = "increment"
	ActionDecrement         Action = "decrement"
	ActionUpdateQuantity    Action = "update_quantity"
	ActionSetAddress        Action = "set_address"
	ActionClearAddress      Action = "clear_address"
	ActionApplyPromo        Action = "apply_promo"
	ActionRemovePromo       Action = "remove_promo"
	ActionSetShippingMethod Action = "set_shipping_method"
	ActionCheckout          Action = "checkout"
)

// Snapshot is what callers of the store see after every operation.
type Snapshot struct {
	CartID  string
	Version int
	State   domain.CartState
	Warning *domain.StockLimitWarning
}

// CheckoutResult is returned by Store.Checkout. Replayed is set when the
// idempotency key had already produced a checkout.
type CheckoutResult struct {
	CheckoutID string
	Replayed   bool
	Checkout   domain.CartState
	Cart       Snapshot
}

type StoreOptions struct {
	Rates                 domain.Rates
	DefaultShippingMethod domain.ShippingMethod
	// StrictShippingMethods rejects methods missing from Rates instead of
	// pricing them at the default rate.
	StrictShippingMethods bool
	Currency              string
}

// Store owns every live cart session. Mutations are serialized: each one
// loads the cart, applies a single engine operation, recomputes the snapshot
// from scratch, persists the inputs and republishes the snapshot.
type Store struct {
	mu        sync.Mutex
	repo      domain.Repository
	publisher domoutbox.Publisher
	ids       IDGenerator
	opts      StoreOptions

	log           observability.Logger
	stockWarnings observability.Counter   // cart_stock_warnings_total{product_id}
	checkouts     observability.Histogram // cart_checkout_amount{currency}
	extCounter    observability.Counter
	extHistogram  observability.Histogram
}

func NewStore(
	repo domain.Repository,
	publisher domoutbox.Publisher,
	ids IDGenerator,
	opts StoreOptions,
	tel observability.Observability,
) *Store {
	if tel == nil {
		tel = observability.Nop()
	}
	if opts.Rates.Shipping == nil {
		opts.Rates = domain.DefaultRates()
	}
	if opts.DefaultShippingMethod == "" {
		opts.DefaultShippingMethod = domain.ShippingStandard
	}
	if opts.Currency == "" {
		opts.Currency = defaultCurrency
	}
	m := tel.Metrics()
	return &Store{
		repo:          repo,
		publisher:     publisher,
		ids:           ids,
		opts:          opts,
		log:           tel.Logger().With(observability.F("component", componentStore)),
		stockWarnings: m.Counter(observability.MCartStockWarnings),
		checkouts:     m.Histogram(observability.MCartCheckoutAmount),
		extCounter:    m.Counter(observability.MExternalRequests),
		extHistogram:  m.Histogram(observability.MExternalRequestDuration),
	}
}

func (s *Store) Rates() domain.Rates { return s.opts.Rates }

// Open starts a new session with an empty cart.
func (s *Store) Open(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := domain.New(s.ids.NewID(), s.opts.DefaultShippingMethod)
	if err := s.repo.Insert(ctx, c); err != nil {
		return Snapshot{}, wrapRepositoryError(err)
	}
	_ = s.publish(ctx, domain.NewCartOpenedEvent(c))
	return s.snapshot(c, nil), nil
}

func (s *Store) Get(ctx context.Context, cartID string) (Snapshot, error) {
	c, err := s.repo.Get(ctx, cartID)
	if err != nil {
		return Snapshot{}, wrapRepositoryError(err)
	}
	return s.snapshot(c, nil), nil
}

// AddItem rejects a non-positive quantity; the engine would ignore it.
func (s *Store) AddItem(ctx context.Context, cartID string, p domain.Product, quantity int) (Snapshot, error) {
	if quantity <= 0 {
		return Snapshot{}, domain.ErrInvalidQuantity
	}
	return s.mutate(ctx, cartID, ActionAddItem, func(c *domain.Cart) (bool, *domain.StockLimitWarning) {
		return replaceItems(c, domain.AddItem(c.Items, p, quantity)), nil
	})
}

func (s *Store) RemoveItem(ctx context.Context, cartID, productID string) (Snapshot, error) {
	return s.mutate(ctx, cartID, ActionRemoveItem, func(c *domain.Cart) (bool, *domain.StockLimitWarning) {
		return replaceItems(c, domain.RemoveItem(c.Items, productID)), nil
	})
}

// Increment leaves the cart untouched and returns the warning when the line
// is already at its stock limit.
func (s *Store) Increment(ctx context.Context, cartID, productID string) (Snapshot, error) {
	return s.mutate(ctx, cartID, ActionIncrement, func(c *domain.Cart) (bool, *domain.StockLimitWarning) {
		items, warning := domain.Increment(c.Items, productID)
		if warning != nil {
			return false, warning
		}
		return replaceItems(c, items), nil
	})
}

func (s *Store) Decrement(ctx context.Context, cartID, productID string) (Snapshot, error) {
	return s.mutate(ctx, cartID, ActionDecrement, func(c *domain.Cart) (bool, *domain.StockLimitWarning) {
		return replaceItems(c, domain.Decrement(c.Items, productID)), nil
	})
}

// UpdateQuantity removes the line when quantity is zero or less.
func (s *Store) UpdateQuantity(ctx context.Context, cartID, productID string, quantity int) (Snapshot, error) {
	return s.mutate(ctx, cartID, ActionUpdateQuantity, func(c *domain.Cart) (bool, *domain.StockLimitWarning) {
		return replaceItems(c, domain.UpdateQuantity(c.Items, productID, quantity)), nil
	})
}

func (s *Store) SetAddress(ctx context.Context, cartID string, addr domain.Address) (Snapshot, error) {
	addr.Country = strings.ToUpper(strings.TrimSpace(addr.Country))
	if addr.Country == "" {
		return Snapshot{}, domain.ErrInvalidAddress
	}
	return s.mutate(ctx, cartID, ActionSetAddress, func(c *domain.Cart) (bool, *domain.StockLimitWarning) {
		c.SetAddress(&addr)
		return true, nil
	})
}

func (s *Store) ClearAddress(ctx context.Context, cartID string) (Snapshot, error) {
	return s.mutate(ctx, cartID, ActionClearAddress, func(c *domain.Cart) (bool, *domain.StockLimitWarning) {
		c.SetAddress(nil)
		return true, nil
	})
}

// ApplyPromo replaces any promo already on the cart. The rule is validated
// here so Recalculate never sees an out-of-range discount.
func (s *Store) ApplyPromo(ctx context.Context, cartID string, p domain.PromoCode) (Snapshot, error) {
	if err := p.Validate(); err != nil {
		return Snapshot{}, err
	}
	p.Code = domain.NormalizeCode(p.Code)
	return s.mutate(ctx, cartID, ActionApplyPromo, func(c *domain.Cart) (bool, *domain.StockLimitWarning) {
		c.SetPromo(&p)
		return true, nil
	})
}

func (s *Store) RemovePromo(ctx context.Context, cartID string) (Snapshot, error) {
	return s.mutate(ctx, cartID, ActionRemovePromo, func(c *domain.Cart) (bool, *domain.StockLimitWarning) {
		c.SetPromo(nil)
		return true, nil
	})
}

func (s *Store) SetShippingMethod(ctx context.Context, cartID string, method domain.ShippingMethod) (Snapshot, error) {
	method = domain.NormalizeShippingMethod(string(method))
	if method == "" {
		return Snapshot{}, fmt.Errorf("%w: method is required", domain.ErrUnknownShippingMethod)
	}
	if !s.opts.Rates.KnownShippingMethod(method) {
		if s.opts.StrictShippingMethods {
			return Snapshot{}, fmt.Errorf("%w: %q", domain.ErrUnknownShippingMethod, method)
		}
		logctx.FromOr(ctx, s.log).Warn("shipping_method_unknown",
			observability.F("cart_id", cartID),
			observability.F("shipping_method", string(method)),
			observability.F("fallback_rate", s.opts.Rates.DefaultShipping.String()),
		)
	}
	return s.mutate(ctx, cartID, ActionSetShippingMethod, func(c *domain.Cart) (bool, *domain.StockLimitWarning) {
		c.SetShippingMethod(method)
		return true, nil
	})
}

// Checkout freezes the current snapshot, records it under the idempotency
// key, resets the cart and then publishes cart.checked_out. A key that already
// produced a checkout returns that checkout without publishing again. When
// the publish fails the cart is restored and ErrPublish is returned, so no
// observer ever sees a checkout the cart does not remember.
func (s *Store) Checkout(ctx context.Context, cartID, idempotencyKey string) (CheckoutResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.repo.Get(ctx, cartID)
	if err != nil {
		return CheckoutResult{}, wrapRepositoryError(err)
	}
	if rec, ok := c.CheckoutFor(idempotencyKey); ok {
		return CheckoutResult{
			CheckoutID: rec.ID,
			Replayed:   true,
			Checkout:   rec.State,
			Cart:       s.snapshot(c, nil),
		}, nil
	}
	if c.IsEmpty() {
		return CheckoutResult{}, domain.ErrEmptyCart
	}

	before := c.Clone()
	frozen := c.Snapshot(s.opts.Rates)
	checkoutID := s.ids.NewID()
	c.RecordCheckout(idempotencyKey, domain.CheckoutRecord{ID: checkoutID, State: frozen})
	c.Reset(s.opts.DefaultShippingMethod)
	if err := s.repo.Update(ctx, c); err != nil {
		return CheckoutResult{}, wrapRepositoryError(err)
	}

	evt := domain.NewCartCheckedOutEvent(checkoutID, c.ID, idempotencyKey, s.opts.Currency, frozen)
	if err := s.publish(ctx, evt); err != nil {
		pubErr := fmt.Errorf("%w: %w", ErrPublish, err)
		c.Restore(before)
		if uerr := s.repo.Update(ctx, c); uerr != nil {
			return CheckoutResult{}, errors.Join(pubErr, wrapRepositoryError(uerr))
		}
		return CheckoutResult{}, pubErr
	}
	s.checkouts.Observe(frozen.FinalTotal.InexactFloat64(), observability.L("currency", s.opts.Currency))

	reset := s.snapshot(c, nil)
	_ = s.publish(ctx, domain.NewCartRecalculatedEvent(c, string(ActionCheckout), reset.State))

	return CheckoutResult{
		CheckoutID: checkoutID,
		Checkout:   frozen,
		Cart:       reset,
	}, nil
}

// Close discards a session.
func (s *Store) Close(ctx context.Context, cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Delete(ctx, cartID); err != nil {
		return wrapRepositoryError(err)
	}
	_ = s.publish(ctx, domain.NewCartClosedEvent(cartID))
	return nil
}

func (s *Store) mutate(
	ctx context.Context,
	cartID string,
	action Action,
	apply func(c *domain.Cart) (bool, *domain.StockLimitWarning),
) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.repo.Get(ctx, cartID)
	if err != nil {
		return Snapshot{}, wrapRepositoryError(err)
	}

	changed, warning := apply(c)
	if warning != nil {
		s.stockWarnings.Add(1, observability.L("product_id", warning.ProductID))
		logctx.FromOr(ctx, s.log).Info("stock_limit_reached",
			observability.F("cart_id", c.ID),
			observability.F("product_id", warning.ProductID),
			observability.F("stock_limit", warning.StockLimit),
		)
		_ = s.publish(ctx, domain.NewStockLimitReachedEvent(c.ID, *warning))
		return s.snapshot(c, warning), nil
	}
	if !changed {
		// Absent product ids leave the cart, its version and the bus untouched.
		return s.snapshot(c, nil), nil
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return Snapshot{}, wrapRepositoryError(err)
	}
	snap := s.snapshot(c, nil)
	_ = s.publish(ctx, domain.NewCartRecalculatedEvent(c, string(action), snap.State))
	return snap, nil
}

// replaceItems swaps in an engine result and reports whether it differs from
// the current lines.
func replaceItems(c *domain.Cart, items []domain.LineItem) bool {
	if domain.SameItems(c.Items, items) {
		return false
	}
	c.Replace(items)
	return true
}

func (s *Store) snapshot(c *domain.Cart, warning *domain.StockLimitWarning) Snapshot {
	return Snapshot{
		CartID:  c.ID,
		Version: c.Version,
		State:   c.Snapshot(s.opts.Rates),
		Warning: warning,
	}
}

// publish is best effort for observer notifications; the returned error is
// only acted on by Checkout.
func (s *Store) publish(ctx context.Context, e domoutbox.Event) error {
	if s.publisher == nil {
		return nil
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	start := time.Now()
	outcome := "success"
	err := s.publisher.Publish(pubCtx, e)
	if err != nil {
		outcome = "error"
		logctx.FromOr(ctx, s.log).Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err.Error()),
		)
	}
	s.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", e.EventName()),
		observability.L("outcome", outcome),
	)
	s.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", e.EventName()),
	)
	return err
}

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, domain.ErrConflict):
		return ErrConflict
	default:
		return fmt.Errorf("%w: %w", ErrRepository, err)
	}
}
