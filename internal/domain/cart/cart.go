package cart

import (
	"errors"
	"time"
)

var (
	ErrNotFound              = errors.New("cart: not found")
	ErrConflict              = errors.New("cart: conflict")
	ErrEmptyCart             = errors.New("cart: cart is empty")
	ErrInvalidQuantity       = errors.New("cart: quantity must be greater than zero")
	ErrInvalidPromo          = errors.New("cart: invalid promo code")
	ErrUnknownShippingMethod = errors.New("cart: unknown shipping method")
	ErrInvalidAddress        = errors.New("cart: country is required")
)

// Cart holds the primary inputs of one shopping session. Everything else is
// derived by Snapshot.
type Cart struct {
	ID             string
	Items          []LineItem
	Address        *Address
	Promo          *PromoCode
	ShippingMethod ShippingMethod
	// Checkouts maps idempotency keys to the checkouts they produced.
	// It survives Reset so a retried checkout is recognised.
	Checkouts      map[string]CheckoutRecord
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CheckoutRecord is what a completed checkout leaves behind on the cart: its
// id and the snapshot that was charged.
type CheckoutRecord struct {
	ID    string
	State CartState
}

func New(id string, method ShippingMethod) *Cart {
	now := time.Now().UTC()
	return &Cart{
		ID:             id,
		Items:          []LineItem{},
		ShippingMethod: method,
		Checkouts:      map[string]CheckoutRecord{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Snapshot recomputes the full cart state from the current inputs.
func (c *Cart) Snapshot(rates Rates) CartState {
	return Recalculate(c.Items, c.Address, c.Promo, c.ShippingMethod, rates)
}

// Replace swaps in a new set of inputs. Callers pass the output of one of the
// engine operations.
func (c *Cart) Replace(items []LineItem) {
	c.Items = items
	c.touch()
}

func (c *Cart) SetAddress(addr *Address) {
	c.Address = cloneAddress(addr)
	c.touch()
}

func (c *Cart) SetPromo(p *PromoCode) {
	c.Promo = clonePromo(p)
	c.touch()
}

func (c *Cart) SetShippingMethod(m ShippingMethod) {
	c.ShippingMethod = m
	c.touch()
}

// Reset empties the cart after a completed checkout, keeping the session.
func (c *Cart) Reset(method ShippingMethod) {
	c.Items = []LineItem{}
	c.Address = nil
	c.Promo = nil
	c.ShippingMethod = method
	c.touch()
}

// RecordCheckout remembers the checkout produced for an idempotency key.
func (c *Cart) RecordCheckout(idempotencyKey string, rec CheckoutRecord) {
	if idempotencyKey == "" {
		return
	}
	if c.Checkouts == nil {
		c.Checkouts = map[string]CheckoutRecord{}
	}
	rec.State = cloneState(rec.State)
	c.Checkouts[idempotencyKey] = rec
}

// CheckoutFor returns the checkout an idempotency key already produced.
func (c *Cart) CheckoutFor(idempotencyKey string) (CheckoutRecord, bool) {
	if idempotencyKey == "" {
		return CheckoutRecord{}, false
	}
	rec, ok := c.Checkouts[idempotencyKey]
	if !ok {
		return CheckoutRecord{}, false
	}
	rec.State = cloneState(rec.State)
	return rec, true
}

// Restore brings back the inputs and checkout history of an earlier copy of
// this cart as a new version.
func (c *Cart) Restore(prev *Cart) {
	c.Items = cloneItems(prev.Items)
	c.Address = cloneAddress(prev.Address)
	c.Promo = clonePromo(prev.Promo)
	c.ShippingMethod = prev.ShippingMethod
	c.Checkouts = cloneCheckouts(prev.Checkouts)
	c.touch()
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Clone returns a deep copy safe to hand across repository boundaries.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Items = cloneItems(c.Items)
	clone.Address = cloneAddress(c.Address)
	clone.Promo = clonePromo(c.Promo)
	clone.Checkouts = cloneCheckouts(c.Checkouts)
	return &clone
}

func cloneCheckouts(in map[string]CheckoutRecord) map[string]CheckoutRecord {
	out := make(map[string]CheckoutRecord, len(in))
	for k, rec := range in {
		rec.State = cloneState(rec.State)
		out[k] = rec
	}
	return out
}

func cloneState(s CartState) CartState {
	s.Items = cloneItems(s.Items)
	s.Address = cloneAddress(s.Address)
	s.Promo = clonePromo(s.Promo)
	return s
}

func (c *Cart) touch() {
	c.Version++
	c.UpdatedAt = time.Now().UTC()
}
