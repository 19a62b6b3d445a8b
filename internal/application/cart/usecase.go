package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-cart/internal/application"
	domain "github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/promo"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	cartService = "cart-service"

	useCaseOpen     = "cart.open"
	useCaseGet      = "cart.get"
	useCaseMutate   = "cart.mutate"
	useCaseCheckout = "cart.checkout"
	useCaseClose    = "cart.close"

	catalogPeer = "catalog"
	promoPeer   = "promo"
)

var (
	_ application.UseCase[OpenCartInput, *Snapshot]         = (*OpenCartUseCase)(nil)
	_ application.UseCase[GetCartInput, *Snapshot]          = (*GetCartUseCase)(nil)
	_ application.UseCase[MutateCartInput, *Snapshot]       = (*MutateCartUseCase)(nil)
	_ application.UseCase[CheckoutInput, *CheckoutResult]   = (*CheckoutUseCase)(nil)
	_ application.UseCase[CloseCartInput, *CloseCartResult] = (*CloseCartUseCase)(nil)
)

type OpenCartInput struct{}

// OpenCartUseCase starts a shopping session.
type OpenCartUseCase struct {
	store *Store
	in    application.Instruments
}

func NewOpenCartUseCase(store *Store, tel observability.Observability) *OpenCartUseCase {
	return &OpenCartUseCase{store: store, in: application.NewInstruments(tel, cartService)}
}

func (uc *OpenCartUseCase) Execute(ctx context.Context, _ OpenCartInput) (_ *Snapshot, err error) {
	ctx, run := uc.in.Begin(ctx, useCaseOpen, "OpenCart")
	defer func() { run.End(err) }()

	if err := ctx.Err(); err != nil {
		run.Fail("CONTEXT_CANCELED")
		return nil, err
	}
	snap, err := uc.store.Open(ctx)
	if err != nil {
		run.Fail(statusFor(err))
		return nil, err
	}
	run.With(observability.F("cart_id", snap.CartID))
	run.Span().SetAttributes(attribute.String("cart.id", snap.CartID))
	return &snap, nil
}

type GetCartInput struct {
	CartID string
}

type GetCartUseCase struct {
	store *Store
	in    application.Instruments
}

func NewGetCartUseCase(store *Store, tel observability.Observability) *GetCartUseCase {
	return &GetCartUseCase{store: store, in: application.NewInstruments(tel, cartService)}
}

func (uc *GetCartUseCase) Execute(ctx context.Context, cmd GetCartInput) (_ *Snapshot, err error) {
	ctx, run := uc.in.Begin(ctx, useCaseGet, "GetCart", attribute.String("cart.id", cmd.CartID))
	defer func() { run.End(err) }()

	if cmd.CartID == "" {
		run.Fail("CART_ID_REQUIRED")
		return nil, newValidation("cart id is required")
	}
	snap, err := uc.store.Get(ctx, cmd.CartID)
	if err != nil {
		run.Fail(statusFor(err))
		return nil, err
	}
	return &snap, nil
}

// MutateCartInput carries one mutation. Only the fields the Action needs are
// read.
type MutateCartInput struct {
	CartID         string
	Action         Action
	ProductID      string
	Quantity       int
	Country        string
	PromoCode      string
	ShippingMethod string
}

// MutateCartUseCase applies one mutation. Products and promo codes are
// resolved through their ports before the store sees them.
type MutateCartUseCase struct {
	store   *Store
	catalog CatalogPort
	promos  PromoPort
	in      application.Instruments
}

func NewMutateCartUseCase(
	store *Store,
	products CatalogPort,
	promos PromoPort,
	tel observability.Observability,
) *MutateCartUseCase {
	return &MutateCartUseCase{
		store:   store,
		catalog: products,
		promos:  promos,
		in:      application.NewInstruments(tel, cartService),
	}
}

func (uc *MutateCartUseCase) Execute(ctx context.Context, cmd MutateCartInput) (_ *Snapshot, err error) {
	ctx, run := uc.in.Begin(ctx, useCaseMutate, "MutateCart",
		attribute.String("cart.id", cmd.CartID),
		attribute.String("cart.action", string(cmd.Action)),
	)
	defer func() { run.End(err) }()
	run.With(observability.F("action", string(cmd.Action)))

	if cmd.CartID == "" {
		run.Fail("CART_ID_REQUIRED")
		return nil, newValidation("cart id is required")
	}
	if err := ctx.Err(); err != nil {
		run.Fail("CONTEXT_CANCELED")
		return nil, err
	}

	var snap Snapshot
	switch cmd.Action {
	case ActionAddItem:
		if cmd.ProductID == "" {
			run.Fail("PRODUCT_ID_REQUIRED")
			return nil, newValidation("product id is required")
		}
		if cmd.Quantity <= 0 {
			run.Fail("QUANTITY_INVALID")
			return nil, domain.ErrInvalidQuantity
		}
		product, lookupErr := uc.lookupProduct(ctx, cmd.ProductID)
		if lookupErr != nil {
			run.Fail(statusFor(lookupErr))
			return nil, lookupErr
		}
		snap, err = uc.store.AddItem(ctx, cmd.CartID, product, cmd.Quantity)
	case ActionRemoveItem, ActionIncrement, ActionDecrement, ActionUpdateQuantity:
		if cmd.ProductID == "" {
			run.Fail("PRODUCT_ID_REQUIRED")
			return nil, newValidation("product id is required")
		}
		snap, err = uc.applyLineAction(ctx, cmd)
	case ActionSetAddress:
		snap, err = uc.store.SetAddress(ctx, cmd.CartID, domain.Address{Country: cmd.Country})
	case ActionClearAddress:
		snap, err = uc.store.ClearAddress(ctx, cmd.CartID)
	case ActionApplyPromo:
		code := domain.NormalizeCode(cmd.PromoCode)
		if code == "" {
			run.Fail("PROMO_CODE_REQUIRED")
			return nil, newValidation("promo code is required")
		}
		resolved, lookupErr := uc.lookupPromo(ctx, code)
		if lookupErr != nil {
			run.Fail(statusFor(lookupErr))
			return nil, lookupErr
		}
		snap, err = uc.store.ApplyPromo(ctx, cmd.CartID, resolved)
	case ActionRemovePromo:
		snap, err = uc.store.RemovePromo(ctx, cmd.CartID)
	case ActionSetShippingMethod:
		snap, err = uc.store.SetShippingMethod(ctx, cmd.CartID, domain.ShippingMethod(cmd.ShippingMethod))
	default:
		run.Fail("ACTION_UNKNOWN")
		return nil, newValidation(fmt.Sprintf("unknown action %q", cmd.Action))
	}
	if err != nil {
		run.Fail(statusFor(err))
		return nil, err
	}

	if snap.Warning != nil {
		run.Status("STOCK_LIMIT_REACHED")
		run.Span().AddEvent("cart.stock_limit_reached",
			trace.WithAttributes(
				attribute.String("product.id", snap.Warning.ProductID),
				attribute.Int("product.stock_limit", snap.Warning.StockLimit),
			),
		)
	}
	run.Span().SetAttributes(
		attribute.Int("cart.version", snap.Version),
		attribute.Int("cart.unique_items", snap.State.UniqueItemCount),
		attribute.String("cart.final_total", snap.State.FinalTotal.String()),
	)
	return &snap, nil
}

func (uc *MutateCartUseCase) applyLineAction(ctx context.Context, cmd MutateCartInput) (Snapshot, error) {
	switch cmd.Action {
	case ActionRemoveItem:
		return uc.store.RemoveItem(ctx, cmd.CartID, cmd.ProductID)
	case ActionIncrement:
		return uc.store.Increment(ctx, cmd.CartID, cmd.ProductID)
	case ActionDecrement:
		return uc.store.Decrement(ctx, cmd.CartID, cmd.ProductID)
	default:
		return uc.store.UpdateQuantity(ctx, cmd.CartID, cmd.ProductID, cmd.Quantity)
	}
}

func (uc *MutateCartUseCase) lookupProduct(ctx context.Context, productID string) (domain.Product, error) {
	start := time.Now()
	item, err := uc.catalog.Get(ctx, productID)
	uc.in.External(catalogPeer, "get_product", start, err)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return domain.Product{}, fmt.Errorf("%w: %q", catalog.ErrNotFound, productID)
		}
		return domain.Product{}, fmt.Errorf("%w: catalog: %w", ErrRepository, err)
	}
	return domain.Product{
		ID:         item.ProductID,
		Name:       item.Name,
		UnitPrice:  item.UnitPrice,
		StockLimit: item.Stock,
	}, nil
}

func (uc *MutateCartUseCase) lookupPromo(ctx context.Context, code string) (domain.PromoCode, error) {
	start := time.Now()
	p, err := uc.promos.Lookup(ctx, code)
	uc.in.External(promoPeer, "lookup_code", start, err)
	if err != nil {
		if errors.Is(err, promo.ErrNotFound) {
			return domain.PromoCode{}, fmt.Errorf("%w: code %q is not recognised", domain.ErrInvalidPromo, code)
		}
		return domain.PromoCode{}, fmt.Errorf("%w: promo: %w", ErrRepository, err)
	}
	return p, nil
}

type CheckoutInput struct {
	CartID         string
	IdempotencyKey string
}

type CheckoutUseCase struct {
	store *Store
	in    application.Instruments
}

func NewCheckoutUseCase(store *Store, tel observability.Observability) *CheckoutUseCase {
	return &CheckoutUseCase{store: store, in: application.NewInstruments(tel, cartService)}
}

func (uc *CheckoutUseCase) Execute(ctx context.Context, cmd CheckoutInput) (_ *CheckoutResult, err error) {
	ctx, run := uc.in.Begin(ctx, useCaseCheckout, "Checkout", attribute.String("cart.id", cmd.CartID))
	defer func() { run.End(err) }()

	if cmd.CartID == "" {
		run.Fail("CART_ID_REQUIRED")
		return nil, newValidation("cart id is required")
	}
	if err := ctx.Err(); err != nil {
		run.Fail("CONTEXT_CANCELED")
		return nil, err
	}

	res, err := uc.store.Checkout(ctx, cmd.CartID, cmd.IdempotencyKey)
	if err != nil {
		run.Fail(statusFor(err))
		return nil, err
	}
	run.With(observability.F("checkout_id", res.CheckoutID))
	if res.Replayed {
		run.Status("IDEMPOTENT_REPLAY")
		run.Span().AddEvent("cart.checkout_replayed",
			trace.WithAttributes(attribute.String("checkout.id", res.CheckoutID)),
		)
		return &res, nil
	}
	run.Span().SetAttributes(
		attribute.String("checkout.id", res.CheckoutID),
		attribute.String("checkout.final_total", res.Checkout.FinalTotal.String()),
	)
	return &res, nil
}

type CloseCartInput struct {
	CartID string
}

type CloseCartResult struct {
	CartID string
}

// CloseCartUseCase ends a session without checking out.
type CloseCartUseCase struct {
	store *Store
	in    application.Instruments
}

func NewCloseCartUseCase(store *Store, tel observability.Observability) *CloseCartUseCase {
	return &CloseCartUseCase{store: store, in: application.NewInstruments(tel, cartService)}
}

func (uc *CloseCartUseCase) Execute(ctx context.Context, cmd CloseCartInput) (_ *CloseCartResult, err error) {
	ctx, run := uc.in.Begin(ctx, useCaseClose, "CloseCart", attribute.String("cart.id", cmd.CartID))
	defer func() { run.End(err) }()

	if cmd.CartID == "" {
		run.Fail("CART_ID_REQUIRED")
		return nil, newValidation("cart id is required")
	}
	if err := uc.store.Close(ctx, cmd.CartID); err != nil {
		run.Fail(statusFor(err))
		return nil, err
	}
	return &CloseCartResult{CartID: cmd.CartID}, nil
}

// statusFor turns an error into the status text of use_case_done.
func statusFor(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "CART_NOT_FOUND"
	case errors.Is(err, catalog.ErrNotFound):
		return "PRODUCT_NOT_FOUND"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, domain.ErrEmptyCart):
		return "CART_EMPTY"
	case errors.Is(err, domain.ErrInvalidQuantity):
		return "QUANTITY_INVALID"
	case errors.Is(err, domain.ErrInvalidAddress):
		return "ADDRESS_INVALID"
	case errors.Is(err, domain.ErrInvalidPromo):
		return "PROMO_INVALID"
	case errors.Is(err, domain.ErrUnknownShippingMethod):
		return "SHIPPING_METHOD_UNKNOWN"
	case errors.Is(err, ErrPublish):
		return "EVENT_PUBLISH_FAILED"
	case errors.Is(err, ErrRepository):
		return "REPOSITORY_FAILED"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CONTEXT_CANCELED"
	default:
		return "INTERNAL"
	}
}

func newValidation(msg string) error {
	return application.Validation(msg)
}
