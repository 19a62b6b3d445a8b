package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-cart/internal/application"
	domcart "github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	domorder "github.com/Zhima-Mochi/minishop-cart/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-cart/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
	workerpresentation "github.com/Zhima-Mochi/minishop-cart/internal/presentation/worker"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	workerService     = "order-worker"
	useCaseOrderPlace = "order.worker.cart_checked_out"
	publishPeer       = "outbox"
	publishTimeout    = 300 * time.Millisecond
)

// Worker projects cart.checked_out events into order records. Redelivery of
// the same checkout is a no-op.
type Worker struct {
	repo       domorder.Repository
	subscriber domoutbox.Subscriber
	publisher  domoutbox.Publisher
	tel        observability.Observability
	in         application.Instruments
}

func NewWorker(
	repo domorder.Repository,
	subscriber domoutbox.Subscriber,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *Worker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Worker{
		repo:       repo,
		subscriber: subscriber,
		publisher:  publisher,
		tel:        tel,
		in:         application.NewInstruments(tel, workerService),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil || w.repo == nil {
		return
	}
	w.subscriber.Subscribe(domcart.CartCheckedOutEvent{}.EventName(), w.handleCheckedOut)
}

func (w *Worker) handleCheckedOut(ctx context.Context, e domoutbox.Event) (err error) {
	evt, ok := e.(domcart.CartCheckedOutEvent)
	if !ok {
		return nil
	}

	ctx = workerpresentation.WithEventContext(ctx, w.in.Logger(), w.tel, e, map[string]string{
		"event_id": evt.CheckoutID,
		"cart_id":  evt.CartID,
	})
	ctx, run := w.in.Begin(ctx, useCaseOrderPlace, "PlaceOrder",
		attribute.String("event", e.EventName()),
		attribute.String("cart.id", evt.CartID),
	)
	defer func() { run.End(err) }()

	o, err := domorder.FromCheckout(evt)
	if err != nil {
		run.Fail("ORDER_INVALID")
		return fmt.Errorf("worker: build order: %w", err)
	}
	run.With(observability.F("order_id", o.ID))

	if err := w.repo.Insert(ctx, o); err != nil {
		if errors.Is(err, domorder.ErrConflict) {
			existingID := o.ID
			if evt.IdempotencyKey != "" {
				if existing, ferr := w.repo.FindByIdempotency(ctx, evt.CartID, evt.IdempotencyKey); ferr == nil {
					existingID = existing.ID
				}
			}
			run.Status("IDEMPOTENT_REPLAY")
			run.With(observability.F("existing_order_id", existingID))
			run.Span().AddEvent("order.idempotent_replay",
				trace.WithAttributes(attribute.String("order.id", existingID)),
			)
			return nil
		}
		run.Fail("ORDER_INSERT_FAILED")
		return fmt.Errorf("worker: insert order: %w", err)
	}

	if w.publisher != nil {
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		start := time.Now()
		pubErr := w.publisher.Publish(pubCtx, domorder.NewOrderPlacedEvent(o))
		cancel()
		w.in.External(publishPeer, "order.placed", start, pubErr)
		if pubErr != nil {
			run.Status("EVENT_PUBLISH_FAILED")
			run.Span().RecordError(pubErr)
			run.With(observability.F("event_publish_error", pubErr.Error()))
		}
	}

	run.Span().SetAttributes(
		attribute.String("order.id", o.ID),
		attribute.String("order.total", o.Total.String()),
	)
	return nil
}
