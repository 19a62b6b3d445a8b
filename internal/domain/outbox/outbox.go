// Package outbox declares how the cart service hands events to in-process
// observers. Cart snapshots, stock warnings and checkouts leave the store
// through a Publisher; the order worker receives them through a Subscriber.
package outbox

import "context"

// Event is anything carried on the bus. EventName is stable and used for
// routing, e.g. "cart.recalculated" or "order.placed".
type Event interface {
	EventName() string
}

// Handler reacts to one delivered event. A returned error is logged by the
// bus and does not stop delivery to other handlers.
type Handler func(ctx context.Context, e Event) error

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber routes events by name. Subscriptions are made before the bus
// starts.
type Subscriber interface {
	Subscribe(eventName string, h Handler)
}
