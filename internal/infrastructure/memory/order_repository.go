package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/Zhima-Mochi/minishop-cart/internal/domain/order"
)

type OrderRepository struct {
	mu          sync.RWMutex
	orders      map[string]*domain.Order
	idempotency map[string]string
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders:      make(map[string]*domain.Order),
		idempotency: make(map[string]string),
	}
}

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return domain.ErrConflict
	}

	key := idempotencyKey(order.CartID, order.IdempotencyKey)
	if key != "" {
		if existingID, exists := r.idempotency[key]; exists {
			if _, ok := r.orders[existingID]; ok {
				return domain.ErrConflict
			}
		}
	}

	r.orders[order.ID] = cloneOrder(order)
	if key != "" {
		r.idempotency[key] = order.ID
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	return cloneOrder(order), nil
}

func (r *OrderRepository) FindByIdempotency(ctx context.Context, cartID, key string) (*domain.Order, error) {
	_ = ctx
	k := idempotencyKey(cartID, key)
	if k == "" {
		return nil, domain.ErrNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	orderID, ok := r.idempotency[k]
	if !ok {
		return nil, domain.ErrNotFound
	}
	order, ok := r.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneOrder(order), nil
}

// idempotency keys are scoped per cart
func idempotencyKey(cartID, key string) string {
	if key == "" {
		return ""
	}
	return cartID + "/" + key
}

func cloneOrder(order *domain.Order) *domain.Order {
	if order == nil {
		return nil
	}
	clone := *order
	clone.Lines = append([]domain.Line(nil), order.Lines...)
	return &clone
}
