package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
)

type CatalogRepository struct {
	mu    sync.RWMutex
	items map[string]*domain.Item
}

func NewCatalogRepository(seed ...*domain.Item) *CatalogRepository {
	r := &CatalogRepository{
		items: make(map[string]*domain.Item, len(seed)),
	}
	for _, item := range seed {
		if item != nil {
			r.items[item.ProductID] = cloneItem(item)
		}
	}
	return r
}

func (r *CatalogRepository) Get(ctx context.Context, productID string) (*domain.Item, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneItem(item), nil
}

func (r *CatalogRepository) Save(ctx context.Context, item *domain.Item) error {
	_ = ctx
	if item == nil || item.ProductID == "" {
		return fmt.Errorf("catalog repository: product id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[item.ProductID] = cloneItem(item)
	return nil
}

func cloneItem(item *domain.Item) *domain.Item {
	if item == nil {
		return nil
	}
	clone := *item
	return &clone
}
