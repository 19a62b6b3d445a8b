package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	domain "github.com/Zhima-Mochi/minishop-cart/internal/domain/promo"
)

type PromoRepository struct {
	mu     sync.RWMutex
	promos map[string]cart.PromoCode
}

func NewPromoRepository(seed ...cart.PromoCode) *PromoRepository {
	r := &PromoRepository{
		promos: make(map[string]cart.PromoCode, len(seed)),
	}
	for _, p := range seed {
		p.Code = cart.NormalizeCode(p.Code)
		r.promos[p.Code] = p
	}
	return r
}

func (r *PromoRepository) Lookup(ctx context.Context, code string) (cart.PromoCode, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.promos[cart.NormalizeCode(code)]
	if !ok {
		return cart.PromoCode{}, domain.ErrNotFound
	}
	return p, nil
}

func (r *PromoRepository) Save(ctx context.Context, p cart.PromoCode) error {
	_ = ctx
	p.Code = cart.NormalizeCode(p.Code)
	if p.Code == "" {
		return fmt.Errorf("promo repository: code is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.promos[p.Code] = p
	return nil
}
