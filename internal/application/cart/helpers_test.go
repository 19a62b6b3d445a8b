package cart

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	domain "github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
	domoutbox "github.com/Zhima-Mochi/minishop-cart/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventName())
	}
	return out
}

func (p *recordingPublisher) last() domoutbox.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return nil
	}
	return p.events[len(p.events)-1]
}

type seqIDs struct{ n atomic.Int64 }

func (g *seqIDs) NewID() string { return fmt.Sprintf("id-%d", g.n.Add(1)) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

type fixture struct {
	store   *Store
	repo    *memory.CartRepository
	catalog *memory.CatalogRepository
	promos  *memory.PromoRepository
	pub     *recordingPublisher
}

func newFixture(t *testing.T, opts StoreOptions, tel observability.Observability) fixture {
	t.Helper()
	widget, err := catalog.NewItem("widget", "Widget", dec("20.00"), 5)
	require.NoError(t, err)
	gadget, err := catalog.NewItem("gadget", "Gadget", dec("3.50"), 10)
	require.NoError(t, err)

	f := fixture{
		repo:    memory.NewCartRepository(),
		catalog: memory.NewCatalogRepository(widget, gadget),
		promos: memory.NewPromoRepository(
			domain.PromoCode{Code: "SAVE10", DiscountType: domain.DiscountPercentage, DiscountValue: dec("10")},
			domain.PromoCode{Code: "HUNDRED", DiscountType: domain.DiscountFixed, DiscountValue: dec("100")},
		),
		pub: &recordingPublisher{},
	}
	f.store = NewStore(f.repo, f.pub, &seqIDs{}, opts, tel)
	return f
}

var widgetProduct = domain.Product{ID: "widget", Name: "Widget", UnitPrice: dec("20.00"), StockLimit: 5}
