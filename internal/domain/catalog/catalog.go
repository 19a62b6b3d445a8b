package catalog

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("catalog: product not found")
	ErrInvalidPrice = errors.New("catalog: unit price must be zero or greater")
	ErrInvalidStock = errors.New("catalog: stock must be zero or greater")
)

// Item is the catalog record for a product: what it costs and how many can be
// put in a single cart.
type Item struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Stock     int
	UpdatedAt time.Time
}

func NewItem(productID, name string, unitPrice decimal.Decimal, stock int) (*Item, error) {
	if unitPrice.IsNegative() {
		return nil, ErrInvalidPrice
	}
	if stock < 0 {
		return nil, ErrInvalidStock
	}
	return &Item{
		ProductID: productID,
		Name:      name,
		UnitPrice: unitPrice,
		Stock:     stock,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// Restock replaces the available stock.
func (i *Item) Restock(stock int) error {
	if stock < 0 {
		return ErrInvalidStock
	}
	i.Stock = stock
	i.touch()
	return nil
}

func (i *Item) touch() {
	i.UpdatedAt = time.Now().UTC()
}
