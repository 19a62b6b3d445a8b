package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Product is what the catalog hands the cart when an item is added.
type Product struct {
	ID         string
	Name       string
	UnitPrice  decimal.Decimal
	StockLimit int
}

// LineItem is one product entry in the cart with its cached unit price.
type LineItem struct {
	ProductID  string
	Name       string
	UnitPrice  decimal.Decimal
	Quantity   int
	StockLimit int
}

// LineTotal is UnitPrice × Quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// StockLimitWarning is returned alongside an unchanged collection when an
// increment would exceed the available stock.
type StockLimitWarning struct {
	ProductID  string
	StockLimit int
}

// Message is the text shown to the shopper.
func (w StockLimitWarning) Message() string {
	if w.StockLimit == 1 {
		return "only 1 left in stock"
	}
	return fmt.Sprintf("only %d left in stock", w.StockLimit)
}

// The operations below never modify the slice they are given: each returns a
// fresh collection so a previous snapshot stays valid.

// AddItem increments the line for product by quantity, or appends a new line.
// Stock is not clamped here; only Increment enforces StockLimit.
func AddItem(items []LineItem, product Product, quantity int) []LineItem {
	if quantity <= 0 {
		return cloneItems(items)
	}
	out := cloneItems(items)
	if i := indexOf(out, product.ID); i >= 0 {
		out[i].Quantity += quantity
		return out
	}
	return append(out, LineItem{
		ProductID:  product.ID,
		Name:       product.Name,
		UnitPrice:  product.UnitPrice,
		Quantity:   quantity,
		StockLimit: product.StockLimit,
	})
}

// RemoveItem drops the line for productID. Absent ids are a no-op.
func RemoveItem(items []LineItem, productID string) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, li := range items {
		if li.ProductID != productID {
			out = append(out, li)
		}
	}
	return out
}

// Increment adds one unit unless that would exceed the line's StockLimit, in
// which case the collection is returned unchanged with a warning.
func Increment(items []LineItem, productID string) ([]LineItem, *StockLimitWarning) {
	out := cloneItems(items)
	i := indexOf(out, productID)
	if i < 0 {
		return out, nil
	}
	if out[i].Quantity+1 > out[i].StockLimit {
		return out, &StockLimitWarning{ProductID: productID, StockLimit: out[i].StockLimit}
	}
	out[i].Quantity++
	return out, nil
}

// Decrement removes one unit, dropping the line when it reaches zero.
func Decrement(items []LineItem, productID string) []LineItem {
	out := cloneItems(items)
	i := indexOf(out, productID)
	if i < 0 {
		return out
	}
	out[i].Quantity = max(out[i].Quantity-1, 0)
	return compact(out)
}

// UpdateQuantity sets the quantity directly; a quantity ≤ 0 removes the line.
func UpdateQuantity(items []LineItem, productID string, quantity int) []LineItem {
	if quantity <= 0 {
		return RemoveItem(items, productID)
	}
	out := cloneItems(items)
	if i := indexOf(out, productID); i >= 0 {
		out[i].Quantity = quantity
	}
	return out
}

func indexOf(items []LineItem, productID string) int {
	for i := range items {
		if items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// compact drops zero-quantity lines.
func compact(items []LineItem) []LineItem {
	out := items[:0]
	for _, li := range items {
		if li.Quantity > 0 {
			out = append(out, li)
		}
	}
	return out
}

func cloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}

// SameItems reports whether two collections hold the same lines in the same
// order. Callers use it to tell an absent-id no-op from a real change.
func SameItems(a, b []LineItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ProductID != b[i].ProductID ||
			a[i].Name != b[i].Name ||
			a[i].Quantity != b[i].Quantity ||
			a[i].StockLimit != b[i].StockLimit ||
			!a[i].UnitPrice.Equal(b[i].UnitPrice) {
			return false
		}
	}
	return true
}
