package httppresentation

import (
	"time"

	appcart "github.com/Zhima-Mochi/minishop-cart/internal/application/cart"
	domcart "github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	domorder "github.com/Zhima-Mochi/minishop-cart/internal/domain/order"
	"github.com/shopspring/decimal"
)

// Amounts are rendered with two decimals. The engine itself never rounds.
func money(d decimal.Decimal) string { return d.StringFixed(2) }

type lineItemResponse struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	UnitPrice  string `json:"unit_price"`
	Quantity   int    `json:"quantity"`
	StockLimit int    `json:"stock_limit"`
	LineTotal  string `json:"line_total"`
}

type promoResponse struct {
	Code          string `json:"code"`
	DiscountType  string `json:"discount_type"`
	DiscountValue string `json:"discount_value"`
}

type warningResponse struct {
	ProductID  string `json:"product_id"`
	StockLimit int    `json:"stock_limit"`
	Message    string `json:"message"`
}

type stateResponse struct {
	Items           []lineItemResponse `json:"items"`
	TotalItemCount  int                `json:"total_item_count"`
	UniqueItemCount int                `json:"unique_item_count"`
	Subtotal        string             `json:"subtotal"`
	TaxPercent      string             `json:"tax_percent"`
	TaxAmount       string             `json:"tax_amount"`
	ShippingMethod  string             `json:"shipping_method"`
	ShippingAmount  string             `json:"shipping_amount"`
	DiscountAmount  string             `json:"discount_amount"`
	FinalTotal      string             `json:"final_total"`
	Country         string             `json:"country,omitempty"`
	Promo           *promoResponse     `json:"promo,omitempty"`
}

type cartResponse struct {
	CartID  string `json:"cart_id"`
	Version int    `json:"version"`
	stateResponse
	Warning *warningResponse `json:"warning,omitempty"`
}

type checkoutResponse struct {
	CheckoutID string        `json:"checkout_id"`
	Replayed   bool          `json:"replayed"`
	Checkout   stateResponse `json:"checkout"`
	Cart       cartResponse  `json:"cart"`
}

type orderLineResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

type orderResponse struct {
	OrderID        string              `json:"order_id"`
	CartID         string              `json:"cart_id"`
	Status         string              `json:"status"`
	Lines          []orderLineResponse `json:"lines"`
	Subtotal       string              `json:"subtotal"`
	TaxPercent     string              `json:"tax_percent"`
	Tax            string              `json:"tax"`
	Shipping       string              `json:"shipping"`
	Discount       string              `json:"discount"`
	Total          string              `json:"total"`
	Currency       string              `json:"currency"`
	ShippingMethod string              `json:"shipping_method"`
	Country        string              `json:"country,omitempty"`
	PromoCode      string              `json:"promo_code,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

func newStateResponse(s domcart.CartState) stateResponse {
	items := make([]lineItemResponse, 0, len(s.Items))
	for _, li := range s.Items {
		items = append(items, lineItemResponse{
			ProductID:  li.ProductID,
			Name:       li.Name,
			UnitPrice:  money(li.UnitPrice),
			Quantity:   li.Quantity,
			StockLimit: li.StockLimit,
			LineTotal:  money(li.LineTotal()),
		})
	}
	resp := stateResponse{
		Items:           items,
		TotalItemCount:  s.TotalItemCount,
		UniqueItemCount: s.UniqueItemCount,
		Subtotal:        money(s.Subtotal),
		TaxPercent:      s.TaxPercent.String(),
		TaxAmount:       money(s.TaxAmount),
		ShippingMethod:  string(s.ShippingMethod),
		ShippingAmount:  money(s.ShippingAmount),
		DiscountAmount:  money(s.DiscountAmount),
		FinalTotal:      money(s.FinalTotal),
	}
	if s.Address != nil {
		resp.Country = s.Address.Country
	}
	if s.Promo != nil {
		resp.Promo = &promoResponse{
			Code:          s.Promo.Code,
			DiscountType:  string(s.Promo.DiscountType),
			DiscountValue: s.Promo.DiscountValue.String(),
		}
	}
	return resp
}

func newCartResponse(snap appcart.Snapshot) cartResponse {
	resp := cartResponse{
		CartID:        snap.CartID,
		Version:       snap.Version,
		stateResponse: newStateResponse(snap.State),
	}
	if snap.Warning != nil {
		resp.Warning = &warningResponse{
			ProductID:  snap.Warning.ProductID,
			StockLimit: snap.Warning.StockLimit,
			Message:    snap.Warning.Message(),
		}
	}
	return resp
}

func newCheckoutResponse(res appcart.CheckoutResult) checkoutResponse {
	return checkoutResponse{
		CheckoutID: res.CheckoutID,
		Replayed:   res.Replayed,
		Checkout:   newStateResponse(res.Checkout),
		Cart:       newCartResponse(res.Cart),
	}
}

func newOrderResponse(o *domorder.Order) orderResponse {
	lines := make([]orderLineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, orderLineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: money(l.UnitPrice),
			Quantity:  l.Quantity,
			LineTotal: money(l.LineTotal),
		})
	}
	return orderResponse{
		OrderID:        o.ID,
		CartID:         o.CartID,
		Status:         string(o.Status),
		Lines:          lines,
		Subtotal:       money(o.Subtotal),
		TaxPercent:     o.TaxPercent.String(),
		Tax:            money(o.Tax),
		Shipping:       money(o.Shipping),
		Discount:       money(o.Discount),
		Total:          money(o.Total),
		Currency:       o.Currency,
		ShippingMethod: o.ShippingMethod,
		Country:        o.Country,
		PromoCode:      o.PromoCode,
		CreatedAt:      o.CreatedAt,
	}
}
