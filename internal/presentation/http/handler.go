package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-cart/internal/application"
	appcart "github.com/Zhima-Mochi/minishop-cart/internal/application/cart"
	apporder "github.com/Zhima-Mochi/minishop-cart/internal/application/order"
	domcart "github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
	domorder "github.com/Zhima-Mochi/minishop-cart/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability/logctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// CartUseCases groups the use cases behind the /carts routes.
type CartUseCases struct {
	Open     application.UseCase[appcart.OpenCartInput, *appcart.Snapshot]
	Get      application.UseCase[appcart.GetCartInput, *appcart.Snapshot]
	Mutate   application.UseCase[appcart.MutateCartInput, *appcart.Snapshot]
	Checkout application.UseCase[appcart.CheckoutInput, *appcart.CheckoutResult]
	Close    application.UseCase[appcart.CloseCartInput, *appcart.CloseCartResult]
}

type Handler struct {
	carts    CartUseCases
	getOrder application.UseCase[apporder.GetOrderInput, *domorder.Order]
	log      observability.Logger
	tel      observability.Observability

	reqCounter   observability.Counter   // http_requests_total{method,route,status}
	durHistogram observability.Histogram // http_request_duration_seconds{method,route,status}
}

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	headerTenantID       = "X-Tenant-ID"
	headerIdempotencyKey = "Idempotency-Key"
	tracerName           = "minishop.http"
	maxRequestBodyBytes  = 1 << 20
	routeUnknown         = "unknown"
)

func NewHandler(
	carts CartUseCases,
	getOrder application.UseCase[apporder.GetOrderInput, *domorder.Order],
	logger observability.Logger,
	tel observability.Observability,
) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = tel.Logger()
	}
	return &Handler{
		carts:        carts,
		getOrder:     getOrder,
		log:          baseLogger.With(observability.F("component", componentHTTPHandler)),
		tel:          tel,
		reqCounter:   tel.Metrics().Counter(observability.MHTTPRequests),
		durHistogram: tel.Metrics().Histogram(observability.MHTTPRequestDuration),
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// Trace → ObservabilityMiddleware (request logger) → Access log → HTTP metrics → Handler
	h.muxHandle(mux, http.MethodPost, "/carts", h.handleOpenCart)
	h.muxHandle(mux, http.MethodGet, "/carts/{id}", h.handleGetCart)
	h.muxHandle(mux, http.MethodDelete, "/carts/{id}", h.handleCloseCart)
	h.muxHandle(mux, http.MethodPost, "/carts/{id}/items", h.handleAddItem)
	h.muxHandle(mux, http.MethodPut, "/carts/{id}/items/{product_id}", h.handleUpdateQuantity)
	h.muxHandle(mux, http.MethodDelete, "/carts/{id}/items/{product_id}", h.lineAction(appcart.ActionRemoveItem))
	h.muxHandle(mux, http.MethodPost, "/carts/{id}/items/{product_id}/increment", h.lineAction(appcart.ActionIncrement))
	h.muxHandle(mux, http.MethodPost, "/carts/{id}/items/{product_id}/decrement", h.lineAction(appcart.ActionDecrement))
	h.muxHandle(mux, http.MethodPut, "/carts/{id}/address", h.handleSetAddress)
	h.muxHandle(mux, http.MethodDelete, "/carts/{id}/address", h.cartAction(appcart.ActionClearAddress))
	h.muxHandle(mux, http.MethodPut, "/carts/{id}/promo", h.handleApplyPromo)
	h.muxHandle(mux, http.MethodDelete, "/carts/{id}/promo", h.cartAction(appcart.ActionRemovePromo))
	h.muxHandle(mux, http.MethodPut, "/carts/{id}/shipping", h.handleSetShipping)
	h.muxHandle(mux, http.MethodPost, "/carts/{id}/checkout", h.handleCheckout)
	h.muxHandle(mux, http.MethodGet, "/orders/{id}", h.handleGetOrder)
	h.muxHandle(mux, http.MethodGet, "/health", h.handleHealth)

	return mux
}

func (h *Handler) muxHandle(mux *http.ServeMux, method, route string, handler http.HandlerFunc) {
	wrapped := h.withTrace(
		ObservabilityMiddleware(
			h.log,
			func(r *http.Request) string {
				return r.Header.Get(headerRequestID)
			},
			func(r *http.Request) string {
				return r.Header.Get(headerTenantID)
			},
			h.tel,
		)(
			h.withAccessLog(
				h.withHTTPMetrics(handler),
			),
		),
	)

	mux.HandleFunc(method+" "+route, func(w http.ResponseWriter, r *http.Request) {
		// Store stable route template for low-cardinality labels
		wrapped.ServeHTTP(w, r.WithContext(contextWithRoute(r.Context(), route)))
	})
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type addressRequest struct {
	Country string `json:"country"`
}

type promoRequest struct {
	Code string `json:"code"`
}

type shippingRequest struct {
	Method string `json:"method"`
}

type checkoutRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
}

func (h *Handler) handleOpenCart(w http.ResponseWriter, r *http.Request) {
	snap, err := h.carts.Open.Execute(r.Context(), appcart.OpenCartInput{})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCartResponse(*snap))
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	snap, err := h.carts.Get.Execute(r.Context(), appcart.GetCartInput{CartID: r.PathValue("id")})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(*snap))
}

func (h *Handler) handleCloseCart(w http.ResponseWriter, r *http.Request) {
	if _, err := h.carts.Close.Execute(r.Context(), appcart.CloseCartInput{CartID: r.PathValue("id")}); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.mutate(w, r, appcart.MutateCartInput{
		CartID:    r.PathValue("id"),
		Action:    appcart.ActionAddItem,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
}

func (h *Handler) handleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req updateQuantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.mutate(w, r, appcart.MutateCartInput{
		CartID:    r.PathValue("id"),
		Action:    appcart.ActionUpdateQuantity,
		ProductID: r.PathValue("product_id"),
		Quantity:  req.Quantity,
	})
}

// lineAction serves the body-less per-line mutations.
func (h *Handler) lineAction(action appcart.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mutate(w, r, appcart.MutateCartInput{
			CartID:    r.PathValue("id"),
			Action:    action,
			ProductID: r.PathValue("product_id"),
		})
	}
}

// cartAction serves the body-less whole-cart mutations.
func (h *Handler) cartAction(action appcart.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mutate(w, r, appcart.MutateCartInput{CartID: r.PathValue("id"), Action: action})
	}
}

func (h *Handler) handleSetAddress(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.mutate(w, r, appcart.MutateCartInput{
		CartID:  r.PathValue("id"),
		Action:  appcart.ActionSetAddress,
		Country: req.Country,
	})
}

func (h *Handler) handleApplyPromo(w http.ResponseWriter, r *http.Request) {
	var req promoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.mutate(w, r, appcart.MutateCartInput{
		CartID:    r.PathValue("id"),
		Action:    appcart.ActionApplyPromo,
		PromoCode: req.Code,
	})
}

func (h *Handler) handleSetShipping(w http.ResponseWriter, r *http.Request) {
	var req shippingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.mutate(w, r, appcart.MutateCartInput{
		CartID:         r.PathValue("id"),
		Action:         appcart.ActionSetShippingMethod,
		ShippingMethod: req.Method,
	})
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, cmd appcart.MutateCartInput) {
	snap, err := h.carts.Mutate.Execute(r.Context(), cmd)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(*snap))
}

// handleCheckout accepts the idempotency key in the body or the
// Idempotency-Key header. A replayed key answers 200 instead of 201.
func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = strings.TrimSpace(r.Header.Get(headerIdempotencyKey))
	}

	res, err := h.carts.Checkout.Execute(r.Context(), appcart.CheckoutInput{
		CartID:         r.PathValue("id"),
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, newCheckoutResponse(*res))
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.getOrder.Execute(r.Context(), apporder.GetOrderInput{OrderID: r.PathValue("id")})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(o))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// withAccessLog writes a single access log after the handler completes.
// It relies on the request-scoped logger already injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace creates a server span for the request using OTel and W3C propagation.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracer := otel.Tracer(tracerName)
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		template := routeFromContext(parentCtx)
		if template == routeUnknown {
			template = r.URL.Path
		}

		ctxWithSpan, span := tracer.Start(parentCtx,
			r.Method+" "+template,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", template),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctxWithSpan))
	})
}

// withHTTPMetrics records RED-ish HTTP metrics using injected vectors.
// DO NOT new metrics inside the middleware.
func (h *Handler) withHTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		labels := []observability.Label{
			observability.L("method", r.Method),
			observability.L("route", routeFromContext(r.Context())),
			observability.L("status", strconv.Itoa(lrw.status)),
		}
		h.reqCounter.Add(1, labels...)
		h.durHistogram.Observe(time.Since(start).Seconds(), labels...)
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appcart.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, apporder.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, application.ErrValidation),
		errors.Is(err, domcart.ErrInvalidQuantity),
		errors.Is(err, domcart.ErrInvalidAddress):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domcart.ErrInvalidPromo),
		errors.Is(err, domcart.ErrUnknownShippingMethod),
		errors.Is(err, domcart.ErrEmptyCart):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, appcart.ErrConflict):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

type routeKey struct{}

// contextWithRoute stores the stable route template in the context so downstream
// metrics/logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return routeUnknown
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return routeUnknown
}
