package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	appcart "github.com/Zhima-Mochi/minishop-cart/internal/application/cart"
	apporder "github.com/Zhima-Mochi/minishop-cart/internal/application/order"
	"github.com/Zhima-Mochi/minishop-cart/internal/config"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/minishop-cart/internal/pkg/logging"
	httppresentation "github.com/Zhima-Mochi/minishop-cart/internal/presentation/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		zap.L().Fatal("config_load_failed", zap.Error(err))
	}

	baseLogger := logging.MustNewLogger(logging.Options{
		Service: cfg.Service.Name,
		Env:     cfg.Service.Env,
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
	})
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)
	if err := run(cfg, baseLogger, systemLogger); err != nil {
		systemLogger.Error("service_failed", zap.Error(err))
		_ = baseLogger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, baseLogger, systemLogger *zap.Logger) error {
	rates, err := cfg.Rates()
	if err != nil {
		return err
	}
	products, err := cfg.CatalogItems()
	if err != nil {
		return err
	}
	promoCodes, err := cfg.PromoCodes()
	if err != nil {
		return err
	}
	shutdownTimeout, err := cfg.ShutdownTimeout()
	if err != nil {
		return err
	}
	handlerTimeout, err := cfg.HandlerTimeout()
	if err != nil {
		return err
	}

	counters, histograms := prometrics.Standard(prometrics.New("", "", nil))
	logger := zaplogger.New(baseLogger)
	tel := infraobs.New(oteltrace.New(cfg.Service.Name), logger, counters, histograms)

	// In-memory event bus carrying cart snapshots and checkouts to the order worker
	bus := outbox.NewBus(logger, outbox.Options{
		QueueSize:      cfg.Outbox.QueueSize,
		Concurrency:    cfg.Outbox.Concurrency,
		HandlerTimeout: handlerTimeout,
	})

	cartRepo := memory.NewCartRepository()
	catalogRepo := memory.NewCatalogRepository(products...)
	promoRepo := memory.NewPromoRepository(promoCodes...)
	orderRepo := memory.NewOrderRepository()

	store := appcart.NewStore(cartRepo, bus, id.NewUUIDGenerator(), appcart.StoreOptions{
		Rates:                 rates,
		DefaultShippingMethod: cfg.DefaultShippingMethod(),
		StrictShippingMethods: cfg.Pricing.StrictShippingMethods,
		Currency:              cfg.Pricing.Currency,
	}, tel)

	apporder.NewWorker(orderRepo, bus, bus, tel).Start()
	bus.Start(context.Background())

	handler := httppresentation.NewHandler(httppresentation.CartUseCases{
		Open:     appcart.NewOpenCartUseCase(store, tel),
		Get:      appcart.NewGetCartUseCase(store, tel),
		Mutate:   appcart.NewMutateCartUseCase(store, catalogRepo, promoRepo, tel),
		Checkout: appcart.NewCheckoutUseCase(store, tel),
		Close:    appcart.NewCloseCartUseCase(store, tel),
	}, apporder.NewGetOrderUseCase(orderRepo, tel), logger, tel)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    cfg.Service.HTTPAddr,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		systemLogger.Info("http_server_start",
			zap.String("addr", server.Addr),
			zap.Int("catalog_items", len(products)),
			zap.Int("promo_codes", len(promoCodes)),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			systemLogger.Error("http_server_error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		systemLogger.Info("http_server_stopped")
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		systemLogger.Error("outbox_stop_error", zap.Error(err))
		return err
	}
	systemLogger.Info("outbox_stopped", zap.Int("open_carts", cartRepo.Len()))
	return nil
}
