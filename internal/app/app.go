// Package app wires the checkout components together for the binaries.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"kart-checkout/internal/config"
	"kart-checkout/internal/database"
	"kart-checkout/internal/handler"
	"kart-checkout/internal/inventory"
	"kart-checkout/internal/ledger"
	"kart-checkout/internal/metrics"
	"kart-checkout/internal/notify"
	"kart-checkout/internal/operator"
	"kart-checkout/internal/payment"
	"kart-checkout/internal/repository"
	"kart-checkout/internal/router"
	"kart-checkout/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const notifyTimeout = 15 * time.Second

// App holds the wired services and the resources that must be released.
type App struct {
	Config     *config.Config
	Pool       *pgxpool.Pool
	Metrics    *metrics.Metrics
	Dispatcher *notify.Dispatcher
	Feed       *notify.SellerFeed
	Reporter   *operator.Reporter

	Products   service.ProductService
	Carts      service.CartService
	Checkout   service.CheckoutService
	Reconciler service.Reconciler
	Orders     service.OrderService

	kafka  *notify.KafkaPublisher
	logger zerolog.Logger
}

// New connects to the database and builds every component from cfg.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return Build(ctx, cfg, pool, nil, logger), nil
}

// Build wires the components on an existing pool. A nil gateway selects
// the Cashfree client configured in cfg.
func Build(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, gateway payment.Gateway, logger zerolog.Logger) *App {
	a := &App{
		Config:  cfg,
		Pool:    pool,
		Metrics: metrics.New(cfg.Metrics.Namespace),
		logger:  logger.With().Str("component", "app").Logger(),
	}

	// Repositories
	productRepo := repository.NewProductRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	pendingRepo := repository.NewPendingOrderRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)

	if gateway == nil {
		gateway = payment.NewCashfree(cfg.Gateway, logger, payment.WithObserver(a.Metrics))
	}

	// Post-commit notifications
	a.Dispatcher = notify.NewDispatcher(notifyTimeout, logger)
	if cfg.SMTP.Enabled {
		a.Dispatcher.Register("email", notify.NewEmailNotifier(cfg.SMTP, productRepo, logger))
	} else {
		logger.Info().Msg("SMTP disabled, order emails will not be sent")
	}
	if brokers := cfg.Kafka.BrokerList(); len(brokers) > 0 {
		a.kafka = notify.NewKafkaPublisher(notify.NewKafkaWriter(brokers, cfg.Kafka.Topic), logger)
		a.Dispatcher.Register("kafka", a.kafka)
	}
	a.Feed = notify.NewSellerFeed(logger)
	a.Dispatcher.Register("seller_feed", a.Feed)
	a.Reporter = operator.NewReporter(reportStore(ctx, cfg.S3, logger), logger)
	a.Dispatcher.Register("operator_report", a.Reporter)

	// Ledger and services
	guard := inventory.NewGuard(productRepo, logger)
	orderLedger := ledger.New(orderRepo, productRepo, pendingRepo, cartRepo, cfg.Checkout.OrderNumberPrefix, logger)

	a.Products = service.NewProductService(productRepo, logger)
	a.Carts = service.NewCartService(cartRepo, productRepo, logger)
	a.Checkout = service.NewCheckoutService(cartRepo, pendingRepo, guard, gateway, orderLedger, a.Dispatcher,
		service.CheckoutOptions{
			PendingTTL: cfg.Checkout.PendingTTL,
			MinAmount:  cfg.Gateway.MinAmount,
			Currency:   cfg.Gateway.Currency,
		}, logger)
	a.Reconciler = service.NewReconciler(pendingRepo, orderRepo, gateway, orderLedger, a.Dispatcher, a.Metrics, logger)
	a.Orders = service.NewOrderService(orderRepo, orderLedger, a.Dispatcher, logger)

	return a
}

// reportStore uploads operator reports to S3 when enabled and keeps a local
// copy when S3 is unavailable.
func reportStore(ctx context.Context, cfg config.S3Config, logger zerolog.Logger) operator.Store {
	fileStore := operator.NewFileStore(cfg.ReportDir, logger)
	if !cfg.Enabled {
		logger.Info().Msg("using local file system for operator reports (S3 disabled)")
		return fileStore
	}

	s3Store, err := operator.NewS3Store(ctx, cfg.Bucket, cfg.Region, logger)
	if err != nil {
		logger.Warn().
			Err(err).
			Msg("failed to initialise S3 store, falling back to local file system only")
		return fileStore
	}
	return operator.NewFallbackStore(s3Store, fileStore, cfg.Prefix, true, logger)
}

// Handler builds the HTTP handler for the API server.
func (a *App) Handler(logger zerolog.Logger) http.Handler {
	cfg := a.Config
	redirects := handler.Redirects{
		Confirmation: cfg.Checkout.ConfirmationURL,
		Processing:   cfg.Checkout.ProcessingURL,
		Failure:      cfg.Checkout.FailureURL,
		Expired:      cfg.Checkout.ExpiredURL,
	}

	h := router.Handlers{
		Product:  handler.NewProductHandler(a.Products, logger),
		Cart:     handler.NewCartHandler(a.Carts, logger),
		Checkout: handler.NewCheckoutHandler(a.Checkout, redirects, logger),
		Payment:  handler.NewPaymentHandler(a.Reconciler, redirects, logger),
		Order:    handler.NewOrderHandler(a.Orders, logger),
		Seller:   handler.NewSellerHandler(a.Feed, logger),
	}
	return router.New(h, a.Metrics, router.Config{
		APIKey:        cfg.Auth.APIKey,
		WebhookSecret: cfg.Gateway.WebhookSecret,
	}, logger)
}

// RunSweeper reconciles expired pending orders every interval until ctx is
// cancelled. A zero interval disables it.
func (a *App) RunSweeper(ctx context.Context, interval time.Duration, batch int) {
	if interval <= 0 {
		a.logger.Info().Msg("pending order sweeper disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.Reconciler.Sweep(ctx, batch); err != nil {
				a.logger.Error().Err(err).Msg("pending order sweep failed")
			}
		}
	}
}

// Close drains in-flight notifications and releases resources.
func (a *App) Close(ctx context.Context) {
	a.Feed.Close()
	if err := a.Dispatcher.Wait(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("notifications still in flight at shutdown")
	}
	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			a.logger.Error().Err(err).Msg("failed to close kafka writer")
		}
	}
	a.Pool.Close()
}
