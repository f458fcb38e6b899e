package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/pricing"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/service/gateway"
	"github.com/vladislavdragonenkov/storefront/internal/service/httpapi"
	"github.com/vladislavdragonenkov/storefront/internal/service/idempotency"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

// Run собирает витрину по конфигурации и блокируется до отмены контекста
// либо падения публичного HTTP-сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	runtime, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if runtime.closeFn != nil {
		defer func() {
			if closeErr := runtime.closeFn(); closeErr != nil {
				logger.WithError(closeErr).Warn("failed to close storage")
			}
		}()
	}

	paymentGateway, err := createGateway(cfg, logger)
	if err != nil {
		return err
	}

	// Kafka опционален: без брокеров события остаются в outbox.
	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(kafkaProducer, logger)

	productCatalog := catalog.NewMockService()
	seedDemoCatalog(productCatalog, logger)

	deps := &Dependencies{
		Repo:            runtime.repo,
		OutboxRepo:      runtime.outboxRepo,
		TimelineRepo:    runtime.timelineRepo,
		IdempotencyRepo: runtime.idempotencyRepo,
		CartRepo:        runtime.cartRepo,
		BuyNowRepo:      runtime.buyNowRepo,
		Catalog:         productCatalog,
		Gateway:         paymentGateway,
		Logger:          logger,
	}

	engine := pricing.NewEngine(pricing.DefaultPolicy())
	cartStore := cart.NewStore(deps.CartRepo, deps.Catalog, engine, cart.WithLogger(logger))
	buyNow := cart.NewBuyNowService(deps.BuyNowRepo, deps.Catalog, cart.WithBuyNowLogger(logger))

	checkoutMetrics := metrics.NewCheckoutMetrics()
	checkoutSvc := createCheckoutService(deps, cartStore, buyNow, engine, checkoutMetrics, kafkaProducer)
	guard := idempotency.NewGuard(deps.IdempotencyRepo, idempotency.WithGuardLogger(logger))

	var outboxCancel context.CancelFunc
	var outboxDone chan struct{}
	if kafkaProducer != nil {
		publisher := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicOrderEvents)
		dlqPublisher := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicDeadLetterQueue)
		worker := outbox.NewWorker(
			deps.OutboxRepo,
			publisher,
			outbox.WithLogger(logger),
			outbox.WithDLQPublisher(dlqPublisher),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
			outbox.WithMaxPending(cfg.OutboxMaxPending),
		)

		workerCtx, cancel := context.WithCancel(context.Background())
		outboxCancel = cancel
		outboxDone = make(chan struct{})
		go func() {
			worker.Run(workerCtx)
			close(outboxDone)
		}()
	}

	cleanupWorker := idempotency.NewCleanupWorker(
		deps.IdempotencyRepo,
		idempotency.WithLogger(logger),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
	)
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	cleanupDone := make(chan struct{})
	go func() {
		cleanupWorker.Run(cleanupCtx)
		close(cleanupDone)
	}()

	// Брошенные слоты "купить сейчас" вычищаются отдельным воркером.
	buyNowCleanup := cart.NewCleanupWorker(deps.BuyNowRepo, cart.WithCleanupLogger(logger))
	buyNowCleanupCtx, buyNowCleanupCancel := context.WithCancel(context.Background())
	buyNowCleanupDone := make(chan struct{})
	go func() {
		buyNowCleanup.Run(buyNowCleanupCtx)
		close(buyNowCleanupDone)
	}()

	healthHandler := healthcheck.NewHandler(version.String())
	if runtime.storageChecker != nil {
		healthHandler.RegisterChecker("storage", runtime.storageChecker)
	}
	if runtime.cacheChecker != nil {
		healthHandler.RegisterChecker("cache", runtime.cacheChecker)
	}

	router := httpapi.NewRouter(
		httpapi.NewCartHandler(cartStore, buyNow, logger),
		httpapi.NewCheckoutHandler(checkoutSvc, guard, logger),
		httpapi.NewOrdersHandler(checkoutSvc, logger),
		healthHandler,
	)

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	apiSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	stopAll := func() {
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		shutdownWorker(outboxCancel, outboxDone, logger)
		shutdownWorker(cleanupCancel, cleanupDone, logger)
		shutdownWorker(buyNowCleanupCancel, buyNowCleanupDone, logger)
	}

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP-серверы")
		stopAll()
		return ctx.Err()
	case err := <-errCh:
		stopAll()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// createGateway выбирает платёжный шлюз: Razorpay при наличии учётных данных,
// mock — только когда разрешены mock-интеграции.
func createGateway(cfg Config, logger *log.Entry) (domain.PaymentGateway, error) {
	if cfg.RazorpayKeyID == "" || cfg.RazorpayKeySecret == "" {
		if !cfg.AllowMockIntegrations {
			return nil, errors.New("razorpay credentials are required when mock integrations are disabled")
		}
		logger.Warn("razorpay credentials are not set, using mock payment gateway")
		return gateway.NewMockGateway(), nil
	}

	options := []gateway.ClientOption{gateway.WithLogger(logger)}
	if cfg.RazorpayBaseURL != "" {
		options = append(options, gateway.WithBaseURL(cfg.RazorpayBaseURL))
	}
	client := gateway.NewClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, options...)
	return gateway.NewBreaker(client, gateway.WithBreakerLogger(logger)), nil
}

// seedDemoCatalog наполняет mock-каталог товарами для локального запуска.
func seedDemoCatalog(c *catalog.MockService, logger *log.Entry) {
	c.Seed(
		domain.Product{
			ID:         "prod-plate",
			Name:       "Ceramic Dinner Plate",
			PriceMinor: 129900,
			Stock:      40,
		},
		domain.Product{
			ID:              "prod-mug",
			Name:            "Stoneware Mug",
			PriceMinor:      89900,
			DiscountedMinor: 74900,
			OriginalMinor:   89900,
			Stock:           120,
		},
		domain.Product{
			ID:          "prod-shirt",
			Name:        "Linen Shirt",
			PriceMinor:  219900,
			Stock:       25,
			HasVariants: true,
			Colors:      []string{"white", "indigo"},
			Sizes:       []string{"S", "M", "L"},
		},
	)
	logger.Info("mock catalog seeded with demo products")
}

// shutdownWorker отменяет фоновый worker и дожидается его завершения.
func shutdownWorker(cancel context.CancelFunc, done <-chan struct{}, logger *log.Entry) {
	if cancel == nil {
		return
	}
	cancel()
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		logger.Warn("background worker did not stop within timeout")
	}
}
