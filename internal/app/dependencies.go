package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/service/gateway"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

// Dependencies содержит все зависимости приложения.
type Dependencies struct {
	Repo            domain.OrderRepository
	OutboxRepo      domain.OutboxRepository
	TimelineRepo    domain.TimelineRepository
	IdempotencyRepo domain.IdempotencyRepository
	CartRepo        domain.CartRepository
	BuyNowRepo      domain.BuyNowRepository
	Catalog         domain.ProductCatalog
	Gateway         domain.PaymentGateway
	Logger          *log.Entry
}

// NewDependencies создаёт in-memory зависимости приложения.
// NOTE: Каталог и платёжный шлюз здесь mock-реализации; в production
// окружении подключаются реальный каталог и Razorpay-клиент.
func NewDependencies(logger *log.Entry) *Dependencies {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	return &Dependencies{
		Repo:            memory.NewOrderRepository(),
		OutboxRepo:      memory.NewOutboxRepository(),
		TimelineRepo:    memory.NewTimelineRepository(),
		IdempotencyRepo: memory.NewIdempotencyRepository(),
		CartRepo:        memory.NewCartRepository(),
		BuyNowRepo:      memory.NewBuyNowRepository(),
		Catalog:         catalog.NewMockService(),
		Gateway:         gateway.NewMockGateway(),
		Logger:          logger,
	}
}
