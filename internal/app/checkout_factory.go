package app

import (
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/pricing"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
)

// createCheckoutService собирает сервис оформления поверх готовых корзинных
// сервисов. Kafka producer опционален: без него события уходят только в outbox.
func createCheckoutService(
	deps *Dependencies,
	cartStore *cart.Store,
	buyNow *cart.BuyNowService,
	engine *pricing.Engine,
	checkoutMetrics *metrics.CheckoutMetrics,
	kafkaProducer *kafka.Producer,
) *checkout.Service {
	validator := checkout.NewValidator(deps.Catalog, checkout.WithValidatorLogger(deps.Logger))

	options := []checkout.ServiceOption{
		checkout.WithServiceLogger(deps.Logger),
	}
	if checkoutMetrics != nil {
		options = append(options, checkout.WithMetrics(checkoutMetrics))
	}
	if kafkaProducer != nil {
		options = append(options, checkout.WithKafkaProducer(kafkaProducer))
	}

	return checkout.NewService(
		cartStore,
		buyNow,
		validator,
		engine,
		deps.Gateway,
		deps.Repo,
		deps.OutboxRepo,
		deps.TimelineRepo,
		options...,
	)
}
