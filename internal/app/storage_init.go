package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
	redisstore "github.com/vladislavdragonenkov/storefront/internal/storage/redis"
)

// runtimeDependencies — репозитории и служебные хуки, собранные под выбранные
// драйверы хранилищ.
type runtimeDependencies struct {
	repo            domain.OrderRepository
	outboxRepo      domain.OutboxRepository
	timelineRepo    domain.TimelineRepository
	idempotencyRepo domain.IdempotencyRepository
	cartRepo        domain.CartRepository
	buyNowRepo      domain.BuyNowRepository

	storageChecker healthcheck.Checker
	cacheChecker   healthcheck.Checker
	closeFn        func() error
}

// initRuntimeDependencies собирает хранилища по конфигурации: заказы и outbox
// живут в memory или PostgreSQL, корзины и слоты "купить сейчас" — в memory
// или Redis.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (runtimeDependencies, error) {
	deps := runtimeDependencies{}

	switch cfg.StorageDriver {
	case StorageDriverMemory, "":
		deps.repo = memory.NewOrderRepository()
		deps.outboxRepo = memory.NewOutboxRepository()
		deps.timelineRepo = memory.NewTimelineRepository()
		deps.idempotencyRepo = memory.NewIdempotencyRepository()
	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return runtimeDependencies{}, fmt.Errorf("postgres storage driver requires a DSN")
		}

		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return runtimeDependencies{}, fmt.Errorf("init postgres storage: %w", err)
		}

		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				_ = store.Close()
				return runtimeDependencies{}, fmt.Errorf("apply postgres migrations: %w", err)
			}
			logger.Info("postgres migrations applied")
		}

		deps.repo = postgres.NewOrderRepository(store)
		deps.outboxRepo = postgres.NewOutboxRepository(store)
		deps.timelineRepo = postgres.NewTimelineRepository(store)
		deps.idempotencyRepo = postgres.NewIdempotencyRepository(store)
		deps.storageChecker = healthcheck.NewSimpleChecker("storage", func() error {
			return store.Ping(context.Background())
		})
		deps.closeFn = store.Close
	default:
		return runtimeDependencies{}, fmt.Errorf("unsupported storage driver: %q", cfg.StorageDriver)
	}

	if cfg.RedisAddr != "" {
		client, err := redisstore.Open(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			if deps.closeFn != nil {
				_ = deps.closeFn()
			}
			return runtimeDependencies{}, fmt.Errorf("init redis storage: %w", err)
		}

		deps.cartRepo = redisstore.NewCartRepository(client)
		deps.buyNowRepo = redisstore.NewBuyNowRepository(client)
		deps.cacheChecker = healthcheck.NewSimpleChecker("cache", func() error {
			return client.Ping(context.Background()).Err()
		})
		deps.closeFn = chainClose(deps.closeFn, client)
		logger.WithField("addr", cfg.RedisAddr).Info("redis storage initialized")
	} else {
		deps.cartRepo = memory.NewCartRepository()
		deps.buyNowRepo = memory.NewBuyNowRepository()
	}

	return deps, nil
}

func chainClose(prev func() error, client *goredis.Client) func() error {
	return func() error {
		err := client.Close()
		if prev != nil {
			if prevErr := prev(); err == nil {
				err = prevErr
			}
		}
		return err
	}
}
