package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/app"
)

// Переменные окружения, переопределяющие app.DefaultConfig.
const (
	envHTTPAddr                    = "STOREFRONT_HTTP_ADDR"
	envMetricsAddr                 = "STOREFRONT_METRICS_ADDR"
	envStorageDriver               = "STOREFRONT_STORAGE_DRIVER"
	envPostgresDSN                 = "STOREFRONT_POSTGRES_DSN"
	envPostgresAutoMigrate         = "STOREFRONT_POSTGRES_AUTO_MIGRATE"
	envRedisAddr                   = "STOREFRONT_REDIS_ADDR"
	envRedisPassword               = "STOREFRONT_REDIS_PASSWORD"
	envRedisDB                     = "STOREFRONT_REDIS_DB"
	envKafkaBrokers                = "STOREFRONT_KAFKA_BROKERS"
	envRazorpayKeyID               = "STOREFRONT_RAZORPAY_KEY_ID"
	envRazorpayKeySecret           = "STOREFRONT_RAZORPAY_KEY_SECRET"
	envRazorpayBaseURL             = "STOREFRONT_RAZORPAY_BASE_URL"
	envAllowMockIntegrations       = "STOREFRONT_ALLOW_MOCK_INTEGRATIONS"
	envOutboxPollInterval          = "STOREFRONT_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize             = "STOREFRONT_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts           = "STOREFRONT_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay            = "STOREFRONT_OUTBOX_RETRY_DELAY"
	envOutboxMaxPending            = "STOREFRONT_OUTBOX_MAX_PENDING"
	envIdempotencyCleanupInterval  = "STOREFRONT_IDEMPOTENCY_CLEANUP_INTERVAL"
	envIdempotencyCleanupBatchSize = "STOREFRONT_IDEMPOTENCY_CLEANUP_BATCH_SIZE"
)

// envLookup абстрагирует os.LookupEnv для тестов.
type envLookup func(key string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

// readConfigFromEnv формирует конфигурацию приложения из окружения.
// Некорректные значения не прерывают запуск: остаётся значение по умолчанию,
// а предупреждение возвращается вызывающему.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	warn := func(key string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s: %v", key, err))
	}

	if v, ok := lookupTrimmed(lookup, envHTTPAddr); ok {
		cfg.HTTPAddr = v
	}
	if v, ok := lookupTrimmed(lookup, envMetricsAddr); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := lookupTrimmed(lookup, envStorageDriver); ok {
		cfg.StorageDriver = strings.ToLower(v)
	}
	if v, ok := lookupTrimmed(lookup, envPostgresDSN); ok {
		cfg.PostgresDSN = v
	}
	if raw, ok := lookup(envPostgresAutoMigrate); ok {
		if value, err := parseBool(raw); err != nil {
			warn(envPostgresAutoMigrate, err)
		} else {
			cfg.PostgresAutoMigrate = value
		}
	}
	if v, ok := lookupTrimmed(lookup, envRedisAddr); ok {
		cfg.RedisAddr = v
	}
	if v, ok := lookup(envRedisPassword); ok {
		cfg.RedisPassword = v
	}
	if raw, ok := lookup(envRedisDB); ok {
		if value, err := parseInt(raw, func(v int) bool { return v >= 0 }, "must be >= 0"); err != nil {
			warn(envRedisDB, err)
		} else {
			cfg.RedisDB = value
		}
	}
	if v, ok := lookupTrimmed(lookup, envKafkaBrokers); ok {
		cfg.KafkaBrokers = v
	}
	if v, ok := lookupTrimmed(lookup, envRazorpayKeyID); ok {
		cfg.RazorpayKeyID = v
	}
	if v, ok := lookupTrimmed(lookup, envRazorpayKeySecret); ok {
		cfg.RazorpayKeySecret = v
	}
	if v, ok := lookupTrimmed(lookup, envRazorpayBaseURL); ok {
		cfg.RazorpayBaseURL = v
	}
	if raw, ok := lookup(envAllowMockIntegrations); ok {
		if value, err := parseBool(raw); err != nil {
			warn(envAllowMockIntegrations, err)
		} else {
			cfg.AllowMockIntegrations = value
		}
	}
	if raw, ok := lookup(envOutboxPollInterval); ok {
		if value, err := parseDuration(raw, func(v time.Duration) bool { return v > 0 }, "must be > 0"); err != nil {
			warn(envOutboxPollInterval, err)
		} else {
			cfg.OutboxPollInterval = value
		}
	}
	if raw, ok := lookup(envOutboxBatchSize); ok {
		if value, err := parseInt(raw, func(v int) bool { return v > 0 }, "must be > 0"); err != nil {
			warn(envOutboxBatchSize, err)
		} else {
			cfg.OutboxBatchSize = value
		}
	}
	if raw, ok := lookup(envOutboxMaxAttempts); ok {
		if value, err := parseInt(raw, func(v int) bool { return v > 0 }, "must be > 0"); err != nil {
			warn(envOutboxMaxAttempts, err)
		} else {
			cfg.OutboxMaxAttempts = value
		}
	}
	if raw, ok := lookup(envOutboxRetryDelay); ok {
		if value, err := parseDuration(raw, func(v time.Duration) bool { return v >= 0 }, "must be >= 0"); err != nil {
			warn(envOutboxRetryDelay, err)
		} else {
			cfg.OutboxRetryDelay = value
		}
	}
	if raw, ok := lookup(envOutboxMaxPending); ok {
		if value, err := parseInt(raw, func(v int) bool { return v >= 0 }, "must be >= 0"); err != nil {
			warn(envOutboxMaxPending, err)
		} else {
			cfg.OutboxMaxPending = value
		}
	}
	if raw, ok := lookup(envIdempotencyCleanupInterval); ok {
		if value, err := parseDuration(raw, func(v time.Duration) bool { return v > 0 }, "must be > 0"); err != nil {
			warn(envIdempotencyCleanupInterval, err)
		} else {
			cfg.IdempotencyCleanupInterval = value
		}
	}
	if raw, ok := lookup(envIdempotencyCleanupBatchSize); ok {
		if value, err := parseInt(raw, func(v int) bool { return v > 0 }, "must be > 0"); err != nil {
			warn(envIdempotencyCleanupBatchSize, err)
		} else {
			cfg.IdempotencyCleanupBatchSize = value
		}
	}

	return cfg, warnings
}

func lookupTrimmed(lookup envLookup, key string) (string, bool) {
	raw, ok := lookup(key)
	if !ok {
		return "", false
	}
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", false
	}
	return value, true
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "on":
		return true, nil
	case "0", "f", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", raw)
	}
}

func parseInt(raw string, valid func(int) bool, constraint string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid int value %q", raw)
	}
	if !valid(value) {
		return 0, fmt.Errorf("value %d is out of range: %s", value, constraint)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, constraint string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration value %q", raw)
	}
	if !valid(value) {
		return 0, fmt.Errorf("value %s is out of range: %s", value, constraint)
	}
	return value, nil
}

func main() {
	setupLogger()

	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, warning := range warnings {
		log.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":      cfg.HTTPAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.StorageDriver,
	}).Info("запускаем витрину")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("витрина остановлена")
}
