package app

import "time"

// Поддерживаемые драйверы хранилища заказов.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	// HTTPAddr — адрес публичного API витрины.
	HTTPAddr string
	// MetricsAddr — адрес служебного сервера (/metrics, health-пробы).
	MetricsAddr string

	// StorageDriver выбирает хранилище заказов: memory или postgres.
	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	// RedisAddr — адрес Redis для корзин и слотов "купить сейчас".
	// Пустое значение означает in-memory хранение.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// KafkaBrokers — список брокеров через запятую. Пустое значение
	// отключает публикацию событий.
	KafkaBrokers string

	// Учётные данные платёжного шлюза.
	RazorpayKeyID     string
	RazorpayKeySecret string
	RazorpayBaseURL   string

	// AllowMockIntegrations разрешает подменять каталог и платёжный шлюз
	// mock-реализациями, когда внешние интеграции не настроены.
	AllowMockIntegrations bool

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
	OutboxMaxPending   int

	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int
}

// DefaultConfig возвращает конфигурацию для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:                    ":8080",
		MetricsAddr:                 ":9090",
		StorageDriver:               StorageDriverMemory,
		PostgresAutoMigrate:         true,
		AllowMockIntegrations:       true,
		OutboxPollInterval:          time.Second,
		OutboxBatchSize:             20,
		OutboxMaxAttempts:           5,
		OutboxRetryDelay:            500 * time.Millisecond,
		OutboxMaxPending:            1000,
		IdempotencyCleanupInterval:  time.Minute,
		IdempotencyCleanupBatchSize: 500,
	}
}
