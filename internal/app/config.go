package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/orders/internal/messaging/kafka"
)

// Поддерживаемые драйверы хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	GRPCAddr string
	// HTTPAddr обслуживает HTTP-шлюз /orders, /metrics и health-эндпоинты.
	HTTPAddr string
	// BaseURL: внешний адрес сервиса; ссылки пагинации строятся как {BaseURL}/orders.
	BaseURL string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	// ProductsAddr: адрес сервиса каталога; пустое значение включает встроенный dev-каталог.
	ProductsAddr    string
	ProductsTimeout time.Duration

	KafkaBrokers  []string
	KafkaClientID string
	KafkaTopic    string
	KafkaDLQTopic string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	ShutdownTimeout time.Duration
}

// DefaultConfig возвращает настройки для локального запуска.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:            ":50051",
		HTTPAddr:            ":8080",
		BaseURL:             "http://localhost:8080",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		ProductsTimeout:     3 * time.Second,
		KafkaClientID:       "order-service",
		KafkaTopic:          kafka.TopicOrderEvents,
		KafkaDLQTopic:       kafka.TopicDeadLetterQueue,
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     100,
		OutboxMaxAttempts:   3,
		OutboxRetryDelay:    50 * time.Millisecond,
		ShutdownTimeout:     5 * time.Second,
	}
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	if c.GRPCAddr == "" {
		return fmt.Errorf("grpc address is required")
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("http address is required")
	}
	switch c.normalizedDriver() {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("postgres dsn is required for storage driver %q", StorageDriverPostgres)
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.StorageDriver)
	}
	return nil
}

// OrdersListURL возвращает адрес списка заказов для ссылок пагинации.
func (c Config) OrdersListURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/orders"
}

func (c Config) normalizedDriver() string {
	return strings.ToLower(strings.TrimSpace(c.StorageDriver))
}
