package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/app"
)

const (
	envFile = "ORDERS_ENV_FILE"

	envLogLevel            = "ORDERS_LOG_LEVEL"
	envGRPCAddr            = "ORDERS_GRPC_ADDR"
	envHTTPAddr            = "ORDERS_HTTP_ADDR"
	envBaseURL             = "ORDERS_BASE_URL"
	envStorageDriver       = "ORDERS_STORAGE_DRIVER"
	envPostgresDSN         = "ORDERS_POSTGRES_DSN"
	envPostgresAutoMigrate = "ORDERS_POSTGRES_AUTO_MIGRATE"
	envProductsAddr        = "ORDERS_PRODUCTS_ADDR"
	envProductsTimeout     = "ORDERS_PRODUCTS_TIMEOUT"
	envKafkaBrokers        = "KAFKA_BROKERS"
	envKafkaClientID       = "ORDERS_KAFKA_CLIENT_ID"
	envKafkaTopic          = "ORDERS_KAFKA_TOPIC"
	envKafkaDLQTopic       = "ORDERS_KAFKA_DLQ_TOPIC"
	envOutboxPollInterval  = "ORDERS_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize     = "ORDERS_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts   = "ORDERS_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay    = "ORDERS_OUTBOX_RETRY_DELAY"
	envShutdownTimeout     = "ORDERS_SHUTDOWN_TIMEOUT"

	defaultEnvFile = ".env"
)

type envLookup func(key string) (string, bool)

// loadDotEnv подгружает переменные из .env; уже заданные в окружении значения не перезаписываются.
// Отсутствие файла ошибкой не считается.
func loadDotEnv(lookup envLookup) error {
	path := defaultEnvFile
	if v, ok := lookup(envFile); ok && strings.TrimSpace(v) != "" {
		path = strings.TrimSpace(v)
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// readConfigFromEnv собирает конфигурацию; некорректные значения заменяются значениями по умолчанию
// с предупреждением.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	warn := func(key, value string, err error) {
		warnings = append(warnings, fmt.Sprintf("invalid %s=%q: %v, using default", key, value, err))
	}

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str(envGRPCAddr, &cfg.GRPCAddr)
	str(envHTTPAddr, &cfg.HTTPAddr)
	str(envBaseURL, &cfg.BaseURL)
	str(envPostgresDSN, &cfg.PostgresDSN)
	str(envProductsAddr, &cfg.ProductsAddr)
	str(envKafkaClientID, &cfg.KafkaClientID)
	str(envKafkaTopic, &cfg.KafkaTopic)
	str(envKafkaDLQTopic, &cfg.KafkaDLQTopic)

	if v, ok := lookup(envStorageDriver); ok && strings.TrimSpace(v) != "" {
		cfg.StorageDriver = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(envKafkaBrokers); ok {
		for _, broker := range strings.Split(v, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
			}
		}
	}

	if v, ok := lookup(envPostgresAutoMigrate); ok {
		if parsed, err := parseBool(v); err != nil {
			warn(envPostgresAutoMigrate, v, err)
		} else {
			cfg.PostgresAutoMigrate = parsed
		}
	}

	positive := func(v int) bool { return v > 0 }
	intVar := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok {
			return
		}
		if parsed, err := parseInt(v, positive, "must be > 0"); err != nil {
			warn(key, v, err)
		} else {
			*dst = parsed
		}
	}
	intVar(envOutboxBatchSize, &cfg.OutboxBatchSize)
	intVar(envOutboxMaxAttempts, &cfg.OutboxMaxAttempts)

	durationVar := func(key string, dst *time.Duration, valid func(time.Duration) bool, rule string) {
		v, ok := lookup(key)
		if !ok {
			return
		}
		if parsed, err := parseDuration(v, valid, rule); err != nil {
			warn(key, v, err)
		} else {
			*dst = parsed
		}
	}
	positiveDuration := func(v time.Duration) bool { return v > 0 }
	nonNegativeDuration := func(v time.Duration) bool { return v >= 0 }
	durationVar(envProductsTimeout, &cfg.ProductsTimeout, positiveDuration, "must be > 0")
	durationVar(envOutboxPollInterval, &cfg.OutboxPollInterval, positiveDuration, "must be > 0")
	durationVar(envOutboxRetryDelay, &cfg.OutboxRetryDelay, nonNegativeDuration, "must be >= 0")
	durationVar(envShutdownTimeout, &cfg.ShutdownTimeout, positiveDuration, "must be > 0")

	return cfg, warnings
}

// readLogLevel возвращает уровень логирования; по умолчанию info.
func readLogLevel(lookup envLookup) (log.Level, error) {
	v, ok := lookup(envLogLevel)
	if !ok || strings.TrimSpace(v) == "" {
		return log.InfoLevel, nil
	}
	level, err := log.ParseLevel(strings.TrimSpace(v))
	if err != nil {
		return log.InfoLevel, err
	}
	return level, nil
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean")
	}
}

func parseInt(raw string, valid func(int) bool, rule string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if !valid(v) {
		return 0, errors.New(rule)
	}
	return v, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if !valid(v) {
		return 0, errors.New(rule)
	}
	return v, nil
}

func osLookup(key string) (string, bool) {
	return os.LookupEnv(key)
}
