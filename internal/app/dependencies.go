package app

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/health"
	"github.com/vladislavdragonenkov/orders/internal/service/products"
	"github.com/vladislavdragonenkov/orders/internal/storage/memory"
	"github.com/vladislavdragonenkov/orders/internal/storage/postgres"
)

// runtimeDependencies содержит хранилища и внешние клиенты приложения.
type runtimeDependencies struct {
	orders domain.OrderRepository
	outbox domain.OutboxRepository

	storageChecker health.Checker
	closeFn        func() error
}

// initRuntimeDependencies создаёт хранилище по драйверу из конфигурации.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	switch cfg.normalizedDriver() {
	case StorageDriverMemory:
		logger.Info("using in-memory storage")
		return &runtimeDependencies{
			orders:         memory.NewOrderRepository(),
			outbox:         memory.NewOutboxRepository(),
			storageChecker: health.NewSimpleChecker("storage", func(context.Context) error { return nil }),
		}, nil
	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.New("postgres dsn is required")
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("init postgres storage: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply postgres migrations: %w", err)
			}
			version, count, err := store.MigrationStatus(ctx)
			if err == nil {
				logger.WithFields(log.Fields{"schema_version": version, "migrations": count}).Info("postgres schema is up to date")
			}
		}
		logger.Info("using postgres storage")
		return &runtimeDependencies{
			orders:         postgres.NewOrderRepository(store),
			outbox:         postgres.NewOutboxRepository(store),
			storageChecker: health.NewSimpleChecker("postgres", store.Ping),
			closeFn:        store.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

// productCatalog: валидатор товаров вместе с его проверкой здоровья и закрытием.
type productCatalog struct {
	validator domain.ProductValidator
	checker   health.Checker
	closeFn   func() error
}

// initProductCatalog подключает gRPC-клиента каталога или dev-каталог, если адрес не задан.
func initProductCatalog(cfg Config, logger *log.Entry) (*productCatalog, error) {
	if cfg.ProductsAddr == "" {
		logger.Warn("products service address is not configured, using built-in development catalog")
		return &productCatalog{
			validator: products.NewDevCatalog(),
			checker:   health.NewOptionalChecker("products", func(context.Context) error { return nil }),
		}, nil
	}

	client, err := products.Dial(cfg.ProductsAddr, cfg.ProductsTimeout, logger.WithField("layer", "products-client"))
	if err != nil {
		return nil, err
	}
	logger.WithField("addr", cfg.ProductsAddr).Info("products client initialized")
	return &productCatalog{
		validator: client,
		checker:   health.NewOptionalChecker("products", client.Check),
		closeFn:   client.Close,
	}, nil
}
