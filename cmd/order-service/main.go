package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/app"
	"github.com/vladislavdragonenkov/orders/internal/version"
)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(level log.Level) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(level)
}

func main() {
	if err := loadDotEnv(osLookup); err != nil {
		log.WithError(err).Warn("не удалось прочитать .env, используем окружение процесса")
	}

	level, err := readLogLevel(osLookup)
	setupLogger(level)
	if err != nil {
		log.WithError(err).Warn("некорректный ORDERS_LOG_LEVEL, используем info")
	}

	cfg, warnings := readConfigFromEnv(osLookup)
	for _, warning := range warnings {
		log.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"grpc_addr":      cfg.GRPCAddr,
		"http_addr":      cfg.HTTPAddr,
		"storage_driver": cfg.StorageDriver,
		"products_addr":  cfg.ProductsAddr,
		"kafka_brokers":  cfg.KafkaBrokers,
		"version":        version.String(),
	}).Info("запускаем OrderService")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("OrderService остановлен")
}
