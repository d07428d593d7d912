package app

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orders/internal/metrics"
	"github.com/vladislavdragonenkov/orders/internal/service/outbox"
)

// parseBrokers разбирает список брокеров через запятую, пропуская пустые элементы.
func parseBrokers(raw string) []string {
	var brokers []string
	for _, broker := range strings.Split(raw, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

// initKafkaProducer инициализирует Kafka producer, если брокеры заданы.
// Возвращает nil, nil при пустом списке брокеров.
func initKafkaProducer(brokers []string, clientID string, logger *log.Entry) (*kafka.Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokers, clientID)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokers).Info("kafka producer initialized")
	return producer, nil
}

// closeKafka закрывает Kafka producer если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}

// newOutboxWorker собирает воркер публикации событий заказов в Kafka.
func newOutboxWorker(
	cfg Config,
	repo domain.OutboxRepository,
	producer *kafka.Producer,
	registerer prometheus.Registerer,
	logger *log.Entry,
) *outbox.Worker {
	options := []outbox.Option{
		outbox.WithLogger(logger),
		outbox.WithMetrics(metrics.NewOutboxMetricsWithRegisterer(registerer)),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	}
	if cfg.KafkaDLQTopic != "" {
		options = append(options, outbox.WithDLQPublisher(kafka.NewDLQPublisher(producer, cfg.KafkaDLQTopic, cfg.KafkaTopic)))
	}

	return outbox.NewWorker(repo, kafka.NewOutboxPublisher(producer, cfg.KafkaTopic), options...)
}

// startOutboxWorker запускает воркер в фоне и возвращает функцию остановки с ожиданием.
func startOutboxWorker(ctx context.Context, worker *outbox.Worker) func() {
	if worker == nil {
		return func() {}
	}

	workerCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(workerCtx)
	}()

	return func() {
		cancel()
		<-done
	}
}
