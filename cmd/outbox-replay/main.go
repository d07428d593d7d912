// Команда outbox-replay возвращает события заказов из DLQ в основной topic.
//
// По умолчанию работает в режиме dry-run и только перечисляет кандидатов:
//
//	outbox-replay -brokers=localhost:9092 -limit=50
//	outbox-replay -brokers=localhost:9092 -execute
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/messaging/kafka"
)

const (
	defaultLimit       = 100
	defaultIdleTimeout = 2 * time.Second
	envKafkaBrokers    = "KAFKA_BROKERS"
)

var errBrokersRequired = errors.New("kafka brokers are required (-brokers or " + envKafkaBrokers + ")")

type replayConfig struct {
	brokers     []string
	dlqTopic    string
	targetTopic string
	limit       int
	execute     bool
	fromNewest  bool
	idleTimeout time.Duration
}

type offsetReader interface {
	GetOffset(topic string, partition int32, time int64) (int64, error)
	Partitions(topic string) ([]int32, error)
	Close() error
}

type partitionStream interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
	Close() error
}

type partitionSource interface {
	ConsumePartition(topic string, partition int32, offset int64) (partitionStream, error)
	Close() error
}

type messageSender interface {
	SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error)
	Close() error
}

type saramaSource struct {
	consumer sarama.Consumer
}

func (s saramaSource) ConsumePartition(topic string, partition int32, offset int64) (partitionStream, error) {
	pc, err := s.consumer.ConsumePartition(topic, partition, offset)
	if err != nil {
		return nil, err
	}
	return pc, nil
}

func (s saramaSource) Close() error {
	if s.consumer == nil {
		return nil
	}
	return s.consumer.Close()
}

// replayDeps собирает зависимости Kafka; заменяется в тестах.
var replayDeps = func(cfg replayConfig) (offsetReader, partitionSource, messageSender, error) {
	consumerConfig := sarama.NewConfig()
	consumerConfig.ClientID = "orders-outbox-replay"
	consumerConfig.Consumer.Return.Errors = true

	client, err := sarama.NewClient(cfg.brokers, consumerConfig)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create kafka client: %w", err)
	}

	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	source := saramaSource{consumer: consumer}

	if !cfg.execute {
		return client, source, nil, nil
	}

	producerConfig := sarama.NewConfig()
	producerConfig.ClientID = "orders-outbox-replay"
	producerConfig.Producer.RequiredAcks = sarama.WaitForAll
	producerConfig.Producer.Retry.Max = 5
	producerConfig.Producer.Return.Successes = true
	producerConfig.Producer.Idempotent = true
	producerConfig.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(cfg.brokers, producerConfig)
	if err != nil {
		_ = source.Close()
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return client, source, producer, nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.LookupEnv, os.Stderr); err != nil {
		stop()
		fail("outbox replay failed: %v", err)
	}
}

func run(ctx context.Context, args []string, lookup func(string) (string, bool), out io.Writer) error {
	cfg, err := parseConfig(args, lookup, out)
	if err != nil {
		return err
	}

	client, source, producer, err := replayDeps(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if producer != nil {
			_ = producer.Close()
		}
		if source != nil {
			_ = source.Close()
		}
		if client != nil {
			_ = client.Close()
		}
	}()

	_, err = replay(ctx, cfg, client, source, producer)
	return err
}

func parseConfig(args []string, lookup func(string) (string, bool), out io.Writer) (replayConfig, error) {
	var (
		brokersRaw string
		cfg        replayConfig
	)

	fs := flag.NewFlagSet("outbox-replay", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&brokersRaw, "brokers", "", "comma-separated Kafka brokers (fallback: "+envKafkaBrokers+")")
	fs.StringVar(&cfg.dlqTopic, "dlq-topic", kafka.TopicDeadLetterQueue, "DLQ topic to scan")
	fs.StringVar(&cfg.targetTopic, "target-topic", kafka.TopicOrderEvents, "topic used when a record has no original topic header")
	fs.IntVar(&cfg.limit, "limit", defaultLimit, "max number of DLQ records to scan")
	fs.BoolVar(&cfg.execute, "execute", false, "publish replayed events; dry-run by default")
	fs.BoolVar(&cfg.fromNewest, "from-newest", false, "start from the latest records of each partition")
	fs.DurationVar(&cfg.idleTimeout, "idle-timeout", defaultIdleTimeout, "stop reading a partition after this idle period")
	if err := fs.Parse(args); err != nil {
		return replayConfig{}, err
	}

	if strings.TrimSpace(brokersRaw) == "" {
		if v, ok := lookup(envKafkaBrokers); ok {
			brokersRaw = v
		}
	}
	cfg.brokers = splitBrokers(brokersRaw)

	switch {
	case len(cfg.brokers) == 0:
		return replayConfig{}, errBrokersRequired
	case strings.TrimSpace(cfg.dlqTopic) == "":
		return replayConfig{}, fmt.Errorf("dlq-topic is required")
	case strings.TrimSpace(cfg.targetTopic) == "":
		return replayConfig{}, fmt.Errorf("target-topic is required")
	case cfg.limit <= 0:
		return replayConfig{}, fmt.Errorf("limit must be > 0")
	case cfg.idleTimeout <= 0:
		return replayConfig{}, fmt.Errorf("idle-timeout must be > 0")
	}
	return cfg, nil
}

func splitBrokers(raw string) []string {
	brokers := make([]string, 0)
	for _, chunk := range strings.Split(raw, ",") {
		if broker := strings.TrimSpace(chunk); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

type replayStats struct {
	scanned  int
	replayed int
	skipped  int
}

func (s *replayStats) add(other replayStats) {
	s.scanned += other.scanned
	s.replayed += other.replayed
	s.skipped += other.skipped
}

func replay(ctx context.Context, cfg replayConfig, client offsetReader, source partitionSource, producer messageSender) (replayStats, error) {
	var total replayStats
	if client == nil || source == nil {
		return total, fmt.Errorf("kafka client and consumer are required")
	}
	if cfg.execute && producer == nil {
		return total, fmt.Errorf("producer is required in execute mode")
	}

	logger := log.WithFields(log.Fields{
		"dlq_topic":    cfg.dlqTopic,
		"target_topic": cfg.targetTopic,
		"execute":      cfg.execute,
	})
	logger.WithField("limit", cfg.limit).Info("starting outbox replay")

	partitions, err := client.Partitions(cfg.dlqTopic)
	if err != nil {
		return total, fmt.Errorf("get partitions for topic %s: %w", cfg.dlqTopic, err)
	}
	if len(partitions) == 0 {
		logger.Warn("dlq topic has no partitions")
		return total, nil
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	for _, partition := range partitions {
		if total.scanned >= cfg.limit {
			break
		}
		stats, err := replayPartition(ctx, cfg, client, source, producer, partition, cfg.limit-total.scanned)
		total.add(stats)
		if err != nil {
			return total, err
		}
	}

	logger.WithFields(log.Fields{
		"scanned":  total.scanned,
		"replayed": total.replayed,
		"skipped":  total.skipped,
	}).Info("outbox replay finished")
	return total, nil
}

func replayPartition(
	ctx context.Context,
	cfg replayConfig,
	client offsetReader,
	source partitionSource,
	producer messageSender,
	partition int32,
	limit int,
) (replayStats, error) {
	var stats replayStats
	if limit <= 0 {
		return stats, nil
	}

	oldest, err := client.GetOffset(cfg.dlqTopic, partition, sarama.OffsetOldest)
	if err != nil {
		return stats, fmt.Errorf("get oldest offset for partition %d: %w", partition, err)
	}
	newest, err := client.GetOffset(cfg.dlqTopic, partition, sarama.OffsetNewest)
	if err != nil {
		return stats, fmt.Errorf("get newest offset for partition %d: %w", partition, err)
	}
	if newest <= oldest {
		return stats, nil
	}

	start := oldest
	if cfg.fromNewest {
		start = max(newest-int64(limit), oldest)
	}

	stream, err := source.ConsumePartition(cfg.dlqTopic, partition, start)
	if err != nil {
		return stats, fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = stream.Close() }()

	idle := time.NewTimer(cfg.idleTimeout)
	defer idle.Stop()

	errs := stream.Errors()
	for stats.scanned < limit {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-idle.C:
			return stats, nil
		case consumeErr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if consumeErr != nil {
				return stats, fmt.Errorf("partition %d consumer error: %w", partition, consumeErr)
			}
		case msg, ok := <-stream.Messages():
			if !ok || msg == nil || msg.Offset >= newest {
				return stats, nil
			}
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(cfg.idleTimeout)

			stats.scanned++
			entry := log.WithFields(log.Fields{"partition": msg.Partition, "offset": msg.Offset})

			replayed, err := kafka.ReplayMessage(msg, cfg.targetTopic)
			if err != nil {
				stats.skipped++
				entry.WithError(err).Warn("skip dlq record")
			} else if cfg.execute {
				if _, _, err := producer.SendMessage(replayed); err != nil {
					return stats, fmt.Errorf("publish replayed event: %w", err)
				}
				stats.replayed++
			} else {
				entry.WithField("target_topic", replayed.Topic).Info("dlq replay candidate")
				stats.replayed++
			}

			if msg.Offset+1 >= newest {
				return stats, nil
			}
		}
	}
	return stats, nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
