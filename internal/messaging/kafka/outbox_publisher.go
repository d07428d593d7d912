package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// OutboxTopicPublisher публикует outbox-сообщения в заданный Kafka topic.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
	// source задан только у DLQ-паблишера и указывает исходный topic.
	source string
}

// Envelope оборачивает полезную нагрузку служебными полями outbox.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
func NewOutboxPublisher(producer *Producer, topic string) *OutboxTopicPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OutboxTopicPublisher{producer: producer, topic: topic}
}

// NewDLQPublisher создаёт паблишер для сообщений, исчерпавших попытки доставки в sourceTopic.
func NewDLQPublisher(producer *Producer, topic, sourceTopic string) *OutboxTopicPublisher {
	if topic == "" {
		topic = TopicDeadLetterQueue
	}
	if sourceTopic == "" {
		sourceTopic = TopicOrderEvents
	}
	return &OutboxTopicPublisher{producer: producer, topic: topic, source: sourceTopic}
}

// Topic возвращает topic назначения.
func (p *OutboxTopicPublisher) Topic() string {
	return p.topic
}

func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	now := time.Now().UTC()
	headers := map[string]string{
		HeaderEventType:     event.EventType,
		HeaderAggregateType: event.AggregateType,
	}
	if p.source != "" {
		headers[HeaderOriginalTopic] = p.source
		headers[HeaderFailedAt] = now.Format(time.RFC3339Nano)
	}

	payload := json.RawMessage(event.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}

	return p.producer.PublishEvent(p.topic, key, Envelope{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       payload,
		PublishedAt:   now,
	}, headers)
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
