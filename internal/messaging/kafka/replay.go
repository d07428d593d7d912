package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// ErrNotDeadLetter означает, что сообщение не похоже на запись DLQ outbox.
var ErrNotDeadLetter = errors.New("message is not an outbox dead letter")

// DecodeDeadLetter разбирает значение сообщения из DLQ.
func DecodeDeadLetter(value []byte) (Envelope, domain.DeadLetter, error) {
	var envelope Envelope
	if err := json.Unmarshal(value, &envelope); err != nil {
		return Envelope{}, domain.DeadLetter{}, ErrNotDeadLetter
	}
	if len(envelope.Payload) == 0 || string(envelope.Payload) == "null" {
		return Envelope{}, domain.DeadLetter{}, ErrNotDeadLetter
	}

	var letter domain.DeadLetter
	if err := json.Unmarshal(envelope.Payload, &letter); err != nil {
		return Envelope{}, domain.DeadLetter{}, fmt.Errorf("decode dead letter payload: %w", err)
	}
	if len(letter.Payload) == 0 {
		return Envelope{}, domain.DeadLetter{}, fmt.Errorf("dead letter %s has no original event payload", envelope.ID)
	}
	return envelope, letter, nil
}

// ReplayMessage восстанавливает исходное событие заказа из записи DLQ.
// Topic берётся из заголовка x-original-topic, иначе используется fallbackTopic.
func ReplayMessage(msg *sarama.ConsumerMessage, fallbackTopic string) (*sarama.ProducerMessage, error) {
	if msg == nil {
		return nil, ErrNotDeadLetter
	}
	envelope, letter, err := DecodeDeadLetter(msg.Value)
	if err != nil {
		return nil, err
	}

	topic := fallbackTopic
	if original := consumerHeader(msg, HeaderOriginalTopic); original != "" {
		topic = original
	}
	if topic == "" {
		topic = TopicOrderEvents
	}

	replayed := Envelope{
		ID:            firstNonEmpty(letter.OutboxID, envelope.ID),
		AggregateType: firstNonEmpty(letter.AggregateType, envelope.AggregateType),
		AggregateID:   firstNonEmpty(letter.AggregateID, envelope.AggregateID),
		EventType:     firstNonEmpty(letter.EventType, envelope.EventType),
		Payload:       letter.Payload,
		PublishedAt:   time.Now().UTC(),
	}
	value, err := json.Marshal(replayed)
	if err != nil {
		return nil, fmt.Errorf("encode replayed envelope: %w", err)
	}

	key := firstNonEmpty(replayed.AggregateID, replayed.ID)
	return &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte(HeaderEventType), Value: []byte(replayed.EventType)},
			{Key: []byte(HeaderAggregateType), Value: []byte(replayed.AggregateType)},
		},
		Timestamp: replayed.PublishedAt,
	}, nil
}

func consumerHeader(msg *sarama.ConsumerMessage, key string) string {
	for _, h := range msg.Headers {
		if h != nil && string(h.Key) == key {
			return strings.TrimSpace(string(h.Value))
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
