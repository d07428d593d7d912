package domain

import (
	"context"
	"encoding/json"
	"time"
)

// ProductValidator описывает обращение к внешнему каталогу товаров.
type ProductValidator interface {
	// ValidateProductIDs возвращает записи каталога только для существующих товаров.
	// Неизвестные идентификаторы молча пропускаются и ошибкой не считаются.
	ValidateProductIDs(ctx context.Context, ids []int64) ([]CatalogProduct, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// DeadLetter описывает полезную нагрузку сообщения, ушедшего в DLQ после исчерпания попыток.
type DeadLetter struct {
	OutboxID      string          `json:"outbox_id"`
	AggregateType string          `json:"aggregate_type,omitempty"`
	AggregateID   string          `json:"aggregate_id,omitempty"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	PublishError  string          `json:"publish_error"`
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
