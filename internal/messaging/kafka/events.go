package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// EventType определяет тип доменного события.
type EventType string

const (
	EventTypeOrderCreated       EventType = "order.created"
	EventTypeOrderStatusChanged EventType = "order.status_changed"
)

// AggregateTypeOrder помечает события, ключом которых служит заказ.
const AggregateTypeOrder = "order"

// Topics для Kafka.
const (
	TopicOrderEvents     = "orders.events"
	TopicDeadLetterQueue = "orders.events.dlq"
)

// Kafka headers.
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderOriginalTopic = "x-original-topic"
	HeaderFailedAt      = "x-failed-at"
)

// OrderItemPayload описывает позицию заказа внутри события.
type OrderItemPayload struct {
	ProductID int64  `json:"product_id"`
	Quantity  int32  `json:"quantity"`
	Price     string `json:"price"`
}

// OrderEvent представляет событие заказа.
type OrderEvent struct {
	EventType   EventType          `json:"event_type"`
	OrderID     string             `json:"order_id"`
	Status      string             `json:"status"`
	TotalAmount string             `json:"total_amount"`
	TotalItems  int32              `json:"total_items"`
	Items       []OrderItemPayload `json:"items,omitempty"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

// NewOrderCreatedEvent строит событие order.created вместе с позициями заказа.
func NewOrderCreatedEvent(order domain.Order) OrderEvent {
	event := newOrderEvent(EventTypeOrderCreated, order, order.CreatedAt)
	event.Items = make([]OrderItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		event.Items = append(event.Items, OrderItemPayload{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price.StringFixed(2),
		})
	}
	return event
}

// NewOrderStatusChangedEvent строит событие order.status_changed.
func NewOrderStatusChangedEvent(order domain.Order) OrderEvent {
	return newOrderEvent(EventTypeOrderStatusChanged, order, order.UpdatedAt)
}

func newOrderEvent(eventType EventType, order domain.Order, at time.Time) OrderEvent {
	if at.IsZero() {
		at = time.Now()
	}
	return OrderEvent{
		EventType:   eventType,
		OrderID:     order.ID,
		Status:      string(order.Status),
		TotalAmount: order.TotalAmount.StringFixed(2),
		TotalItems:  order.TotalItems,
		OccurredAt:  at.UTC(),
	}
}

// OutboxMessage сериализует событие в сообщение transactional outbox.
func (e OrderEvent) OutboxMessage() (domain.OutboxMessage, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("marshal %s event: %w", e.EventType, err)
	}
	return domain.OutboxMessage{
		AggregateType: AggregateTypeOrder,
		AggregateID:   e.OrderID,
		EventType:     string(e.EventType),
		Payload:       payload,
	}, nil
}
