package domain

import "context"

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create атомарно сохраняет заказ вместе с позициями: либо всё, либо ничего.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ с позициями или ErrOrderNotFound, если его нет.
	Get(ctx context.Context, id string) (Order, error)
	// UpdateStatus меняет только статус и возвращает обновлённый заказ без позиций.
	// Возвращает ErrOrderNotFound, если заказа нет.
	UpdateStatus(ctx context.Context, id string, status OrderStatus) (Order, error)
	// Count возвращает количество заказов, подходящих под фильтр статуса.
	Count(ctx context.Context, status OrderStatus) (int, error)
	// List возвращает страницу заказов без позиций.
	List(ctx context.Context, filter OrderFilter) ([]Order, error)
}

// EventFactory строит сообщение outbox по уже сохранённому состоянию заказа.
type EventFactory func(order Order) (OutboxMessage, error)

// TransactionalOrderRepository сохраняет изменение заказа и сообщение outbox в одной транзакции.
// Ошибка построения или записи сообщения откатывает изменение заказа.
type TransactionalOrderRepository interface {
	CreateWithEvent(ctx context.Context, order Order, event EventFactory) error
	UpdateStatusWithEvent(ctx context.Context, id string, status OrderStatus, event EventFactory) (Order, error)
}
