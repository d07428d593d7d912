package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orders/internal/metrics"
)

// Названия операций для логов и метрик.
const (
	OpCreate       = "create"
	OpFindOne      = "find_one"
	OpFindAll      = "find_all"
	OpChangeStatus = "change_status"
)

// CreateItem: позиция запроса на создание заказа.
type CreateItem struct {
	ProductID int64
	Quantity  int32
}

// ItemView: позиция заказа с названием товара из каталога.
type ItemView struct {
	ProductID   int64
	ProductName string
	Quantity    int32
	Price       decimal.Decimal
}

// OrderView: заказ с обогащёнными позициями.
type OrderView struct {
	domain.Order
	OrderItems []ItemView
}

// ListQuery задаёт страницу списка заказов.
type ListQuery struct {
	Page   int
	Limit  int
	Status domain.OrderStatus
}

// ListResult: страница заказов без позиций и метаданные пагинации.
type ListResult struct {
	Data []domain.Order
	Meta domain.PaginationMeta
}

// Option настраивает Service.
type Option func(*Service)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics задаёт метрики; без них сервис работает без учёта.
func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithOutbox включает запись доменных событий в transactional outbox.
// Если хранилище заказов реализует domain.TransactionalOrderRepository, событие пишется
// им в той же транзакции, что и заказ; иначе сообщение ставится в outbox после записи заказа.
func WithOutbox(outbox domain.OutboxRepository) Option {
	return func(s *Service) {
		s.outbox = outbox
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service реализует сценарии работы с заказами: создание, получение, список и смену статуса.
type Service struct {
	orders   domain.OrderRepository
	products domain.ProductValidator
	outbox   domain.OutboxRepository
	listURL  string
	logger   *log.Entry
	metrics  *metrics.OrderMetrics
	now      func() time.Time
}

// NewService создаёт сервис заказов. listURL задаёт внешний адрес списка заказов для ссылок пагинации.
func NewService(orders domain.OrderRepository, products domain.ProductValidator, listURL string, opts ...Option) *Service {
	s := &Service{
		orders:   orders,
		products: products,
		listURL:  listURL,
		logger:   log.WithField("component", "orders-service"),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder оценивает позиции по каталогу и атомарно сохраняет заказ.
// Неизвестный каталогу товар получает цену 0 и пустое название.
func (s *Service) CreateOrder(ctx context.Context, items []CreateItem) (OrderView, error) {
	defer s.observe(OpCreate, s.now())
	logger := s.logger.WithFields(log.Fields{"operation": OpCreate, "items": items})

	fail := func(cause error) (OrderView, error) {
		if domain.IsKind(cause, domain.KindValidationOrigin) {
			logger.WithError(cause).Error("products service rejected order")
			s.recordFailure(OpCreate, cause)
			return OrderView{}, cause
		}
		err := domain.NewOperationFailedError("Failed to create order: "+cause.Error(), map[string]string{"operation": OpCreate}, cause)
		logger.WithError(cause).Error("failed to create order")
		s.recordFailure(OpCreate, err)
		return OrderView{}, err
	}

	if len(items) == 0 {
		return fail(domain.ErrItemsRequired)
	}
	var totalItems int64
	for _, item := range items {
		totalItems += int64(item.Quantity)
	}
	if totalItems > domain.MaxTotalItems {
		return fail(fmt.Errorf("%w: %d", domain.ErrTotalItemsOverflow, totalItems))
	}

	catalog, err := s.resolveCatalog(ctx, productIDs(items))
	if err != nil {
		return fail(err)
	}

	now := s.now()
	order := domain.Order{
		ID:          uuid.NewString(),
		Status:      domain.OrderStatusPending,
		TotalAmount: decimal.Zero,
		Items:       make([]domain.OrderItem, 0, len(items)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	unknown := 0
	for _, item := range items {
		if _, ok := catalog[item.ProductID]; !ok {
			unknown++
		}
		// Цена округляется до точности хранения, чтобы ответ совпадал с сохранённой строкой.
		price := catalog.PriceOf(item.ProductID).Round(domain.PriceScale)
		order.Items = append(order.Items, domain.OrderItem{
			ID:        uuid.NewString(),
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     price,
		})
		order.TotalAmount = order.TotalAmount.Add(price.Mul(decimal.NewFromInt32(item.Quantity)))
		order.TotalItems += item.Quantity
	}
	if unknown > 0 {
		logger.WithField("unknown_products", unknown).Warn("order contains products unknown to catalog, priced at zero")
		s.metrics.RecordUnknownProducts(unknown)
	}

	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return fail(errors.Join(errs...))
	}
	if err := s.persistCreate(ctx, order); err != nil {
		return fail(err)
	}

	s.metrics.RecordOrderCreated()
	logger.WithFields(log.Fields{
		"order_id":     order.ID,
		"total_amount": order.TotalAmount.StringFixed(2),
		"total_items":  order.TotalItems,
	}).Info("order created")

	return enrich(order, catalog), nil
}

// FindOne возвращает заказ с позициями; названия товаров берутся из каталога,
// цены остаются сохранёнными при создании.
func (s *Service) FindOne(ctx context.Context, id string) (OrderView, error) {
	defer s.observe(OpFindOne, s.now())
	logger := s.logger.WithFields(log.Fields{"operation": OpFindOne, "order_id": id})

	order, err := s.orders.Get(ctx, id)
	if err != nil {
		var failure *domain.Error
		if errors.Is(err, domain.ErrOrderNotFound) {
			failure = domain.NewNotFoundError(id, err)
			logger.WithError(err).Warn("order not found")
		} else {
			failure = domain.NewOperationFailedError(
				fmt.Sprintf("Failed to find order with id %s", id),
				map[string]string{"operation": OpFindOne, "order_id": id},
				err,
			)
			logger.WithError(err).Error("failed to load order")
		}
		s.recordFailure(OpFindOne, failure)
		return OrderView{}, failure
	}

	ids := make([]int64, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.ProductID)
	}
	catalog, err := s.resolveCatalog(ctx, distinct(ids))
	if err != nil {
		if !domain.IsKind(err, domain.KindValidationOrigin) {
			err = domain.NewOperationFailedError(
				fmt.Sprintf("Failed to find order with id %s", id),
				map[string]string{"operation": OpFindOne, "order_id": id},
				err,
			)
		}
		logger.WithError(err).Error("failed to resolve product names")
		s.recordFailure(OpFindOne, err)
		return OrderView{}, err
	}

	return enrich(order, catalog), nil
}

// FindAll возвращает страницу заказов.
// Счётчик для пагинации намеренно учитывает тот же фильтр статуса, а не все заказы.
func (s *Service) FindAll(ctx context.Context, query ListQuery) (ListResult, error) {
	defer s.observe(OpFindAll, s.now())

	if query.Page <= 0 {
		query.Page = domain.DefaultPage
	}
	if query.Limit <= 0 {
		query.Limit = domain.DefaultLimit
	}
	logger := s.logger.WithFields(log.Fields{
		"operation": OpFindAll,
		"page":      query.Page,
		"limit":     query.Limit,
		"status":    query.Status,
	})

	fail := func(cause error) (ListResult, error) {
		err := domain.NewOperationFailedError("Failed to list orders", map[string]string{"operation": OpFindAll}, cause)
		logger.WithError(cause).Error("failed to list orders")
		s.recordFailure(OpFindAll, err)
		return ListResult{}, err
	}

	total, err := s.orders.Count(ctx, query.Status)
	if err != nil {
		return fail(err)
	}

	data, err := s.orders.List(ctx, domain.OrderFilter{
		Status: query.Status,
		Offset: (query.Page - 1) * query.Limit,
		Limit:  query.Limit,
	})
	if err != nil {
		return fail(err)
	}

	return ListResult{
		Data: data,
		Meta: domain.BuildPaginationMeta(query.Limit, query.Page, total, s.listURL),
	}, nil
}

// ChangeStatus меняет только статус заказа. Допустим переход из любого статуса в любой.
func (s *Service) ChangeStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	defer s.observe(OpChangeStatus, s.now())
	logger := s.logger.WithFields(log.Fields{"operation": OpChangeStatus, "order_id": id, "status": status})

	var (
		order domain.Order
		err   error
	)
	if !status.Valid() {
		err = fmt.Errorf("unknown order status %q", status)
	} else {
		order, err = s.persistStatus(ctx, id, status)
	}
	if err != nil {
		failure := domain.NewOperationFailedError(
			fmt.Sprintf("Failed to change status for order with id %s", id),
			map[string]string{"operation": OpChangeStatus, "order_id": id, "status": string(status)},
			err,
		)
		logger.WithError(err).Error("failed to change order status")
		s.recordFailure(OpChangeStatus, failure)
		return domain.Order{}, failure
	}

	s.metrics.RecordStatusChange(string(status))
	logger.Info("order status changed")

	return order, nil
}

func (s *Service) resolveCatalog(ctx context.Context, ids []int64) (domain.Catalog, error) {
	if len(ids) == 0 {
		return domain.Catalog{}, nil
	}
	started := time.Now()
	found, err := s.products.ValidateProductIDs(ctx, ids)
	s.metrics.ObserveCatalogLatency(time.Since(started))
	if err != nil {
		return nil, err
	}
	return domain.NewCatalog(found), nil
}

// transactional возвращает хранилище, умеющее писать заказ и outbox в одной транзакции.
func (s *Service) transactional() (domain.TransactionalOrderRepository, bool) {
	if s.outbox == nil {
		return nil, false
	}
	repo, ok := s.orders.(domain.TransactionalOrderRepository)
	return repo, ok
}

func (s *Service) persistCreate(ctx context.Context, order domain.Order) error {
	if repo, ok := s.transactional(); ok {
		return repo.CreateWithEvent(ctx, order, orderCreatedMessage)
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return err
	}
	s.enqueue(kafka.NewOrderCreatedEvent(order))
	return nil
}

func (s *Service) persistStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	if repo, ok := s.transactional(); ok {
		return repo.UpdateStatusWithEvent(ctx, id, status, orderStatusChangedMessage)
	}
	order, err := s.orders.UpdateStatus(ctx, id, status)
	if err != nil {
		return domain.Order{}, err
	}
	s.enqueue(kafka.NewOrderStatusChangedEvent(order))
	return order, nil
}

func orderCreatedMessage(order domain.Order) (domain.OutboxMessage, error) {
	return kafka.NewOrderCreatedEvent(order).OutboxMessage()
}

func orderStatusChangedMessage(order domain.Order) (domain.OutboxMessage, error) {
	return kafka.NewOrderStatusChangedEvent(order).OutboxMessage()
}

// enqueue пишет событие в outbox после записи заказа, когда хранилище не поддерживает общую транзакцию.
// Ошибка записи не отменяет уже выполненную операцию.
func (s *Service) enqueue(event kafka.OrderEvent) {
	if s.outbox == nil {
		return
	}
	entry := s.logger.WithFields(log.Fields{"order_id": event.OrderID, "event_type": event.EventType})

	msg, err := event.OutboxMessage()
	if err == nil {
		_, err = s.outbox.Enqueue(msg)
	}
	if err != nil {
		entry.WithError(err).Error("failed to enqueue order event")
		s.metrics.RecordOutboxEnqueueFailed()
	}
}

func (s *Service) observe(operation string, started time.Time) {
	s.metrics.ObserveOperation(operation, s.now().Sub(started))
}

func (s *Service) recordFailure(operation string, err error) {
	origin := string(domain.OriginOrders)
	if derr, ok := domain.AsError(err); ok {
		origin = string(derr.Origin)
	}
	s.metrics.RecordFailure(operation, origin)
}

func enrich(order domain.Order, catalog domain.Catalog) OrderView {
	view := OrderView{Order: order, OrderItems: make([]ItemView, 0, len(order.Items))}
	for _, item := range order.Items {
		view.OrderItems = append(view.OrderItems, ItemView{
			ProductID:   item.ProductID,
			ProductName: catalog.NameOf(item.ProductID),
			Quantity:    item.Quantity,
			Price:       item.Price,
		})
	}
	return view
}

func productIDs(items []CreateItem) []int64 {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return distinct(ids)
}

// distinct убирает повторы, сохраняя порядок первого появления.
func distinct(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	result := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
