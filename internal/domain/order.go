package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// PriceScale: число знаков после запятой у цен и сумм, как в колонках NUMERIC(12,2).
const PriceScale = 2

// MaxTotalItems ограничивает суммарное количество единиц в заказе размером колонки total_items.
const MaxTotalItems = math.MaxInt32

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending: начальный статус, выставляется при создании заказа.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaid: оплата подтверждена.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusDelivered: заказ доставлен клиенту.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled: заказ отменён.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses перечисляет все поддерживаемые статусы.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// Valid проверяет, что статус относится к перечислению.
// Переходы между статусами не ограничиваются: любой статус можно выставить из любого.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	ID string
	// ProductID: идентификатор товара во внешнем каталоге.
	ProductID int64
	Quantity  int32
	// Price: цена за единицу, зафиксированная в момент создания заказа.
	Price decimal.Decimal
}

// Order агрегирует состояние заказа и его позиции.
type Order struct {
	ID          string
	Status      OrderStatus
	TotalAmount decimal.Decimal
	TotalItems  int32
	Items       []OrderItem
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.TotalAmount.IsNegative() {
		errs = append(errs, ErrAmountNegative)
	}

	// Сверяем итоги с позициями: сумма qty * price и сумма qty.
	calcAmount := decimal.Zero
	var calcItems int64
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.Price.IsNegative() {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calcAmount = calcAmount.Add(item.Price.Mul(decimal.NewFromInt32(item.Quantity)))
		calcItems += int64(item.Quantity)
	}
	if !calcAmount.Equal(o.TotalAmount) {
		errs = append(errs, ErrAmountMismatch)
	}
	if calcItems > MaxTotalItems {
		errs = append(errs, ErrTotalItemsOverflow)
	}
	if calcItems != int64(o.TotalItems) {
		errs = append(errs, ErrTotalItemsMismatch)
	}

	return errs
}

// OrderFilter задаёт выборку для постраничного списка заказов.
type OrderFilter struct {
	// Status: опциональный фильтр; пустое значение означает "все статусы".
	Status OrderStatus
	Offset int
	Limit  int
}
