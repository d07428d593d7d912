package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствия хотя бы одного товара в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отрицательной суммы заказа.
	ErrAmountNegative = errors.New("total_amount must be non-negative")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item quantity must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrAmountMismatch = errors.New("order total_amount does not match items sum")
	// Ошибка несоответствия количества единиц в заказе и в позициях.
	ErrTotalItemsMismatch = errors.New("order total_items does not match items quantity sum")
	// Ошибка переполнения суммарного количества единиц в заказе.
	ErrTotalItemsOverflow = errors.New("order total_items exceeds maximum")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderAlreadyExists возвращается при повторной вставке заказа с тем же ID.
	ErrOrderAlreadyExists = errors.New("order already exists")
	// ErrOutboxPublish: ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// Origin помечает сервис, в котором возникла ошибка.
type Origin string

const (
	// OriginOrders: ошибка этого сервиса.
	OriginOrders Origin = "ORDERS"
	// OriginProducts: ошибка сервиса каталога товаров.
	OriginProducts Origin = "PRODUCTS"
)

// ErrorKind классифицирует ошибки для вызывающей стороны.
type ErrorKind string

const (
	// KindValidationOrigin: удалённый каталог сообщил об ошибке; origin сохраняется.
	KindValidationOrigin ErrorKind = "VALIDATION_ORIGIN"
	// KindNotFound: запрошенный заказ не существует.
	KindNotFound ErrorKind = "NOT_FOUND"
	// KindOperationFailed: хранилище недоступно или иная непредвиденная ошибка.
	KindOperationFailed ErrorKind = "OPERATION_FAILED"
)

// Error: ошибка с тегом происхождения для разбора проблем между сервисами.
type Error struct {
	Kind    ErrorKind
	Origin  Origin
	Message string
	// Context хранит диагностические поля (order_id, operation и т.п.).
	Context map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s [%s/%s]: %v", e.Message, e.Origin, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s [%s/%s]", e.Message, e.Origin, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewNotFoundError строит ошибку отсутствующего заказа.
func NewNotFoundError(orderID string, cause error) *Error {
	return &Error{
		Kind:    KindNotFound,
		Origin:  OriginOrders,
		Message: fmt.Sprintf("Order with id %s not found", orderID),
		Context: map[string]string{"order_id": orderID},
		Err:     cause,
	}
}

// NewOperationFailedError строит общую ошибку этого сервиса.
func NewOperationFailedError(message string, context map[string]string, cause error) *Error {
	return &Error{
		Kind:    KindOperationFailed,
		Origin:  OriginOrders,
		Message: message,
		Context: context,
		Err:     cause,
	}
}

// NewValidationOriginError строит ошибку, пришедшую из удалённого сервиса с его origin.
func NewValidationOriginError(origin Origin, message string, context map[string]string) *Error {
	return &Error{
		Kind:    KindValidationOrigin,
		Origin:  origin,
		Message: message,
		Context: context,
	}
}

// AsError извлекает *Error из цепочки ошибок.
func AsError(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// IsOrigin сообщает, что ошибка помечена указанным origin.
func IsOrigin(err error, origin Origin) bool {
	target, ok := AsError(err)
	return ok && target.Origin == origin
}

// IsKind сообщает, что ошибка относится к указанному виду.
func IsKind(err error, kind ErrorKind) bool {
	target, ok := AsError(err)
	return ok && target.Kind == kind
}
