// Package ordersv1 описывает gRPC-контракт сервиса заказов orders.v1.OrderService.
package ordersv1

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItemInput: позиция в запросе на создание заказа.
type OrderItemInput struct {
	ProductID int64 `json:"productId"`
	Quantity  int32 `json:"quantity"`
}

type CreateOrderRequest struct {
	Items []OrderItemInput `json:"items"`
}

type FindAllOrdersRequest struct {
	Page   int32  `json:"page,omitempty"`
	Limit  int32  `json:"limit,omitempty"`
	Status string `json:"status,omitempty"`
}

type FindOneOrderRequest struct {
	ID string `json:"id"`
}

type ChangeOrderStatusRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// OrderItem: позиция заказа с названием товара из каталога.
type OrderItem struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int32           `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// Order: заказ; OrderItems заполняются только при создании и получении одного заказа.
type Order struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	TotalItems  int32           `json:"totalItems"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	OrderItems  []OrderItem     `json:"orderItems,omitempty"`
}

// PaginationMeta: навигация по страницам списка.
type PaginationMeta struct {
	TotalItems   int     `json:"totalItems"`
	CurrentPage  int     `json:"currentPage"`
	TotalPages   int     `json:"totalPages"`
	NextPageURL  *string `json:"nextPageUrl"`
	PrevPageURL  *string `json:"prevPageUrl"`
	FirstPageURL *string `json:"firstPageUrl"`
	LastPageURL  *string `json:"lastPageUrl"`
}

type FindAllOrdersResponse struct {
	Data []Order        `json:"data"`
	Meta PaginationMeta `json:"meta"`
}
