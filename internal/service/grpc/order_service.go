package grpcsvc

import (
	"context"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	ordersv1 "github.com/vladislavdragonenkov/orders/api/orders/v1"
	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/service/orders"
	"github.com/vladislavdragonenkov/orders/internal/transport/grpcerr"
)

// OrderService реализует gRPC API поверх сервиса заказов.
type OrderService struct {
	ordersv1.UnimplementedOrderServiceServer

	orders *orders.Service
	logger *log.Entry
}

// NewOrderService конструирует gRPC-адаптер.
func NewOrderService(svc *orders.Service, logger *log.Entry) *OrderService {
	if logger == nil {
		logger = log.New().WithField("component", "order-service")
	}
	return &OrderService{
		orders: svc,
		logger: logger,
	}
}

// CreateOrder создаёт заказ по списку позиций.
func (s *OrderService) CreateOrder(ctx context.Context, req *ordersv1.CreateOrderRequest) (*ordersv1.Order, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if len(req.Items) == 0 {
		return nil, status.Error(codes.InvalidArgument, "order must contain at least one item")
	}

	items := make([]orders.CreateItem, 0, len(req.Items))
	for idx, item := range req.Items {
		if item.ProductID < 1 {
			return nil, status.Errorf(codes.InvalidArgument, "items[%d].productId must be >= 1", idx)
		}
		if item.Quantity < 1 {
			return nil, status.Errorf(codes.InvalidArgument, "items[%d].quantity must be >= 1", idx)
		}
		items = append(items, orders.CreateItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	view, err := s.orders.CreateOrder(ctx, items)
	if err != nil {
		return nil, grpcerr.ToStatus(err)
	}
	return ToOrderView(view), nil
}

// FindAllOrders возвращает страницу заказов.
func (s *OrderService) FindAllOrders(ctx context.Context, req *ordersv1.FindAllOrdersRequest) (*ordersv1.FindAllOrdersResponse, error) {
	if req == nil {
		req = &ordersv1.FindAllOrdersRequest{}
	}
	if req.Page < 0 {
		return nil, status.Error(codes.InvalidArgument, "page must be >= 1")
	}
	if req.Limit < 0 {
		return nil, status.Error(codes.InvalidArgument, "limit must be >= 1")
	}
	orderStatus := domain.OrderStatus(req.Status)
	if orderStatus != "" && !orderStatus.Valid() {
		return nil, status.Errorf(codes.InvalidArgument, "unknown status %q", req.Status)
	}

	result, err := s.orders.FindAll(ctx, orders.ListQuery{
		Page:   int(req.Page),
		Limit:  int(req.Limit),
		Status: orderStatus,
	})
	if err != nil {
		return nil, grpcerr.ToStatus(err)
	}
	return ToListResponse(result), nil
}

// FindOneOrder возвращает заказ с позициями.
func (s *OrderService) FindOneOrder(ctx context.Context, req *ordersv1.FindOneOrderRequest) (*ordersv1.Order, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if err := ValidateOrderID(req.ID); err != nil {
		return nil, err
	}

	view, err := s.orders.FindOne(ctx, req.ID)
	if err != nil {
		return nil, grpcerr.ToStatus(err)
	}
	return ToOrderView(view), nil
}

// ChangeOrderStatus меняет статус заказа.
func (s *OrderService) ChangeOrderStatus(ctx context.Context, req *ordersv1.ChangeOrderStatusRequest) (*ordersv1.Order, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if err := ValidateOrderID(req.ID); err != nil {
		return nil, err
	}
	orderStatus := domain.OrderStatus(req.Status)
	if !orderStatus.Valid() {
		return nil, status.Errorf(codes.InvalidArgument, "unknown status %q", req.Status)
	}

	order, err := s.orders.ChangeStatus(ctx, req.ID, orderStatus)
	if err != nil {
		return nil, grpcerr.ToStatus(err)
	}
	return ToOrder(order), nil
}

// ValidateOrderID проверяет, что идентификатор заказа является UUID.
func ValidateOrderID(id string) error {
	if id == "" {
		return status.Error(codes.InvalidArgument, "id is required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return status.Errorf(codes.InvalidArgument, "id must be a valid UUID: %q", id)
	}
	return nil
}

// ToOrder переводит заказ без позиций в сообщение API.
func ToOrder(order domain.Order) *ordersv1.Order {
	return &ordersv1.Order{
		ID:          order.ID,
		Status:      string(order.Status),
		TotalAmount: order.TotalAmount,
		TotalItems:  order.TotalItems,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
}

// ToOrderView переводит заказ с обогащёнными позициями в сообщение API.
func ToOrderView(view orders.OrderView) *ordersv1.Order {
	out := ToOrder(view.Order)
	out.OrderItems = make([]ordersv1.OrderItem, 0, len(view.OrderItems))
	for _, item := range view.OrderItems {
		out.OrderItems = append(out.OrderItems, ordersv1.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price,
		})
	}
	return out
}

// ToListResponse переводит страницу заказов в ответ API.
func ToListResponse(result orders.ListResult) *ordersv1.FindAllOrdersResponse {
	data := make([]ordersv1.Order, 0, len(result.Data))
	for _, order := range result.Data {
		data = append(data, *ToOrder(order))
	}
	return &ordersv1.FindAllOrdersResponse{
		Data: data,
		Meta: ordersv1.PaginationMeta{
			TotalItems:   result.Meta.TotalItems,
			CurrentPage:  result.Meta.CurrentPage,
			TotalPages:   result.Meta.TotalPages,
			NextPageURL:  result.Meta.NextPageURL,
			PrevPageURL:  result.Meta.PrevPageURL,
			FirstPageURL: result.Meta.FirstPageURL,
			LastPageURL:  result.Meta.LastPageURL,
		},
	}
}

var _ ordersv1.OrderServiceServer = (*OrderService)(nil)
