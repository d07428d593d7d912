package ordersv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/orders/api/jsoncodec"
)

const (
	ServiceName = "orders.v1.OrderService"

	OrderService_CreateOrder_FullMethodName       = "/" + ServiceName + "/CreateOrder"
	OrderService_FindAllOrders_FullMethodName     = "/" + ServiceName + "/FindAllOrders"
	OrderService_FindOneOrder_FullMethodName      = "/" + ServiceName + "/FindOneOrder"
	OrderService_ChangeOrderStatus_FullMethodName = "/" + ServiceName + "/ChangeOrderStatus"
)

// OrderServiceClient: клиент сервиса заказов.
type OrderServiceClient interface {
	CreateOrder(ctx context.Context, in *CreateOrderRequest, opts ...grpc.CallOption) (*Order, error)
	FindAllOrders(ctx context.Context, in *FindAllOrdersRequest, opts ...grpc.CallOption) (*FindAllOrdersResponse, error)
	FindOneOrder(ctx context.Context, in *FindOneOrderRequest, opts ...grpc.CallOption) (*Order, error)
	ChangeOrderStatus(ctx context.Context, in *ChangeOrderStatusRequest, opts ...grpc.CallOption) (*Order, error)
}

type orderServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewOrderServiceClient создаёт клиента поверх соединения; вызовы идут через json-кодек.
func NewOrderServiceClient(cc grpc.ClientConnInterface) OrderServiceClient {
	return &orderServiceClient{cc: cc}
}

func (c *orderServiceClient) CreateOrder(ctx context.Context, in *CreateOrderRequest, opts ...grpc.CallOption) (*Order, error) {
	out := new(Order)
	return out, c.invoke(ctx, OrderService_CreateOrder_FullMethodName, in, out, opts)
}

func (c *orderServiceClient) FindAllOrders(ctx context.Context, in *FindAllOrdersRequest, opts ...grpc.CallOption) (*FindAllOrdersResponse, error) {
	out := new(FindAllOrdersResponse)
	return out, c.invoke(ctx, OrderService_FindAllOrders_FullMethodName, in, out, opts)
}

func (c *orderServiceClient) FindOneOrder(ctx context.Context, in *FindOneOrderRequest, opts ...grpc.CallOption) (*Order, error) {
	out := new(Order)
	return out, c.invoke(ctx, OrderService_FindOneOrder_FullMethodName, in, out, opts)
}

func (c *orderServiceClient) ChangeOrderStatus(ctx context.Context, in *ChangeOrderStatusRequest, opts ...grpc.CallOption) (*Order, error) {
	out := new(Order)
	return out, c.invoke(ctx, OrderService_ChangeOrderStatus_FullMethodName, in, out, opts)
}

func (c *orderServiceClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(jsoncodec.Name)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}

// OrderServiceServer: серверная сторона сервиса заказов.
type OrderServiceServer interface {
	CreateOrder(context.Context, *CreateOrderRequest) (*Order, error)
	FindAllOrders(context.Context, *FindAllOrdersRequest) (*FindAllOrdersResponse, error)
	FindOneOrder(context.Context, *FindOneOrderRequest) (*Order, error)
	ChangeOrderStatus(context.Context, *ChangeOrderStatusRequest) (*Order, error)
}

// UnimplementedOrderServiceServer отвечает codes.Unimplemented на все методы.
type UnimplementedOrderServiceServer struct{}

func (UnimplementedOrderServiceServer) CreateOrder(context.Context, *CreateOrderRequest) (*Order, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateOrder not implemented")
}

func (UnimplementedOrderServiceServer) FindAllOrders(context.Context, *FindAllOrdersRequest) (*FindAllOrdersResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method FindAllOrders not implemented")
}

func (UnimplementedOrderServiceServer) FindOneOrder(context.Context, *FindOneOrderRequest) (*Order, error) {
	return nil, status.Error(codes.Unimplemented, "method FindOneOrder not implemented")
}

func (UnimplementedOrderServiceServer) ChangeOrderStatus(context.Context, *ChangeOrderStatusRequest) (*Order, error) {
	return nil, status.Error(codes.Unimplemented, "method ChangeOrderStatus not implemented")
}

// RegisterOrderServiceServer регистрирует реализацию на gRPC-сервере.
func RegisterOrderServiceServer(s grpc.ServiceRegistrar, srv OrderServiceServer) {
	s.RegisterService(&OrderService_ServiceDesc, srv)
}

// unaryHandler строит grpc.MethodDesc-обработчик для метода с типами запроса Req и ответа Resp.
func unaryHandler[Req, Resp any](fullMethod string, call func(OrderServiceServer, context.Context, *Req) (Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(OrderServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(OrderServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// OrderService_ServiceDesc описывает orders.v1.OrderService.
var OrderService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateOrder",
			Handler:    unaryHandler(OrderService_CreateOrder_FullMethodName, OrderServiceServer.CreateOrder),
		},
		{
			MethodName: "FindAllOrders",
			Handler:    unaryHandler(OrderService_FindAllOrders_FullMethodName, OrderServiceServer.FindAllOrders),
		},
		{
			MethodName: "FindOneOrder",
			Handler:    unaryHandler(OrderService_FindOneOrder_FullMethodName, OrderServiceServer.FindOneOrder),
		},
		{
			MethodName: "ChangeOrderStatus",
			Handler:    unaryHandler(OrderService_ChangeOrderStatus_FullMethodName, OrderServiceServer.ChangeOrderStatus),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "orders/v1/orders",
}
