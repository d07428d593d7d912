// Package productsv1 описывает gRPC-контракт каталога товаров, которым пользуется сервис заказов.
package productsv1

import (
	"context"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/orders/api/jsoncodec"
)

const (
	ServiceName = "products.v1.ProductService"

	ProductService_ValidateProductIds_FullMethodName = "/" + ServiceName + "/ValidateProductIds"
)

// ValidateProductIdsRequest содержит идентификаторы товаров для проверки.
type ValidateProductIdsRequest struct {
	IDs []int64 `json:"ids"`
}

// Product: запись каталога.
type Product struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// ValidateProductIdsResponse содержит только существующие товары.
type ValidateProductIdsResponse struct {
	Products []Product `json:"products"`
}

// ProductServiceClient: клиент каталога товаров.
type ProductServiceClient interface {
	ValidateProductIDs(ctx context.Context, in *ValidateProductIdsRequest, opts ...grpc.CallOption) (*ValidateProductIdsResponse, error)
}

type productServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewProductServiceClient создаёт клиента поверх соединения; вызовы идут через json-кодек.
func NewProductServiceClient(cc grpc.ClientConnInterface) ProductServiceClient {
	return &productServiceClient{cc: cc}
}

func (c *productServiceClient) ValidateProductIDs(ctx context.Context, in *ValidateProductIdsRequest, opts ...grpc.CallOption) (*ValidateProductIdsResponse, error) {
	out := new(ValidateProductIdsResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(jsoncodec.Name)}, opts...)
	if err := c.cc.Invoke(ctx, ProductService_ValidateProductIds_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ProductServiceServer: серверная сторона каталога.
type ProductServiceServer interface {
	ValidateProductIDs(context.Context, *ValidateProductIdsRequest) (*ValidateProductIdsResponse, error)
}

// UnimplementedProductServiceServer отвечает codes.Unimplemented на все методы.
type UnimplementedProductServiceServer struct{}

func (UnimplementedProductServiceServer) ValidateProductIDs(context.Context, *ValidateProductIdsRequest) (*ValidateProductIdsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ValidateProductIds not implemented")
}

// RegisterProductServiceServer регистрирует реализацию на gRPC-сервере.
func RegisterProductServiceServer(s grpc.ServiceRegistrar, srv ProductServiceServer) {
	s.RegisterService(&ProductService_ServiceDesc, srv)
}

func validateProductIdsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ValidateProductIdsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ProductServiceServer).ValidateProductIDs(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ProductService_ValidateProductIds_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ProductServiceServer).ValidateProductIDs(ctx, req.(*ValidateProductIdsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ProductService_ServiceDesc описывает products.v1.ProductService.
var ProductService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ProductServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ValidateProductIds",
			Handler:    validateProductIdsHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "products/v1/products",
}
