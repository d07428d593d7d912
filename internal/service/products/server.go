package products

import (
	"context"

	productsv1 "github.com/vladislavdragonenkov/orders/api/products/v1"
	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/transport/grpcerr"
)

// CatalogServer отдаёт любой ProductValidator как products.v1.ProductService.
// Ошибки без тега помечаются origin PRODUCTS.
type CatalogServer struct {
	productsv1.UnimplementedProductServiceServer
	catalog domain.ProductValidator
}

// NewCatalogServer создаёт gRPC-обработчик поверх каталога.
func NewCatalogServer(catalog domain.ProductValidator) *CatalogServer {
	return &CatalogServer{catalog: catalog}
}

func (s *CatalogServer) ValidateProductIDs(ctx context.Context, req *productsv1.ValidateProductIdsRequest) (*productsv1.ValidateProductIdsResponse, error) {
	found, err := s.catalog.ValidateProductIDs(ctx, req.IDs)
	if err != nil {
		if _, tagged := domain.AsError(err); !tagged {
			err = &domain.Error{
				Kind:    domain.KindOperationFailed,
				Origin:  domain.OriginProducts,
				Message: err.Error(),
				Err:     err,
			}
		}
		return nil, grpcerr.ToStatus(err)
	}

	resp := &productsv1.ValidateProductIdsResponse{Products: make([]productsv1.Product, 0, len(found))}
	for _, p := range found {
		resp.Products = append(resp.Products, productsv1.Product{ID: p.ID, Name: p.Name, Price: p.Price})
	}
	return resp, nil
}

var _ productsv1.ProductServiceServer = (*CatalogServer)(nil)
