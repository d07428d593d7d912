package products

import (
	"context"
	"fmt"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"

	productsv1 "github.com/vladislavdragonenkov/orders/api/products/v1"
	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/transport/grpcerr"
)

const defaultCallTimeout = 3 * time.Second

// GRPCClient обращается к сервису каталога товаров по gRPC.
type GRPCClient struct {
	conn    *grpc.ClientConn
	client  productsv1.ProductServiceClient
	timeout time.Duration
	logger  *log.Entry
}

// Dial создаёт клиента каталога. Соединение устанавливается лениво при первом вызове.
func Dial(addr string, timeout time.Duration, logger *log.Entry, opts ...grpc.DialOption) (*GRPCClient, error) {
	if addr == "" {
		return nil, fmt.Errorf("products service address is empty")
	}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(grpc_prometheus.UnaryClientInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("dial products service %s: %w", addr, err)
	}

	return NewGRPCClient(conn, timeout, logger), nil
}

// NewGRPCClient оборачивает готовое соединение.
func NewGRPCClient(conn *grpc.ClientConn, timeout time.Duration, logger *log.Entry) *GRPCClient {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	if logger == nil {
		logger = log.WithField("component", "products-client")
	}
	return &GRPCClient{
		conn:    conn,
		client:  productsv1.NewProductServiceClient(conn),
		timeout: timeout,
		logger:  logger,
	}
}

// ValidateProductIDs запрашивает у каталога существующие товары одним вызовом.
// Ошибка с тегом origin возвращается как domain.Error вида ValidationOrigin.
func (c *GRPCClient) ValidateProductIDs(ctx context.Context, ids []int64) ([]domain.CatalogProduct, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.ValidateProductIDs(callCtx, &productsv1.ValidateProductIdsRequest{IDs: ids})
	if err != nil {
		converted := grpcerr.FromStatus(err)
		c.logger.WithError(err).WithFields(log.Fields{
			"product_ids": ids,
			"origin":      originOf(converted),
		}).Warn("products validation call failed")
		if converted == err {
			return nil, fmt.Errorf("validate product ids: %w", err)
		}
		return nil, converted
	}

	products := make([]domain.CatalogProduct, 0, len(resp.Products))
	for _, p := range resp.Products {
		products = append(products, domain.CatalogProduct{ID: p.ID, Name: p.Name, Price: p.Price})
	}
	return products, nil
}

// State возвращает состояние соединения для health-проверок.
func (c *GRPCClient) State() connectivity.State {
	return c.conn.GetState()
}

// Check реализует проверку готовности: соединение не должно быть в состоянии отказа.
func (c *GRPCClient) Check(context.Context) error {
	if state := c.State(); state == connectivity.TransientFailure || state == connectivity.Shutdown {
		return fmt.Errorf("products service connection is %s", state)
	}
	return nil
}

// Close закрывает соединение.
func (c *GRPCClient) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func originOf(err error) string {
	if derr, ok := domain.AsError(err); ok {
		return string(derr.Origin)
	}
	return ""
}

var _ domain.ProductValidator = (*GRPCClient)(nil)
