package products

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	productsv1 "github.com/vladislavdragonenkov/orders/api/products/v1"
	"github.com/vladislavdragonenkov/orders/internal/domain"
)

func loggerForTests() *log.Entry {
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return log.NewEntry(logger)
}

func startCatalogServer(t *testing.T, catalog domain.ProductValidator) *GRPCClient {
	t.Helper()

	listener := bufconn.Listen(1024 * 1024)
	server := grpc.NewServer()
	productsv1.RegisterProductServiceServer(server, NewCatalogServer(catalog))
	go func() {
		_ = server.Serve(listener)
	}()
	t.Cleanup(server.Stop)

	client, err := Dial("passthrough:///bufnet", time.Second, loggerForTests(),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestGRPCClient_ValidateProductIDs(t *testing.T) {
	catalog := NewStaticCatalog(
		domain.CatalogProduct{ID: 1, Name: "A", Price: decimal.RequireFromString("10.25")},
		domain.CatalogProduct{ID: 2, Name: "B", Price: decimal.NewFromInt(5)},
	)
	client := startCatalogServer(t, catalog)

	found, err := client.ValidateProductIDs(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, found, 2)
	require.Equal(t, "A", found[0].Name)
	require.True(t, found[0].Price.Equal(decimal.RequireFromString("10.25")))
	require.Equal(t, []int64{1, 2, 3}, catalog.LastIDs())
	require.NoError(t, client.Check(context.Background()))
}

func TestGRPCClient_PreservesRemoteOrigin(t *testing.T) {
	catalog := NewStaticCatalog()
	catalog.FailWith(domain.NewValidationOriginError(domain.OriginProducts, "product ids are invalid", map[string]string{"ids": "1,2"}))
	client := startCatalogServer(t, catalog)

	_, err := client.ValidateProductIDs(context.Background(), []int64{1, 2})
	require.Error(t, err)
	require.True(t, domain.IsOrigin(err, domain.OriginProducts))
	require.True(t, domain.IsKind(err, domain.KindValidationOrigin))

	derr, ok := domain.AsError(err)
	require.True(t, ok)
	require.Equal(t, "product ids are invalid", derr.Message)
	require.Equal(t, "1,2", derr.Context["ids"])
}

func TestGRPCClient_CatalogInternalFailureKeepsProductsOrigin(t *testing.T) {
	catalog := NewStaticCatalog()
	catalog.FailWith(errors.New("database exploded"))
	client := startCatalogServer(t, catalog)

	_, err := client.ValidateProductIDs(context.Background(), []int64{1})
	require.Error(t, err)
	require.True(t, domain.IsOrigin(err, domain.OriginProducts))
	require.Equal(t, codes.Internal, status.Code(errors.Unwrap(err)))
}

func TestGRPCClient_TransportFailure(t *testing.T) {
	listener := bufconn.Listen(1024)
	require.NoError(t, listener.Close())

	client, err := Dial("passthrough:///bufnet", 200*time.Millisecond, loggerForTests(),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.ValidateProductIDs(context.Background(), []int64{1})
	require.Error(t, err)
	_, tagged := domain.AsError(err)
	require.False(t, tagged)
}

func TestDial_EmptyAddress(t *testing.T) {
	_, err := Dial("", time.Second, nil)
	require.Error(t, err)
}
