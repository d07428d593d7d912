package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	ordersv1 "github.com/vladislavdragonenkov/orders/api/orders/v1"
	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/health"
	"github.com/vladislavdragonenkov/orders/internal/metrics"
	grpcsvc "github.com/vladislavdragonenkov/orders/internal/service/grpc"
	"github.com/vladislavdragonenkov/orders/internal/service/orders"
	"github.com/vladislavdragonenkov/orders/internal/service/products"
	"github.com/vladislavdragonenkov/orders/internal/storage/memory"
	"github.com/vladislavdragonenkov/orders/internal/transport/httpapi"
)

const missingID = "5f0c8a52-6c2e-4f8e-9a51-2b1d0c9e7a10"

func loggerForTests() *log.Entry {
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return log.NewEntry(logger)
}

type testEnv struct {
	server  *httptest.Server
	catalog *products.StaticCatalog
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	catalog := products.NewStaticCatalog(
		domain.CatalogProduct{ID: 1, Name: "Keyboard", Price: decimal.RequireFromString("49.90")},
		domain.CatalogProduct{ID: 2, Name: "Mouse", Price: decimal.RequireFromString("19.50")},
	)
	logger := loggerForTests()
	registry := prometheus.NewRegistry()

	svc := orders.NewService(memory.NewOrderRepository(), catalog, "http://orders.test/orders",
		orders.WithLogger(logger),
		orders.WithMetrics(metrics.NewOrderMetricsWithRegisterer(registry)),
	)

	healthHandler := health.NewHandler("test")
	healthHandler.RegisterChecker("storage", health.NewSimpleChecker("storage", func(context.Context) error { return nil }))

	router := httpapi.NewRouter(httpapi.Options{
		Orders:  grpcsvc.NewOrderService(svc, logger),
		Health:  healthHandler,
		Metrics: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Logger:  logger,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return testEnv{server: server, catalog: catalog}
}

func (e testEnv) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf strings.Builder
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, []byte(buf.String())
}

func decodeError(t *testing.T, body []byte) httpapi.ErrorResponse {
	t.Helper()
	var out httpapi.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestOrdersLifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/orders", `{"items":[{"productId":1,"quantity":2},{"productId":2,"quantity":1}]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var created ordersv1.Order
	require.NoError(t, json.Unmarshal(body, &created))
	require.Equal(t, "pending", created.Status)
	require.True(t, created.TotalAmount.Equal(decimal.RequireFromString("119.30")))
	require.EqualValues(t, 3, created.TotalItems)
	require.Len(t, created.OrderItems, 2)

	resp, body = env.do(t, http.MethodGet, "/orders/"+created.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var found ordersv1.Order
	require.NoError(t, json.Unmarshal(body, &found))
	require.Equal(t, created.ID, found.ID)
	require.Equal(t, "Mouse", found.OrderItems[1].ProductName)

	resp, body = env.do(t, http.MethodPatch, "/orders/"+created.ID+"/status", `{"status":"paid"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var updated ordersv1.Order
	require.NoError(t, json.Unmarshal(body, &updated))
	require.Equal(t, "paid", updated.Status)

	resp, body = env.do(t, http.MethodGet, "/orders?status=paid&page=1&limit=5", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list ordersv1.FindAllOrdersResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Data, 1)
	require.Equal(t, 1, list.Meta.TotalItems)
	require.Equal(t, 1, list.Meta.TotalPages)
	require.Equal(t, "http://orders.test/orders?page=1&limit=5", *list.Meta.FirstPageURL)
	require.Nil(t, list.Meta.NextPageURL)
}

func TestFindOne_NotFound(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/orders/"+missingID, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, httpapi.ErrorResponse{
		Message: "Order with id " + missingID + " not found",
		Service: "ORDERS",
		Kind:    "NOT_FOUND",
	}, decodeError(t, body))
}

func TestValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{name: "malformed id", method: http.MethodGet, path: "/orders/abc"},
		{name: "bad page", method: http.MethodGet, path: "/orders?page=x"},
		{name: "zero limit", method: http.MethodGet, path: "/orders?limit=0"},
		{name: "unknown status filter", method: http.MethodGet, path: "/orders?status=shipped"},
		{name: "empty items", method: http.MethodPost, path: "/orders", body: `{"items":[]}`},
		{name: "empty body", method: http.MethodPost, path: "/orders"},
		{name: "unknown field", method: http.MethodPost, path: "/orders", body: `{"item":[]}`},
		{name: "unknown status", method: http.MethodPatch, path: "/orders/" + missingID + "/status", body: `{"status":"lost"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := env.do(t, tc.method, tc.path, tc.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
			out := decodeError(t, body)
			require.Equal(t, "ORDERS", out.Service)
			require.Equal(t, "VALIDATION", out.Kind)
			require.NotEmpty(t, out.Message)
		})
	}
}

func TestChangeStatus_MissingOrder(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPatch, "/orders/"+missingID+"/status", `{"status":"paid"}`)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	out := decodeError(t, body)
	require.Equal(t, "ORDERS", out.Service)
	require.Equal(t, "OPERATION_FAILED", out.Kind)
	require.Contains(t, out.Message, missingID)
}

func TestCreate_ProductsOriginPreserved(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.FailWith(domain.NewValidationOriginError(domain.OriginProducts, "Products with ids [7] are not available", nil))

	resp, body := env.do(t, http.MethodPost, "/orders", `{"items":[{"productId":7,"quantity":1}]}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, httpapi.ErrorResponse{
		Message: "Products with ids [7] are not available",
		Service: "PRODUCTS",
		Kind:    "VALIDATION_ORIGIN",
	}, decodeError(t, body))
}

func TestOperationalEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/livez", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", string(body))

	resp, body = env.do(t, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ready", string(body))

	resp, body = env.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report health.Response
	require.NoError(t, json.Unmarshal(body, &report))
	require.Equal(t, health.StatusHealthy, report.Status)
	require.Equal(t, "test", report.Version)

	_, _ = env.do(t, http.MethodPost, "/orders", `{"items":[{"productId":1,"quantity":1}]}`)
	resp, body = env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "orders_created_total")

	require.NotEmpty(t, resp.Header.Get("Content-Type"))
}

type panickingOrders struct {
	ordersv1.UnimplementedOrderServiceServer
}

func (panickingOrders) FindOneOrder(context.Context, *ordersv1.FindOneOrderRequest) (*ordersv1.Order, error) {
	panic("boom")
}

func TestRecoverer(t *testing.T) {
	router := httpapi.NewRouter(httpapi.Options{Orders: panickingOrders{}, Logger: loggerForTests()})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/"+missingID, nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestErrorFromStatus(t *testing.T) {
	code, body := httpapi.ErrorFromStatus(status.Error(codes.Unavailable, "catalog down"))
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "ORDERS", body.Service)
	require.Equal(t, "OPERATION_FAILED", body.Kind)

	code, body = httpapi.ErrorFromStatus(errors.New("plain"))
	require.Equal(t, http.StatusInternalServerError, code)
	require.Equal(t, "plain", body.Message)
}
