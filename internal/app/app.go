package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	ordersv1 "github.com/vladislavdragonenkov/orders/api/orders/v1"
	healthcheck "github.com/vladislavdragonenkov/orders/internal/health"
	"github.com/vladislavdragonenkov/orders/internal/metrics"
	grpcsvc "github.com/vladislavdragonenkov/orders/internal/service/grpc"
	"github.com/vladislavdragonenkov/orders/internal/service/orders"
	"github.com/vladislavdragonenkov/orders/internal/transport/httpapi"
	"github.com/vladislavdragonenkov/orders/internal/version"
)

// Run поднимает gRPC и HTTP серверы и блокируется до отмены ctx или ошибки сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	if err := cfg.Validate(); err != nil {
		return err
	}

	deps, err := initRuntimeDependencies(ctx, cfg, logger.WithField("layer", "storage"))
	if err != nil {
		return err
	}
	defer closeWithLog(deps.closeFn, "storage", logger)

	catalog, err := initProductCatalog(cfg, logger)
	if err != nil {
		return err
	}
	defer closeWithLog(catalog.closeFn, "products client", logger)

	registerer := prometheus.DefaultRegisterer

	// Kafka опциональна: без неё события копятся в outbox со статусом pending.
	producer, _ := initKafkaProducer(cfg.KafkaBrokers, cfg.KafkaClientID, logger.WithField("layer", "kafka"))
	stopWorker := func() {}
	if producer != nil {
		worker := newOutboxWorker(cfg, deps.outbox, producer, registerer, logger.WithField("layer", "outbox"))
		stopWorker = startOutboxWorker(ctx, worker)
	}

	orderService := orders.NewService(deps.orders, catalog.validator, cfg.OrdersListURL(),
		orders.WithLogger(logger.WithField("layer", "orders")),
		orders.WithMetrics(metrics.NewOrderMetricsWithRegisterer(registerer)),
		orders.WithOutbox(deps.outbox),
	)
	grpcOrders := grpcsvc.NewOrderService(orderService, logger.WithField("layer", "grpc"))

	grpcServer, healthServer := newGRPCServer(grpcOrders, registerer, logger)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", deps.storageChecker)
	healthHandler.RegisterChecker("products", catalog.checker)

	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.Options{
			Orders: grpcOrders,
			Health: healthHandler,
			Logger: logger.WithField("layer", "http"),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		stopWorker()
		closeKafka(producer, logger)
		return fmt.Errorf("listen grpc %s: %w", cfg.GRPCAddr, err)
	}
	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = grpcLis.Close()
		stopWorker()
		closeKafka(producer, logger)
		return fmt.Errorf("listen http %s: %w", cfg.HTTPAddr, err)
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Infof("gRPC сервер слушает %s", grpcLis.Addr())
		errCh <- grpcServer.Serve(grpcLis)
	}()
	go func() {
		logger.Infof("HTTP шлюз слушает %s (/orders, /metrics, /healthz, /livez, /readyz)", httpLis.Addr())
		if err := httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем серверы")
		runErr = ctx.Err()
	case err := <-errCh:
		if !errors.Is(err, grpc.ErrServerStopped) {
			runErr = err
		}
	}

	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	stopGRPC(grpcServer, cfg.ShutdownTimeout, logger)
	shutdownHTTP(httpServer, cfg.ShutdownTimeout, logger)
	stopWorker()
	closeKafka(producer, logger)

	return runErr
}

// newGRPCServer регистрирует сервис заказов, стандартный health-сервис и prometheus-метрики.
func newGRPCServer(orderService ordersv1.OrderServiceServer, registerer prometheus.Registerer, logger *log.Entry) (*grpc.Server, *health.Server) {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := registerer.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	grpcLogger := logger.WithField("layer", "grpc")
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		grpcMetrics.UnaryServerInterceptor(),
		grpcsvc.RecoveryInterceptor(grpcLogger),
		grpcsvc.LoggingInterceptor(grpcLogger),
	))
	ordersv1.RegisterOrderServiceServer(grpcServer, orderService)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ordersv1.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	grpcMetrics.InitializeMetrics(grpcServer)
	return grpcServer, healthServer
}

// stopGRPC выполняет GracefulStop, а по таймауту делает принудительную остановку.
func stopGRPC(server *grpc.Server, timeout time.Duration, logger *log.Entry) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(timeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		server.Stop()
	}
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, timeout time.Duration, logger *log.Entry) {
	if srv == nil {
		return
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}

func closeWithLog(closeFn func() error, name string, logger *log.Entry) {
	if closeFn == nil {
		return
	}
	if err := closeFn(); err != nil {
		logger.WithError(err).WithField("resource", name).Warn("failed to close resource")
	}
}
