// Команда loadtest нагружает сервис заказов по gRPC и печатает сводку латентности.
//
//	loadtest -addr=localhost:50051 -mode=lifecycle -total=1000 -concurrency=50
//	loadtest -duration=5m -mode=create-read -output=report.json
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	ordersv1 "github.com/vladislavdragonenkov/orders/api/orders/v1"
	"github.com/vladislavdragonenkov/orders/internal/domain"
)

type loadMode string

const (
	// modeCreate только создаёт заказы.
	modeCreate loadMode = "create"
	// modeCreateRead создаёт заказ и читает его обратно.
	modeCreateRead loadMode = "create-read"
	// modeLifecycle проводит заказ через paid и delivered либо cancelled.
	modeLifecycle loadMode = "lifecycle"
)

var errScenariosFailed = errors.New("some scenarios failed")

type config struct {
	addr        string
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	connections int
	timeout     time.Duration
	mode        loadMode
	cancelRate  int
	productIDs  []int64
	quantity    int
	listEvery   int
	outputPath  string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout)
	switch {
	case err == nil:
	case errors.Is(err, errScenariosFailed):
		stop()
		os.Exit(1)
	default:
		stop()
		_, _ = fmt.Fprintf(os.Stderr, "loadtest: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cfg, err := parseConfig(args, out)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	conns := make([]*grpc.ClientConn, 0, cfg.connections)
	defer func() {
		for _, conn := range conns {
			_ = conn.Close()
		}
	}()
	clients := make([]ordersv1.OrderServiceClient, 0, cfg.connections)
	for range cfg.connections {
		conn, dialErr := grpc.NewClient(cfg.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if dialErr != nil {
			return fmt.Errorf("create grpc client connection: %w", dialErr)
		}
		conns = append(conns, conn)
		clients = append(clients, ordersv1.NewOrderServiceClient(conn))
	}

	result := execute(ctx, cfg, clients)
	printReport(out, result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	if result.FailedScenarios > 0 {
		return errScenariosFailed
	}
	return nil
}

func parseConfig(args []string, out io.Writer) (config, error) {
	var (
		cfg         config
		modeValue   string
		productsRaw string
	)

	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&cfg.addr, "addr", "localhost:50051", "gRPC target address")
	fs.IntVar(&cfg.total, "total", 400, "total scenarios in count mode; with -duration acts as an upper bound only when set explicitly")
	fs.DurationVar(&cfg.duration, "duration", 0, "optional time-based run duration (e.g. 10m)")
	fs.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent workers")
	fs.IntVar(&cfg.connections, "connections", 20, "number of gRPC client connections")
	fs.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "per-RPC timeout")
	fs.StringVar(&modeValue, "mode", string(modeCreate), "load mode: create | create-read | lifecycle")
	fs.IntVar(&cfg.cancelRate, "cancel-rate", 0, "percent of lifecycle scenarios that end in cancelled (0..100)")
	fs.StringVar(&productsRaw, "products", "1,2", "comma-separated product ids for each order")
	fs.IntVar(&cfg.quantity, "quantity", 1, "quantity for each order item")
	fs.IntVar(&cfg.listEvery, "list-every", 0, "call FindAllOrders every N scenarios (0 disables)")
	fs.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	mode, err := parseMode(modeValue)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode

	cfg.productIDs, err = parseProductIDs(productsRaw)
	if err != nil {
		return cfg, err
	}

	switch {
	case cfg.duration < 0:
		return cfg, errors.New("duration must be >= 0")
	case cfg.duration == 0 && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when duration is not set")
	case cfg.duration > 0 && cfg.totalSet && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	case cfg.concurrency <= 0:
		return cfg, errors.New("concurrency must be > 0")
	case cfg.connections <= 0:
		return cfg, errors.New("connections must be > 0")
	case cfg.timeout <= 0:
		return cfg, errors.New("timeout must be > 0")
	case cfg.quantity <= 0:
		return cfg, errors.New("quantity must be > 0")
	case cfg.cancelRate < 0 || cfg.cancelRate > 100:
		return cfg, errors.New("cancel-rate must be between 0 and 100")
	case cfg.listEvery < 0:
		return cfg, errors.New("list-every must be >= 0")
	}
	return cfg, nil
}

func parseMode(value string) (loadMode, error) {
	switch mode := loadMode(strings.TrimSpace(value)); mode {
	case modeCreate, modeCreateRead, modeLifecycle:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

func parseProductIDs(raw string) ([]int64, error) {
	ids := make([]int64, 0)
	for _, chunk := range strings.Split(raw, ",") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		id, err := strconv.ParseInt(chunk, 10, 64)
		if err != nil || id < 1 {
			return nil, fmt.Errorf("invalid product id %q", chunk)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("at least one product id is required")
	}
	return ids, nil
}

// execute раздаёт сценарии воркерам и собирает отчёт.
func execute(ctx context.Context, cfg config, clients []ordersv1.OrderServiceClient) report {
	startedAt := time.Now()
	col := newCollector()

	jobs := make(chan int, cfg.concurrency*2)
	var (
		failures int64
		wg       sync.WaitGroup
	)
	for workerID := range cfg.concurrency {
		wg.Add(1)
		go func(client ordersv1.OrderServiceClient) {
			defer wg.Done()
			for index := range jobs {
				if err := runScenario(ctx, client, cfg, index, col); err != nil {
					atomic.AddInt64(&failures, 1)
					log.WithError(err).WithField("scenario", index).Debug("scenario failed")
				}
			}
		}(clients[workerID%len(clients)])
	}

	dispatchJobs(ctx, jobs, cfg)
	wg.Wait()

	result := col.buildReport(startedAt, time.Since(startedAt))
	if result.FailedScenarios == 0 && failures > 0 {
		result.FailedScenarios = failures
		result.ErrorRate = ratio(result.FailedScenarios, result.TotalScenarios)
	}
	return result
}

func dispatchJobs(ctx context.Context, jobs chan<- int, cfg config) {
	defer close(jobs)

	var deadline <-chan time.Time
	if cfg.duration > 0 {
		timer := time.NewTimer(cfg.duration)
		defer timer.Stop()
		deadline = timer.C
	}

	for i := 0; ; i++ {
		if ctx.Err() != nil {
			return
		}
		if (cfg.duration <= 0 || cfg.totalSet) && i >= cfg.total {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case jobs <- i:
		}
	}
}

func runScenario(ctx context.Context, client ordersv1.OrderServiceClient, cfg config, index int, col *collector) (err error) {
	started := time.Now()
	defer func() {
		col.record(scenarioMethod, time.Since(started), grpcCode(err))
	}()

	items := make([]ordersv1.OrderItemInput, 0, len(cfg.productIDs))
	for _, id := range cfg.productIDs {
		items = append(items, ordersv1.OrderItemInput{ProductID: id, Quantity: int32(cfg.quantity)})
	}

	var order *ordersv1.Order
	err = timed(ctx, col, "CreateOrder", cfg.timeout, func(callCtx context.Context) error {
		var callErr error
		order, callErr = client.CreateOrder(callCtx, &ordersv1.CreateOrderRequest{Items: items})
		return callErr
	})
	if err != nil {
		return err
	}
	if order == nil || order.ID == "" {
		return status.Error(codes.Internal, "create response returned empty order id")
	}

	if cfg.listEvery > 0 && index%cfg.listEvery == 0 {
		err = timed(ctx, col, "FindAllOrders", cfg.timeout, func(callCtx context.Context) error {
			_, callErr := client.FindAllOrders(callCtx, &ordersv1.FindAllOrdersRequest{Page: 1, Limit: 10})
			return callErr
		})
		if err != nil {
			return err
		}
	}

	if cfg.mode == modeCreate {
		return nil
	}

	err = timed(ctx, col, "FindOneOrder", cfg.timeout, func(callCtx context.Context) error {
		_, callErr := client.FindOneOrder(callCtx, &ordersv1.FindOneOrderRequest{ID: order.ID})
		return callErr
	})
	if err != nil || cfg.mode == modeCreateRead {
		return err
	}

	for _, next := range lifecycleStatuses(index, cfg.cancelRate) {
		err = timed(ctx, col, "ChangeOrderStatus", cfg.timeout, func(callCtx context.Context) error {
			_, callErr := client.ChangeOrderStatus(callCtx, &ordersv1.ChangeOrderStatusRequest{ID: order.ID, Status: string(next)})
			return callErr
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// lifecycleStatuses возвращает последовательность статусов для сценария lifecycle.
func lifecycleStatuses(index, cancelRate int) []domain.OrderStatus {
	if shouldCancel(index, cancelRate) {
		return []domain.OrderStatus{domain.OrderStatusPaid, domain.OrderStatusCancelled}
	}
	return []domain.OrderStatus{domain.OrderStatusPaid, domain.OrderStatusDelivered}
}

func shouldCancel(index, cancelRate int) bool {
	if cancelRate <= 0 {
		return false
	}
	if cancelRate >= 100 {
		return true
	}
	return index%100 < cancelRate
}

func timed(ctx context.Context, col *collector, method string, timeout time.Duration, call func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	err := call(callCtx)
	col.record(method, time.Since(started), grpcCode(err))
	return err
}

func grpcCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	return status.Code(err)
}
