// Package httpapi содержит HTTP-шлюз к сервису заказов и служебные эндпоинты.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	ordersv1 "github.com/vladislavdragonenkov/orders/api/orders/v1"
	"github.com/vladislavdragonenkov/orders/internal/health"
)

// Options описывает зависимости роутера.
type Options struct {
	Orders ordersv1.OrderServiceServer
	Health *health.Handler
	// Metrics по умолчанию promhttp.Handler().
	Metrics http.Handler
	Logger  *log.Entry
}

// NewRouter собирает chi-роутер: /orders поверх OrderServiceServer и служебные эндпоинты.
func NewRouter(opts Options) chi.Router {
	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "http")
	}
	metricsHandler := opts.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", metricsHandler)
	r.Get("/livez", health.LivenessHandler)
	if opts.Health != nil {
		r.Get("/healthz", opts.Health.ServeHTTP)
		r.Get("/readyz", opts.Health.ReadinessHandler)
	}

	if opts.Orders != nil {
		h := &ordersHandler{orders: opts.Orders, logger: logger}
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.create)                   // POST  /orders
			r.Get("/", h.list)                      // GET   /orders?page=&limit=&status=
			r.Get("/{id}", h.findOne)               // GET   /orders/{id}
			r.Patch("/{id}/status", h.changeStatus) // PATCH /orders/{id}/status
		})
	}

	return r
}

// RequestLogger пишет каждый запрос в logrus вместе с request id.
func RequestLogger(logger *log.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()

			next.ServeHTTP(ww, r)

			entry := logger.WithFields(log.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(started),
				"remote":     r.RemoteAddr,
			})
			if ww.Status() >= http.StatusInternalServerError {
				entry.Warn("http request failed")
				return
			}
			entry.Debug("http request handled")
		})
	}
}
