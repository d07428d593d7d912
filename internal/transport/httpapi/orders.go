package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	ordersv1 "github.com/vladislavdragonenkov/orders/api/orders/v1"
	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/transport/grpcerr"
)

// maxBodyBytes ограничивает размер тела запроса.
const maxBodyBytes = 1 << 20

// kindValidation помечает ошибки разбора запроса на стороне шлюза.
const kindValidation = "VALIDATION"

// ErrorResponse: тело ответа с ошибкой.
type ErrorResponse struct {
	Message string `json:"message"`
	Service string `json:"service"`
	Kind    string `json:"kind"`
}

type changeStatusBody struct {
	Status string `json:"status"`
}

type ordersHandler struct {
	orders ordersv1.OrderServiceServer
	logger *log.Entry
}

func (h *ordersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req ordersv1.CreateOrderRequest
	if err := decodeBody(r, &req); err != nil {
		h.badRequest(w, err)
		return
	}

	order, err := h.orders.CreateOrder(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, order)
}

func (h *ordersHandler) list(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, err := parseInt32(query.Get("page"))
	if err != nil {
		h.badRequest(w, fmt.Errorf("page: %w", err))
		return
	}
	limit, err := parseInt32(query.Get("limit"))
	if err != nil {
		h.badRequest(w, fmt.Errorf("limit: %w", err))
		return
	}

	resp, err := h.orders.FindAllOrders(r.Context(), &ordersv1.FindAllOrdersRequest{
		Page:   page,
		Limit:  limit,
		Status: query.Get("status"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, resp)
}

func (h *ordersHandler) findOne(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.FindOneOrder(r.Context(), &ordersv1.FindOneOrderRequest{ID: chi.URLParam(r, "id")})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, order)
}

func (h *ordersHandler) changeStatus(w http.ResponseWriter, r *http.Request) {
	var body changeStatusBody
	if err := decodeBody(r, &body); err != nil {
		h.badRequest(w, err)
		return
	}

	order, err := h.orders.ChangeOrderStatus(r.Context(), &ordersv1.ChangeOrderStatusRequest{
		ID:     chi.URLParam(r, "id"),
		Status: body.Status,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, order)
}

func (h *ordersHandler) badRequest(w http.ResponseWriter, err error) {
	respond(w, http.StatusBadRequest, ErrorResponse{
		Message: err.Error(),
		Service: string(domain.OriginOrders),
		Kind:    kindValidation,
	})
}

func (h *ordersHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, body := ErrorFromStatus(err)
	if code >= http.StatusInternalServerError {
		h.logger.WithError(err).WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("order request failed")
	}
	respond(w, code, body)
}

// ErrorFromStatus переводит gRPC-ошибку сервиса в HTTP-код и тело ответа.
func ErrorFromStatus(err error) (int, ErrorResponse) {
	st := status.Convert(err)
	body := ErrorResponse{
		Message: st.Message(),
		Service: string(domain.OriginOrders),
		Kind:    string(domain.KindOperationFailed),
	}
	if st.Code() == codes.InvalidArgument {
		body.Kind = kindValidation
	}
	if info, ok := grpcerr.ErrorInfo(err); ok {
		body.Service = info.GetDomain()
		body.Kind = info.GetReason()
	}
	return httpStatus(st.Code()), body
}

func httpStatus(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Unimplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func parseInt32(raw string) (int32, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("must be an integer: %q", raw)
	}
	if v < 1 {
		return 0, fmt.Errorf("must be >= 1, got %d", v)
	}
	return int32(v), nil
}

func respond(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
