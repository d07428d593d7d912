// Package grpcerr переносит ошибки с тегом происхождения через границу gRPC.
//
// domain.Error кодируется как status с деталью errdetails.ErrorInfo:
// Reason = вид ошибки, Domain = origin, Metadata = диагностический контекст.
package grpcerr

import (
	"context"
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// Code возвращает gRPC-код для вида ошибки.
func Code(err *domain.Error) codes.Code {
	switch err.Kind {
	case domain.KindNotFound:
		return codes.NotFound
	case domain.KindValidationOrigin:
		if st, ok := status.FromError(err.Err); ok && st.Code() != codes.OK && st.Code() != codes.Unknown {
			return st.Code()
		}
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

// ToStatus превращает ошибку в gRPC status.
// Ошибки без тега считаются внутренними ошибками этого сервиса.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}

	derr, ok := domain.AsError(err)
	if !ok {
		if _, isStatus := status.FromError(err); isStatus {
			return err
		}
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return status.Error(codes.DeadlineExceeded, err.Error())
		case errors.Is(err, context.Canceled):
			return status.Error(codes.Canceled, err.Error())
		}
		derr = domain.NewOperationFailedError(err.Error(), nil, err)
	}

	st := status.New(Code(derr), derr.Message)
	detailed, detailErr := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   string(derr.Kind),
		Domain:   string(derr.Origin),
		Metadata: derr.Context,
	})
	if detailErr != nil {
		return st.Err()
	}
	return detailed.Err()
}

// ErrorInfo извлекает деталь ErrorInfo из gRPC-ошибки.
func ErrorInfo(err error) (*errdetails.ErrorInfo, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return nil, false
	}
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok {
			return info, true
		}
	}
	return nil, false
}

// FromStatus восстанавливает domain.Error из ответа удалённого сервиса.
// Ошибка с origin становится ValidationOrigin с тем же origin; исходный status
// сохраняется в Err. Ошибки без origin возвращаются как есть.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	info, ok := ErrorInfo(err)
	if !ok || info.GetDomain() == "" {
		return err
	}

	st, _ := status.FromError(err)
	derr := domain.NewValidationOriginError(domain.Origin(info.GetDomain()), st.Message(), info.GetMetadata())
	derr.Err = err
	return derr
}
