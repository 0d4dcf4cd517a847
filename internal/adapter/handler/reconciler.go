package handler

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"

	"github.com/rl1809/sales-reconciler/internal/core/domain"
	"github.com/rl1809/sales-reconciler/internal/core/service"
)

// Reconciler runs one batch. *service.ReconcileService satisfies it.
type Reconciler interface {
	Reconcile(ctx context.Context, resupplyQuantity int) (*domain.BatchResult, error)
}

type batchStatus struct {
	http    int
	grpc    codes.Code
	message string
}

func statusFor(err error) batchStatus {
	switch {
	case errors.Is(err, service.ErrBatchInProgress):
		return batchStatus{http.StatusConflict, codes.Aborted, "batch already in progress"}
	case errors.Is(err, service.ErrInvalidResupplyQuantity):
		return batchStatus{http.StatusBadRequest, codes.InvalidArgument, err.Error()}
	case errors.Is(err, service.ErrUnknownProduct),
		errors.Is(err, service.ErrSupplierNotFound),
		errors.Is(err, service.ErrInvalidSale):
		return batchStatus{http.StatusUnprocessableEntity, codes.FailedPrecondition, err.Error()}
	case errors.Is(err, service.ErrStoreRead):
		return batchStatus{http.StatusServiceUnavailable, codes.Unavailable, "data store unavailable"}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return batchStatus{http.StatusServiceUnavailable, codes.Canceled, "batch cancelled"}
	default:
		return batchStatus{http.StatusInternalServerError, codes.Internal, "internal error"}
	}
}
