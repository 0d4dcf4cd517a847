package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/rl1809/sales-reconciler/internal/core/domain"
)

type HTTPHandler struct {
	reconciler       Reconciler
	resupplyQuantity int
}

type ReconcileHTTPRequest struct {
	ResupplyQuantity *int `json:"resupply_quantity"`
}

type ReconcileHTTPResponse struct {
	Success             bool             `json:"success"`
	Message             string           `json:"message,omitempty"`
	BatchID             string           `json:"batch_id,omitempty"`
	Transactions        int              `json:"transactions"`
	Fulfilled           int              `json:"fulfilled"`
	Stockouts           int              `json:"stockouts"`
	UnitsSold           int              `json:"units_sold"`
	ResupplyOrders      int              `json:"resupply_orders"`
	DeltaRows           int              `json:"delta_rows"`
	UnresolvedSuppliers int              `json:"unresolved_suppliers"`
	FulfilledRevenue    *decimal.Decimal `json:"fulfilled_revenue,omitempty"`
	LostRevenue         *decimal.Decimal `json:"lost_revenue,omitempty"`
}

// NewHTTPHandler serves batch triggers; resupplyQuantity is used when a request
// does not set one.
func NewHTTPHandler(reconciler Reconciler, resupplyQuantity int) *HTTPHandler {
	return &HTTPHandler{reconciler: reconciler, resupplyQuantity: resupplyQuantity}
}

// NewRouter mounts the handler; metrics may be nil.
func NewRouter(h *HTTPHandler, metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", h.HealthCheck)
	r.Post("/api/reconcile", h.Reconcile)
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}
	return r
}

func (h *HTTPHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req ReconcileHTTPRequest
	if err := decodeRequest(r.Body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ReconcileHTTPResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}

	quantity := h.resupplyQuantity
	if req.ResupplyQuantity != nil {
		quantity = *req.ResupplyQuantity
	}

	result, err := h.reconciler.Reconcile(r.Context(), quantity)
	if err != nil {
		status := statusFor(err)
		writeJSON(w, status.http, ReconcileHTTPResponse{
			Success: false,
			Message: status.message,
		})
		return
	}

	writeJSON(w, http.StatusOK, newReconcileHTTPResponse(result))
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func newReconcileHTTPResponse(result *domain.BatchResult) ReconcileHTTPResponse {
	s := result.Summary
	resp := ReconcileHTTPResponse{
		Success:             true,
		BatchID:             result.BatchID,
		Transactions:        s.Transactions,
		Fulfilled:           s.Fulfilled,
		Stockouts:           s.Stockouts,
		UnitsSold:           s.UnitsSold,
		ResupplyOrders:      len(result.Orders),
		DeltaRows:           len(result.Delta),
		UnresolvedSuppliers: s.UnresolvedSuppliers,
		FulfilledRevenue:    &s.FulfilledRevenue,
		LostRevenue:         &s.LostRevenue,
	}
	if result.Empty() {
		resp.Message = "no pending sales"
	}
	return resp
}

// decodeRequest accepts an empty body or exactly one JSON object with known fields.
func decodeRequest(body io.Reader, v interface{}) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
