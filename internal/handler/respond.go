package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/atelier-api/internal/domain/order"
	"github.com/xenking/atelier-api/internal/domain/product"
)

// errorBody is the failure envelope: success=false, a human-readable message,
// and optional field-level errors.
type errorBody struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Errors  []order.FieldError `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string, fields []order.FieldError) {
	writeJSON(w, code, errorBody{Success: false, Message: message, Errors: fields})
}

// writeDomainError maps domain errors onto the HTTP error taxonomy:
// validation and illegal transitions are 400, authorization failures 403,
// missing entities 404, anything unexpected 500 with detail suppressed unless
// debug mode is on.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		vErr   *order.ValidationError
		pnfErr *order.ProductNotFoundError
		tErr   *order.InvalidTierError
		trErr  *order.InvalidTransitionError
		isErr  *order.IllegalStateError
	)
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, vErr.Error(), vErr.Fields)
	case errors.Is(err, order.ErrEmptyItems):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.As(err, &pnfErr):
		writeError(w, http.StatusBadRequest, pnfErr.Error(), nil)
	case errors.As(err, &tErr):
		writeError(w, http.StatusBadRequest, tErr.Error(), nil)
	case errors.As(err, &trErr):
		writeError(w, http.StatusBadRequest, trErr.Error(), nil)
	case errors.As(err, &isErr):
		writeError(w, http.StatusBadRequest, isErr.Error(), nil)
	case errors.Is(err, order.ErrForbidden):
		writeError(w, http.StatusForbidden, "not allowed to access this order", nil)
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found", nil)
	case errors.Is(err, product.ErrNotFound):
		writeError(w, http.StatusNotFound, "product not found", nil)
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		msg := "internal server error"
		if h.debug {
			msg = err.Error()
		}
		writeError(w, http.StatusInternalServerError, msg, nil)
	}
}
