package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/mastecno/storefront/internal/domain/order"
	"github.com/mastecno/storefront/internal/domain/product"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// writeError maps domain errors onto HTTP statuses and a stable error code.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalidLine  *order.InvalidLineError
		notFound     *order.ProductNotFoundError
		noStock      *order.InsufficientStockError
		badStatus    *order.InvalidStatusError
		storeFailure *order.StoreUnavailableError
	)

	switch {
	case errors.Is(err, order.ErrEmptyCart):
		writeErrorCode(w, http.StatusBadRequest, "empty_cart", err.Error())
	case errors.Is(err, order.ErrInvalidOrderID):
		writeErrorCode(w, http.StatusBadRequest, "invalid_order_id", err.Error())
	case errors.As(err, &invalidLine):
		writeErrorCode(w, http.StatusUnprocessableEntity, "invalid_line", err.Error())
	case errors.As(err, &notFound):
		writeErrorCode(w, http.StatusUnprocessableEntity, "product_not_found", err.Error())
	case errors.As(err, &noStock):
		writeErrorCode(w, http.StatusConflict, "insufficient_stock", err.Error())
	case errors.As(err, &badStatus):
		writeErrorCode(w, http.StatusUnprocessableEntity, "invalid_status", err.Error())
	case errors.Is(err, order.ErrOrderNotFound):
		writeErrorCode(w, http.StatusNotFound, "order_not_found", err.Error())
	case errors.Is(err, product.ErrNotFound):
		writeErrorCode(w, http.StatusNotFound, "product_not_found", err.Error())
	case errors.As(err, &storeFailure):
		zctx.From(r.Context()).Error("storage unavailable", zap.Error(err))
		writeErrorCode(w, http.StatusServiceUnavailable, "store_unavailable", "storage temporarily unavailable")
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeErrorCode(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(err, "decode request body")
	}
	return nil
}
