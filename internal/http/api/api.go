// Package api holds the response plumbing shared by every handler package:
// JSON encoding and the mapping from the engine's typed errors to HTTP
// statuses and stable error codes.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/daesung-dev/anshim/internal/escrow"
	"github.com/daesung-dev/anshim/internal/gateway"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// WriteError maps err to a status and a stable machine-readable code. Every
// rejected action carries a message safe to show the end user; internal
// failures are logged and reported without detail.
func WriteError(w http.ResponseWriter, err error) {
	var (
		validationErr   *escrow.ValidationError
		invalidStateErr *escrow.InvalidStateError
		unauthorizedErr *escrow.UnauthorizedActionError
		conflictErr     *escrow.ConflictError
		captureErr      *gateway.CaptureError
		refundErr       *gateway.RefundError
	)

	switch {
	case errors.As(err, &validationErr):
		WriteJSON(w, http.StatusBadRequest, errorResponse{Code: "validation_error", Message: validationErr.Error()})
	case errors.As(err, &invalidStateErr):
		WriteJSON(w, http.StatusConflict, errorResponse{Code: "invalid_state", Message: invalidStateErr.Error()})
	case errors.As(err, &unauthorizedErr):
		WriteJSON(w, http.StatusForbidden, errorResponse{Code: "unauthorized_action", Message: unauthorizedErr.Error()})
	case errors.As(err, &conflictErr):
		WriteJSON(w, http.StatusConflict, errorResponse{Code: "conflict", Message: conflictErr.Error()})
	case errors.Is(err, escrow.ErrNotFound):
		WriteJSON(w, http.StatusNotFound, errorResponse{Code: "not_found", Message: "escrow not found"})
	case errors.As(err, &captureErr):
		WriteJSON(w, http.StatusBadGateway, errorResponse{Code: "payment_capture_failed", Message: "payment capture failed, please retry"})
	case errors.As(err, &refundErr):
		WriteJSON(w, http.StatusBadGateway, errorResponse{Code: "payment_refund_failed", Message: "payment refund failed, please retry"})
	default:
		slog.Error("unhandled error", "error", err)
		WriteJSON(w, http.StatusInternalServerError, errorResponse{Code: "internal", Message: "internal error"})
	}
}
