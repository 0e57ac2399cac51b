package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/haripatel07/ecommerce-backend/internal/service"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// writeServiceError is the single place service errors become status codes.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		respondError(w, http.StatusBadRequest, "invalid_amount", "Invalid order amount.")
	case errors.Is(err, service.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "order_not_found", "Order not found")
	case errors.Is(err, service.ErrOrderAlreadyPaid):
		respondError(w, http.StatusConflict, "order_already_paid", "Order is already paid")
	case errors.Is(err, service.ErrGatewayUnavailable):
		respondError(w, http.StatusBadGateway, "payment_gateway_unavailable", "Payment provider unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		logger.Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
