package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/haripatel07/ecommerce-backend/internal/domain"
	"github.com/haripatel07/ecommerce-backend/internal/service"
)

// maxWebhookBodySize bounds what is read before the signature is checked.
const maxWebhookBodySize = 64 << 10

type PaymentService interface {
	CreatePaymentIntent(ctx context.Context, userID string, req service.CreatePaymentIntentRequest) (*domain.PaymentIntent, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type PaymentsHandler struct {
	payments    PaymentService
	timeout     time.Duration
	maxBodySize int64
	logger      *slog.Logger
}

func NewPaymentsHandler(payments PaymentService, timeout time.Duration, maxBodySize int64, logger *slog.Logger) *PaymentsHandler {
	return &PaymentsHandler{
		payments:    payments,
		timeout:     timeout,
		maxBodySize: maxBodySize,
		logger:      logger,
	}
}

// CreatePaymentIntentRequestDTO prices Items, or the stored order's items
// when OrderID is set.
type CreatePaymentIntentRequestDTO struct {
	Items   []domain.CartItem `json:"items"`
	OrderID string            `json:"orderId,omitempty"`
}

type CreatePaymentIntentResponseDTO struct {
	ClientSecret string `json:"clientSecret"`
}

// POST /api/payments/create-payment-intent
func (h *PaymentsHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req CreatePaymentIntentRequestDTO
	body := http.MaxBytesReader(w, r.Body, h.maxBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	intent, err := h.payments.CreatePaymentIntent(ctx, userID, service.CreatePaymentIntentRequest{
		Items:   req.Items,
		OrderID: req.OrderID,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, CreatePaymentIntentResponseDTO{ClientSecret: intent.ClientSecret})
}

// POST /api/payments/stripe-webhook
//
// The body is read verbatim; any re-encoding would break the signature.
func (h *PaymentsHandler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			webhookError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		webhookError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	err = h.payments.HandleWebhook(ctx, payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, service.ErrSignatureInvalid) {
			webhookError(w, http.StatusBadRequest, err.Error())
			return
		}
		// non-2xx makes Stripe redeliver
		writeServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func webhookError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, "Webhook Error: "+message)
}
