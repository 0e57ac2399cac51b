package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/haripatel07/ecommerce-backend/internal/domain"
)

type OrderService interface {
	GetOrder(ctx context.Context, userID, orderID string) (*domain.Order, error)
	ListOrders(ctx context.Context, userID string) ([]*domain.Order, error)
}

type OrdersHandler struct {
	orders  OrderService
	timeout time.Duration
	logger  *slog.Logger
}

func NewOrdersHandler(orders OrderService, timeout time.Duration, logger *slog.Logger) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
		logger:  logger,
	}
}

type OrderResponseDTO struct {
	ID              string                `json:"id"`
	Items           []domain.OrderItem    `json:"items"`
	PaymentIntentID string                `json:"paymentIntentId,omitempty"`
	IsPaid          bool                  `json:"isPaid"`
	PaidAt          *time.Time            `json:"paidAt,omitempty"`
	PaymentResult   *domain.PaymentResult `json:"paymentResult,omitempty"`
	CreatedAt       time.Time             `json:"createdAt"`
}

func convertOrder(o *domain.Order) OrderResponseDTO {
	items := o.Items
	if items == nil {
		items = []domain.OrderItem{}
	}
	return OrderResponseDTO{
		ID:              o.ID,
		Items:           items,
		PaymentIntentID: o.PaymentIntentID,
		IsPaid:          o.IsPaid,
		PaidAt:          o.PaidAt,
		PaymentResult:   o.PaymentResult,
		CreatedAt:       o.CreatedAt,
	}
}

// GET /api/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orders, err := h.orders.ListOrders(ctx, userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	dtos := make([]OrderResponseDTO, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, convertOrder(o))
	}
	respondJSON(w, http.StatusOK, dtos)
}

// GET /api/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	order, err := h.orders.GetOrder(ctx, userID, orderID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, convertOrder(order))
}
