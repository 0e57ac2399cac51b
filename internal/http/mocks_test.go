package http

import (
	"context"

	"github.com/haripatel07/ecommerce-backend/internal/domain"
	"github.com/haripatel07/ecommerce-backend/internal/service"
)

// MockServices implements Services for testing
type MockServices struct {
	Intent    *domain.PaymentIntent
	IntentErr error
	UserID    string
	Request   service.CreatePaymentIntentRequest

	WebhookErr       error
	WebhookPayload   []byte
	WebhookSignature string

	Order    *domain.Order
	Orders   []*domain.Order
	OrderErr error
}

func (m *MockServices) CreatePaymentIntent(_ context.Context, userID string, req service.CreatePaymentIntentRequest) (*domain.PaymentIntent, error) {
	m.UserID = userID
	m.Request = req
	return m.Intent, m.IntentErr
}

func (m *MockServices) HandleWebhook(_ context.Context, payload []byte, signature string) error {
	m.WebhookPayload = payload
	m.WebhookSignature = signature
	return m.WebhookErr
}

func (m *MockServices) GetOrder(_ context.Context, _, _ string) (*domain.Order, error) {
	return m.Order, m.OrderErr
}

func (m *MockServices) ListOrders(_ context.Context, _ string) ([]*domain.Order, error) {
	return m.Orders, m.OrderErr
}
