package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/haripatel07/ecommerce-backend/internal/cache"
	"github.com/haripatel07/ecommerce-backend/internal/domain"
	"github.com/haripatel07/ecommerce-backend/internal/repository"
	"golang.org/x/text/currency"
)

// MockCatalog implements ProductCatalog for testing
type MockCatalog struct {
	Products map[string]*domain.Product
	Err      error
	Calls    int
}

func (m *MockCatalog) ProductsByIDs(_ context.Context, ids []string) ([]*domain.Product, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	var out []*domain.Product
	seen := map[string]bool{}
	for _, id := range ids {
		if p, ok := m.Products[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, p)
		}
	}
	return out, nil
}

// MockGateway implements PaymentGateway for testing
type MockGateway struct {
	Intent   *domain.PaymentIntent
	Err      error
	Requests []domain.PaymentIntentRequest

	Event     *domain.WebhookEvent
	VerifyErr error
}

func (m *MockGateway) CreateIntent(_ context.Context, req domain.PaymentIntentRequest) (*domain.PaymentIntent, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Intent, nil
}

func (m *MockGateway) VerifyWebhook(_ []byte, _ string) (*domain.WebhookEvent, error) {
	if m.VerifyErr != nil {
		return nil, m.VerifyErr
	}
	return m.Event, nil
}

// MockOrderRepository is an in-memory repository.OrderRepository with the
// same conditional update rules as the Mongo one.
type MockOrderRepository struct {
	mu            sync.Mutex
	orders        map[string]*domain.Order
	Err           error
	MarkPaidCalls int
	Mutations     int
}

func NewMockOrderRepository(orders ...*domain.Order) *MockOrderRepository {
	m := &MockOrderRepository{orders: map[string]*domain.Order{}}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *MockOrderRepository) Get(id string) domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.orders[id]
}

func (m *MockOrderRepository) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrderRepository) ListOrdersByUserID(_ context.Context, userID string) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []*domain.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockOrderRepository) AttachPaymentIntent(_ context.Context, orderID string, intent domain.OrderPaymentIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	o, ok := m.orders[orderID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if o.IsPaid {
		return repository.ErrOrderAlreadyPaid
	}
	o.PaymentIntentID = intent.ID
	o.PaymentIntents = append(o.PaymentIntents, intent)
	m.Mutations++
	return nil
}

func (m *MockOrderRepository) MarkPaid(_ context.Context, intentID string, result domain.PaymentResult, paidAt time.Time) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MarkPaidCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	for _, o := range m.orders {
		for _, pi := range o.PaymentIntents {
			if pi.ID != intentID {
				continue
			}
			if o.IsPaid {
				return nil, repository.ErrOrderAlreadyPaid
			}
			if pi.Amount != result.Amount || pi.Currency != result.Currency {
				return nil, repository.ErrPaymentMismatch
			}
			o.IsPaid = true
			o.PaidAt = &paidAt
			o.PaymentResult = &result
			m.Mutations++
			cp := *o
			return &cp, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

// MockEventLog implements cache.EventLog for testing
type MockEventLog struct {
	seen    map[string]bool
	SeenErr error
}

func (m *MockEventLog) Seen(_ context.Context, eventID string) (bool, error) {
	if m.SeenErr != nil {
		return false, m.SeenErr
	}
	return m.seen[eventID], nil
}

func (m *MockEventLog) Remember(_ context.Context, eventID string) error {
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	m.seen[eventID] = true
	return nil
}

// MockPublisher implements OrderEventPublisher for testing
type MockPublisher struct {
	Events []domain.OrderPaidEvent
	Err    error
}

func (m *MockPublisher) PublishOrderPaid(_ context.Context, event domain.OrderPaidEvent) error {
	m.Events = append(m.Events, event)
	return m.Err
}

func newTestService(
	catalog ProductCatalog,
	orders *MockOrderRepository,
	gateway PaymentGateway,
	events cache.EventLog,
	publisher OrderEventPublisher) *PaymentService {

	return NewPaymentService(catalog, orders, gateway, events, publisher, currency.INR, discardLogger())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
