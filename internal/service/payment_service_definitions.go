package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/haripatel07/ecommerce-backend/internal/cache"
	"github.com/haripatel07/ecommerce-backend/internal/domain"
	"github.com/haripatel07/ecommerce-backend/internal/repository"
	"golang.org/x/text/currency"
)

type ProductCatalog interface {
	ProductsByIDs(ctx context.Context, ids []string) ([]*domain.Product, error)
}

// PaymentGateway is the payment processor. Any error from VerifyWebhook
// means the payload must not be processed.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, req domain.PaymentIntentRequest) (*domain.PaymentIntent, error)
	VerifyWebhook(payload []byte, signature string) (*domain.WebhookEvent, error)
}

type OrderEventPublisher interface {
	PublishOrderPaid(ctx context.Context, event domain.OrderPaidEvent) error
}

type PaymentService struct {
	catalog   ProductCatalog
	orders    repository.OrderRepository
	gateway   PaymentGateway
	events    cache.EventLog
	publisher OrderEventPublisher
	currency  currency.Unit
	logger    *slog.Logger
	now       func() time.Time
}

// NewPaymentService wires the payment flow. events may be nil, in which case
// redelivered webhooks are filtered only by the order store.
func NewPaymentService(
	catalog ProductCatalog,
	orders repository.OrderRepository,
	gateway PaymentGateway,
	events cache.EventLog,
	publisher OrderEventPublisher,
	cur currency.Unit,
	logger *slog.Logger) *PaymentService {

	return &PaymentService{
		catalog:   catalog,
		orders:    orders,
		gateway:   gateway,
		events:    events,
		publisher: publisher,
		currency:  cur,
		logger:    logger,
		now:       time.Now,
	}
}

// currencyCode is the lower-case ISO code Stripe expects.
func (s *PaymentService) currencyCode() string {
	return strings.ToLower(s.currency.String())
}
