package repository

import (
	"context"
	"errors"
	"time"

	"github.com/haripatel07/ecommerce-backend/internal/domain"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrOrderAlreadyPaid = errors.New("order already paid")
	// ErrPaymentMismatch means the intent belongs to an unpaid order but the
	// paid amount or currency differs from what the order was priced at.
	ErrPaymentMismatch = errors.New("payment does not match order")
)

// ProductRepository is the read side of the catalog the payment flow needs.
type ProductRepository interface {
	FindByIDs(ctx context.Context, ids []string) ([]*domain.Product, error)
}

type OrderRepository interface {
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
	// AttachPaymentIntent records an issued intent on an unpaid order. Earlier
	// intents stay valid until the order is paid.
	AttachPaymentIntent(ctx context.Context, orderID string, intent domain.OrderPaymentIntent) error
	// MarkPaid applies the Unpaid -> Paid transition atomically for the order
	// that issued intentID, provided result carries the amount and currency
	// the intent was issued for. It returns ErrOrderAlreadyPaid when the order
	// was paid before and ErrPaymentMismatch when amount or currency differ.
	MarkPaid(ctx context.Context, intentID string, result domain.PaymentResult, paidAt time.Time) (*domain.Order, error)
}
