package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/haripatel07/ecommerce-backend/internal/domain"
	"github.com/haripatel07/ecommerce-backend/internal/repository"
)

type CreatePaymentIntentRequest struct {
	Items []domain.CartItem
	// OrderID links the intent to an unpaid order owned by the caller. The
	// order's own items are priced and Items is ignored.
	OrderID string
}

// CreatePaymentIntent prices the cart from the catalog and opens an intent
// for that amount in the deployment currency. Nothing reaches the gateway
// unless the amount is valid.
func (s *PaymentService) CreatePaymentIntent(
	ctx context.Context,
	userID string,
	req CreatePaymentIntentRequest) (*domain.PaymentIntent, error) {

	items := req.Items
	metadata := map[string]string{"user_id": userID}

	if req.OrderID != "" {
		order, err := s.orderForPayment(ctx, userID, req.OrderID)
		if err != nil {
			return nil, err
		}
		items = cartFromOrder(order)
		metadata["order_id"] = order.ID
	}

	amount, err := s.CalculateAmount(ctx, items)
	if err != nil {
		return nil, err
	}

	intent, err := s.gateway.CreateIntent(ctx, domain.PaymentIntentRequest{
		Amount:   amount,
		Currency: s.currencyCode(),
		Metadata: metadata,
	})
	if err != nil {
		s.logger.Error("failed to create payment intent",
			"user_id", userID,
			"amount", amount,
			"error", err)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	if req.OrderID != "" {
		err := s.orders.AttachPaymentIntent(ctx, req.OrderID, domain.OrderPaymentIntent{
			ID:        intent.ID,
			Amount:    amount,
			Currency:  s.currencyCode(),
			CreatedAt: s.now().UTC(),
		})
		if err != nil {
			if errors.Is(err, repository.ErrOrderAlreadyPaid) {
				return nil, ErrOrderAlreadyPaid
			}
			if errors.Is(err, repository.ErrOrderNotFound) {
				return nil, ErrOrderNotFound
			}
			return nil, fmt.Errorf("failed to attach payment intent: %w", err)
		}
	}

	s.logger.Info("payment intent created",
		"intent_id", intent.ID,
		"order_id", req.OrderID,
		"amount", amount,
		"currency", s.currencyCode())

	return intent, nil
}

// orderForPayment hides orders owned by someone else behind ErrOrderNotFound.
func (s *PaymentService) orderForPayment(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	if order.IsPaid {
		return nil, ErrOrderAlreadyPaid
	}
	return order, nil
}

func cartFromOrder(order *domain.Order) []domain.CartItem {
	items := make([]domain.CartItem, len(order.Items))
	for i, item := range order.Items {
		items[i] = domain.CartItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return items
}
