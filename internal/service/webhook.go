package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/haripatel07/ecommerce-backend/internal/domain"
	"github.com/haripatel07/ecommerce-backend/internal/repository"
)

// HandleWebhook verifies a gateway delivery and applies it to order state.
// A nil return means the delivery should be acknowledged. Only signature
// failures and order store outages are reported, the latter so the gateway
// redelivers.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.VerifyWebhook(payload, signature)
	if err != nil {
		s.logger.Warn("rejected webhook", "error", err)
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	logger := s.logger.With("event_id", event.ID, "event_type", string(event.Type))

	if s.alreadyHandled(ctx, logger, event.ID) {
		logger.Info("duplicate webhook delivery ignored")
		return nil
	}

	switch event.Type {
	case domain.EventPaymentIntentSucceeded:
		if err := s.applyPaymentSucceeded(ctx, logger, event); err != nil {
			return err
		}
	case domain.EventPaymentIntentFailed:
		s.logPaymentFailed(logger, event)
	default:
		logger.Debug("unhandled webhook event type")
	}

	if s.events != nil && event.ID != "" {
		if err := s.events.Remember(ctx, event.ID); err != nil {
			logger.Warn("failed to remember webhook event", "error", err)
		}
	}
	return nil
}

func (s *PaymentService) alreadyHandled(ctx context.Context, logger *slog.Logger, eventID string) bool {
	if s.events == nil || eventID == "" {
		return false
	}
	seen, err := s.events.Seen(ctx, eventID)
	if err != nil {
		// the order store still rejects a second transition
		logger.Warn("webhook event log unavailable", "error", err)
		return false
	}
	return seen
}

func (s *PaymentService) applyPaymentSucceeded(ctx context.Context, logger *slog.Logger, event *domain.WebhookEvent) error {
	pi := event.PaymentIntent
	if pi == nil || pi.ID == "" {
		logger.Warn("payment succeeded event without payment intent")
		return nil
	}
	logger = logger.With("intent_id", pi.ID)

	paidAt := s.now().UTC()
	order, err := s.orders.MarkPaid(ctx, pi.ID, domain.PaymentResult{
		ID:           pi.ID,
		Status:       pi.Status,
		Amount:       pi.Amount,
		Currency:     strings.ToLower(pi.Currency),
		EventID:      event.ID,
		ReceiptEmail: pi.ReceiptEmail,
		UpdateTime:   event.Created,
	}, paidAt)

	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		logger.Warn("no order references payment intent")
		return nil
	case errors.Is(err, repository.ErrOrderAlreadyPaid):
		logger.Info("order already paid")
		return nil
	case errors.Is(err, repository.ErrPaymentMismatch):
		// redelivery cannot change the amount; leave the order unpaid for review
		logger.Error("payment does not match order, order left unpaid",
			"amount", pi.Amount,
			"currency", pi.Currency)
		return nil
	case err != nil:
		logger.Error("failed to mark order paid", "error", err)
		return fmt.Errorf("failed to mark order paid: %w", err)
	}

	logger.Info("order marked paid", "order_id", order.ID, "amount", pi.Amount)
	if s.publisher == nil {
		return nil
	}

	err = s.publisher.PublishOrderPaid(ctx, domain.OrderPaidEvent{
		EventID:         event.ID,
		OrderID:         order.ID,
		UserID:          order.UserID,
		PaymentIntentID: pi.ID,
		Amount:          pi.Amount,
		Currency:        strings.ToLower(pi.Currency),
		PaidAt:          paidAt,
	})
	if err != nil {
		logger.Error("failed to publish order paid event", "order_id", order.ID, "error", err)
	}
	return nil
}

func (s *PaymentService) logPaymentFailed(logger *slog.Logger, event *domain.WebhookEvent) {
	if event.PaymentIntent == nil {
		logger.Warn("payment failed")
		return
	}
	logger.Warn("payment failed",
		"intent_id", event.PaymentIntent.ID,
		"reason", event.PaymentIntent.FailureMessage)
}
