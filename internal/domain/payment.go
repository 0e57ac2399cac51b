package domain

import "time"

// CartItem is client supplied and untrusted.
type CartItem struct {
	ProductID string `json:"id"`
	Quantity  int64  `json:"quantity"`
}

type PaymentIntent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
}

type PaymentIntentRequest struct {
	Amount   int64
	Currency string
	Metadata map[string]string
}

type WebhookEventType string

const (
	EventPaymentIntentSucceeded WebhookEventType = "payment_intent.succeeded"
	EventPaymentIntentFailed    WebhookEventType = "payment_intent.payment_failed"
)

// WebhookEvent is only produced after the gateway signature was verified.
// PaymentIntent is nil when the event does not carry a payment intent object.
type WebhookEvent struct {
	ID            string
	Type          WebhookEventType
	Created       time.Time
	PaymentIntent *WebhookPaymentIntent
}

type WebhookPaymentIntent struct {
	ID             string
	Status         string
	Amount         int64
	Currency       string
	ReceiptEmail   string
	FailureMessage string
}

// OrderPaidEvent is published once per Unpaid -> Paid transition.
type OrderPaidEvent struct {
	EventID         string    `json:"event_id"`
	OrderID         string    `json:"order_id"`
	UserID          string    `json:"user_id"`
	PaymentIntentID string    `json:"payment_intent_id"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	PaidAt          time.Time `json:"paid_at"`
}
