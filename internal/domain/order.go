package domain

import "time"

type OrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

type PaymentResult struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	Amount       int64     `json:"amount"`
	Currency     string    `json:"currency"`
	EventID      string    `json:"eventId"`
	ReceiptEmail string    `json:"receiptEmail,omitempty"`
	UpdateTime   time.Time `json:"updateTime"`
}

// OrderPaymentIntent is an intent issued for an order, with the amount and
// currency the order was priced at when it was issued.
type OrderPaymentIntent struct {
	ID        string    `json:"id"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"createdAt"`
}

// Order is mutated by the payment flow only through the Unpaid -> Paid
// transition. PaidAt and PaymentResult are set iff IsPaid. PaymentIntentID
// is the most recently issued of PaymentIntents.
type Order struct {
	ID              string
	UserID          string
	Items           []OrderItem
	PaymentIntentID string
	PaymentIntents  []OrderPaymentIntent
	IsPaid          bool
	PaidAt          *time.Time
	PaymentResult   *PaymentResult
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
