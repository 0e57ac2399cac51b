package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/haripatel07/ecommerce-backend/internal/domain"
	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
)

type Config struct {
	SecretKey     string
	WebhookSecret string
	// BaseURL overrides the Stripe API endpoint (stripe-mock, tests).
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger

	// BreakerFailures consecutive upstream failures open the breaker for
	// BreakerTimeout. Zero values use 5 and 30s.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// StripeGateway wraps the Stripe API for intent creation and webhook
// verification. The client is constructed per deployment and injected.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	breaker       *gobreaker.CircuitBreaker[*stripe.PaymentIntent]
}

func NewStripeGateway(cfg Config) *StripeGateway {
	// retries are left to the caller; the webhook path relies on Stripe's own redelivery
	noRetries := int64(0)
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        cfg.HTTPClient,
		MaxNetworkRetries: &noRetries,
		LeveledLogger:     &leveledLogger{logger: cfg.Logger},
	}
	if cfg.BaseURL != "" {
		backendCfg.URL = stripe.String(cfg.BaseURL)
	}

	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	}

	return &StripeGateway{
		api:           client.New(cfg.SecretKey, backends),
		webhookSecret: cfg.WebhookSecret,
		breaker:       newBreaker(cfg),
	}
}

func newBreaker(cfg Config) *gobreaker.CircuitBreaker[*stripe.PaymentIntent] {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	timeout := cfg.BreakerTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return gobreaker.NewCircuitBreaker[*stripe.PaymentIntent](gobreaker.Settings{
		Name:        "stripe-payment-intents",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: isUpstreamHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			if cfg.Logger != nil {
				cfg.Logger.Warn("circuit breaker state changed",
					"breaker", name,
					"from", from.String(),
					"to", to.String())
			}
		},
	})
}

// isUpstreamHealthy treats request errors Stripe rejected on their merits
// (bad params, card declines) as healthy responses.
func isUpstreamHealthy(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.HTTPStatusCode >= 400 &&
			stripeErr.HTTPStatusCode < 500 &&
			stripeErr.HTTPStatusCode != http.StatusTooManyRequests
	}
	return false
}

func (g *StripeGateway) CreateIntent(ctx context.Context, req domain.PaymentIntentRequest) (*domain.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.breaker.Execute(func() (*stripe.PaymentIntent, error) {
		return g.api.PaymentIntents.New(params)
	})
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			return nil, fmt.Errorf("stripe create payment intent: status=%d type=%s code=%s: %s",
				stripeErr.HTTPStatusCode, stripeErr.Type, stripeErr.Code, stripeErr.Msg)
		}
		return nil, fmt.Errorf("stripe create payment intent: %w", err)
	}

	return &domain.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

// VerifyWebhook checks the Stripe-Signature header against the exact bytes
// Stripe sent. Nothing in payload is trusted before this returns nil.
func (g *StripeGateway) VerifyWebhook(payload []byte, signature string) (*domain.WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{
			Tolerance:                webhook.DefaultTolerance,
			IgnoreAPIVersionMismatch: true,
		})
	if err != nil {
		return nil, fmt.Errorf("stripe signature invalid: %w", err)
	}

	out := &domain.WebhookEvent{
		ID:      event.ID,
		Type:    domain.WebhookEventType(event.Type),
		Created: time.Unix(event.Created, 0).UTC(),
	}

	if event.Data == nil || len(event.Data.Raw) == 0 {
		return out, nil
	}
	if object, _ := event.Data.Object["object"].(string); object != "payment_intent" {
		return out, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		// verified but not decodable: leave PaymentIntent nil
		return out, nil
	}

	out.PaymentIntent = &domain.WebhookPaymentIntent{
		ID:           pi.ID,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		ReceiptEmail: pi.ReceiptEmail,
	}
	if pi.LastPaymentError != nil {
		out.PaymentIntent.FailureMessage = pi.LastPaymentError.Msg
	}
	return out, nil
}

type leveledLogger struct {
	logger *slog.Logger
}

func (l *leveledLogger) log(level slog.Level, format string, v ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Log(context.Background(), level, fmt.Sprintf(format, v...), slog.String("component", "stripe"))
}

func (l *leveledLogger) Debugf(format string, v ...interface{}) { l.log(slog.LevelDebug, format, v...) }
func (l *leveledLogger) Infof(format string, v ...interface{})  { l.log(slog.LevelInfo, format, v...) }
func (l *leveledLogger) Warnf(format string, v ...interface{})  { l.log(slog.LevelWarn, format, v...) }
func (l *leveledLogger) Errorf(format string, v ...interface{}) { l.log(slog.LevelError, format, v...) }
