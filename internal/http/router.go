package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	JWTSecret          string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	// RequestLogging enables one log line per request.
	RequestLogging bool
}

type Services interface {
	PaymentService
	OrderService
}

func NewRouter(svc Services, cfg RouterConfig, logger *slog.Logger) http.Handler {
	payments := NewPaymentsHandler(svc, cfg.RequestTimeout, cfg.MaxRequestBodySize, logger)
	orders := NewOrdersHandler(svc, cfg.RequestTimeout, logger)
	started := time.Now()

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	if cfg.RequestLogging {
		r.Use(SlogRequestLogger(logger))
	}
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/api", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("API is running..."))
	})
	r.Get("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"uptime": time.Since(started).Seconds(),
		})
	})

	// authenticated by the Stripe-Signature header, not a bearer token
	r.Post("/api/payments/stripe-webhook", payments.StripeWebhook)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Compress(5))
		r.Use(AuthMiddleware(cfg.JWTSecret))

		r.Post("/api/payments/create-payment-intent", payments.CreatePaymentIntent)
		r.Route("/api/orders", func(r chi.Router) {
			r.Get("/", orders.ListOrders)
			r.Get("/{order_id}", orders.GetOrder)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "not_found", "Not Found - "+r.URL.Path)
	})

	return r
}
