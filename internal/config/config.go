package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/text/currency"
)

type Config struct {
	Env      string
	HTTPPort string

	MongoURI      string
	MongoDatabase string

	// RedisAddr empty disables the product cache and webhook dedupe.
	RedisAddr       string
	RedisPassword   string
	ProductCacheTTL time.Duration
	WebhookEventTTL time.Duration

	// KafkaBrokers empty disables order-paid events.
	KafkaBrokers        []string
	KafkaOrderPaidTopic string

	StripeSecretKey     string
	StripeWebhookSecret string
	Currency            currency.Unit

	JWTSecret string

	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "development")
	v.SetDefault("http_port", "5000")
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_db_name", "ecommerce")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("product_cache_ttl", time.Minute)
	v.SetDefault("webhook_event_ttl", 72*time.Hour)
	v.SetDefault("kafka_brokers", "")
	v.SetDefault("kafka_order_paid_topic", "order-paid")
	v.SetDefault("payment_currency", "inr")
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("max_request_body_size", 1<<20)
}

// Load reads configuration from the environment, optionally layered over
// the file named by CONFIG_FILE.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	// REDIS_ADDR= and friends must be able to switch a component off
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		Env:                 v.GetString("app_env"),
		HTTPPort:            v.GetString("http_port"),
		MongoURI:            v.GetString("mongo_uri"),
		MongoDatabase:       v.GetString("mongo_db_name"),
		RedisAddr:           v.GetString("redis_addr"),
		RedisPassword:       v.GetString("redis_password"),
		ProductCacheTTL:     v.GetDuration("product_cache_ttl"),
		WebhookEventTTL:     v.GetDuration("webhook_event_ttl"),
		KafkaBrokers:        splitList(v.GetString("kafka_brokers")),
		KafkaOrderPaidTopic: v.GetString("kafka_order_paid_topic"),
		StripeSecretKey:     v.GetString("stripe_secret_key"),
		StripeWebhookSecret: v.GetString("stripe_webhook_secret"),
		JWTSecret:           v.GetString("jwt_secret"),
		RequestTimeout:      v.GetDuration("request_timeout"),
		ShutdownTimeout:     v.GetDuration("shutdown_timeout"),
		MaxRequestBodySize:  v.GetInt64("max_request_body_size"),
	}

	unit, err := currency.ParseISO(strings.ToUpper(v.GetString("payment_currency")))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYMENT_CURRENCY %q: %w", v.GetString("payment_currency"), err)
	}
	cfg.Currency = unit

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.StripeSecretKey == "" {
		errs = append(errs, errors.New("STRIPE_SECRET_KEY is required"))
	}
	if c.StripeWebhookSecret == "" {
		errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.MaxRequestBodySize <= 0 {
		errs = append(errs, errors.New("MAX_REQUEST_BODY_SIZE must be positive"))
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
