package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile              = ".env"
	defaultPort                 = "8080"
	defaultReadTimeout          = 15 * time.Second
	defaultWriteTimeout         = 30 * time.Second
	defaultIdleTimeout          = 120 * time.Second
	defaultTaxRate              = 0.08
	defaultCurrency             = "usd"
	defaultAPIVersion           = "2026-01-30"
	defaultBaseURL              = "http://localhost:8080"
	defaultStoreBackend         = "memory"
	defaultWebhookTimeout       = 5 * time.Second
	defaultIdempotencyHeader    = "Idempotency-Key"
	defaultIdempotencyTTL       = 24 * time.Hour
	defaultIdempotencyInterval  = time.Hour
	defaultIdempotencyBatchSize = 200
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Store       StoreConfig
	Checkout    CheckoutConfig
	Auth        AuthConfig
	Stripe      StripeConfig
	Webhooks    WebhookConfig
	Events      EventsConfig
	Idempotency IdempotencyConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// RateLimit caps requests per caller per RateLimitWindow. Zero disables it.
	RateLimit       int
	RateLimitWindow time.Duration
}

// StoreConfig selects and parameterises the persistence backend.
type StoreConfig struct {
	Backend      string
	ProjectID    string
	EmulatorHost string
}

// CheckoutConfig holds merchant-facing checkout behaviour.
type CheckoutConfig struct {
	Currency       string
	TaxRate        float64
	BaseURL        string
	TermsOfUseURL  string
	APIVersions    []string
	PaymentMethods []string
}

// AuthConfig holds inbound request authentication settings.
type AuthConfig struct {
	APIKeys         []string
	SignatureSecret string
}

// StripeConfig collects PSP credentials.
type StripeConfig struct {
	APIKey string
}

// WebhookConfig configures outbound order event delivery.
type WebhookConfig struct {
	URL           string
	SigningSecret string
	Timeout       time.Duration
}

// EventsConfig configures the optional Pub/Sub order event stream.
type EventsConfig struct {
	Enabled   bool
	ProjectID string
	Topic     string
}

// IdempotencyConfig controls idempotency middleware behaviour.
type IdempotencyConfig struct {
	Header           string
	TTL              time.Duration
	CleanupInterval  time.Duration
	CleanupBatchSize int
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env overrides,
// and environment variables.
func Load(_ context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}

	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "ACP_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "ACP_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "ACP_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "ACP_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),

			RateLimit:       intWithDefault(lookup, "ACP_SERVER_RATE_LIMIT", 0),
			RateLimitWindow: durationWithDefault(lookup, "ACP_SERVER_RATE_LIMIT_WINDOW", time.Minute),
		},
		Store: StoreConfig{
			Backend:      strings.ToLower(stringWithDefault(lookup, "ACP_STORE_BACKEND", defaultStoreBackend)),
			ProjectID:    stringWithDefault(lookup, "ACP_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "ACP_FIRESTORE_EMULATOR_HOST", ""),
		},
		Checkout: CheckoutConfig{
			Currency:       strings.ToLower(stringWithDefault(lookup, "ACP_CHECKOUT_CURRENCY", defaultCurrency)),
			TaxRate:        floatWithDefault(lookup, "ACP_CHECKOUT_TAX_RATE", defaultTaxRate),
			BaseURL:        strings.TrimRight(stringWithDefault(lookup, "ACP_CHECKOUT_BASE_URL", defaultBaseURL), "/"),
			TermsOfUseURL:  stringWithDefault(lookup, "ACP_CHECKOUT_TERMS_URL", ""),
			APIVersions:    csvWithDefault(lookup, "ACP_CHECKOUT_API_VERSIONS", defaultAPIVersion),
			PaymentMethods: csvWithDefault(lookup, "ACP_CHECKOUT_PAYMENT_METHODS", "card"),
		},
		Auth: AuthConfig{
			APIKeys:         csvWithDefault(lookup, "ACP_AUTH_API_KEYS", ""),
			SignatureSecret: stringWithDefault(lookup, "ACP_AUTH_SIGNATURE_SECRET", ""),
		},
		Stripe: StripeConfig{
			APIKey: stringWithDefault(lookup, "ACP_STRIPE_API_KEY", ""),
		},
		Webhooks: WebhookConfig{
			URL:           stringWithDefault(lookup, "ACP_WEBHOOK_URL", ""),
			SigningSecret: stringWithDefault(lookup, "ACP_WEBHOOK_SIGNING_SECRET", ""),
			Timeout:       durationWithDefault(lookup, "ACP_WEBHOOK_TIMEOUT", defaultWebhookTimeout),
		},
		Events: EventsConfig{
			Enabled:   boolWithDefault(lookup, "ACP_EVENTS_ENABLED", false),
			ProjectID: stringWithDefault(lookup, "ACP_EVENTS_PROJECT_ID", ""),
			Topic:     stringWithDefault(lookup, "ACP_EVENTS_TOPIC", "order-events"),
		},
		Idempotency: IdempotencyConfig{
			Header:           stringWithDefault(lookup, "ACP_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:              durationWithDefault(lookup, "ACP_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
			CleanupInterval:  durationWithDefault(lookup, "ACP_IDEMPOTENCY_CLEANUP_INTERVAL", defaultIdempotencyInterval),
			CleanupBatchSize: intWithDefault(lookup, "ACP_IDEMPOTENCY_CLEANUP_BATCH", defaultIdempotencyBatchSize),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	switch cfg.Store.Backend {
	case "memory":
	case "firestore":
		if cfg.Store.ProjectID == "" {
			missing = append(missing, "Store.ProjectID")
		}
	default:
		missing = append(missing, "Store.Backend")
	}
	if cfg.Checkout.TaxRate < 0 || cfg.Checkout.TaxRate >= 1 {
		missing = append(missing, "Checkout.TaxRate")
	}
	if len(cfg.Checkout.APIVersions) == 0 {
		missing = append(missing, "Checkout.APIVersions")
	}
	if cfg.Events.Enabled && cfg.Events.ProjectID == "" {
		missing = append(missing, "Events.ProjectID")
	}
	if strings.TrimSpace(cfg.Idempotency.Header) == "" {
		missing = append(missing, "Idempotency.Header")
	}
	if cfg.Idempotency.TTL <= 0 {
		missing = append(missing, "Idempotency.TTL")
	}
	if cfg.Idempotency.CleanupInterval <= 0 {
		missing = append(missing, "Idempotency.CleanupInterval")
	}
	if cfg.Idempotency.CleanupBatchSize <= 0 {
		missing = append(missing, "Idempotency.CleanupBatchSize")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func floatWithDefault(lookup func(string) (string, bool), key string, fallback float64) float64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key, fallback string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		raw = fallback
	}
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
