package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Fatalf("expected default port, got %q", cfg.Server.Port)
	}
	if cfg.Store.Backend != "memory" {
		t.Fatalf("expected memory backend, got %q", cfg.Store.Backend)
	}
	if cfg.Checkout.TaxRate != 0.08 {
		t.Fatalf("expected default tax rate, got %v", cfg.Checkout.TaxRate)
	}
	if len(cfg.Checkout.APIVersions) != 1 || cfg.Checkout.APIVersions[0] != "2026-01-30" {
		t.Fatalf("unexpected api versions: %v", cfg.Checkout.APIVersions)
	}
	if cfg.Idempotency.Header != "Idempotency-Key" {
		t.Fatalf("unexpected idempotency header: %q", cfg.Idempotency.Header)
	}
	if cfg.Idempotency.TTL != 24*time.Hour {
		t.Fatalf("unexpected idempotency ttl: %v", cfg.Idempotency.TTL)
	}
}

func TestLoadEnvMapOverrides(t *testing.T) {
	cfg, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(""), WithEnvMap(map[string]string{
		"ACP_SERVER_PORT":           "9090",
		"ACP_CHECKOUT_TAX_RATE":     "0.1",
		"ACP_CHECKOUT_API_VERSIONS": "2026-01-30, 2026-06-01",
		"ACP_AUTH_API_KEYS":         "key_a,key_b",
		"ACP_WEBHOOK_URL":           "https://merchant.example/webhooks",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Fatalf("expected override port, got %q", cfg.Server.Port)
	}
	if cfg.Checkout.TaxRate != 0.1 {
		t.Fatalf("expected tax rate override, got %v", cfg.Checkout.TaxRate)
	}
	if len(cfg.Checkout.APIVersions) != 2 {
		t.Fatalf("expected 2 api versions, got %v", cfg.Checkout.APIVersions)
	}
	if len(cfg.Auth.APIKeys) != 2 || cfg.Auth.APIKeys[1] != "key_b" {
		t.Fatalf("unexpected api keys: %v", cfg.Auth.APIKeys)
	}
	if cfg.Webhooks.URL != "https://merchant.example/webhooks" {
		t.Fatalf("unexpected webhook url: %q", cfg.Webhooks.URL)
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := "ACP_SERVER_PORT=7070\nexport ACP_CHECKOUT_CURRENCY=\"eur\"\n# comment\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed writing env file: %v", err)
	}

	cfg, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(envPath))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Fatalf("expected dotenv port, got %q", cfg.Server.Port)
	}
	if cfg.Checkout.Currency != "eur" {
		t.Fatalf("expected dotenv currency, got %q", cfg.Checkout.Currency)
	}
}

func TestLoadEnvMapTakesPrecedenceOverDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("ACP_SERVER_PORT=7070\n"), 0o600); err != nil {
		t.Fatalf("failed writing env file: %v", err)
	}

	cfg, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(envPath), WithEnvMap(map[string]string{
		"ACP_SERVER_PORT": "6060",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "6060" {
		t.Fatalf("expected env map to win, got %q", cfg.Server.Port)
	}
}

func TestLoadValidatesFirestoreProject(t *testing.T) {
	_, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(""), WithEnvMap(map[string]string{
		"ACP_STORE_BACKEND": "firestore",
	}))
	if err == nil {
		t.Fatal("expected validation error")
	}
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if !strings.Contains(validationErr.Error(), "Store.ProjectID") {
		t.Fatalf("expected Store.ProjectID in error, got %v", validationErr)
	}
}

func TestLoadRejectsInvalidTaxRate(t *testing.T) {
	_, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(""), WithEnvMap(map[string]string{
		"ACP_CHECKOUT_TAX_RATE": "1.5",
	}))
	if err == nil {
		t.Fatal("expected validation error for tax rate >= 1")
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	_, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(""), WithEnvMap(map[string]string{
		"ACP_STORE_BACKEND": "postgres",
	}))
	if err == nil {
		t.Fatal("expected validation error for unknown backend")
	}
}
