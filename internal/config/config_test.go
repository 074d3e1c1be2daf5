package config

import (
	"testing"
	"time"
)

func TestLoadDefaultsInDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Network != "Dolphin" || cfg.WalletBackend != "extension" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.RefreshInterval != time.Second || cfg.IdempotencyTTL != 24*time.Hour {
		t.Fatalf("unexpected durations %+v", cfg)
	}
	if cfg.FeeEstimate.IntPart() != 50 || cfg.SuggestedMinFee.IntPart() != 150 {
		t.Fatalf("unexpected fee policy %s / %s", cfg.FeeEstimate, cfg.SuggestedMinFee)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %s", cfg.Address())
	}
}

func TestLoadRequiresStoresOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	if _, err := Load(); err == nil {
		t.Fatal("expected DATABASE_URL error")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/shieldpay")
	t.Setenv("REDIS_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected REDIS_URL error")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("PORT", ":9090")
	t.Setenv("FEE_ESTIMATE", "12.5")
	t.Setenv("BALANCE_REFRESH_INTERVAL", "250ms")
	t.Setenv("IDEMPOTENCY_TTL_SECONDS", "60")
	t.Setenv("WALLET_BACKEND", "MANAGED")
	t.Setenv("MIN_WALLET_VERSION", "1.2.0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Address() != ":9090" || cfg.RefreshInterval != 250*time.Millisecond || cfg.IdempotencyTTL != time.Minute {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.FeeEstimate.String() != "12.5" || cfg.WalletBackend != "managed" || cfg.MinWalletVersion != "1.2.0" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	for key, value := range map[string]string{
		"FEE_ESTIMATE":             "-1",
		"BALANCE_REFRESH_INTERVAL": "soon",
		"WALLET_BACKEND":           "hardware",
		"SHUTDOWN_TIMEOUT_SECONDS": "ten",
	} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}
