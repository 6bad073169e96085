package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_DRIVER", "JWT_EXPIRES_IN", "CACHE_MAX_COST", "BUDGET_ALERT_THRESHOLD", "EMAIL_FROM"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.DBDriver != "postgres" {
		t.Errorf("expected default driver postgres, got %s", cfg.DBDriver)
	}
	if cfg.JWTExpirationDur != 24*time.Hour {
		t.Errorf("expected 24h token lifetime, got %s", cfg.JWTExpirationDur)
	}
	if cfg.BudgetAlertThreshold != 80 {
		t.Errorf("expected alert threshold 80, got %g", cfg.BudgetAlertThreshold)
	}
	if cfg.EmailFrom != "NextFinance App <onboarding@resend.dev>" {
		t.Errorf("unexpected sender %q", cfg.EmailFrom)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("JWT_EXPIRES_IN", "15m")
	t.Setenv("CACHE_MAX_COST", "4096")
	t.Setenv("BUDGET_ALERT_THRESHOLD", "90")

	cfg, _ := Load()
	if cfg.DBDriver != "sqlite" {
		t.Errorf("expected sqlite, got %s", cfg.DBDriver)
	}
	if cfg.JWTExpirationDur != 15*time.Minute {
		t.Errorf("expected 15m, got %s", cfg.JWTExpirationDur)
	}
	if cfg.CacheMaxCost != 4096 {
		t.Errorf("expected 4096, got %d", cfg.CacheMaxCost)
	}
	if cfg.BudgetAlertThreshold != 90 {
		t.Errorf("expected 90, got %g", cfg.BudgetAlertThreshold)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("JWT_EXPIRES_IN", "soon")
	t.Setenv("CACHE_MAX_COST", "-1")
	t.Setenv("BUDGET_ALERT_THRESHOLD", "150")

	cfg, _ := Load()
	if cfg.JWTExpirationDur != 24*time.Hour {
		t.Errorf("expected fallback 24h, got %s", cfg.JWTExpirationDur)
	}
	if cfg.CacheMaxCost != 1<<20 {
		t.Errorf("expected fallback cost, got %d", cfg.CacheMaxCost)
	}
	if cfg.BudgetAlertThreshold != 80 {
		t.Errorf("expected fallback threshold, got %g", cfg.BudgetAlertThreshold)
	}
}
