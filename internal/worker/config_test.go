package worker

import (
	"reflect"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("NEXTFINANCE_API_URL", "http://localhost:8080")
	t.Setenv("PIPELINE_API_KEY", "key")
	t.Setenv("REQUEST_TIMEOUT", "")
	t.Setenv("JOB_MAX_ATTEMPTS", "")
	t.Setenv("JOBS", "")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", cfg.RequestTimeout)
	}
	if cfg.MaxAttempts != 2 {
		t.Errorf("expected 2 attempts, got %d", cfg.MaxAttempts)
	}
	if !reflect.DeepEqual(cfg.Jobs, []string{JobRecurring, JobBudgetAlerts}) {
		t.Errorf("unexpected jobs %v", cfg.Jobs)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("JOB_MAX_ATTEMPTS", "4")
	t.Setenv("JOBS", " Budget-Alerts ,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RequestTimeout != 5*time.Second || cfg.MaxAttempts != 4 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Jobs, []string{JobBudgetAlerts}) {
		t.Errorf("unexpected jobs %v", cfg.Jobs)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string][2]string{
		"missing url":       {"NEXTFINANCE_API_URL", ""},
		"missing key":       {"PIPELINE_API_KEY", ""},
		"bad timeout":       {"REQUEST_TIMEOUT", "soon"},
		"negative timeout":  {"REQUEST_TIMEOUT", "-1s"},
		"zero attempts":     {"JOB_MAX_ATTEMPTS", "0"},
		"non-numeric tries": {"JOB_MAX_ATTEMPTS", "many"},
		"unknown job":       {"JOBS", "recurring,snapshots"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(env[0], env[1])
			if _, err := LoadConfig(); err == nil {
				t.Errorf("expected error for %s=%q", env[0], env[1])
			}
		})
	}
}
