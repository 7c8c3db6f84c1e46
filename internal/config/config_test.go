package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "WEBHOOK_SECRET", "QUEUE_WORKERS", "QUEUE_CAPACITY"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Environment != "development" {
		t.Errorf("Environment = %q", cfg.Environment)
	}
	if cfg.QueueWorkers != 4 || cfg.QueueCapacity != 256 {
		t.Errorf("queue config = %d/%d", cfg.QueueWorkers, cfg.QueueCapacity)
	}
	if cfg.WebhookSecret == "" {
		t.Error("WebhookSecret default missing")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("WEBHOOK_SECRET", "s3cret")
	t.Setenv("QUEUE_WORKERS", "8")

	cfg := Load()
	if cfg.Environment != "production" {
		t.Errorf("Environment = %q", cfg.Environment)
	}
	if cfg.WebhookSecret != "s3cret" {
		t.Errorf("WebhookSecret = %q", cfg.WebhookSecret)
	}
	if cfg.QueueWorkers != 8 {
		t.Errorf("QueueWorkers = %d", cfg.QueueWorkers)
	}
}

func TestLoadMalformedIntFallsBack(t *testing.T) {
	t.Setenv("QUEUE_WORKERS", "not-a-number")

	cfg := Load()
	if cfg.QueueWorkers != 4 {
		t.Errorf("QueueWorkers = %d, want default 4", cfg.QueueWorkers)
	}
}
