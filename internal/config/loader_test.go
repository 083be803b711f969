package config

import (
	"testing"
	"time"
)

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.ServerAddr != ":8080" {
		t.Fatalf("unexpected server addr %q", cfg.ServerAddr)
	}
	if cfg.Import.BatchSize != 1000 || cfg.Import.CheckpointRows != 100 {
		t.Fatalf("unexpected import defaults: %+v", cfg.Import)
	}
	if cfg.Webhook.Timeout != 10*time.Second {
		t.Fatalf("unexpected webhook timeout %v", cfg.Webhook.Timeout)
	}
	if cfg.Database.DBName != "catalog" {
		t.Fatalf("unexpected database name %q", cfg.Database.DBName)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("CATALOG_SERVER_ADDR", ":9090")
	t.Setenv("CATALOG_DATABASE_HOST", "db.internal")
	t.Setenv("CATALOG_IMPORT_BATCH_SIZE", "250")
	t.Setenv("CATALOG_WEBHOOK_TIMEOUT", "3s")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.ServerAddr != ":9090" {
		t.Fatalf("expected env server addr, got %q", cfg.ServerAddr)
	}
	if cfg.Database.Host != "db.internal" {
		t.Fatalf("expected env database host, got %q", cfg.Database.Host)
	}
	if cfg.Import.BatchSize != 250 {
		t.Fatalf("expected env batch size 250, got %d", cfg.Import.BatchSize)
	}
	if cfg.Webhook.Timeout != 3*time.Second {
		t.Fatalf("expected env webhook timeout 3s, got %v", cfg.Webhook.Timeout)
	}
	// Untouched keys keep their defaults.
	if cfg.Import.CheckpointRows != 100 {
		t.Fatalf("unexpected checkpoint interval %d", cfg.Import.CheckpointRows)
	}
}
