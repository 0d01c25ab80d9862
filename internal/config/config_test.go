package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/mohammadpnp/catalog-import/internal/config"
	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/catalog")
	t.Setenv("IMPORT_BATCH_SIZE", "")
	t.Setenv("IMPORT_MODE", "")
	t.Setenv("IMPORT_SANITIZE", "")
	t.Setenv("IMPORT_RETRY_BACKOFF", "")
	t.Setenv("PORT", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("unexpected port: %s", cfg.Port)
	}
	if cfg.ImportBatchSize != catalog.DefaultBatchSize {
		t.Fatalf("unexpected batch size: %d", cfg.ImportBatchSize)
	}
	if cfg.ImportMode != catalog.ModeDuplicate {
		t.Fatalf("unexpected mode: %s", cfg.ImportMode)
	}
	if cfg.ImportRetryBackoff != 500*time.Millisecond {
		t.Fatalf("unexpected backoff: %s", cfg.ImportRetryBackoff)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/catalog")
	t.Setenv("IMPORT_BATCH_SIZE", "999999")
	t.Setenv("IMPORT_MODE", "update")
	t.Setenv("IMPORT_SANITIZE", "reject")
	t.Setenv("IMPORT_RETRY_BACKOFF", "50ms")
	t.Setenv("APP_ENV", "production")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.ImportBatchSize != catalog.MaxBatchSize {
		t.Fatalf("expected batch size clamp, got %d", cfg.ImportBatchSize)
	}
	if cfg.ImportMode != catalog.ModeUpdate || cfg.ImportSanitize != catalog.SanitizeReject {
		t.Fatalf("unexpected modes: %s %s", cfg.ImportMode, cfg.ImportSanitize)
	}
	if cfg.ImportRetryBackoff != 50*time.Millisecond {
		t.Fatalf("unexpected backoff: %s", cfg.ImportRetryBackoff)
	}
	if !cfg.IsProduction() {
		t.Fatal("expected production")
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := config.Load(); !errors.Is(err, config.ErrMissingDatabaseURL) {
		t.Fatalf("expected ErrMissingDatabaseURL, got %v", err)
	}
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/catalog")
	t.Setenv("IMPORT_MODE", "merge")

	if _, err := config.Load(); !errors.Is(err, catalog.ErrInvalidImportMode) {
		t.Fatalf("expected ErrInvalidImportMode, got %v", err)
	}
}
