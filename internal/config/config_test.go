package config

import (
	"path/filepath"
	"slices"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("DATA_DIR", "var")
	cfg, err := Parse()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DatabasePath != filepath.Join("var", "invites.db") {
		t.Fatalf("database path = %q", cfg.DatabasePath)
	}
	if cfg.SendConcurrency != 8 || cfg.PublicOrigin != "http://localhost:8080" || cfg.DefaultCountryCode != "972" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if !slices.Equal(cfg.AllowedOrigins, []string{"*"}) {
		t.Fatalf("origins = %v", cfg.AllowedOrigins)
	}
	if !cfg.OTelEnabled || cfg.OTelEndpoint != "" {
		t.Fatalf("tracing = %v %q", cfg.OTelEnabled, cfg.OTelEndpoint)
	}
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/tmp/x.db")
	t.Setenv("SEND_CONCURRENCY", "3")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("OTEL_ENDPOINT", "http://collector:4318")
	t.Setenv("OTEL_ENABLED", "false")

	cfg, err := Parse()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DatabasePath != "/tmp/x.db" || cfg.SendConcurrency != 3 || len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.OTelEnabled || cfg.OTelEndpoint != "http://collector:4318" {
		t.Fatalf("tracing = %v %q", cfg.OTelEnabled, cfg.OTelEndpoint)
	}
	if cfg.Logger().GetLevel() != zerolog.DebugLevel {
		t.Fatalf("level = %s", cfg.Logger().GetLevel())
	}
}

func TestParseRejectsZeroConcurrency(t *testing.T) {
	t.Setenv("SEND_CONCURRENCY", "0")
	if _, err := Parse(); err == nil {
		t.Fatal("expected error")
	}
}
