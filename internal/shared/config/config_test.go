package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENV", "")
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.Env != "dev" {
		t.Fatalf("expected env dev, got %q", cfg.Env)
	}
	if cfg.ObjectStoreType != "local" {
		t.Fatalf("expected local store, got %q", cfg.ObjectStoreType)
	}
	if cfg.JWTTTL != 24*time.Hour {
		t.Fatalf("expected 24h ttl, got %s", cfg.JWTTTL)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Fatalf("expected 10MB upload limit, got %d", cfg.MaxUploadBytes)
	}
	if !cfg.IsDevLike() {
		t.Fatalf("expected dev-like config")
	}
	if cfg.WorkerConcurrency != 4 || cfg.AuditVisibilityTimeout != 5*time.Minute {
		t.Fatalf("unexpected worker defaults: %d %s", cfg.WorkerConcurrency, cfg.AuditVisibilityTimeout)
	}
}

func TestLoadOverridesAndNormalizes(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENV", "Prod")
	t.Setenv("DATABASE_URL", "postgres://localhost/docflow")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("OBJECT_STORE", "S3")
	t.Setenv("S3_BUCKET", "docs")
	t.Setenv("CORS_ALLOW_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("JWT_TTL", "90m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected production, got %q", cfg.Env)
	}
	if cfg.ObjectStoreType != "s3" {
		t.Fatalf("expected s3, got %q", cfg.ObjectStoreType)
	}
	if len(cfg.CORSAllowOrigin) != 2 || cfg.CORSAllowOrigin[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %#v", cfg.CORSAllowOrigin)
	}
	if cfg.JWTTTL != 90*time.Minute {
		t.Fatalf("expected 90m ttl, got %s", cfg.JWTTTL)
	}
}

func TestValidateRequiresSecretsInProduction(t *testing.T) {
	cfg := Config{Env: "production", DatabaseURL: "postgres://x"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing JWT_SECRET error")
	}
	cfg.JWTSecret = "secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Config{Env: "dev"}).Validate(); err != nil {
		t.Fatalf("dev config should validate: %v", err)
	}
}
