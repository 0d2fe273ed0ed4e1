package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.MinQualityScore != 0.7 {
		t.Errorf("MinQualityScore = %v, want 0.7", cfg.MinQualityScore)
	}
	if cfg.MinNuditySafeScore != 0.99 {
		t.Errorf("MinNuditySafeScore = %v, want 0.99", cfg.MinNuditySafeScore)
	}
	if cfg.LLM.Provider != "openrouter" {
		t.Errorf("LLM.Provider = %q, want openrouter", cfg.LLM.Provider)
	}
	if cfg.Generation.SafeFallbackModel != "imagen" {
		t.Errorf("SafeFallbackModel = %q, want imagen", cfg.Generation.SafeFallbackModel)
	}
	if cfg.Cache.TTLHours != 24 {
		t.Errorf("Cache.TTLHours = %d, want 24", cfg.Cache.TTLHours)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MIN_QUALITY_SCORE", "0.85")
	t.Setenv("UNSPLASH_ACCESS_KEY", "test-key")
	t.Setenv("LLM_PROVIDER", "groq")

	cfg, err := LoadFrom(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.MinQualityScore != 0.85 {
		t.Errorf("MinQualityScore = %v, want 0.85", cfg.MinQualityScore)
	}
	if cfg.UnsplashAccessKey != "test-key" {
		t.Errorf("UnsplashAccessKey = %q, want test-key", cfg.UnsplashAccessKey)
	}
	if cfg.LLM.Provider != "groq" {
		t.Errorf("LLM.Provider = %q, want groq", cfg.LLM.Provider)
	}
}

func TestLoadInvalidFloatFallsBack(t *testing.T) {
	t.Setenv("MIN_PRESENTATION_SCORE", "not-a-number")

	cfg, err := LoadFrom(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MinPresentationScore != 0.6 {
		t.Errorf("MinPresentationScore = %v, want default 0.6", cfg.MinPresentationScore)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
server:
  addr: ":9090"
  public_base_url: "https://img.example.com"
generation:
  flux_model: "flux-dev"
  poll_attempts: 4
scoring:
  concurrency: 2
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("Addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.Server.PublicBaseURL != "https://img.example.com" {
		t.Errorf("PublicBaseURL = %q", cfg.Server.PublicBaseURL)
	}
	if cfg.Generation.FluxModel != "flux-dev" {
		t.Errorf("FluxModel = %q, want flux-dev", cfg.Generation.FluxModel)
	}
	if cfg.Generation.PollAttempts != 4 {
		t.Errorf("PollAttempts = %d, want 4", cfg.Generation.PollAttempts)
	}
	if cfg.Scoring.Concurrency != 2 {
		t.Errorf("Scoring.Concurrency = %d, want 2", cfg.Scoring.Concurrency)
	}
	// Untouched sections keep defaults.
	if cfg.Generation.Width != 1024 {
		t.Errorf("Width = %d, want 1024", cfg.Generation.Width)
	}
}
