// Package config loads service configuration from the environment and
// an optional config.yaml. Secrets come from env vars (or GCP Secret
// Manager when SECRET_MANAGER_PROJECT is set), structure from yaml.
package config

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath = "config.yaml"

	defaultAddr                = ":8080"
	defaultPublicBaseURL       = "http://localhost:8080"
	defaultErrorPlaceholderURL = "https://placehold.co/1024x1024?text=image+unavailable"

	defaultLLMProvider     = "openrouter"
	defaultExtractionModel = "google/gemini-2.0-flash-001"
	defaultPromptModel     = "anthropic/claude-3.5-haiku"

	defaultFluxModel        = "flux-2-pro"
	defaultGeminiImageModel = "gemini-2.5-flash-image"
	defaultSafeFallback     = "imagen"
	defaultImageWidth       = 1024
	defaultImageHeight      = 1024
	defaultPollAttempts     = 10

	defaultSearchPerPage      = 10
	defaultSearchTimeoutSec   = 15
	defaultScoringConcurrency = 4
	defaultScoringTimeoutSec  = 30
	defaultGenerateTimeoutSec = 120

	defaultMinPresentationScore = 0.6
	defaultMinQualityScore      = 0.7
	defaultMinNuditySafeScore   = 0.99

	defaultCacheTTLHours     = 24
	defaultCacheSweepMinutes = 10
)

type Config struct {
	// Secrets, env-only.
	OpenRouterAPIKey  string
	OpenRouterReferer string
	OpenRouterTitle   string
	GroqAPIKey        string
	GeminiAPIKey      string
	UnsplashAccessKey string
	PexelsAPIKey      string
	SightEngineUser   string
	SightEngineSecret string
	FluxAPIKey        string
	ScoringServiceURL string
	GCSBucket         string

	// Quality thresholds, env-only floats in [0,1].
	MinPresentationScore float64
	MinQualityScore      float64
	MinNuditySafeScore   float64

	Server     ServerConfig     `yaml:"server"`
	LLM        LLMConfig        `yaml:"llm"`
	Search     SearchConfig     `yaml:"search"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Generation GenerationConfig `yaml:"generation"`
	Cache      CacheConfig      `yaml:"cache"`
}

type ServerConfig struct {
	Addr                string `yaml:"addr"`
	PublicBaseURL       string `yaml:"public_base_url"`
	ErrorPlaceholderURL string `yaml:"error_placeholder_url"`
}

type LLMConfig struct {
	Provider        string `yaml:"provider"` // "openrouter" or "groq"
	ExtractionModel string `yaml:"extraction_model"`
	PromptModel     string `yaml:"prompt_model"`
}

type SearchConfig struct {
	PerPage        int `yaml:"per_page"`
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

type ScoringConfig struct {
	Concurrency    int `yaml:"concurrency"`
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

type GenerationConfig struct {
	FluxModel         string `yaml:"flux_model"`
	GeminiImageModel  string `yaml:"gemini_image_model"`
	SafeFallbackModel string `yaml:"safe_fallback_model"`
	Width             int    `yaml:"width"`
	Height            int    `yaml:"height"`
	PollAttempts      int    `yaml:"poll_attempts"`
	TimeoutSeconds    int    `yaml:"timeout_seconds"`
}

type CacheConfig struct {
	TTLHours     int `yaml:"ttl_hours"`
	SweepMinutes int `yaml:"sweep_minutes"`
}

func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, defaultConfigPath)
}

func LoadFrom(ctx context.Context, path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterReferer: os.Getenv("OPENROUTER_REFERER"),
		OpenRouterTitle:   os.Getenv("OPENROUTER_TITLE"),
		GroqAPIKey:        os.Getenv("GROQ_API_KEY"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		UnsplashAccessKey: os.Getenv("UNSPLASH_ACCESS_KEY"),
		PexelsAPIKey:      os.Getenv("PEXELS_API_KEY"),
		SightEngineUser:   os.Getenv("SIGHTENGINE_API_USER"),
		SightEngineSecret: os.Getenv("SIGHTENGINE_API_SECRET"),
		FluxAPIKey:        os.Getenv("FLUX_API_KEY"),
		ScoringServiceURL: os.Getenv("SCORING_SERVICE_URL"),
		GCSBucket:         os.Getenv("GCS_BUCKET"),

		MinPresentationScore: getEnvFloat("MIN_PRESENTATION_SCORE", defaultMinPresentationScore),
		MinQualityScore:      getEnvFloat("MIN_QUALITY_SCORE", defaultMinQualityScore),
		MinNuditySafeScore:   getEnvFloat("MIN_NUDITY_SAFE_SCORE", defaultMinNuditySafeScore),
	}

	loadYAML(cfg, path)
	applyDefaults(cfg)

	if project := os.Getenv("SECRET_MANAGER_PROJECT"); project != "" {
		if err := resolveSecrets(ctx, project, cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func loadYAML(cfg *Config, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Debug("No config.yaml found, using defaults", "path", path)
		return
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		slog.Error("Failed to parse config.yaml", "path", path, "error", err)
	}
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(cfg)
	applyLLMDefaults(cfg)
	applySearchDefaults(cfg)
	applyScoringDefaults(cfg)
	applyGenerationDefaults(cfg)
	applyCacheDefaults(cfg)
}

func applyServerDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}
	if cfg.Server.PublicBaseURL == "" {
		cfg.Server.PublicBaseURL = getEnvOrDefault("PUBLIC_BASE_URL", defaultPublicBaseURL)
	}
	if cfg.Server.ErrorPlaceholderURL == "" {
		cfg.Server.ErrorPlaceholderURL = defaultErrorPlaceholderURL
	}
}

func applyLLMDefaults(cfg *Config) {
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = getEnvOrDefault("LLM_PROVIDER", defaultLLMProvider)
	}
	if cfg.LLM.ExtractionModel == "" {
		cfg.LLM.ExtractionModel = defaultExtractionModel
	}
	if cfg.LLM.PromptModel == "" {
		cfg.LLM.PromptModel = defaultPromptModel
	}
}

func applySearchDefaults(cfg *Config) {
	if cfg.Search.PerPage == 0 {
		cfg.Search.PerPage = defaultSearchPerPage
	}
	if cfg.Search.TimeoutSeconds == 0 {
		cfg.Search.TimeoutSeconds = defaultSearchTimeoutSec
	}
}

func applyScoringDefaults(cfg *Config) {
	if cfg.Scoring.Concurrency == 0 {
		cfg.Scoring.Concurrency = defaultScoringConcurrency
	}
	if cfg.Scoring.TimeoutSeconds == 0 {
		cfg.Scoring.TimeoutSeconds = defaultScoringTimeoutSec
	}
}

func applyGenerationDefaults(cfg *Config) {
	if cfg.Generation.FluxModel == "" {
		cfg.Generation.FluxModel = defaultFluxModel
	}
	if cfg.Generation.GeminiImageModel == "" {
		cfg.Generation.GeminiImageModel = defaultGeminiImageModel
	}
	if cfg.Generation.SafeFallbackModel == "" {
		cfg.Generation.SafeFallbackModel = defaultSafeFallback
	}
	if cfg.Generation.Width == 0 {
		cfg.Generation.Width = defaultImageWidth
	}
	if cfg.Generation.Height == 0 {
		cfg.Generation.Height = defaultImageHeight
	}
	if cfg.Generation.PollAttempts == 0 {
		cfg.Generation.PollAttempts = defaultPollAttempts
	}
	if cfg.Generation.TimeoutSeconds == 0 {
		cfg.Generation.TimeoutSeconds = defaultGenerateTimeoutSec
	}
}

func applyCacheDefaults(cfg *Config) {
	if cfg.Cache.TTLHours == 0 {
		cfg.Cache.TTLHours = defaultCacheTTLHours
	}
	if cfg.Cache.SweepMinutes == 0 {
		cfg.Cache.SweepMinutes = defaultCacheSweepMinutes
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		slog.Warn("Invalid float in environment, using default", "key", key, "value", raw)
		return defaultValue
	}
	return value
}
