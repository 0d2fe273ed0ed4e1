package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"slideimage/internal/cache"
	"slideimage/internal/genimage"
	"slideimage/internal/keywords"
	"slideimage/internal/llm"
	"slideimage/internal/scoring"
	"slideimage/internal/slide"
	"slideimage/internal/stock"
	"slideimage/pkg/config"
	"slideimage/pkg/prompts"
)

// BuildService assembles the pipeline from configuration. Stages
// whose credentials are missing are left out; the orchestrator
// degrades accordingly.
func BuildService(ctx context.Context, cfg *config.Config) (*Service, error) {
	p, err := prompts.Load()
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}

	chat, err := buildChat(cfg)
	if err != nil {
		return nil, err
	}

	extractor := keywords.NewExtractor(chat, cfg.LLM.ExtractionModel, p)

	searcher := stock.NewSearcher(buildProviders(cfg), stock.SearcherConfig{
		PerPage: cfg.Search.PerPage,
		Timeout: time.Duration(cfg.Search.TimeoutSeconds) * time.Second,
	})

	sightEngine := scoring.NewSightEngineClient(cfg.SightEngineUser, cfg.SightEngineSecret)
	var fit scoring.FitScorer
	if cfg.ScoringServiceURL != "" {
		fit = scoring.NewFitClient(cfg.ScoringServiceURL)
	}
	scorer := scoring.NewScorer(sightEngine, sightEngine, fit, scoring.ScorerConfig{
		Concurrency: cfg.Scoring.Concurrency,
		Timeout:     time.Duration(cfg.Scoring.TimeoutSeconds) * time.Second,
		Thresholds: scoring.Thresholds{
			MinQuality:      cfg.MinQualityScore,
			MinNuditySafe:   cfg.MinNuditySafeScore,
			MinPresentation: cfg.MinPresentationScore,
		},
	})

	backends, err := buildBackends(ctx, cfg)
	if err != nil {
		return nil, err
	}
	generator := genimage.NewGenerator(chat, p, backends, genimage.GeneratorConfig{
		PromptModel: cfg.LLM.PromptModel,
		Width:       cfg.Generation.Width,
		Height:      cfg.Generation.Height,
		Timeout:     time.Duration(cfg.Generation.TimeoutSeconds) * time.Second,
	})

	store := cache.NewStore(cache.StoreConfig{
		TTL:           time.Duration(cfg.Cache.TTLHours) * time.Hour,
		SweepInterval: time.Duration(cfg.Cache.SweepMinutes) * time.Minute,
	}, buildArchiver(ctx, cfg))

	return NewService(ServiceOptions{
		Extractor:           extractor,
		Searcher:            searcher,
		Scorer:              scorer,
		Generator:           generator,
		Cache:               store,
		PublicBaseURL:       cfg.Server.PublicBaseURL,
		ErrorPlaceholderURL: cfg.Server.ErrorPlaceholderURL,
		SafeFallbackModel:   slide.Model(cfg.Generation.SafeFallbackModel),
		MinNuditySafe:       cfg.MinNuditySafeScore,
	}), nil
}

func buildChat(cfg *config.Config) (llm.Chat, error) {
	switch cfg.LLM.Provider {
	case "groq":
		chat, err := llm.NewGroqClient(cfg.GroqAPIKey)
		if err != nil {
			return nil, fmt.Errorf("create groq client: %w", err)
		}
		return chat, nil
	case "openrouter", "":
		return llm.NewOpenRouterClient(cfg.OpenRouterAPIKey, llm.OpenRouterOptions{
			Referer: cfg.OpenRouterReferer,
			Title:   cfg.OpenRouterTitle,
		}), nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
}

func buildProviders(cfg *config.Config) []stock.ProviderClient {
	var providers []stock.ProviderClient
	if cfg.UnsplashAccessKey != "" {
		providers = append(providers, stock.NewUnsplashClient(cfg.UnsplashAccessKey))
	} else {
		slog.Warn("unsplash access key missing, provider disabled")
	}
	if cfg.PexelsAPIKey != "" {
		providers = append(providers, stock.NewPexelsClient(cfg.PexelsAPIKey))
	} else {
		slog.Warn("pexels api key missing, provider disabled")
	}
	return providers
}

func buildBackends(ctx context.Context, cfg *config.Config) (map[slide.Model]genimage.Backend, error) {
	backends := make(map[slide.Model]genimage.Backend)
	if cfg.FluxAPIKey != "" {
		backends[slide.ModelFlux] = genimage.NewFluxBackend(cfg.FluxAPIKey, cfg.Generation.FluxModel, cfg.Generation.PollAttempts)
	}
	if cfg.OpenRouterAPIKey != "" {
		backends[slide.ModelImagen] = genimage.NewImagenBackend(cfg.OpenRouterAPIKey, "")
	}
	if cfg.GeminiAPIKey != "" {
		gemini, err := genimage.NewGeminiBackend(ctx, cfg.GeminiAPIKey, cfg.Generation.GeminiImageModel)
		if err != nil {
			return nil, err
		}
		backends[slide.ModelGemini] = gemini
	}
	if len(backends) == 0 {
		slog.Warn("no generation backend configured, AI fallback disabled")
	}
	return backends, nil
}

func buildArchiver(ctx context.Context, cfg *config.Config) cache.Archiver {
	if cfg.GCSBucket == "" {
		return nil
	}
	archiver, err := cache.NewGCSArchiver(ctx, cfg.GCSBucket, "generated")
	if err != nil {
		slog.Warn("GCS archiver unavailable, images stay in memory only", "error", err)
		return nil
	}
	return archiver
}
