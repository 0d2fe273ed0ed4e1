package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"slideimage/internal/cache"
	"slideimage/internal/genimage"
	"slideimage/internal/slide"
	"slideimage/internal/subcall"
)

const safetyProbeTimeout = 30 * time.Second

// ProcessSlide runs the full selection pipeline for one slide and
// always yields exactly one Result. Only extraction transport
// failures surface as an error; everything downstream degrades into
// the Result itself.
func (s *Service) ProcessSlide(ctx context.Context, input slide.Input) (slide.Result, error) {
	intent, err := s.extractor.Extract(ctx, input)
	if err != nil {
		return slide.Result{}, fmt.Errorf("extract keywords: %w", err)
	}

	if intent.Skip {
		slog.Info("slide skipped, no visual subject", "title", input.Title)
		return slide.Result{Source: slide.SourceNone, Keywords: intent.Refined}, nil
	}

	mode := input.Mode.Normalize()
	forceAI := mode == slide.ModeAIOnly || input.Style.ForcesIllustration()

	if !forceAI {
		if result, ok := s.selectStock(ctx, intent); ok {
			return result, nil
		}
		if mode == slide.ModeStockOnly {
			slog.Info("no suitable stock image in stock-only mode", "keywords", intent.Refined)
			return slide.Result{Source: slide.SourceNone, Keywords: intent.Refined}, nil
		}
	}

	return s.generate(ctx, input, intent), nil
}

func (s *Service) selectStock(ctx context.Context, intent slide.Intent) (slide.Result, bool) {
	candidates := s.searcher.Search(ctx, intent.Refined)
	if len(candidates) == 0 {
		return slide.Result{}, false
	}

	scored := s.scorer.Score(ctx, candidates, intent.Refined)
	suitable := s.scorer.FilterAndSort(scored)
	if len(suitable) == 0 {
		slog.Info("no candidate cleared the thresholds", "candidates", len(candidates))
		return slide.Result{}, false
	}

	best := suitable[0].Candidate
	slog.Info("stock image selected",
		"provider", best.Provider, "id", best.ID, "quality", suitable[0].Quality)
	return slide.Result{
		URL:             best.RegularURL,
		Source:          slide.StockSource(best.Provider),
		Keywords:        intent.Refined,
		Photographer:    best.Photographer,
		PhotographerURL: best.PhotographerURL,
	}, true
}

func (s *Service) generate(ctx context.Context, input slide.Input, intent slide.Intent) slide.Result {
	model := s.generator.Resolve(input.AIModel, input.Style)

	prompt, err := s.generator.BuildPrompt(ctx, input, intent)
	if err != nil {
		slog.Error("prompt build failed", "model", model, "error", err)
		return slide.Result{
			URL:      s.errorPlaceholderURL,
			Source:   slide.SourceFailed,
			Keywords: intent.Refined,
			Error:    err.Error(),
		}
	}

	img, err := s.generator.Generate(ctx, model, prompt)
	if err != nil {
		slog.Error("image generation failed", "model", model, "error", err)
		return slide.Result{
			URL:      s.errorPlaceholderURL,
			Source:   slide.SourceFailed,
			Keywords: intent.Refined,
			Error:    err.Error(),
		}
	}

	url, err := s.publish(img)
	if err != nil {
		slog.Error("generated image unusable", "model", model, "error", err)
		return slide.Result{
			URL:      s.errorPlaceholderURL,
			Source:   slide.SourceFailed,
			Keywords: intent.Refined,
			Error:    err.Error(),
		}
	}

	// Safety probe is best effort: an unreachable moderation API must
	// not block delivery.
	probe := subcall.Do(ctx, safetyProbeTimeout, "safety probe", func(cctx context.Context) (float64, error) {
		return s.scorer.SafetyScore(cctx, url)
	})
	if !probe.OK() || probe.Value >= s.minNuditySafe {
		return generatedResult(url, model, intent)
	}

	// One retry on the configured safe model; its output is final.
	slog.Warn("generated image below safety threshold, retrying",
		"model", model, "score", probe.Value, "fallback", s.safeFallbackModel)
	return s.retrySafe(ctx, prompt, intent)
}

func (s *Service) retrySafe(ctx context.Context, prompt string, intent slide.Intent) slide.Result {
	img, err := s.generator.Generate(ctx, s.safeFallbackModel, prompt)
	if err != nil {
		slog.Error("safety retry failed", "model", s.safeFallbackModel, "error", err)
		return slide.Result{
			URL:      s.errorPlaceholderURL,
			Source:   slide.SourceFailed,
			Keywords: intent.Refined,
			Error:    err.Error(),
		}
	}

	url, err := s.publish(img)
	if err != nil {
		slog.Error("safety retry image unusable", "model", s.safeFallbackModel, "error", err)
		return slide.Result{
			URL:      s.errorPlaceholderURL,
			Source:   slide.SourceFailed,
			Keywords: intent.Refined,
			Error:    err.Error(),
		}
	}
	return generatedResult(url, s.safeFallbackModel, intent)
}

// publish turns a backend image into a servable URL. Inline bytes and
// data URLs go through the cache; hosted URLs pass through.
func (s *Service) publish(img genimage.Image) (string, error) {
	switch {
	case len(img.Data) > 0:
		id := s.cache.Put(cacheImage(img))
		return s.generatedURL(id), nil
	case strings.HasPrefix(img.URL, "data:"):
		id, err := s.cache.PutDataURL(img.URL)
		if err != nil {
			return "", fmt.Errorf("cache data url: %w", err)
		}
		return s.generatedURL(id), nil
	case img.URL != "":
		return img.URL, nil
	}
	return "", fmt.Errorf("backend returned an empty image")
}

func (s *Service) generatedURL(id string) string {
	return strings.TrimRight(s.publicBaseURL, "/") + "/generated/" + id
}

func generatedResult(url string, model slide.Model, intent slide.Intent) slide.Result {
	return slide.Result{
		URL:      url,
		Source:   slide.GeneratedSource(model),
		Keywords: intent.Refined,
	}
}

func cacheImage(img genimage.Image) cache.Image {
	return cache.Image{Data: img.Data, MediaType: img.MediaType}
}
