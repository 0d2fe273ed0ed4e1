// Package app wires the pipeline stages together and runs the
// slide-to-image orchestration.
package app

import (
	"context"

	"slideimage/internal/cache"
	"slideimage/internal/genimage"
	"slideimage/internal/scoring"
	"slideimage/internal/slide"
	"slideimage/internal/stock"
)

// KeywordExtractor turns slide text into a visual-search intent.
type KeywordExtractor interface {
	Extract(ctx context.Context, in slide.Input) (slide.Intent, error)
}

// StockSearcher queries the stock providers for candidates.
type StockSearcher interface {
	Search(ctx context.Context, query string) []stock.Candidate
}

// CandidateScorer rates and ranks stock candidates and exposes the
// bare safety probe for generated images.
type CandidateScorer interface {
	Score(ctx context.Context, candidates []stock.Candidate, topic string) []scoring.Scored
	FilterAndSort(scored []scoring.Scored) []scoring.Scored
	SafetyScore(ctx context.Context, imageURL string) (float64, error)
}

// ImageGenerator routes and runs image generation.
type ImageGenerator interface {
	Resolve(requested slide.Model, style slide.Style) slide.Model
	BuildPrompt(ctx context.Context, input slide.Input, intent slide.Intent) (string, error)
	Generate(ctx context.Context, model slide.Model, prompt string) (genimage.Image, error)
}

// ImageCache stores generated image bytes for serving.
type ImageCache interface {
	Put(img cache.Image) string
	PutDataURL(dataURL string) (string, error)
	Get(id string) (cache.Image, error)
}

// ServiceOptions carries the orchestration knobs and stage
// implementations.
type ServiceOptions struct {
	Extractor KeywordExtractor
	Searcher  StockSearcher
	Scorer    CandidateScorer
	Generator ImageGenerator
	Cache     ImageCache

	PublicBaseURL       string
	ErrorPlaceholderURL string
	SafeFallbackModel   slide.Model
	MinNuditySafe       float64
}

// Service is the image-selection pipeline front.
type Service struct {
	extractor KeywordExtractor
	searcher  StockSearcher
	scorer    CandidateScorer
	generator ImageGenerator
	cache     ImageCache

	publicBaseURL       string
	errorPlaceholderURL string
	safeFallbackModel   slide.Model
	minNuditySafe       float64
}

func NewService(opts ServiceOptions) *Service {
	if opts.SafeFallbackModel == "" {
		opts.SafeFallbackModel = slide.ModelImagen
	}
	return &Service{
		extractor:           opts.Extractor,
		searcher:            opts.Searcher,
		scorer:              opts.Scorer,
		generator:           opts.Generator,
		cache:               opts.Cache,
		publicBaseURL:       opts.PublicBaseURL,
		errorPlaceholderURL: opts.ErrorPlaceholderURL,
		safeFallbackModel:   opts.SafeFallbackModel,
		minNuditySafe:       opts.MinNuditySafe,
	}
}

// ExtractKeywords exposes the extraction stage on its own.
func (s *Service) ExtractKeywords(ctx context.Context, in slide.Input) (slide.Intent, error) {
	return s.extractor.Extract(ctx, in)
}

// CachedImage returns a previously generated image by id.
func (s *Service) CachedImage(id string) (cache.Image, error) {
	return s.cache.Get(id)
}
