package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"slideimage/internal/cache"
	"slideimage/internal/genimage"
	"slideimage/internal/scoring"
	"slideimage/internal/slide"
	"slideimage/internal/stock"
)

type fakeExtractor struct {
	intent slide.Intent
	err    error
	calls  int
}

func (f *fakeExtractor) Extract(ctx context.Context, in slide.Input) (slide.Intent, error) {
	f.calls++
	return f.intent, f.err
}

type fakeSearcher struct {
	candidates []stock.Candidate
	calls      int
}

func (f *fakeSearcher) Search(ctx context.Context, query string) []stock.Candidate {
	f.calls++
	return f.candidates
}

type fakeScorer struct {
	scored      []scoring.Scored
	safety      float64
	safetyErr   error
	safetyCalls int
	thresholds  scoring.Thresholds
	lastTopic   string
}

func (f *fakeScorer) Score(ctx context.Context, candidates []stock.Candidate, topic string) []scoring.Scored {
	f.lastTopic = topic
	return f.scored
}

func (f *fakeScorer) FilterAndSort(scored []scoring.Scored) []scoring.Scored {
	suitable := make([]scoring.Scored, 0, len(scored))
	for _, s := range scored {
		if s.Suitable(f.thresholds) {
			suitable = append(suitable, s)
		}
	}
	return suitable
}

func (f *fakeScorer) SafetyScore(ctx context.Context, imageURL string) (float64, error) {
	f.safetyCalls++
	return f.safety, f.safetyErr
}

type genCall struct {
	model  slide.Model
	prompt string
}

type fakeGenerator struct {
	images    []genimage.Image
	errs      []error
	promptErr error
	calls     []genCall
}

func (f *fakeGenerator) Resolve(requested slide.Model, style slide.Style) slide.Model {
	if style.ForcesIllustration() {
		return slide.ModelGemini
	}
	if m := requested.Normalize(); m != slide.ModelAuto {
		return m
	}
	return slide.ModelFlux
}

func (f *fakeGenerator) BuildPrompt(ctx context.Context, input slide.Input, intent slide.Intent) (string, error) {
	if f.promptErr != nil {
		return "", f.promptErr
	}
	return "prompt for " + intent.Refined, nil
}

func (f *fakeGenerator) Generate(ctx context.Context, model slide.Model, prompt string) (genimage.Image, error) {
	n := len(f.calls)
	f.calls = append(f.calls, genCall{model: model, prompt: prompt})
	var img genimage.Image
	var err error
	if n < len(f.images) {
		img = f.images[n]
	}
	if n < len(f.errs) {
		err = f.errs[n]
	}
	return img, err
}

type fakeCache struct {
	store *cache.Store
}

func newFakeCache(t *testing.T) *fakeCache {
	t.Helper()
	s := cache.NewStore(cache.StoreConfig{}, nil)
	t.Cleanup(s.Close)
	return &fakeCache{store: s}
}

func (f *fakeCache) Put(img cache.Image) string                { return f.store.Put(img) }
func (f *fakeCache) PutDataURL(dataURL string) (string, error) { return f.store.PutDataURL(dataURL) }
func (f *fakeCache) Get(id string) (cache.Image, error)        { return f.store.Get(id) }

type fixture struct {
	extractor *fakeExtractor
	searcher  *fakeSearcher
	scorer    *fakeScorer
	generator *fakeGenerator
	service   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		extractor: &fakeExtractor{intent: slide.Intent{
			Topics:          []string{"teamwork"},
			EnglishKeywords: []string{"teamwork", "office"},
			Refined:         "teamwork, office",
		}},
		searcher: &fakeSearcher{},
		scorer: &fakeScorer{
			safety:     1.0,
			thresholds: scoring.Thresholds{MinQuality: 0.7, MinNuditySafe: 0.99, MinPresentation: 0.6},
		},
		generator: &fakeGenerator{images: []genimage.Image{{URL: "https://gen/1"}, {URL: "https://gen/2"}}},
	}
	f.service = NewService(ServiceOptions{
		Extractor:           f.extractor,
		Searcher:            f.searcher,
		Scorer:              f.scorer,
		Generator:           f.generator,
		Cache:               newFakeCache(t),
		PublicBaseURL:       "http://img.test",
		ErrorPlaceholderURL: "https://placehold.co/err",
		SafeFallbackModel:   slide.ModelImagen,
		MinNuditySafe:       0.99,
	})
	return f
}

func suitableCandidate(p slide.Provider, id string, quality float64) scoring.Scored {
	return scoring.Scored{
		Candidate:  stock.Candidate{Provider: p, ID: id, RegularURL: "https://" + string(p) + "/" + id, Photographer: "Pat"},
		Quality:    quality,
		NuditySafe: 1.0,
	}
}

func TestProcessSlideExtractionErrorPropagates(t *testing.T) {
	f := newFixture(t)
	f.extractor.err = errors.New("llm unreachable")

	if _, err := f.service.ProcessSlide(context.Background(), slide.Input{Title: "t"}); err == nil {
		t.Fatal("expected error")
	}
	if f.searcher.calls != 0 {
		t.Errorf("search ran despite extraction failure")
	}
}

func TestProcessSlideSkipYieldsNone(t *testing.T) {
	f := newFixture(t)
	f.extractor.intent = slide.Intent{Skip: true}

	got, err := f.service.ProcessSlide(context.Background(), slide.Input{Title: "Agenda"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Source != slide.SourceNone || got.URL != "" {
		t.Errorf("result = %+v, want none source", got)
	}
	if f.searcher.calls != 0 || len(f.generator.calls) != 0 {
		t.Error("skip must short-circuit search and generation")
	}
}

func TestProcessSlidePicksBestStock(t *testing.T) {
	f := newFixture(t)
	f.searcher.candidates = []stock.Candidate{{Provider: slide.ProviderUnsplash, ID: "u1"}}
	f.scorer.scored = []scoring.Scored{
		suitableCandidate(slide.ProviderUnsplash, "u1", 0.8),
		suitableCandidate(slide.ProviderPexels, "p1", 0.8),
	}

	got, err := f.service.ProcessSlide(context.Background(), slide.Input{Title: "t"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Equal quality: first provider in merged order wins.
	if got.Source != "stock_unsplash" || got.URL != "https://unsplash/u1" {
		t.Errorf("result = %+v", got)
	}
	if got.Photographer != "Pat" {
		t.Errorf("attribution lost: %+v", got)
	}
	if len(f.generator.calls) != 0 {
		t.Error("generation ran despite a suitable stock image")
	}
	// Fit scoring runs against the refined keyword string, not the
	// localized topic labels.
	if f.scorer.lastTopic != "teamwork, office" {
		t.Errorf("scoring topic = %q, want refined keywords", f.scorer.lastTopic)
	}
}

func TestProcessSlideStockOnlyWithoutSuitableYieldsNone(t *testing.T) {
	f := newFixture(t)
	f.searcher.candidates = []stock.Candidate{{Provider: slide.ProviderUnsplash, ID: "u1"}}
	f.scorer.scored = []scoring.Scored{suitableCandidate(slide.ProviderUnsplash, "u1", 0.2)}

	got, err := f.service.ProcessSlide(context.Background(), slide.Input{Title: "t", Mode: slide.ModeStockOnly})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Source != slide.SourceNone {
		t.Errorf("source = %q, want none", got.Source)
	}
	if len(f.generator.calls) != 0 {
		t.Error("stock_only must never generate")
	}
}

func TestProcessSlideAutoFallsBackToGeneration(t *testing.T) {
	f := newFixture(t)
	f.searcher.candidates = nil // both providers empty

	got, err := f.service.ProcessSlide(context.Background(), slide.Input{Title: "t"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Source != "generated_flux" || got.URL != "https://gen/1" {
		t.Errorf("result = %+v", got)
	}
	if len(f.generator.calls) != 1 || f.generator.calls[0].model != slide.ModelFlux {
		t.Errorf("generator calls = %+v", f.generator.calls)
	}
}

func TestProcessSlideAIOnlySkipsSearch(t *testing.T) {
	f := newFixture(t)
	f.searcher.candidates = []stock.Candidate{{Provider: slide.ProviderUnsplash, ID: "u1"}}

	got, err := f.service.ProcessSlide(context.Background(), slide.Input{Title: "t", Mode: slide.ModeAIOnly})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.searcher.calls != 0 {
		t.Error("ai_only must not search stock providers")
	}
	if got.Source != "generated_flux" {
		t.Errorf("source = %q", got.Source)
	}
}

func TestProcessSlideIllustrationStyleForcesGemini(t *testing.T) {
	f := newFixture(t)
	f.searcher.candidates = []stock.Candidate{{Provider: slide.ProviderUnsplash, ID: "u1"}}

	got, err := f.service.ProcessSlide(context.Background(),
		slide.Input{Title: "t", Style: slide.StyleFlatIllustration})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.searcher.calls != 0 {
		t.Error("illustration styles must skip the stock path")
	}
	if got.Source != "generated_gemini" {
		t.Errorf("source = %q, want generated_gemini", got.Source)
	}
}

func TestProcessSlideGenerationFailureIsTerminal(t *testing.T) {
	f := newFixture(t)
	f.generator.errs = []error{errors.New("backend down")}

	got, err := f.service.ProcessSlide(context.Background(), slide.Input{Title: "t", Mode: slide.ModeAIOnly})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Source != slide.SourceFailed || got.URL != "https://placehold.co/err" {
		t.Errorf("result = %+v", got)
	}
	if got.Error == "" {
		t.Error("error detail missing from result")
	}
	if f.scorer.safetyCalls != 0 {
		t.Error("safety probe must not run for a failed generation")
	}
	if len(f.generator.calls) != 1 {
		t.Errorf("generator calls = %d, want 1 (no retry on failure)", len(f.generator.calls))
	}
}

func TestProcessSlidePromptBuildFailureIsTerminal(t *testing.T) {
	f := newFixture(t)
	f.generator.promptErr = errors.New("prompt model down")

	got, err := f.service.ProcessSlide(context.Background(), slide.Input{Title: "t", Mode: slide.ModeAIOnly})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Source != slide.SourceFailed || got.URL != "https://placehold.co/err" {
		t.Errorf("result = %+v", got)
	}
	if got.Error == "" {
		t.Error("error detail missing from result")
	}
	if len(f.generator.calls) != 0 {
		t.Errorf("backend ran despite prompt build failure: %d calls", len(f.generator.calls))
	}
	if f.scorer.safetyCalls != 0 {
		t.Error("safety probe must not run for a failed prompt build")
	}
}

func TestProcessSlideInlineBytesGoThroughCache(t *testing.T) {
	f := newFixture(t)
	f.generator.images = []genimage.Image{{Data: []byte{0xff, 0xd8}, MediaType: "image/jpeg"}}

	got, err := f.service.ProcessSlide(context.Background(), slide.Input{Title: "t", Mode: slide.ModeAIOnly})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(got.URL, "http://img.test/generated/") {
		t.Fatalf("url = %q, want cached generated url", got.URL)
	}

	id := strings.TrimPrefix(got.URL, "http://img.test/generated/")
	img, err := f.service.CachedImage(id)
	if err != nil {
		t.Fatalf("cached image missing: %v", err)
	}
	if img.MediaType != "image/jpeg" {
		t.Errorf("media type = %q", img.MediaType)
	}
}

func TestProcessSlideDataURLGoesThroughCache(t *testing.T) {
	f := newFixture(t)
	f.generator.images = []genimage.Image{{URL: "data:image/png;base64,AQID"}}

	got, err := f.service.ProcessSlide(context.Background(), slide.Input{Title: "t", Mode: slide.ModeAIOnly})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(got.URL, "http://img.test/generated/") {
		t.Errorf("url = %q", got.URL)
	}
}

func TestProcessSlideUnsafeImageRetriesOnceOnFallback(t *testing.T) {
	f := newFixture(t)
	f.scorer.safety = 0.4 // below threshold, retry result is final

	got, err := f.service.ProcessSlide(context.Background(), slide.Input{Title: "t", Mode: slide.ModeAIOnly})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.generator.calls) != 2 {
		t.Fatalf("generator calls = %d, want 2", len(f.generator.calls))
	}
	if f.generator.calls[1].model != slide.ModelImagen {
		t.Errorf("retry model = %q, want imagen", f.generator.calls[1].model)
	}
	if f.generator.calls[1].prompt != f.generator.calls[0].prompt {
		t.Error("retry must reuse the original prompt")
	}
	if got.Source != "generated_imagen" || got.URL != "https://gen/2" {
		t.Errorf("result = %+v", got)
	}
	if f.scorer.safetyCalls != 1 {
		t.Errorf("safety calls = %d, want 1 (retry output is not re-checked)", f.scorer.safetyCalls)
	}
}

func TestProcessSlideSafetyProbeFailureAcceptsImage(t *testing.T) {
	f := newFixture(t)
	f.scorer.safetyErr = errors.New("sightengine 503")

	got, err := f.service.ProcessSlide(context.Background(), slide.Input{Title: "t", Mode: slide.ModeAIOnly})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Source != "generated_flux" || got.URL != "https://gen/1" {
		t.Errorf("result = %+v, want original image accepted", got)
	}
	if len(f.generator.calls) != 1 {
		t.Errorf("generator calls = %d, want 1", len(f.generator.calls))
	}
}

func TestProcessSlideUnsafeRetryFailureYieldsPlaceholder(t *testing.T) {
	f := newFixture(t)
	f.scorer.safety = 0.1
	f.generator.errs = []error{nil, errors.New("fallback down")}

	got, err := f.service.ProcessSlide(context.Background(), slide.Input{Title: "t", Mode: slide.ModeAIOnly})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Source != slide.SourceFailed || got.URL != "https://placehold.co/err" {
		t.Errorf("result = %+v", got)
	}
}

func TestProcessSlideExplicitModelHonored(t *testing.T) {
	f := newFixture(t)

	got, err := f.service.ProcessSlide(context.Background(),
		slide.Input{Title: "t", Mode: slide.ModeAIOnly, AIModel: slide.ModelImagen})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.generator.calls[0].model != slide.ModelImagen {
		t.Errorf("model = %q, want imagen", f.generator.calls[0].model)
	}
	if got.Source != "generated_imagen" {
		t.Errorf("source = %q", got.Source)
	}
}
