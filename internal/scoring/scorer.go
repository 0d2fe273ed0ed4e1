// Package scoring rates stock candidates on quality, nudity safety
// and presentation fit, then filters and ranks them.
package scoring

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"slideimage/internal/stock"
	"slideimage/internal/subcall"
)

// QualityClient scores technical image quality in [0,1].
type QualityClient interface {
	Quality(ctx context.Context, imageURL string) (float64, error)
}

// SafetyClient scores nudity safety in [0,1], 1.0 meaning fully safe.
type SafetyClient interface {
	NuditySafe(ctx context.Context, imageURL string) (float64, error)
}

// FitScorer scores presentation fit in [0,1].
type FitScorer interface {
	Score(ctx context.Context, imageURL, topic string) (float64, error)
}

// Thresholds are the minimum scores a candidate must reach to be
// considered suitable.
type Thresholds struct {
	MinQuality    float64
	MinNuditySafe float64
	// MinPresentation only applies when the candidate has a fit
	// score; unscored candidates pass.
	MinPresentation float64
}

// Scored pairs a candidate with its scores. Fit is nil when the fit
// service was not configured or its call failed.
type Scored struct {
	Candidate  stock.Candidate
	Quality    float64
	NuditySafe float64
	Fit        *float64
}

// Suitable reports whether the candidate clears every threshold.
func (s Scored) Suitable(t Thresholds) bool {
	if s.Quality < t.MinQuality {
		return false
	}
	if s.NuditySafe < t.MinNuditySafe {
		return false
	}
	if s.Fit != nil && *s.Fit < t.MinPresentation {
		return false
	}
	return true
}

type ScorerConfig struct {
	Concurrency int
	Timeout     time.Duration
	Thresholds  Thresholds
}

// Scorer runs the per-candidate score calls with bounded concurrency.
type Scorer struct {
	quality QualityClient
	safety  SafetyClient
	fit     FitScorer
	cfg     ScorerConfig
}

// NewScorer builds a Scorer. fit may be nil; candidates are then
// ranked without a presentation-fit dimension.
func NewScorer(quality QualityClient, safety SafetyClient, fit FitScorer, cfg ScorerConfig) *Scorer {
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 4
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Scorer{quality: quality, safety: safety, fit: fit, cfg: cfg}
}

// Score rates every candidate. A failed quality check drops the
// candidate; a failed safety check defaults to safe so a flaky
// moderation API cannot empty the pool; a failed fit check leaves Fit
// nil. Output order follows input order.
func (s *Scorer) Score(ctx context.Context, candidates []stock.Candidate, topic string) []Scored {
	results := subcall.Map(ctx, s.cfg.Concurrency, s.cfg.Timeout, "candidate scoring",
		candidates, func(cctx context.Context, c stock.Candidate) (Scored, error) {
			return s.scoreOne(cctx, c, topic)
		})

	scored := make([]Scored, 0, len(candidates))
	for _, result := range results {
		if !result.OK() {
			continue
		}
		scored = append(scored, result.Value)
	}
	slog.Info("scoring complete", "candidates", len(candidates), "scored", len(scored))
	return scored
}

func (s *Scorer) scoreOne(ctx context.Context, c stock.Candidate, topic string) (Scored, error) {
	quality, err := s.quality.Quality(ctx, c.RegularURL)
	if err != nil {
		return Scored{}, err
	}

	nuditySafe := 1.0
	if safe, err := s.safety.NuditySafe(ctx, c.RegularURL); err == nil {
		nuditySafe = safe
	} else {
		slog.Warn("safety check failed, assuming safe", "url", c.RegularURL, "error", err)
	}

	scored := Scored{Candidate: c, Quality: quality, NuditySafe: nuditySafe}
	if s.fit != nil {
		if fit, err := s.fit.Score(ctx, c.RegularURL, topic); err == nil {
			scored.Fit = &fit
		} else {
			slog.Warn("fit check failed, skipping dimension", "url", c.RegularURL, "error", err)
		}
	}
	return scored, nil
}

// FilterAndSort keeps suitable candidates and orders them by quality
// descending. The sort is stable, so input order (provider order)
// breaks quality ties.
func (s *Scorer) FilterAndSort(scored []Scored) []Scored {
	suitable := make([]Scored, 0, len(scored))
	for _, sc := range scored {
		if sc.Suitable(s.cfg.Thresholds) {
			suitable = append(suitable, sc)
		}
	}
	sort.SliceStable(suitable, func(i, j int) bool {
		return suitable[i].Quality > suitable[j].Quality
	})
	return suitable
}

// SafetyScore exposes the bare nudity-safety probe for checking
// generated images.
func (s *Scorer) SafetyScore(ctx context.Context, imageURL string) (float64, error) {
	return s.safety.NuditySafe(ctx, imageURL)
}

// Thresholds returns the configured minimums.
func (s *Scorer) Thresholds() Thresholds {
	return s.cfg.Thresholds
}
