// Package stock queries the stock-photo providers and merges their
// results into one deduplicated candidate list.
package stock

import (
	"context"
	"log/slog"
	"time"

	"slideimage/internal/slide"
	"slideimage/internal/subcall"
)

// Candidate is one stock-photo hit. Transient: it lives only for the
// scoring pass of a single request.
type Candidate struct {
	Provider        slide.Provider
	ID              string
	Alt             string
	RegularURL      string
	FullURL         string
	Width           int
	Height          int
	Photographer    string
	PhotographerURL string
}

// dedupeKey prefers the provider-native id; URL is the fallback for
// providers that omit ids.
func (c Candidate) dedupeKey() string {
	if c.ID != "" {
		return string(c.Provider) + ":" + c.ID
	}
	return c.FullURL
}

// ProviderClient is one stock-photo backend.
type ProviderClient interface {
	Name() slide.Provider
	Search(ctx context.Context, query string, perPage int) ([]Candidate, error)
}

type SearcherConfig struct {
	PerPage int
	Timeout time.Duration
}

// Searcher fans a query out to every configured provider
// concurrently. Provider order is fixed, so merged output order is
// deterministic for identical provider responses.
type Searcher struct {
	providers []ProviderClient
	cfg       SearcherConfig
}

func NewSearcher(providers []ProviderClient, cfg SearcherConfig) *Searcher {
	if cfg.PerPage == 0 {
		cfg.PerPage = 10
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Searcher{providers: providers, cfg: cfg}
}

// Search returns the merged, deduplicated candidates. A provider
// failure or timeout yields zero candidates for that provider and
// never fails the call.
func (s *Searcher) Search(ctx context.Context, query string) []Candidate {
	results := subcall.Map(ctx, len(s.providers), s.cfg.Timeout, "stock search",
		s.providers, func(cctx context.Context, p ProviderClient) ([]Candidate, error) {
			return p.Search(cctx, query, s.cfg.PerPage)
		})

	merged := make([]Candidate, 0, len(s.providers)*s.cfg.PerPage)
	seen := make(map[string]struct{})

	for i, result := range results {
		if !result.OK() {
			continue
		}
		slog.Debug("provider results", "provider", s.providers[i].Name(), "count", len(result.Value))
		for _, candidate := range result.Value {
			key := candidate.dedupeKey()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, candidate)
		}
	}

	slog.Info("stock search complete", "query", query, "candidates", len(merged))
	return merged
}
