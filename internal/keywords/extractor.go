// Package keywords turns slide text into a structured visual-search
// intent via a language-model call.
package keywords

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"slideimage/internal/llm"
	"slideimage/internal/slide"
	"slideimage/pkg/prompts"
)

const maxRefinedKeywords = 3

type Extractor struct {
	chat    llm.Chat
	model   string
	prompts *prompts.Prompts
}

func NewExtractor(chat llm.Chat, model string, p *prompts.Prompts) *Extractor {
	return &Extractor{
		chat:    chat,
		model:   model,
		prompts: p,
	}
}

// Extract produces the search intent for one slide. When the slide
// carries explicit keywords the language model is bypassed entirely
// and the intent is synthesized from them verbatim. An error is
// returned only on transport/parse failure of the extraction call;
// "nothing usable on this slide" is the normal skip=true result.
func (e *Extractor) Extract(ctx context.Context, in slide.Input) (slide.Intent, error) {
	if explicit := nonEmpty(in.Keywords); len(explicit) > 0 {
		intent := slide.Intent{
			Skip:            false,
			EnglishKeywords: explicit,
		}
		intent.Refined = joinFirst(explicit, maxRefinedKeywords)
		return intent, nil
	}

	text := slideText(in)

	raw, err := e.chat.CompleteJSON(ctx, e.model, e.prompts.System.Extraction, text)
	if err != nil {
		return slide.Intent{}, fmt.Errorf("extract keywords: %w", err)
	}

	var intent slide.Intent
	if err := json.Unmarshal([]byte(raw), &intent); err != nil {
		// Malformed model output degrades to an empty non-skip
		// intent rather than failing the request.
		slog.Warn("extraction output not valid JSON, using empty intent", "error", err)
		intent = slide.Intent{}
	}

	if intent.Skip {
		return intent, nil
	}

	intent.Refined = e.refine(ctx, intent.EnglishKeywords)
	return intent, nil
}

// refine asks the model to reduce the keyword set to 2-3 search
// terms. Refinement failure degrades to the first keywords rather
// than failing extraction.
func (e *Extractor) refine(ctx context.Context, keywords []string) string {
	fallback := joinFirst(keywords, maxRefinedKeywords)
	if len(keywords) == 0 {
		return ""
	}

	user, err := e.prompts.RenderRefinement(prompts.RefinementParams{
		Keywords: strings.Join(keywords, ", "),
	})
	if err != nil {
		slog.Warn("render refinement prompt failed", "error", err)
		return fallback
	}

	refined, err := e.chat.Complete(ctx, e.model, e.prompts.System.Refinement, user)
	if err != nil {
		slog.Warn("keyword refinement failed, using unrefined keywords", "error", err)
		return fallback
	}

	refined = strings.TrimSpace(refined)
	if refined == "" {
		return fallback
	}
	return refined
}

func slideText(in slide.Input) string {
	parts := make([]string, 0, 1+len(in.Bullets))
	if in.Title != "" {
		parts = append(parts, in.Title)
	}
	for _, bullet := range in.Bullets {
		if bullet.Text != "" {
			parts = append(parts, bullet.Text)
		}
		for _, sub := range bullet.Sub {
			if sub != "" {
				parts = append(parts, sub)
			}
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func joinFirst(values []string, n int) string {
	if len(values) > n {
		values = values[:n]
	}
	return strings.Join(values, ", ")
}
