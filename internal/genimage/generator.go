// Package genimage generates slide images with one of the configured
// model backends and builds the generation prompts.
package genimage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"slideimage/internal/llm"
	"slideimage/internal/slide"
	"slideimage/pkg/prompts"
)

// Image is one generated image. Exactly one of Data or URL is set:
// inline bytes for backends that return them, a hosted URL otherwise.
type Image struct {
	Data      []byte
	MediaType string
	URL       string
}

// Backend turns a prompt into an image.
type Backend interface {
	Generate(ctx context.Context, prompt string, width, height int) (Image, error)
}

var styleInstructions = map[slide.Style]string{
	slide.StyleFlatIllustration: "The image must be a flat vector illustration with simple geometric shapes, clean edges and minimal detail.",
	slide.StyleFineLine:         "The image must be a fine line art illustration with thin, elegant strokes and generous white space.",
	slide.StylePhotorealistic:   "The image must look like a photorealistic photograph with natural lighting.",
}

type GeneratorConfig struct {
	PromptModel string
	Width       int
	Height      int
	Timeout     time.Duration
}

// Generator routes generation requests to model backends and builds
// prompts via the chat model.
type Generator struct {
	chat     llm.Chat
	prompts  *prompts.Prompts
	backends map[slide.Model]Backend
	cfg      GeneratorConfig
}

func NewGenerator(chat llm.Chat, p *prompts.Prompts, backends map[slide.Model]Backend, cfg GeneratorConfig) *Generator {
	if cfg.Width == 0 {
		cfg.Width = 1024
	}
	if cfg.Height == 0 {
		cfg.Height = 1024
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &Generator{chat: chat, prompts: p, backends: backends, cfg: cfg}
}

// Resolve picks the backend model. Illustration styles need the
// multimodal backend; otherwise an explicit request wins and auto
// falls to flux.
func (g *Generator) Resolve(requested slide.Model, style slide.Style) slide.Model {
	if style.ForcesIllustration() {
		return slide.ModelGemini
	}
	if m := requested.Normalize(); m != slide.ModelAuto {
		return m
	}
	return slide.ModelFlux
}

// Generate runs the backend for model under the generation deadline.
func (g *Generator) Generate(ctx context.Context, model slide.Model, prompt string) (Image, error) {
	backend, ok := g.backends[model]
	if !ok {
		return Image{}, fmt.Errorf("no backend configured for model %q", model)
	}

	gctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	slog.Info("generating image", "model", model, "prompt_len", len(prompt))
	return backend.Generate(gctx, prompt, g.cfg.Width, g.cfg.Height)
}

// BuildPrompt produces the generation prompt for the slide. Scenario
// styles describe the slide content directly; the generic path works
// from the extracted keywords. The prompt model call can fail
// independently of the image backend, and that failure is the
// caller's generation failure.
func (g *Generator) BuildPrompt(ctx context.Context, input slide.Input, intent slide.Intent) (string, error) {
	styleInstruction := styleInstructions[input.Style]
	colorInstruction := colorInstruction(input.Colors)

	if scenario := g.prompts.ScenarioSystem(string(input.Style)); scenario != "" {
		content, err := g.chat.Complete(ctx, g.cfg.PromptModel, scenario, slideText(input))
		if err != nil {
			return "", fmt.Errorf("build scenario prompt: %w", err)
		}
		content = strings.TrimSpace(content)
		if content == "" {
			return "", fmt.Errorf("scenario prompt model returned empty content")
		}
		return assemblePrompt(content, styleInstruction, colorInstruction, intent.NegativeKeywords), nil
	}

	system, err := g.prompts.RenderGenerationSystem(prompts.GenerationParams{
		StyleInstruction: styleInstruction,
		ColorInstruction: colorInstruction,
	})
	if err != nil {
		return "", fmt.Errorf("render generation prompt: %w", err)
	}
	user, err := g.prompts.RenderGenerationUser(prompts.GenerationParams{Keywords: intent.Refined})
	if err != nil {
		return "", fmt.Errorf("render generation prompt: %w", err)
	}

	sentence, err := g.chat.Complete(ctx, g.cfg.PromptModel, system, user)
	if err != nil {
		return "", fmt.Errorf("build generation prompt: %w", err)
	}
	sentence = strings.TrimSpace(sentence)
	if sentence == "" {
		return "", fmt.Errorf("prompt model returned empty content")
	}
	return assemblePrompt(sentence, "", "", intent.NegativeKeywords), nil
}

func assemblePrompt(content, styleInstruction, colorInstruction string, negative []string) string {
	parts := []string{content}
	if styleInstruction != "" {
		parts = append(parts, styleInstruction)
	}
	if colorInstruction != "" {
		parts = append(parts, colorInstruction)
	}
	if len(negative) > 0 {
		parts = append(parts, "Avoid: "+strings.Join(negative, ", ")+".")
	}
	return strings.Join(parts, " ")
}

func colorInstruction(c *slide.Colors) string {
	if c == nil {
		return ""
	}
	switch {
	case c.Primary != "" && c.Secondary != "":
		return fmt.Sprintf("Use %s and %s as accent colors.", c.Primary, c.Secondary)
	case c.Primary != "":
		return fmt.Sprintf("Use %s as the accent color.", c.Primary)
	case c.Secondary != "":
		return fmt.Sprintf("Use %s as the accent color.", c.Secondary)
	}
	return ""
}

func slideText(input slide.Input) string {
	var b strings.Builder
	b.WriteString("Title: ")
	b.WriteString(input.Title)
	for _, bullet := range input.Bullets {
		b.WriteString("\n- ")
		b.WriteString(bullet.Text)
		for _, sub := range bullet.Sub {
			b.WriteString("\n  - ")
			b.WriteString(sub)
		}
	}
	return b.String()
}
