// Package prompts holds the language-model prompt set. Compiled-in
// defaults can be overridden per deployment via prompts.yaml.
package prompts

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

const defaultPromptsPath = "prompts.yaml"

type Prompts struct {
	System   SystemPrompts     `yaml:"system"`
	User     UserPrompts       `yaml:"user"`
	Scenario map[string]string `yaml:"scenario"`
}

type SystemPrompts struct {
	Extraction string `yaml:"extraction"`
	Refinement string `yaml:"refinement"`
	Generation string `yaml:"generation"`
}

type UserPrompts struct {
	Refinement string `yaml:"refinement"`
	Generation string `yaml:"generation"`
}

type RefinementParams struct {
	Keywords string
}

type GenerationParams struct {
	Keywords         string
	StyleInstruction string
	ColorInstruction string
}

const extractionSystem = `You extract stock-photo search keywords from presentation slide text.
Rules:
- No brand names, person names, confidential data, or numbers/IDs without visual meaning.
- Produce generic, visual English terms (e.g. "teamwork", "data analytics").
- Focus on subject, scene, object, mood, environment.
- If the text is unusable for imagery (agenda, pure number listings), return "skip": true and empty lists.
Output: ONLY valid JSON with keys in this order:
{
 "skip": boolean,
 "topics": string[],            // 3-6 short topic labels in the slide's language
 "english_keywords": string[],  // 10-15 search-optimized terms (EN, lowercase)
 "style": string[],             // 2-4 (e.g. "minimal", "isometric", "aerial")
 "negative_keywords": string[], // 5-10 (e.g. "text","watermark","logo","diagram","screenshot")
 "constraints": { "orientation": "landscape"|"portrait"|"square", "color": string|null }
}
Ensure every value is an array without duplicates; drop filler words.`

const refinementSystem = `Reduce the given keywords to the 2-3 most important English terms for a stock photo search.

Context: the image will sit on a presentation slide.

Answer with 2-3 keywords only, comma separated, e.g. "dog, meadow". Nothing else.`

const refinementUser = `All extracted keywords: {{.Keywords}}`

const generationSystem = `From keywords, style and optional colors, write a one-sentence prompt for an image generation model.

The image must suit a presentation slide, so avoid motifs that only work in private settings.

{{.StyleInstruction}}
{{.ColorInstruction}}

Answer with exactly one sentence.`

const generationUser = `Keywords: {{.Keywords}}`

const scenarioContent = `You convert a slide description into a concise English content prompt for an image generation model.

From the slide's title and bullet points, write 1-3 English sentences describing what should be visible in an illustration that supports the slide's main idea: a small scene with 1-3 people or key objects, a simple process, or a symbolic metaphor. Keep the concept simple and uncluttered.

Constraints:
- Output only the content description as plain prose, no JSON or lists.
- Do not mention visual style, medium, colours, lighting, aspect ratio or composition terms.
- Do not include negative instructions such as "no text" or "no watermark".
- Write natural English even if the input is in another language.`

// Default returns the compiled-in prompt set.
func Default() *Prompts {
	return &Prompts{
		System: SystemPrompts{
			Extraction: extractionSystem,
			Refinement: refinementSystem,
			Generation: generationSystem,
		},
		User: UserPrompts{
			Refinement: refinementUser,
			Generation: generationUser,
		},
		Scenario: map[string]string{
			"flat_illustration": scenarioContent,
			"fine_line":         scenarioContent,
			"photorealistic":    scenarioContent,
		},
	}
}

// Load returns the defaults merged with prompts.yaml when present.
func Load() (*Prompts, error) {
	return LoadFrom(defaultPromptsPath)
}

func LoadFrom(path string) (*Prompts, error) {
	p := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, fmt.Errorf("read prompts file: %w", err)
	}

	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse prompts file: %w", err)
	}
	return p, nil
}

func (p *Prompts) RenderRefinement(params RefinementParams) (string, error) {
	return render(p.User.Refinement, params)
}

func (p *Prompts) RenderGenerationSystem(params GenerationParams) (string, error) {
	return render(p.System.Generation, params)
}

func (p *Prompts) RenderGenerationUser(params GenerationParams) (string, error) {
	return render(p.User.Generation, params)
}

// ScenarioSystem returns the content-prompt system prompt for the
// given scenario style, or empty when none is registered.
func (p *Prompts) ScenarioSystem(style string) string {
	return p.Scenario[style]
}

func render(text string, params any) (string, error) {
	tmpl, err := template.New("prompt").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse prompt template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("render prompt template: %w", err)
	}
	return buf.String(), nil
}
