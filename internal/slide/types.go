// Package slide holds the request and result types shared across the
// image-selection pipeline.
package slide

type ImageMode string

const (
	ModeAuto      ImageMode = "auto"
	ModeStockOnly ImageMode = "stock_only"
	ModeAIOnly    ImageMode = "ai_only"
)

// Normalize maps the empty mode to ModeAuto.
func (m ImageMode) Normalize() ImageMode {
	if m == "" {
		return ModeAuto
	}
	return m
}

func (m ImageMode) Valid() bool {
	switch m.Normalize() {
	case ModeAuto, ModeStockOnly, ModeAIOnly:
		return true
	}
	return false
}

type Style string

const (
	StyleNone             Style = ""
	StyleFlatIllustration Style = "flat_illustration"
	StyleFineLine         Style = "fine_line"
	StylePhotorealistic   Style = "photorealistic"
)

// ForcesIllustration reports whether the style requires an
// illustration-capable generation backend and therefore skips the
// stock-photo path entirely.
func (s Style) ForcesIllustration() bool {
	return s == StyleFlatIllustration || s == StyleFineLine
}

type Provider string

const (
	ProviderUnsplash Provider = "unsplash"
	ProviderPexels   Provider = "pexels"
)

type Model string

const (
	ModelAuto   Model = "auto"
	ModelFlux   Model = "flux"
	ModelImagen Model = "imagen"
	ModelGemini Model = "gemini"
)

func (m Model) Normalize() Model {
	if m == "" {
		return ModelAuto
	}
	return m
}

func (m Model) Valid() bool {
	switch m.Normalize() {
	case ModelAuto, ModelFlux, ModelImagen, ModelGemini:
		return true
	}
	return false
}

const (
	SourceNone   = "none"
	SourceFailed = "failed"
)

// StockSource is the result tag for a stock candidate, e.g. "stock_unsplash".
func StockSource(p Provider) string {
	return "stock_" + string(p)
}

// GeneratedSource is the result tag for a generated image, e.g. "generated_flux".
func GeneratedSource(m Model) string {
	return "generated_" + string(m)
}

type Colors struct {
	Primary   string `json:"primary,omitempty"`
	Secondary string `json:"secondary,omitempty"`
}

type Bullet struct {
	Text string   `json:"bullet"`
	Sub  []string `json:"sub,omitempty"`
}

// Input describes one slide. Immutable for the duration of a request.
type Input struct {
	Title    string    `json:"title"`
	Bullets  []Bullet  `json:"bullets,omitempty"`
	Keywords []string  `json:"keywords,omitempty"`
	Style    Style     `json:"style,omitempty"`
	Mode     ImageMode `json:"image_mode,omitempty"`
	AIModel  Model     `json:"ai_model,omitempty"`
	Colors   *Colors   `json:"colors,omitempty"`
}

type Constraints struct {
	Orientation string `json:"orientation,omitempty"`
	Color       string `json:"color,omitempty"`
}

// Intent is the structured visual-search intent produced by keyword
// extraction. Produced once per request, never mutated afterwards.
type Intent struct {
	Skip             bool        `json:"skip"`
	Topics           []string    `json:"topics"`
	EnglishKeywords  []string    `json:"english_keywords"`
	Style            []string    `json:"style"`
	NegativeKeywords []string    `json:"negative_keywords"`
	Constraints      Constraints `json:"constraints"`

	// Refined is the comma-joined 2-3 keyword search string derived
	// from EnglishKeywords. Not part of the extraction JSON.
	Refined string `json:"-"`
}

// Result is the terminal artifact of one pipeline run. Exactly one is
// produced per request; SourceNone and SourceFailed both carry an
// empty or placeholder URL but mean different things.
type Result struct {
	URL             string `json:"url"`
	Source          string `json:"source"`
	Keywords        string `json:"keywords"`
	Photographer    string `json:"photographer,omitempty"`
	PhotographerURL string `json:"photographer_url,omitempty"`
	Error           string `json:"error,omitempty"`
}
