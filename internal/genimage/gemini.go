package genimage

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiBackend generates images with a multimodal Gemini model. It
// is the only backend that can render illustration styles reliably,
// so the model router sends flat_illustration and fine_line here.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

func NewGeminiBackend(ctx context.Context, apiKey, model string) (*GeminiBackend, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-2.5-flash-image"
	}
	return &GeminiBackend{client: client, model: model}, nil
}

func (b *GeminiBackend) Generate(ctx context.Context, prompt string, width, height int) (Image, error) {
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	resp, err := b.client.Models.GenerateContent(ctx, b.model, genai.Text(prompt), config)
	if err != nil {
		return Image{}, fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Image{}, fmt.Errorf("empty gemini response")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			mediaType := part.InlineData.MIMEType
			if mediaType == "" {
				mediaType = "image/png"
			}
			return Image{Data: part.InlineData.Data, MediaType: mediaType}, nil
		}
	}
	return Image{}, fmt.Errorf("gemini response contained no image part")
}
