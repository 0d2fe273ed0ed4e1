package genimage

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"slideimage/pkg/httputil"
)

const imagenAPIBaseURL = "https://openrouter.ai/api/v1"

// ImagenBackend generates images synchronously through the OpenRouter
// image endpoint.
type ImagenBackend struct {
	apiKey     string
	model      string
	httpClient *httputil.RetryClient
	baseURL    string
}

type imagenRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size,omitempty"`
}

type imagenResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewImagenBackend(apiKey, model string) *ImagenBackend {
	if model == "" {
		model = "google/imagen-4"
	}
	return &ImagenBackend{
		apiKey: apiKey,
		model:  model,
		httpClient: httputil.NewRetryClient(&http.Client{
			Timeout: 90 * time.Second,
		}, httputil.DefaultRetryConfig()),
		baseURL: imagenAPIBaseURL,
	}
}

func (b *ImagenBackend) Generate(ctx context.Context, prompt string, width, height int) (Image, error) {
	payload, err := json.Marshal(imagenRequest{
		Model:  b.model,
		Prompt: prompt,
		N:      1,
		Size:   fmt.Sprintf("%dx%d", width, height),
	})
	if err != nil {
		return Image{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/images/generations", bytes.NewReader(payload))
	if err != nil {
		return Image{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return Image{}, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Image{}, fmt.Errorf("imagen api error: %s: %s", resp.Status, string(body))
	}

	var parsed imagenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Image{}, fmt.Errorf("parse response: %w", err)
	}
	if parsed.Error != nil {
		return Image{}, fmt.Errorf("imagen api error: %s", parsed.Error.Message)
	}
	if len(parsed.Data) == 0 {
		return Image{}, fmt.Errorf("imagen response contained no images")
	}

	first := parsed.Data[0]
	if first.URL != "" {
		return Image{URL: first.URL}, nil
	}
	if first.B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(first.B64JSON)
		if err != nil {
			return Image{}, fmt.Errorf("decode image payload: %w", err)
		}
		return Image{Data: data, MediaType: "image/png"}, nil
	}
	return Image{}, fmt.Errorf("imagen response image is empty")
}
