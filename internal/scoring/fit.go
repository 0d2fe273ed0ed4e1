package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"slideimage/pkg/httputil"
)

// FitClient asks the external presentation-fit service how well an
// image matches a slide topic. Optional: when no service URL is
// configured the pipeline skips fit scoring entirely.
type FitClient struct {
	baseURL    string
	httpClient *httputil.RetryClient
}

type fitRequest struct {
	ImageURL string `json:"image_url"`
	Topic    string `json:"topic"`
}

type fitResponse struct {
	PresentationScore float64 `json:"presentation_score"`
}

func NewFitClient(baseURL string) *FitClient {
	return &FitClient{
		baseURL: baseURL,
		httpClient: httputil.NewRetryClient(&http.Client{
			Timeout: 30 * time.Second,
		}, httputil.DefaultRetryConfig()),
	}
}

// Score returns the presentation-fit score in [0,1] for imageURL
// against topic.
func (c *FitClient) Score(ctx context.Context, imageURL, topic string) (float64, error) {
	payload, err := json.Marshal(fitRequest{ImageURL: imageURL, Topic: topic})
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/score", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("fit service error: %s: %s", resp.Status, string(body))
	}

	var parsed fitResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("parse response: %w", err)
	}
	return parsed.PresentationScore, nil
}
