package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"slideimage/pkg/httputil"
)

const sightEngineCheckURL = "https://api.sightengine.com/1.0/check.json"

// SightEngineClient scores image URLs for technical quality and
// nudity safety via the SightEngine check endpoint.
type SightEngineClient struct {
	apiUser    string
	apiSecret  string
	httpClient *httputil.RetryClient
	baseURL    string
}

type sightEngineResponse struct {
	Status string `json:"status"`
	Error  struct {
		Message string `json:"message"`
	} `json:"error"`
	Quality struct {
		Score float64 `json:"score"`
	} `json:"quality"`
	Nudity struct {
		SuggestiveClasses struct {
			CleavageCategories struct {
				None *float64 `json:"none"`
			} `json:"cleavage_categories"`
		} `json:"suggestive_classes"`
	} `json:"nudity"`
}

func NewSightEngineClient(apiUser, apiSecret string) *SightEngineClient {
	return &SightEngineClient{
		apiUser:   apiUser,
		apiSecret: apiSecret,
		httpClient: httputil.NewRetryClient(&http.Client{
			Timeout: 20 * time.Second,
		}, httputil.DefaultRetryConfig()),
		baseURL: sightEngineCheckURL,
	}
}

func (c *SightEngineClient) check(ctx context.Context, imageURL, models string) (*sightEngineResponse, error) {
	params := url.Values{}
	params.Set("url", imageURL)
	params.Set("models", models)
	params.Set("api_user", c.apiUser)
	params.Set("api_secret", c.apiSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("sightengine api error: %s: %s", resp.Status, string(body))
	}

	var parsed sightEngineResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if parsed.Status != "success" {
		return nil, fmt.Errorf("sightengine check failed: %s", parsed.Error.Message)
	}
	return &parsed, nil
}

// Quality returns the technical quality score in [0,1].
func (c *SightEngineClient) Quality(ctx context.Context, imageURL string) (float64, error) {
	parsed, err := c.check(ctx, imageURL, "quality")
	if err != nil {
		return 0, err
	}
	return parsed.Quality.Score, nil
}

// NuditySafe returns how safe the image is, 1.0 meaning fully safe.
// A response that omits the field counts as safe.
func (c *SightEngineClient) NuditySafe(ctx context.Context, imageURL string) (float64, error) {
	parsed, err := c.check(ctx, imageURL, "nudity-2.1")
	if err != nil {
		return 0, err
	}
	if none := parsed.Nudity.SuggestiveClasses.CleavageCategories.None; none != nil {
		return *none, nil
	}
	return 1.0, nil
}
