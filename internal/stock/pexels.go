package stock

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"slideimage/internal/slide"
	"slideimage/pkg/httputil"
)

const pexelsSearchURL = "https://api.pexels.com/v1/search"

type PexelsClient struct {
	apiKey     string
	httpClient *httputil.RetryClient
	baseURL    string
}

type pexelsResponse struct {
	Photos []pexelsPhoto `json:"photos"`
}

type pexelsPhoto struct {
	ID              int64  `json:"id"`
	Alt             string `json:"alt"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	Photographer    string `json:"photographer"`
	PhotographerURL string `json:"photographer_url"`
	Src             struct {
		Original string `json:"original"`
		Large2x  string `json:"large2x"`
		Large    string `json:"large"`
	} `json:"src"`
}

func NewPexelsClient(apiKey string) *PexelsClient {
	return &PexelsClient{
		apiKey: apiKey,
		httpClient: httputil.NewRetryClient(&http.Client{
			Timeout: 15 * time.Second,
		}, httputil.DefaultRetryConfig()),
		baseURL: pexelsSearchURL,
	}
}

func (c *PexelsClient) Name() slide.Provider {
	return slide.ProviderPexels
}

func (c *PexelsClient) Search(ctx context.Context, query string, perPage int) ([]Candidate, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(perPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("pexels api error: %s: %s", resp.Status, string(body))
	}

	var parsed pexelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	candidates := make([]Candidate, 0, len(parsed.Photos))
	for _, photo := range parsed.Photos {
		regular := photo.Src.Large2x
		if regular == "" {
			regular = photo.Src.Large
		}
		full := photo.Src.Original
		if full == "" {
			full = photo.Src.Large2x
		}
		candidates = append(candidates, Candidate{
			Provider:        slide.ProviderPexels,
			ID:              strconv.FormatInt(photo.ID, 10),
			Alt:             photo.Alt,
			RegularURL:      regular,
			FullURL:         full,
			Width:           photo.Width,
			Height:          photo.Height,
			Photographer:    photo.Photographer,
			PhotographerURL: photo.PhotographerURL,
		})
	}
	return candidates, nil
}
