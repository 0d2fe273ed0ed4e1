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

const unsplashSearchURL = "https://api.unsplash.com/search/photos"

type UnsplashClient struct {
	accessKey  string
	httpClient *httputil.RetryClient
	baseURL    string
}

type unsplashResponse struct {
	Results []unsplashPhoto `json:"results"`
}

type unsplashPhoto struct {
	ID             string `json:"id"`
	AltDescription string `json:"alt_description"`
	Description    string `json:"description"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	URLs           struct {
		Raw     string `json:"raw"`
		Full    string `json:"full"`
		Regular string `json:"regular"`
	} `json:"urls"`
	User struct {
		Name  string `json:"name"`
		Links struct {
			HTML string `json:"html"`
		} `json:"links"`
	} `json:"user"`
}

func NewUnsplashClient(accessKey string) *UnsplashClient {
	return &UnsplashClient{
		accessKey: accessKey,
		httpClient: httputil.NewRetryClient(&http.Client{
			Timeout: 15 * time.Second,
		}, httputil.DefaultRetryConfig()),
		baseURL: unsplashSearchURL,
	}
}

func (c *UnsplashClient) Name() slide.Provider {
	return slide.ProviderUnsplash
}

func (c *UnsplashClient) Search(ctx context.Context, query string, perPage int) ([]Candidate, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(perPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unsplash api error: %s: %s", resp.Status, string(body))
	}

	var parsed unsplashResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	candidates := make([]Candidate, 0, len(parsed.Results))
	for _, photo := range parsed.Results {
		alt := photo.AltDescription
		if alt == "" {
			alt = photo.Description
		}
		regular := photo.URLs.Regular
		if regular == "" {
			regular = photo.URLs.Full
		}
		full := photo.URLs.Full
		if full == "" {
			full = photo.URLs.Raw
		}
		candidates = append(candidates, Candidate{
			Provider:        slide.ProviderUnsplash,
			ID:              photo.ID,
			Alt:             alt,
			RegularURL:      regular,
			FullURL:         full,
			Width:           photo.Width,
			Height:          photo.Height,
			Photographer:    photo.User.Name,
			PhotographerURL: photo.User.Links.HTML,
		})
	}
	return candidates, nil
}
