package genimage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"slideimage/pkg/httputil"
)

const fluxAPIBaseURL = "https://api.bfl.ai"

// FluxBackend submits a generation task to the BFL API and polls the
// returned polling URL until the task resolves.
type FluxBackend struct {
	apiKey       string
	model        string
	httpClient   *httputil.RetryClient
	baseURL      string
	pollAttempts int
	initialWait  time.Duration
	pollInterval time.Duration
}

type fluxSubmitRequest struct {
	Prompt          string `json:"prompt"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	Steps           int    `json:"steps"`
	Guidance        int    `json:"guidance"`
	SafetyTolerance int    `json:"safety_tolerance"`
	OutputFormat    string `json:"output_format"`
}

type fluxSubmitResponse struct {
	ID         string `json:"id"`
	PollingURL string `json:"polling_url"`
}

type fluxPollResponse struct {
	Status string `json:"status"`
	Result struct {
		Sample string `json:"sample"`
	} `json:"result"`
	Details json.RawMessage `json:"details"`
}

func NewFluxBackend(apiKey, model string, pollAttempts int) *FluxBackend {
	if model == "" {
		model = "flux-2-pro"
	}
	if pollAttempts == 0 {
		pollAttempts = 10
	}
	return &FluxBackend{
		apiKey: apiKey,
		model:  model,
		httpClient: httputil.NewRetryClient(&http.Client{
			Timeout: 30 * time.Second,
		}, httputil.DefaultRetryConfig()),
		baseURL:      fluxAPIBaseURL,
		pollAttempts: pollAttempts,
		initialWait:  15 * time.Second,
		pollInterval: 3 * time.Second,
	}
}

func (b *FluxBackend) Generate(ctx context.Context, prompt string, width, height int) (Image, error) {
	pollingURL, err := b.submit(ctx, prompt, width, height)
	if err != nil {
		return Image{}, err
	}

	// The task rarely resolves before the first long wait, so poll
	// only after it.
	if err := sleepCtx(ctx, b.initialWait); err != nil {
		return Image{}, err
	}

	for attempt := 0; attempt < b.pollAttempts; attempt++ {
		poll, err := b.poll(ctx, pollingURL)
		if err != nil {
			return Image{}, err
		}

		switch strings.ToLower(poll.Status) {
		case "ready", "succeeded":
			if poll.Result.Sample == "" {
				return Image{}, fmt.Errorf("flux task finished without a sample url")
			}
			return Image{URL: poll.Result.Sample}, nil
		case "failed", "error", "content moderated", "request moderated", "task not found":
			return Image{}, fmt.Errorf("flux task failed: %s: %s", poll.Status, string(poll.Details))
		}

		if err := sleepCtx(ctx, b.pollInterval*time.Duration(attempt+1)); err != nil {
			return Image{}, err
		}
	}
	return Image{}, fmt.Errorf("flux task did not finish after %d polls", b.pollAttempts)
}

func (b *FluxBackend) submit(ctx context.Context, prompt string, width, height int) (string, error) {
	payload, err := json.Marshal(fluxSubmitRequest{
		Prompt:          prompt,
		Width:           width,
		Height:          height,
		Steps:           28,
		Guidance:        3,
		SafetyTolerance: 2,
		OutputFormat:    "jpeg",
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v1/"+b.model, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-key", b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit task: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("flux api error: %s: %s", resp.Status, string(body))
	}

	var parsed fluxSubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("parse submit response: %w", err)
	}
	if parsed.PollingURL == "" {
		return "", fmt.Errorf("flux submit response missing polling url")
	}
	return parsed.PollingURL, nil
}

func (b *FluxBackend) poll(ctx context.Context, pollingURL string) (*fluxPollResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pollingURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-key", b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll task: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("flux poll error: %s: %s", resp.Status, string(body))
	}

	var parsed fluxPollResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse poll response: %w", err)
	}
	return &parsed, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
