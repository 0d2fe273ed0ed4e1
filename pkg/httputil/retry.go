// Package httputil wraps net/http with retry-on-transient-failure
// behavior shared by the provider clients.
package httputil

import (
	"math/rand"
	"net"
	"net/http"
	"time"
)

type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   2,
		InitialDelay: 300 * time.Millisecond,
		MaxDelay:     3 * time.Second,
		Multiplier:   2.0,
	}
}

type RetryClient struct {
	client *http.Client
	config RetryConfig
}

func NewRetryClient(client *http.Client, config RetryConfig) *RetryClient {
	if client == nil {
		client = http.DefaultClient
	}
	defaults := DefaultRetryConfig()
	if config.MaxRetries == 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.InitialDelay == 0 {
		config.InitialDelay = defaults.InitialDelay
	}
	if config.MaxDelay == 0 {
		config.MaxDelay = defaults.MaxDelay
	}
	if config.Multiplier == 0 {
		config.Multiplier = defaults.Multiplier
	}
	return &RetryClient{client: client, config: config}
}

// Do issues the request, retrying on transport errors, 429 and 5xx.
// Waits between attempts respect the request context, so a caller's
// deadline cuts the retry loop short instead of overshooting it.
func (c *RetryClient) Do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error
	delay := c.config.InitialDelay

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if req.GetBody != nil {
				body, bodyErr := req.GetBody()
				if bodyErr != nil {
					return nil, bodyErr
				}
				req.Body = body
			}

			timer := time.NewTimer(withJitter(delay))
			select {
			case <-req.Context().Done():
				timer.Stop()
				return nil, req.Context().Err()
			case <-timer.C:
			}
			delay = min(time.Duration(float64(delay)*c.config.Multiplier), c.config.MaxDelay)
		}

		resp, err = c.client.Do(req)
		if !retryable(resp, err) {
			return resp, err
		}
		if req.Context().Err() != nil {
			return resp, err
		}
		if attempt == c.config.MaxRetries {
			break
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
	}

	return resp, err
}

func retryable(resp *http.Response, err error) bool {
	if err != nil {
		_, netFailure := err.(net.Error)
		return netFailure
	}
	return resp.StatusCode == http.StatusTooManyRequests ||
		(resp.StatusCode >= 500 && resp.StatusCode < 600)
}

func withJitter(delay time.Duration) time.Duration {
	factor := 0.85 + rand.Float64()*0.3
	return time.Duration(float64(delay) * factor)
}
