package config

import (
	"context"
	"fmt"
	"log/slog"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// Secret Manager secret names checked when SECRET_MANAGER_PROJECT is
// set. A secret only overrides its field when the env var left it
// empty, so local env always wins.
var secretBindings = []struct {
	name  string
	field func(*Config) *string
}{
	{"openrouter-api-key", func(c *Config) *string { return &c.OpenRouterAPIKey }},
	{"groq-api-key", func(c *Config) *string { return &c.GroqAPIKey }},
	{"gemini-api-key", func(c *Config) *string { return &c.GeminiAPIKey }},
	{"unsplash-access-key", func(c *Config) *string { return &c.UnsplashAccessKey }},
	{"pexels-api-key", func(c *Config) *string { return &c.PexelsAPIKey }},
	{"sightengine-api-user", func(c *Config) *string { return &c.SightEngineUser }},
	{"sightengine-api-secret", func(c *Config) *string { return &c.SightEngineSecret }},
	{"flux-api-key", func(c *Config) *string { return &c.FluxAPIKey }},
}

func resolveSecrets(ctx context.Context, project string, cfg *Config) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("create secret manager client: %w", err)
	}
	defer func() { _ = client.Close() }()

	for _, binding := range secretBindings {
		target := binding.field(cfg)
		if *target != "" {
			continue
		}

		resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
			Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest", project, binding.name),
		})
		if err != nil {
			slog.Debug("Secret not available", "secret", binding.name, "error", err)
			continue
		}
		*target = string(resp.Payload.Data)
	}

	return nil
}
