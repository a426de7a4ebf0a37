package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kalambet/aidiary/internal/archive"
	"github.com/kalambet/aidiary/internal/config"
	"github.com/kalambet/aidiary/internal/dialogue"
	"github.com/kalambet/aidiary/internal/recordstore"
	"github.com/kalambet/aidiary/internal/remote"
	"github.com/kalambet/aidiary/internal/synthesis"
)

// apiClient bundles the backend clients used by the CLI commands.
type apiClient struct {
	remote     remote.Config
	httpClient *http.Client
	dialogue   dialogue.Options
	archive    archive.View
}

var newAPIClient = func() (*apiClient, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	setupLogging(cfg.Log.Level)

	token, err := config.GetAPIToken(config.NewSecretStore())
	if err != nil {
		return nil, fmt.Errorf("getting API token: %w", err)
	}

	return &apiClient{
		remote: remote.Config{
			BaseURL: cfg.Client.BaseURL,
			Token:   token,
			Timeout: cfg.Dialogue.Timeout(),
		},
		httpClient: &http.Client{Timeout: cfg.Dialogue.Timeout() + 5*time.Second},
		dialogue: dialogue.Options{
			Threshold: cfg.Dialogue.RoundThreshold,
			Timeout:   cfg.Dialogue.Timeout(),
		},
		archive: archive.View{
			PreviewChars: cfg.Archive.PreviewChars,
			Location:     cfg.Archive.Location(),
		},
	}, nil
}

func (c *apiClient) records() *recordstore.Client {
	return recordstore.New(c.remote, c.httpClient)
}

func (c *apiClient) synthesis() *synthesis.Client {
	return synthesis.New(c.remote, c.httpClient)
}

func (c *apiClient) engine() *dialogue.Engine {
	return dialogue.New(c.synthesis(), c.records(), c.dialogue)
}

// health checks that the backend answers /health.
func (c *apiClient) health(ctx context.Context) error {
	if _, err := remote.New(c.remote, c.httpClient).Do(ctx, "health", http.MethodGet, "/health", nil); err != nil {
		return fmt.Errorf("server not reachable at %s, is aidiary serve running? (%w)", c.remote.BaseURL, err)
	}
	return nil
}
