// Package remote is the shared HTTP plumbing of the diary clients.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kalambet/aidiary/internal/diary"
)

// maxBodyBytes bounds how much of a response is read. Larger successful
// responses are rejected rather than truncated.
const maxBodyBytes = 4 << 20

// Config points a client at a diary backend.
type Config struct {
	BaseURL string
	Token   string
	// Timeout applies per request; zero means no client-side timeout beyond
	// the caller's context.
	Timeout time.Duration
}

// Transport issues JSON requests against a diary backend and maps failures
// to diary.TransportError.
type Transport struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a Transport. A nil httpClient gets a default client honoring
// cfg.Timeout.
func New(cfg Config, httpClient *http.Client) *Transport {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Transport{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: httpClient,
	}
}

// Do sends body as JSON (when non-nil) and returns the raw response body of a
// 2xx response. op names the operation in errors.
func (t *Transport) Do(ctx context.Context, op, method, path string, body any) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling %s request: %w", op, err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, bodyReader)
	if err != nil {
		return nil, &diary.TransportError{Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, &diary.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, &diary.TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("reading body: %w", err)}
	}
	oversized := len(data) > maxBodyBytes
	if oversized {
		data = data[:maxBodyBytes]
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &diary.TransportError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	// A truncated payload would decode as something else or not at all.
	if oversized {
		return nil, &diary.ParseError{What: op + " response", Err: fmt.Errorf("body exceeds %d bytes", maxBodyBytes)}
	}
	return data, nil
}

// DoJSON is Do followed by decoding the response into v. A body that does not
// decode is a diary.ParseError.
func (t *Transport) DoJSON(ctx context.Context, op, method, path string, body, v any) error {
	data, err := t.Do(ctx, op, method, path, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &diary.ParseError{What: op + " response", Err: err}
	}
	return nil
}
