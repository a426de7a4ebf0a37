// Package recordstore is the HTTP client for the diary entry collection.
package recordstore

import (
	"context"
	"net/http"

	"github.com/kalambet/aidiary/internal/diary"
	"github.com/kalambet/aidiary/internal/remote"
)

// Client creates and lists diary entries on a remote record store.
type Client struct {
	t *remote.Transport
}

// New creates a Client. A nil httpClient uses a default one.
func New(cfg remote.Config, httpClient *http.Client) *Client {
	return &Client{t: remote.New(cfg, httpClient)}
}

// CreateRequest is the body of POST /entries. Sentiment channels are sent
// flattened next to the content.
type CreateRequest struct {
	Content  string   `json:"content"`
	Joy      *float64 `json:"joy,omitempty"`
	Anger    *float64 `json:"anger,omitempty"`
	Sadness  *float64 `json:"sadness,omitempty"`
	Pleasure *float64 `json:"pleasure,omitempty"`
}

// Sentiment returns the vector carried by the request, or nil unless all
// four channels are set.
func (r CreateRequest) Sentiment() *diary.SentimentVector {
	if r.Joy == nil || r.Anger == nil || r.Sadness == nil || r.Pleasure == nil {
		return nil
	}
	return &diary.SentimentVector{Joy: *r.Joy, Anger: *r.Anger, Sadness: *r.Sadness, Pleasure: *r.Pleasure}
}

// CreateResponse is the body returned by POST /entries.
type CreateResponse struct {
	ID      diary.EntryID `json:"id"`
	Message string        `json:"message,omitempty"`
}

// NewCreateRequest builds the request body for content and an optional vector.
func NewCreateRequest(content string, s *diary.SentimentVector) CreateRequest {
	req := CreateRequest{Content: content}
	if s != nil {
		joy, anger, sadness, pleasure := s.Joy, s.Anger, s.Sadness, s.Pleasure
		req.Joy, req.Anger, req.Sadness, req.Pleasure = &joy, &anger, &sadness, &pleasure
	}
	return req
}

// CreateEntry persists a new entry and returns its store-assigned id.
func (c *Client) CreateEntry(ctx context.Context, content string, s *diary.SentimentVector) (diary.EntryID, error) {
	var resp CreateResponse
	if err := c.t.DoJSON(ctx, "create entry", http.MethodPost, "/entries", NewCreateRequest(content, s), &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// ListEntries returns all entries, newest first. An empty collection is an
// empty slice.
func (c *Client) ListEntries(ctx context.Context) ([]diary.Entry, error) {
	var entries []diary.Entry
	if err := c.t.DoJSON(ctx, "list entries", http.MethodGet, "/entries", nil, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []diary.Entry{}
	}
	return entries, nil
}
