// Package synthesis is the HTTP client for the question and summary
// generator endpoints.
package synthesis

import (
	"context"
	"net/http"

	"github.com/kalambet/aidiary/internal/remote"
)

// Client asks the backend for follow-up questions and diary drafts.
type Client struct {
	t *remote.Transport
}

// New creates a Client. A nil httpClient uses a default one.
func New(cfg remote.Config, httpClient *http.Client) *Client {
	return &Client{t: remote.New(cfg, httpClient)}
}

// AskRequest is the body of POST /diary/ask.
type AskRequest struct {
	History string `json:"history"`
	Round   int    `json:"round"`
}

// AskResponse is the body returned by POST /diary/ask.
type AskResponse struct {
	Question string `json:"question"`
	Round    int    `json:"round"`
}

// SummaryRequest is the body of POST /diary/summary.
type SummaryRequest struct {
	Transcript string `json:"transcript"`
}

// Message is one chat turn for the /chat and /generate_diary endpoints.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /chat and POST /generate_diary.
type ChatRequest struct {
	Messages []Message `json:"messages"`
}

// ChatResponse is the body returned by POST /chat.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// NextQuestion returns the next question for the transcript and the round
// counter the backend assigned to it.
func (c *Client) NextQuestion(ctx context.Context, transcript string, round int) (string, int, error) {
	var resp AskResponse
	if err := c.t.DoJSON(ctx, "next question", http.MethodPost, "/diary/ask", AskRequest{History: transcript, Round: round}, &resp); err != nil {
		return "", 0, err
	}
	return resp.Question, resp.Round, nil
}

// Summarize returns the raw, unvalidated summary body for the transcript.
func (c *Client) Summarize(ctx context.Context, transcript string) (string, error) {
	data, err := c.t.Do(ctx, "summarize", http.MethodPost, "/diary/summary", SummaryRequest{Transcript: transcript})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Chat sends a free-form conversation and returns the assistant reply.
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	var resp ChatResponse
	if err := c.t.DoJSON(ctx, "chat", http.MethodPost, "/chat", ChatRequest{Messages: messages}, &resp); err != nil {
		return "", err
	}
	return resp.Reply, nil
}

// GenerateDiary asks for a diary draft from a free-form conversation and
// returns the raw body. It follows the same contract as Summarize.
func (c *Client) GenerateDiary(ctx context.Context, messages []Message) (string, error) {
	data, err := c.t.Do(ctx, "generate diary", http.MethodPost, "/generate_diary", ChatRequest{Messages: messages})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
