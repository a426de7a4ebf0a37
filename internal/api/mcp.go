package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/aidiary/internal/archive"
	"github.com/kalambet/aidiary/internal/dialogue"
	"github.com/kalambet/aidiary/internal/diary"
	"github.com/kalambet/aidiary/internal/sentiment"
	"github.com/kalambet/aidiary/internal/storage"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
	recentPreview    = 80
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store     *storage.Store
	Generator Generator // optional; if nil, summarize_transcript returns an error
}

// NewMCPServer creates an MCP server with the diary tools and resources registered.
func NewMCPServer(deps MCPDeps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"aidiary",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("aidiary: a personal diary. Save entries, browse recent ones, and turn a Q/A transcript into a diary draft."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("save_entry",
			mcp.WithDescription("Save a diary entry. Sentiment is stored only when all four channels are given."),
			mcp.WithString("content", mcp.Description("Diary text"), mcp.Required()),
			mcp.WithNumber("joy", mcp.Description("Joy score in [0,1]")),
			mcp.WithNumber("anger", mcp.Description("Anger score in [0,1]")),
			mcp.WithNumber("sadness", mcp.Description("Sadness score in [0,1]")),
			mcp.WithNumber("pleasure", mcp.Description("Pleasure score in [0,1]")),
		),
		mcpSaveEntry(deps),
	)

	s.AddTool(
		mcp.NewTool("list_entries",
			mcp.WithDescription("List diary entries, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of entries (default 10, max 100)")),
		),
		mcpListEntries(deps),
	)

	s.AddTool(
		mcp.NewTool("summarize_transcript",
			mcp.WithDescription("Turn a Q:/A: dialogue transcript into a diary draft with sentiment scores. Nothing is saved."),
			mcp.WithString("transcript", mcp.Description("Transcript with one 'Q:' or 'A:' line per turn"), mcp.Required()),
		),
		mcpSummarizeTranscript(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"diary://recent",
			"Recent Entries",
			mcp.WithResourceDescription("Last 10 diary entries with previews and sentiment"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpSaveEntry(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, err := req.RequireString("content")
		if err != nil {
			return mcpError("content is required"), nil
		}

		vec, err := sentimentArgs(req.GetArguments())
		if err != nil {
			return mcpError(err.Error()), nil
		}

		id, err := deps.Store.CreateEntry(ctx, content, vec)
		if errors.Is(err, diary.ErrEmptyContent) {
			return mcpError("content must not be blank"), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to save entry: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("saved entry %d", id)), nil
	}
}

// sentimentArgs returns a vector when all four channels are present and nil
// when none or only some are.
func sentimentArgs(args map[string]any) (*diary.SentimentVector, error) {
	vals := make([]float64, 0, len(sentiment.Channels))
	for _, c := range sentiment.Channels {
		raw, ok := args[string(c)]
		if !ok || raw == nil {
			return nil, nil
		}
		f, ok := raw.(float64)
		if !ok {
			return nil, fmt.Errorf("%s must be a number", c)
		}
		vals = append(vals, sentiment.Clamp(f))
	}
	return &diary.SentimentVector{Joy: vals[0], Anger: vals[1], Sadness: vals[2], Pleasure: vals[3]}, nil
}

type entrySummary struct {
	ID        diary.EntryID          `json:"id"`
	CreatedAt string                 `json:"created_at"`
	Preview   string                 `json:"preview"`
	Sentiment *diary.SentimentVector `json:"sentiment,omitempty"`
}

func summarizeEntries(entries []diary.Entry, previewChars int) []entrySummary {
	out := make([]entrySummary, len(entries))
	for i, e := range entries {
		vec, _ := e.Sentiment.Decode()
		out[i] = entrySummary{
			ID:        e.ID,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
			Preview:   archive.Preview(e.Content, previewChars),
			Sentiment: vec,
		}
	}
	return out
}

func mcpListEntries(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", defaultListLimit)
		if limit <= 0 {
			limit = defaultListLimit
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}

		entries, err := deps.Store.RecentEntries(ctx, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list entries: %v", err)), nil
		}

		b, err := json.Marshal(summarizeEntries(entries, recentPreview))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal entries: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

type draftResult struct {
	Diary      string                 `json:"diary"`
	Sentiment  *diary.SentimentVector `json:"sentiment"`
	ParseError string                 `json:"parse_error,omitempty"`
}

func mcpSummarizeTranscript(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Generator == nil {
			return mcpError("summarization unavailable: generator is not configured"), nil
		}

		transcript, err := req.RequireString("transcript")
		if err != nil {
			return mcpError("transcript is required"), nil
		}

		raw, err := deps.Generator.Summarize(ctx, transcript)
		if err != nil {
			return mcpError(fmt.Sprintf("summarization failed: %v", err)), nil
		}

		draft, perr := dialogue.ParseSummary(raw)
		res := draftResult{Diary: draft.Text, Sentiment: draft.Sentiment}
		if perr != nil {
			res.ParseError = perr.Error()
		}

		b, err := json.Marshal(res)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal draft: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		entries, err := deps.Store.RecentEntries(ctx, defaultListLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent entries: %w", err)
		}

		b, err := json.Marshal(summarizeEntries(entries, recentPreview))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal entries: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
