// Package generator turns dialogue transcripts into questions and diary
// drafts using an llm.Engine.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/aidiary/internal/llm"
)

const generationTimeout = 90 * time.Second

// ErrEmptyOutput is returned when the engine produced no usable text.
var ErrEmptyOutput = errors.New("generator returned empty output")

// Scores is the sentiment block of a summary.
type Scores struct {
	Joy      float64 `json:"joy" jsonschema:"minimum=0,maximum=1"`
	Anger    float64 `json:"anger" jsonschema:"minimum=0,maximum=1"`
	Sadness  float64 `json:"sadness" jsonschema:"minimum=0,maximum=1"`
	Pleasure float64 `json:"pleasure" jsonschema:"minimum=0,maximum=1"`
}

// Summary is the structured output requested for diary drafts.
type Summary struct {
	Diary  string `json:"diary" jsonschema:"description=Diary text of 200 to 300 Japanese characters"`
	Scores Scores `json:"scores"`
}

type question struct {
	Question string `json:"question" jsonschema:"description=One reflective question in Japanese"`
}

var (
	questionSchema = llm.GenerateSchema[question]()
	summarySchema  = llm.GenerateSchema[Summary]()
)

// Generator produces questions and drafts.
type Generator struct {
	engine llm.Engine
	model  string
	logger *slog.Logger
}

// New creates a Generator using the given engine and model name.
func New(engine llm.Engine, model string, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{engine: engine, model: model, logger: logger}
}

// Engine returns the underlying engine.
func (g *Generator) Engine() llm.Engine { return g.engine }

// Model returns the model name used for generation.
func (g *Generator) Model() string { return g.model }

func (g *Generator) chat(ctx context.Context, messages []llm.Message, schema llm.Schema) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, generationTimeout)
	defer cancel()

	out, err := g.engine.Chat(ctx, g.model, messages, schema)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyOutput
	}
	return out, nil
}

// Ask returns the next reflective question for the transcript. A reply that
// is not the requested JSON is used verbatim as the question.
func (g *Generator) Ask(ctx context.Context, history string) (string, error) {
	raw, err := g.chat(ctx, BuildAskPrompt(history), questionSchema)
	if err != nil {
		return "", err
	}

	var q question
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		g.logger.Warn("question was not JSON, using raw reply", "error", err)
		return raw, nil
	}
	q.Question = strings.TrimSpace(q.Question)
	if q.Question == "" {
		return "", ErrEmptyOutput
	}
	return q.Question, nil
}

// Summarize returns the model's raw draft output for the transcript. The
// caller is responsible for parsing it.
func (g *Generator) Summarize(ctx context.Context, transcript string) (string, error) {
	return g.chat(ctx, BuildSummaryPrompt(transcript), summarySchema)
}

// Reply continues a free-form conversation.
func (g *Generator) Reply(ctx context.Context, messages []llm.Message) (string, error) {
	return g.chat(ctx, BuildChatPrompt(messages), nil)
}

// GenerateDiary returns the raw draft output for a free-form conversation.
func (g *Generator) GenerateDiary(ctx context.Context, messages []llm.Message) (string, error) {
	return g.chat(ctx, BuildDiaryPrompt(messages), summarySchema)
}
