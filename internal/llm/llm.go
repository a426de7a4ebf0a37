// Package llm abstracts the text generation backends used by the diary
// server. Callers depend on Engine and never on a concrete client.
package llm

import "context"

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Schema is a JSON Schema document describing structured output.
type Schema map[string]any

// Engine generates text.
type Engine interface {
	// Name identifies the backend in logs and status output.
	Name() string

	// Chat sends messages and returns the assistant's reply. When schema is
	// non-nil the reply is requested as JSON matching it.
	Chat(ctx context.Context, model string, messages []Message, schema Schema) (string, error)

	// IsRunning reports whether the backend is reachable.
	IsRunning(ctx context.Context) bool
}

// ModelManager is implemented by engines that host models locally.
type ModelManager interface {
	HasModel(ctx context.Context, name string) bool
	PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error
}

// PullProgress reports download progress for a model pull.
type PullProgress struct {
	Status    string `json:"status"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
}
