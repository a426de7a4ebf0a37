package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/aidiary/internal/archive"
	"github.com/kalambet/aidiary/internal/llm"
	"github.com/kalambet/aidiary/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Generator produces questions and drafts for the diary endpoints.
type Generator interface {
	Ask(ctx context.Context, history string) (string, error)
	Summarize(ctx context.Context, transcript string) (string, error)
	Reply(ctx context.Context, messages []llm.Message) (string, error)
	GenerateDiary(ctx context.Context, messages []llm.Message) (string, error)
}

// Deps holds dependencies for the diary HTTP API.
type Deps struct {
	Store         *storage.Store
	Generator     Generator // optional; if nil, generation endpoints return 503
	Token         string    // optional; if empty, routes are unauthenticated
	AllowedOrigin string
	Archive       archive.View
	Logger        *slog.Logger
}

// NewHandler returns an http.Handler serving the diary API and the HTML
// archive.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(CORS(deps.AllowedOrigin))

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}

		r.Get("/", handleRoot)
		r.Post("/entries", handleCreateEntry(deps))
		r.Get("/entries", handleListEntries(deps))
		r.Post("/diary/ask", handleAsk(deps))
		r.Post("/diary/summary", handleSummary(deps))
		r.Post("/chat", handleChat(deps))
		r.Post("/generate_diary", handleGenerateDiary(deps))
		r.Get("/archive", handleArchive(deps))
		r.Get("/archive/{id}", handleArchiveEntry(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "AIDiary backend is running"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
