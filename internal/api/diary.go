package api

import (
	"net/http"
	"strings"

	"github.com/kalambet/aidiary/internal/llm"
	"github.com/kalambet/aidiary/internal/synthesis"
)

func handleAsk(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireGenerator(w, deps) {
			return
		}
		var req synthesis.AskRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.History) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "history is required")
			return
		}

		q, err := deps.Generator.Ask(r.Context(), req.History)
		if err != nil {
			generatorError(w, r, deps, "ask", err)
			return
		}
		writeJSON(w, http.StatusOK, synthesis.AskResponse{Question: q, Round: req.Round + 1})
	}
}

func handleSummary(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireGenerator(w, deps) {
			return
		}
		var req synthesis.SummaryRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Transcript) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "transcript is required")
			return
		}

		out, err := deps.Generator.Summarize(r.Context(), req.Transcript)
		if err != nil {
			generatorError(w, r, deps, "summary", err)
			return
		}
		writeText(w, out)
	}
}

func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireGenerator(w, deps) {
			return
		}
		msgs, ok := decodeMessages(w, r)
		if !ok {
			return
		}

		reply, err := deps.Generator.Reply(r.Context(), msgs)
		if err != nil {
			generatorError(w, r, deps, "chat", err)
			return
		}
		writeJSON(w, http.StatusOK, synthesis.ChatResponse{Reply: reply})
	}
}

func handleGenerateDiary(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireGenerator(w, deps) {
			return
		}
		msgs, ok := decodeMessages(w, r)
		if !ok {
			return
		}

		out, err := deps.Generator.GenerateDiary(r.Context(), msgs)
		if err != nil {
			generatorError(w, r, deps, "generate_diary", err)
			return
		}
		writeText(w, out)
	}
}

func decodeMessages(w http.ResponseWriter, r *http.Request) ([]llm.Message, bool) {
	var req synthesis.ChatRequest
	if !decodeBody(w, r, &req) {
		return nil, false
	}
	msgs := make([]llm.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		if strings.TrimSpace(m.Content) != "" {
			msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
		}
	}
	if len(msgs) == 0 {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "messages is required and must not be empty")
		return nil, false
	}
	return msgs, true
}

func requireGenerator(w http.ResponseWriter, deps Deps) bool {
	if deps.Generator == nil {
		httpError(w, http.StatusServiceUnavailable, "api_error", "generator is not configured")
		return false
	}
	return true
}

func generatorError(w http.ResponseWriter, r *http.Request, deps Deps, op string, err error) {
	deps.Logger.Error("generator request failed", "op", op, "request_id", RequestIDFrom(r.Context()), "error", err)
	httpError(w, http.StatusBadGateway, "api_error", "generator failed: %v", err)
}

func writeText(w http.ResponseWriter, s string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(s))
}
