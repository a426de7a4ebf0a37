package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/kalambet/aidiary/internal/diary"
	"github.com/kalambet/aidiary/internal/recordstore"
)

const entryCreatedMessage = "Entry created successfully"

func handleCreateEntry(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req recordstore.CreateRequest
		if !decodeBody(w, r, &req) {
			return
		}

		id, err := deps.Store.CreateEntry(r.Context(), req.Content, req.Sentiment())
		if errors.Is(err, diary.ErrEmptyContent) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "content is required")
			return
		}
		if err != nil {
			deps.Logger.Error("failed to create entry", "request_id", RequestIDFrom(r.Context()), "error", err)
			httpError(w, http.StatusInternalServerError, "server_error", "failed to create entry")
			return
		}

		deps.Logger.Debug("entry created", "id", id, "sentiment", req.Sentiment() != nil)
		writeJSON(w, http.StatusOK, recordstore.CreateResponse{ID: id, Message: entryCreatedMessage})
	}
}

func handleListEntries(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := -1
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "limit must be a positive integer")
				return
			}
			limit = n
		}

		entries, err := deps.Store.RecentEntries(r.Context(), limit)
		if err != nil {
			deps.Logger.Error("failed to list entries", "request_id", RequestIDFrom(r.Context()), "error", err)
			httpError(w, http.StatusInternalServerError, "server_error", "failed to list entries")
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}
