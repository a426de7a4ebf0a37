package api

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/kalambet/aidiary/internal/archive"
	"github.com/kalambet/aidiary/internal/diary"
	"github.com/kalambet/aidiary/internal/storage"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pages = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// Raw HTML in entries is not rendered.
var markdown = goldmark.New(goldmark.WithExtensions(extension.Linkify))

type archivePage struct {
	Title     string
	Page      archive.Page
	EmptyText string
}

type entryPage struct {
	Title string
	Item  archive.Item
	Body  template.HTML
}

func handleArchive(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := deps.Archive.Load(r.Context(), deps.Store)
		if err != nil {
			deps.Logger.Error("failed to load archive", "request_id", RequestIDFrom(r.Context()), "error", err)
			httpError(w, http.StatusInternalServerError, "server_error", "failed to load archive")
			return
		}
		render(w, deps, "archive", archivePage{Title: "日記一覧", Page: page, EmptyText: archive.EmptyText})
	}
}

func handleArchiveEntry(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid entry id")
			return
		}

		e, err := deps.Store.GetEntry(r.Context(), diary.EntryID(id))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "entry not found")
			return
		}
		if err != nil {
			deps.Logger.Error("failed to get entry", "id", id, "error", err)
			httpError(w, http.StatusInternalServerError, "server_error", "failed to get entry")
			return
		}

		page := deps.Archive.Build([]diary.Entry{e})
		item := page.Items[0]

		var body bytes.Buffer
		if err := markdown.Convert([]byte(e.Content), &body); err != nil {
			deps.Logger.Error("failed to render entry", "id", id, "error", err)
			httpError(w, http.StatusInternalServerError, "server_error", "failed to render entry")
			return
		}
		render(w, deps, "entry", entryPage{Title: item.Date, Item: item, Body: template.HTML(body.String())})
	}
}

func render(w http.ResponseWriter, deps Deps, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		deps.Logger.Error("failed to render page", "page", name, "error", err)
		httpError(w, http.StatusInternalServerError, "server_error", "failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}
