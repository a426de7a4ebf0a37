package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/kalambet/aidiary/internal/diary"
)

func TestArchivePage_Empty(t *testing.T) {
	deps, _ := newTestDeps(t)
	rec := doRequest(t, NewHandler(deps), http.MethodGet, "/archive", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "まだ日記はありません。") {
		t.Errorf("missing empty text:\n%s", rec.Body.String())
	}
}

func TestArchivePage_ListsEntries(t *testing.T) {
	deps, store := newTestDeps(t)
	ctx := context.Background()
	store.CreateEntry(ctx, "古い日記", nil)
	id, _ := store.CreateEntry(ctx, strings.Repeat("あ", 40), &diary.SentimentVector{Joy: 0.8, Anger: 0, Sadness: 0.25, Pleasure: 1.5})

	rec := doRequest(t, NewHandler(deps), http.MethodGet, "/archive", "")
	body := rec.Body.String()
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	newest := strings.Index(body, fmt.Sprintf(`href="/archive/%d"`, id))
	oldest := strings.Index(body, "古い日記")
	if newest < 0 || oldest < 0 || newest > oldest {
		t.Errorf("entries missing or out of order:\n%s", body)
	}
	if !strings.Contains(body, strings.Repeat("あ", 30)+"…") {
		t.Error("preview not truncated to 30 characters")
	}
	for _, want := range []string{"喜び 80%", "悲しみ 25%", "楽しさ 100%", "width: 80%"} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q", want)
		}
	}
}

func TestArchiveEntry_RendersMarkdown(t *testing.T) {
	deps, store := newTestDeps(t)
	id, _ := store.CreateEntry(context.Background(), "# 海\n\n**楽しかった**\n\n<script>alert(1)</script>", nil)

	rec := doRequest(t, NewHandler(deps), http.MethodGet, fmt.Sprintf("/archive/%d", id), "")
	body := rec.Body.String()
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(body, "<h1>海</h1>") || !strings.Contains(body, "<strong>楽しかった</strong>") {
		t.Errorf("markdown not rendered:\n%s", body)
	}
	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Error("raw HTML must not be rendered")
	}
}

func TestArchiveEntry_Errors(t *testing.T) {
	deps, _ := newTestDeps(t)
	h := NewHandler(deps)

	if rec := doRequest(t, h, http.MethodGet, "/archive/999", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing entry: expected 404, got %d", rec.Code)
	}
	if rec := doRequest(t, h, http.MethodGet, "/archive/abc", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: expected 400, got %d", rec.Code)
	}
}
