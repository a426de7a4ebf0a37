// Package archive builds the chronological view of saved diary entries.
package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/aidiary/internal/diary"
	"github.com/kalambet/aidiary/internal/sentiment"
)

const (
	DefaultPreviewChars = 30
	DateLayout          = "2006/1/2"

	LoadingText = "読み込み中…"
	EmptyText   = "まだ日記はありません。"
	ellipsis    = "…"
)

// Lister lists entries newest first.
type Lister interface {
	ListEntries(ctx context.Context) ([]diary.Entry, error)
}

// Item is the display model of one entry.
type Item struct {
	ID        diary.EntryID
	Date      string
	Preview   string
	Content   string
	CreatedAt time.Time
	Badges    []sentiment.Badge
}

// Page is the display model of the whole archive.
type Page struct {
	Items []Item
}

// Empty reports whether there is nothing to show.
func (p Page) Empty() bool { return len(p.Items) == 0 }

// View turns entries into display items.
type View struct {
	PreviewChars int
	Location     *time.Location
	Logger       *slog.Logger
}

// Load lists entries and builds the page. Entries whose sentiment does not
// decode are shown without badges.
func (v View) Load(ctx context.Context, l Lister) (Page, error) {
	entries, err := l.ListEntries(ctx)
	if err != nil {
		return Page{}, err
	}
	return v.Build(entries), nil
}

// Build converts entries, keeping their order.
func (v View) Build(entries []diary.Entry) Page {
	n := v.PreviewChars
	if n <= 0 {
		n = DefaultPreviewChars
	}
	loc := v.Location
	if loc == nil {
		loc = time.Local
	}
	logger := v.Logger
	if logger == nil {
		logger = slog.Default()
	}

	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		it := Item{
			ID:        e.ID,
			Date:      e.CreatedAt.In(loc).Format(DateLayout),
			Preview:   Preview(e.Content, n),
			Content:   e.Content,
			CreatedAt: e.CreatedAt,
		}
		vec, err := e.Sentiment.Decode()
		if err != nil {
			logger.Warn("skipping unreadable sentiment", "entry", e.ID, "error", err)
		}
		it.Badges = sentiment.Badges(vec)
		items = append(items, it)
	}
	return Page{Items: items}
}

// Preview returns the first n characters of s, with an ellipsis only when
// something was cut.
func Preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + ellipsis
}

// RenderText writes the page as plain text.
func RenderText(w io.Writer, p Page) error {
	if p.Empty() {
		_, err := fmt.Fprintln(w, EmptyText)
		return err
	}
	for i, it := range p.Items {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "#%d  %s\n  %s\n", it.ID, it.Date, strings.ReplaceAll(it.Preview, "\n", " ")); err != nil {
			return err
		}
		if len(it.Badges) == 0 {
			continue
		}
		parts := make([]string, len(it.Badges))
		for j, b := range it.Badges {
			parts[j] = fmt.Sprintf("%s %3d%% %s", b.Label, b.Percent, bar(b.Fraction))
		}
		if _, err := fmt.Fprintf(w, "  %s\n", strings.Join(parts, "  ")); err != nil {
			return err
		}
	}
	return nil
}

// bar draws a ten-cell meter.
func bar(f float64) string {
	filled := int(f*10 + 0.5)
	return strings.Repeat("■", filled) + strings.Repeat("□", 10-filled)
}
