package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kalambet/aidiary/internal/diary"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

// TestMigrationsOrdered verifies migrations are applied in ascending numeric order.
func TestMigrationsOrdered(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(versions) == 0 {
		t.Fatal("expected at least one applied migration")
	}

	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("migrations not in ascending order: %v", versions)
			break
		}
	}
}

// TestIndexesExist verifies that the entries index is created by the migration.
func TestIndexesExist(t *testing.T) {
	s := openTestStore(t)

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", "idx_entries_created").Scan(&count)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	if count != 1 {
		t.Error("index idx_entries_created not found in sqlite_master")
	}
}

// TestCreateAndGetEntry saves an entry with sentiment and reads it back.
func TestCreateAndGetEntry(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	vec := &diary.SentimentVector{Joy: 0.8, Anger: 0.1, Sadness: 0, Pleasure: 0.6}
	id, err := s.CreateEntry(ctx, "今日は晴れ", vec)
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if id <= 0 {
		t.Fatalf("id = %d, want positive", id)
	}

	got, err := s.GetEntry(ctx, id)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got.Content != "今日は晴れ" {
		t.Errorf("Content = %q", got.Content)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, now)
	}
	if got.Sentiment.Kind != diary.FieldEncoded {
		t.Fatalf("Sentiment kind = %d, want encoded", got.Sentiment.Kind)
	}
	v, err := got.Sentiment.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if *v != *vec {
		t.Errorf("sentiment = %+v, want %+v", v, vec)
	}
}

// TestCreateEntryWithoutSentiment stores NULL emotion.
func TestCreateEntryWithoutSentiment(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.CreateEntry(ctx, "plain", nil)
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	got, err := s.GetEntry(ctx, id)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got.Sentiment.Kind != diary.FieldMissing {
		t.Errorf("Sentiment kind = %d, want missing", got.Sentiment.Kind)
	}
}

// TestCreateEntryRejectsEmpty verifies blank content is refused.
func TestCreateEntryRejectsEmpty(t *testing.T) {
	s := openTestStore(t)

	_, err := s.CreateEntry(context.Background(), "  \n", nil)
	if !errors.Is(err, diary.ErrEmptyContent) {
		t.Errorf("error = %v, want ErrEmptyContent", err)
	}
	n, _ := s.CountEntries(context.Background())
	if n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}

// TestGetEntryNotFound verifies that retrieving a non-existent ID returns ErrNotFound.
func TestGetEntryNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetEntry(context.Background(), 999)
	if err != ErrNotFound {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

// TestListEntriesNewestFirst verifies ordering, including ties on created_at.
func TestListEntriesNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	stamps := []time.Time{base, base.Add(48 * time.Hour), base.Add(24 * time.Hour), base.Add(24 * time.Hour)}
	var ids []diary.EntryID
	for i, ts := range stamps {
		ts := ts
		s.now = func() time.Time { return ts }
		id, err := s.CreateEntry(ctx, string(rune('a'+i)), nil)
		if err != nil {
			t.Fatalf("CreateEntry %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	got, err := s.ListEntries(ctx)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	want := []diary.EntryID{ids[1], ids[3], ids[2], ids[0]}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("position %d: id = %d, want %d", i, got[i].ID, want[i])
		}
	}

	recent, err := s.RecentEntries(ctx, 2)
	if err != nil {
		t.Fatalf("RecentEntries: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != ids[1] {
		t.Errorf("RecentEntries(2) = %+v", recent)
	}
}

// TestListEntriesEmpty returns an empty, non-nil slice.
func TestListEntriesEmpty(t *testing.T) {
	s := openTestStore(t)

	got, err := s.ListEntries(context.Background())
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ListEntries = %v, want empty slice", got)
	}
}
