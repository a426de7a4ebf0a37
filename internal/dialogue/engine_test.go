package dialogue

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/kalambet/aidiary/internal/diary"
	"github.com/kalambet/aidiary/internal/sentiment"
)

type askCall struct {
	transcript string
	round      int
}

type mockSynth struct {
	mu         sync.Mutex
	questions  []string
	roundDelta int // added to the sent round; 1 mirrors the backend
	summary    string
	err        error
	delay      time.Duration
	release    chan struct{}

	asks       []askCall
	summarized []string
}

func (m *mockSynth) wait(ctx context.Context) error {
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return &diary.TransportError{Op: "mock", Err: ctx.Err()}
		}
	}
	return nil
}

func (m *mockSynth) NextQuestion(ctx context.Context, transcript string, round int) (string, int, error) {
	if err := m.wait(ctx); err != nil {
		return "", 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.asks = append(m.asks, askCall{transcript, round})
	if m.err != nil {
		return "", 0, m.err
	}
	q := "next?"
	if len(m.questions) > 0 {
		q, m.questions = m.questions[0], m.questions[1:]
	}
	return q, round + m.roundDelta, nil
}

func (m *mockSynth) Summarize(ctx context.Context, transcript string) (string, error) {
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summarized = append(m.summarized, transcript)
	if m.err != nil {
		return "", m.err
	}
	return m.summary, nil
}

type mockRecorder struct {
	id       diary.EntryID
	err      error
	content  string
	vector   *diary.SentimentVector
	requests int
}

func (m *mockRecorder) CreateEntry(_ context.Context, content string, s *diary.SentimentVector) (diary.EntryID, error) {
	m.requests++
	m.content, m.vector = content, s
	if m.err != nil {
		return 0, m.err
	}
	return m.id, nil
}

const structuredSummary = `{"diary":"D","scores":{"joy":0.8,"anger":0.1,"sadness":0.0,"pleasure":0.6}}`

func newEngine(s *mockSynth, r *mockRecorder) *Engine {
	return New(s, r, Options{})
}

func TestStartState(t *testing.T) {
	e := newEngine(&mockSynth{}, &mockRecorder{})
	snap := e.Snapshot()

	if snap.Phase != Collecting {
		t.Errorf("phase = %v, want Collecting", snap.Phase)
	}
	if snap.Round != 0 {
		t.Errorf("round = %d, want 0", snap.Round)
	}
	if snap.Review != nil {
		t.Errorf("review = %+v, want nil", snap.Review)
	}
	if len(snap.Turns) != 1 {
		t.Fatalf("turns = %d, want 1", len(snap.Turns))
	}
	want := diary.Turn{Role: diary.RolePrompter, Text: SeedQuestion}
	if snap.Turns[0] != want {
		t.Errorf("turn[0] = %+v, want %+v", snap.Turns[0], want)
	}
}

func TestSubmitBlankIsNoop(t *testing.T) {
	s := &mockSynth{roundDelta: 1}
	e := newEngine(s, &mockRecorder{})

	for _, in := range []string{"", "   ", "\n\t"} {
		out, err := e.Submit(context.Background(), in)
		if err != nil {
			t.Fatalf("Submit(%q): %v", in, err)
		}
		if out != Ignored {
			t.Errorf("Submit(%q) = %v, want Ignored", in, out)
		}
	}
	if len(s.asks) != 0 {
		t.Errorf("asks = %d, want 0", len(s.asks))
	}
	snap := e.Snapshot()
	if len(snap.Turns) != 1 || snap.Round != 0 {
		t.Errorf("turns=%d round=%d, want 1 and 0", len(snap.Turns), snap.Round)
	}
}

func TestSubmitAsksWithPreviousRound(t *testing.T) {
	s := &mockSynth{questions: []string{"Q2"}, roundDelta: 1}
	e := newEngine(s, &mockRecorder{})

	out, err := e.Submit(context.Background(), "I went hiking")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out != Asked {
		t.Errorf("outcome = %v, want Asked", out)
	}

	if len(s.asks) != 1 {
		t.Fatalf("asks = %d, want 1", len(s.asks))
	}
	if s.asks[0].round != 0 {
		t.Errorf("sent round = %d, want 0", s.asks[0].round)
	}
	if want := "Q:" + SeedQuestion + "\nA:I went hiking"; s.asks[0].transcript != want {
		t.Errorf("transcript = %q, want %q", s.asks[0].transcript, want)
	}

	snap := e.Snapshot()
	if snap.Round != 1 {
		t.Errorf("round = %d, want 1", snap.Round)
	}
	if len(snap.Turns) != 3 {
		t.Fatalf("turns = %d, want 3", len(snap.Turns))
	}
	if want := (diary.Turn{Role: diary.RolePrompter, Text: "Q2"}); snap.Turns[2] != want {
		t.Errorf("turn[2] = %+v, want %+v", snap.Turns[2], want)
	}
}

func TestBackendRoundIsAuthoritative(t *testing.T) {
	// A backend that jumps ahead pulls the session into summary earlier.
	s := &mockSynth{roundDelta: 2, summary: structuredSummary}
	e := newEngine(s, &mockRecorder{})

	if _, err := e.Submit(context.Background(), "a"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := e.Snapshot().Round; got != 2 {
		t.Errorf("round = %d, want 2", got)
	}

	out, err := e.Submit(context.Background(), "b")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out != Summarized {
		t.Errorf("outcome = %v, want Summarized", out)
	}
	if len(s.summarized) != 1 {
		t.Errorf("summarized = %d, want 1", len(s.summarized))
	}
}

func TestEmptyQuestionRestoresSession(t *testing.T) {
	for _, q := range []string{"", "  \n"} {
		s := &mockSynth{questions: []string{q}, roundDelta: 1}
		e := newEngine(s, &mockRecorder{})
		before := e.Snapshot()

		out, err := e.Submit(context.Background(), "answer")
		if out != Ignored {
			t.Errorf("question %q: outcome = %v, want Ignored", q, out)
		}
		var pe *diary.ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("question %q: err = %v, want ParseError", q, err)
		}
		if !reflect.DeepEqual(e.Snapshot(), before) {
			t.Errorf("question %q: snapshot = %+v, want %+v", q, e.Snapshot(), before)
		}
	}
}

func TestThirdAnswerSummarizes(t *testing.T) {
	s := &mockSynth{questions: []string{"Q2", "Q3"}, roundDelta: 1, summary: structuredSummary}
	e := newEngine(s, &mockRecorder{})
	ctx := context.Background()

	for _, in := range []string{"a1", "a2"} {
		out, err := e.Submit(ctx, in)
		if err != nil {
			t.Fatalf("Submit(%q): %v", in, err)
		}
		if out != Asked {
			t.Errorf("Submit(%q) = %v, want Asked", in, out)
		}
	}
	out, err := e.Submit(ctx, "a3")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out != Summarized {
		t.Errorf("outcome = %v, want Summarized", out)
	}

	if len(s.asks) != 2 || len(s.summarized) != 1 {
		t.Fatalf("asks=%d summarized=%d, want 2 and 1", len(s.asks), len(s.summarized))
	}
	if want := "Q:" + SeedQuestion + "\nA:a1\nQ:Q2\nA:a2\nQ:Q3\nA:a3"; s.summarized[0] != want {
		t.Errorf("summary transcript = %q, want %q", s.summarized[0], want)
	}

	snap := e.Snapshot()
	if snap.Phase != Reviewing {
		t.Errorf("phase = %v, want Reviewing", snap.Phase)
	}
	if snap.Review == nil {
		t.Fatal("review is nil")
	}
	if snap.Review.Text != "D" {
		t.Errorf("text = %q, want D", snap.Review.Text)
	}
	want := &diary.SentimentVector{Joy: 0.8, Anger: 0.1, Sadness: 0, Pleasure: 0.6}
	if !reflect.DeepEqual(snap.Review.Sentiment, want) {
		t.Errorf("sentiment = %+v, want %+v", snap.Review.Sentiment, want)
	}
}

func TestOutOfRangeScoresClampInBadges(t *testing.T) {
	s := &mockSynth{summary: `{"diary":"D","scores":{"joy":1.4,"anger":-0.2,"sadness":0,"pleasure":0.2}}`}
	e := New(s, &mockRecorder{}, Options{Threshold: 1})

	if _, err := e.Submit(context.Background(), "a"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	snap := e.Snapshot()
	if snap.Review == nil {
		t.Fatal("review is nil")
	}
	want := &diary.SentimentVector{Joy: 1.4, Anger: -0.2, Sadness: 0, Pleasure: 0.2}
	if !reflect.DeepEqual(snap.Review.Sentiment, want) {
		t.Fatalf("sentiment = %+v, want %+v", snap.Review.Sentiment, want)
	}

	badges := sentiment.Badges(snap.Review.Sentiment)
	if len(badges) != 4 {
		t.Fatalf("badges = %d, want 4", len(badges))
	}
	for i, wantPct := range []int{100, 0, 0, 20} {
		if badges[i].Percent != wantPct {
			t.Errorf("%s percent = %d, want %d", badges[i].Channel, badges[i].Percent, wantPct)
		}
	}
}

func TestMalformedSummaryFallsBackToRaw(t *testing.T) {
	s := &mockSynth{summary: "Today was fine.", roundDelta: 1}
	e := New(s, &mockRecorder{}, Options{Threshold: 1})

	out, err := e.Submit(context.Background(), "a")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out != Summarized {
		t.Errorf("outcome = %v, want Summarized", out)
	}

	snap := e.Snapshot()
	if snap.Review == nil {
		t.Fatal("review is nil")
	}
	if snap.Review.Text != "Today was fine." {
		t.Errorf("text = %q", snap.Review.Text)
	}
	if snap.Review.Sentiment != nil {
		t.Errorf("sentiment = %+v, want nil", snap.Review.Sentiment)
	}
}

func TestTransportErrorRestoresSession(t *testing.T) {
	boom := &diary.TransportError{Op: "next question", Status: 500}
	s := &mockSynth{err: boom}
	e := newEngine(s, &mockRecorder{})
	before := e.Snapshot()

	_, err := e.Submit(context.Background(), "answer")
	if !diary.IsTransport(err) {
		t.Fatalf("err = %v, want transport error", err)
	}
	if !reflect.DeepEqual(e.Snapshot(), before) {
		t.Errorf("snapshot = %+v, want %+v", e.Snapshot(), before)
	}

	// Retrying the same text after the backend recovers proceeds normally.
	s.err = nil
	s.roundDelta = 1
	out, err := e.Submit(context.Background(), "answer")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if out != Asked {
		t.Errorf("retry outcome = %v, want Asked", out)
	}
}

func TestSummaryTransportErrorStaysCollecting(t *testing.T) {
	s := &mockSynth{err: &diary.TransportError{Op: "summarize", Status: 502}}
	e := New(s, &mockRecorder{}, Options{Threshold: 1})

	if _, err := e.Submit(context.Background(), "a"); err == nil {
		t.Fatal("expected error")
	}
	snap := e.Snapshot()
	if snap.Phase != Collecting || snap.Round != 0 {
		t.Errorf("phase=%v round=%d, want Collecting and 0", snap.Phase, snap.Round)
	}
}

func TestContinueKeepsTurnsAndRound(t *testing.T) {
	s := &mockSynth{summary: structuredSummary, roundDelta: 1}
	e := New(s, &mockRecorder{}, Options{Threshold: 1})

	if _, err := e.Submit(context.Background(), "a"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	reviewing := e.Snapshot()

	if err := e.Continue(); err != nil {
		t.Fatalf("Continue: %v", err)
	}
	snap := e.Snapshot()
	if snap.Phase != Collecting {
		t.Errorf("phase = %v, want Collecting", snap.Phase)
	}
	if snap.Review != nil {
		t.Errorf("review = %+v, want nil", snap.Review)
	}
	if !reflect.DeepEqual(snap.Turns, reviewing.Turns) || snap.Round != reviewing.Round {
		t.Errorf("turns/round changed: %+v round %d", snap.Turns, snap.Round)
	}

	// Already past the threshold: the next answer summarizes again.
	out, err := e.Submit(context.Background(), "more")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out != Summarized {
		t.Errorf("outcome = %v, want Summarized", out)
	}
}

func TestWrongPhase(t *testing.T) {
	s := &mockSynth{summary: structuredSummary}
	r := &mockRecorder{id: 1}
	e := New(s, r, Options{Threshold: 1})
	ctx := context.Background()

	if err := e.Continue(); !errors.Is(err, diary.ErrWrongPhase) {
		t.Errorf("Continue: %v, want ErrWrongPhase", err)
	}
	if err := e.EditDraft("x"); !errors.Is(err, diary.ErrWrongPhase) {
		t.Errorf("EditDraft: %v, want ErrWrongPhase", err)
	}
	if _, err := e.Commit(ctx); !errors.Is(err, diary.ErrWrongPhase) {
		t.Errorf("Commit: %v, want ErrWrongPhase", err)
	}
	if r.requests != 0 {
		t.Errorf("recorder requests = %d, want 0", r.requests)
	}

	if _, err := e.Submit(ctx, "a"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := e.Submit(ctx, "b"); !errors.Is(err, diary.ErrWrongPhase) {
		t.Errorf("Submit in review: %v, want ErrWrongPhase", err)
	}
}

func TestCommitSuccessResets(t *testing.T) {
	s := &mockSynth{summary: structuredSummary}
	r := &mockRecorder{id: 7}
	e := New(s, r, Options{Threshold: 1})
	ctx := context.Background()

	if _, err := e.Submit(ctx, "a"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := e.EditDraft("edited D"); err != nil {
		t.Fatalf("EditDraft: %v", err)
	}

	id, err := e.Commit(ctx)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if id != diary.EntryID(7) {
		t.Errorf("id = %d, want 7", id)
	}
	if r.content != "edited D" {
		t.Errorf("content = %q, want edited D", r.content)
	}
	if r.vector == nil || r.vector.Joy != 0.8 {
		t.Errorf("vector = %+v, want joy 0.8", r.vector)
	}

	snap := e.Snapshot()
	if snap.Phase != Collecting || snap.Round != 0 || len(snap.Turns) != 1 {
		t.Errorf("phase=%v round=%d turns=%d, want fresh session", snap.Phase, snap.Round, len(snap.Turns))
	}
}

func TestCommitFailureKeepsReview(t *testing.T) {
	s := &mockSynth{summary: structuredSummary}
	r := &mockRecorder{err: &diary.TransportError{Op: "create entry", Status: 500}}
	e := New(s, r, Options{Threshold: 1})
	ctx := context.Background()

	if _, err := e.Submit(ctx, "a"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	before := e.Snapshot()

	_, err := e.Commit(ctx)
	if !diary.IsTransport(err) {
		t.Fatalf("err = %v, want transport error", err)
	}
	if !reflect.DeepEqual(e.Snapshot(), before) {
		t.Errorf("snapshot = %+v, want %+v", e.Snapshot(), before)
	}
}

func TestEditDraftRejectsBlank(t *testing.T) {
	s := &mockSynth{summary: structuredSummary}
	e := New(s, &mockRecorder{}, Options{Threshold: 1})

	if _, err := e.Submit(context.Background(), "a"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := e.EditDraft("  "); !errors.Is(err, diary.ErrEmptyContent) {
		t.Errorf("EditDraft: %v, want ErrEmptyContent", err)
	}
	if got := e.Snapshot().Review.Text; got != "D" {
		t.Errorf("draft = %q, want D", got)
	}
}

func TestCancelResets(t *testing.T) {
	s := &mockSynth{roundDelta: 1}
	e := newEngine(s, &mockRecorder{})

	if _, err := e.Submit(context.Background(), "a"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := e.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	snap := e.Snapshot()
	if len(snap.Turns) != 1 || snap.Round != 0 {
		t.Errorf("turns=%d round=%d, want 1 and 0", len(snap.Turns), snap.Round)
	}
}

func TestBusyGuard(t *testing.T) {
	s := &mockSynth{roundDelta: 1, release: make(chan struct{})}
	e := newEngine(s, &mockRecorder{})

	done := make(chan error, 1)
	go func() {
		_, err := e.Submit(context.Background(), "first")
		done <- err
	}()

	deadline := time.Now().Add(time.Second)
	for !e.Snapshot().Busy {
		if time.Now().After(deadline) {
			t.Fatal("engine never became busy")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := e.Submit(context.Background(), "second"); !errors.Is(err, diary.ErrBusy) {
		t.Errorf("Submit while busy: %v, want ErrBusy", err)
	}
	if err := e.Cancel(); !errors.Is(err, diary.ErrBusy) {
		t.Errorf("Cancel while busy: %v, want ErrBusy", err)
	}

	close(s.release)
	if err := <-done; err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if e.Snapshot().Busy {
		t.Error("still busy after completion")
	}
	if len(s.asks) != 1 {
		t.Errorf("asks = %d, want 1", len(s.asks))
	}
}

func TestTimeoutRestoresSession(t *testing.T) {
	s := &mockSynth{delay: time.Second}
	e := New(s, &mockRecorder{}, Options{Timeout: 20 * time.Millisecond})

	_, err := e.Submit(context.Background(), "slow")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	snap := e.Snapshot()
	if len(snap.Turns) != 1 || snap.Busy {
		t.Errorf("turns=%d busy=%v, want 1 and false", len(snap.Turns), snap.Busy)
	}
}
