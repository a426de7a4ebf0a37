// Package dialogue implements the question and answer session that turns a
// short conversation into a reviewable diary draft.
package dialogue

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kalambet/aidiary/internal/diary"
)

var errEmptyQuestion = errors.New("backend returned no question")

// SeedQuestion opens every session.
const SeedQuestion = "今日いちばん印象に残ったことは何ですか？"

const (
	DefaultThreshold = 3
	DefaultTimeout   = 60 * time.Second
)

// Synthesizer produces follow-up questions and summaries.
type Synthesizer interface {
	NextQuestion(ctx context.Context, transcript string, round int) (string, int, error)
	Summarize(ctx context.Context, transcript string) (string, error)
}

// Recorder persists committed drafts.
type Recorder interface {
	CreateEntry(ctx context.Context, content string, s *diary.SentimentVector) (diary.EntryID, error)
}

// Phase is the coarse state of a session.
type Phase int

const (
	Collecting Phase = iota
	Reviewing
)

func (p Phase) String() string {
	if p == Reviewing {
		return "reviewing"
	}
	return "collecting"
}

// Outcome describes what a successful Submit did.
type Outcome int

const (
	// Ignored means the input was blank and nothing happened.
	Ignored Outcome = iota
	// Asked means a follow-up question was appended.
	Asked
	// Summarized means the session moved to review.
	Summarized
)

// Options tunes an Engine. Zero values pick the defaults.
type Options struct {
	Threshold int
	Timeout   time.Duration
	Logger    *slog.Logger
}

// Snapshot is a read-only copy of the session.
type Snapshot struct {
	Phase  Phase
	Turns  []diary.Turn
	Round  int
	Review *Draft
	Busy   bool
}

// Engine owns one dialogue session. It is safe for concurrent use; mutating
// calls made while a backend request is outstanding fail with diary.ErrBusy.
type Engine struct {
	synth     Synthesizer
	store     Recorder
	threshold int
	timeout   time.Duration
	logger    *slog.Logger

	mu     sync.Mutex
	turns  []diary.Turn
	round  int
	review *Draft // non-nil only while reviewing
	busy   bool
}

// New creates an Engine in the start state.
func New(synth Synthesizer, store Recorder, opts Options) *Engine {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	e := &Engine{
		synth:     synth,
		store:     store,
		threshold: opts.Threshold,
		timeout:   opts.Timeout,
		logger:    opts.Logger,
	}
	e.reset()
	return e
}

func (e *Engine) reset() {
	e.turns = []diary.Turn{{Role: diary.RolePrompter, Text: SeedQuestion}}
	e.round = 0
	e.review = nil
}

// Snapshot returns a copy of the current session.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		Phase: Collecting,
		Turns: append([]diary.Turn(nil), e.turns...),
		Round: e.round,
		Busy:  e.busy,
	}
	if e.review != nil {
		r := *e.review
		s.Review = &r
		s.Phase = Reviewing
	}
	return s
}

// Transcript serializes turns one per line, prompter lines prefixed "Q:" and
// respondent lines "A:".
func Transcript(turns []diary.Turn) string {
	lines := make([]string, len(turns))
	for i, t := range turns {
		prefix := "A:"
		if t.Role == diary.RolePrompter {
			prefix = "Q:"
		}
		lines[i] = prefix + t.Text
	}
	return strings.Join(lines, "\n")
}

// Submit records a respondent answer. Depending on the round count it then
// either fetches the next question or a summary. Blank input is ignored. On a
// backend failure the session is restored to its state before the call.
func (e *Engine) Submit(ctx context.Context, text string) (Outcome, error) {
	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		return Ignored, diary.ErrBusy
	}
	if e.review != nil {
		e.mu.Unlock()
		return Ignored, diary.ErrWrongPhase
	}
	if strings.TrimSpace(text) == "" {
		e.mu.Unlock()
		return Ignored, nil
	}

	prevTurns, prevRound := len(e.turns), e.round
	e.turns = append(e.turns, diary.Turn{Role: diary.RoleRespondent, Text: text})
	e.round++
	transcript := Transcript(e.turns)
	summarize := e.round >= e.threshold
	e.busy = true
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var (
		outcome  Outcome
		draft    Draft
		question string
		round    int
		err      error
	)
	if summarize {
		outcome = Summarized
		var raw string
		raw, err = e.synth.Summarize(ctx, transcript)
		if err == nil {
			var perr error
			draft, perr = ParseSummary(raw)
			if perr != nil {
				e.logger.Debug("summary not structured, using raw text", "error", perr)
			}
		}
	} else {
		outcome = Asked
		question, round, err = e.synth.NextQuestion(ctx, transcript, prevRound)
		if err == nil && strings.TrimSpace(question) == "" {
			err = &diary.ParseError{What: "question", Err: errEmptyQuestion}
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.busy = false

	if err != nil {
		e.turns = e.turns[:prevTurns]
		e.round = prevRound
		e.logger.Warn("dialogue request failed", "summarize", summarize, "error", err)
		return Ignored, err
	}

	if summarize {
		e.review = &draft
		return outcome, nil
	}
	e.round = round
	e.turns = append(e.turns, diary.Turn{Role: diary.RolePrompter, Text: question})
	return outcome, nil
}

// Continue leaves review and returns to collecting answers. Turns and round
// are kept.
func (e *Engine) Continue() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return diary.ErrBusy
	}
	if e.review == nil {
		return diary.ErrWrongPhase
	}
	e.review = nil
	return nil
}

// EditDraft replaces the draft text under review.
func (e *Engine) EditDraft(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return diary.ErrBusy
	}
	if e.review == nil {
		return diary.ErrWrongPhase
	}
	if strings.TrimSpace(text) == "" {
		return diary.ErrEmptyContent
	}
	e.review.Text = text
	return nil
}

// Commit persists the draft under review. On success the session resets to
// the start state. On failure it is left untouched.
func (e *Engine) Commit(ctx context.Context) (diary.EntryID, error) {
	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		return 0, diary.ErrBusy
	}
	if e.review == nil {
		e.mu.Unlock()
		return 0, diary.ErrWrongPhase
	}
	if strings.TrimSpace(e.review.Text) == "" {
		e.mu.Unlock()
		return 0, diary.ErrEmptyContent
	}
	draft := *e.review
	e.busy = true
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	id, err := e.store.CreateEntry(ctx, draft.Text, draft.Sentiment)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.busy = false
	if err != nil {
		e.logger.Warn("saving entry failed", "error", err)
		return 0, err
	}
	e.logger.Info("entry saved", "id", id)
	e.reset()
	return id, nil
}

// Cancel discards the session and starts over.
func (e *Engine) Cancel() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return diary.ErrBusy
	}
	e.reset()
	return nil
}
