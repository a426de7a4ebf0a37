package dialogue

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/kalambet/aidiary/internal/diary"
)

// Draft is the reviewable result of a summary call.
type Draft struct {
	Text      string
	Sentiment *diary.SentimentVector
}

type summaryPayload struct {
	Diary  string          `json:"diary"`
	Scores json.RawMessage `json:"scores"`
	// Some generators answer with "emotion" instead of "scores".
	Emotion json.RawMessage `json:"emotion"`
}

// ParseSummary interprets a raw summary response. When the response is a
// well-formed {diary, scores} object the draft carries both; otherwise the
// whole response becomes the draft text with no sentiment. The returned error
// is a diary.ParseError describing why the structured path was not taken; the
// draft is usable either way.
func ParseSummary(raw string) (Draft, error) {
	p, err := decodeSummary(raw)
	if err != nil {
		return Draft{Text: raw}, &diary.ParseError{What: "summary", Err: err}
	}
	d := Draft{Text: p.Diary}

	scores := p.Scores
	if len(scores) == 0 || string(scores) == "null" {
		scores = p.Emotion
	}
	if len(scores) == 0 || string(scores) == "null" {
		return d, nil
	}
	if scores[0] == '"' {
		var s string
		if err := json.Unmarshal(scores, &s); err == nil {
			scores = json.RawMessage(s)
		}
	}
	v, err := diary.DecodeVector(scores)
	if err != nil {
		return d, err
	}
	d.Sentiment = normalizeScale(v)
	return d, nil
}

func decodeSummary(raw string) (summaryPayload, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return summaryPayload{}, errors.New("empty response")
	}

	// A body that is itself a JSON string literal wraps the real payload.
	if s[0] == '"' {
		var inner string
		if err := json.Unmarshal([]byte(s), &inner); err == nil {
			s = strings.TrimSpace(inner)
		}
	}
	s = stripFence(s)

	var p summaryPayload
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		start := strings.IndexByte(s, '{')
		end := strings.LastIndexByte(s, '}')
		if start == -1 || end <= start {
			return summaryPayload{}, fmt.Errorf("no JSON object found (len=%d)", len(s))
		}
		if err := json.Unmarshal([]byte(s[start:end+1]), &p); err != nil {
			return summaryPayload{}, fmt.Errorf("unmarshalling extracted object: %w", err)
		}
	}
	if strings.TrimSpace(p.Diary) == "" {
		return summaryPayload{}, errors.New("diary field is empty")
	}
	return p, nil
}

// stripFence removes a surrounding markdown code fence such as ```json ... ```.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// normalizeScale maps percentage scores onto [0,1]. Only vectors that look
// like percentages are rescaled: whole numbers in [0,100] with a peak of at
// least 2. Anything else is returned unchanged and clamped at display time.
func normalizeScale(v *diary.SentimentVector) *diary.SentimentVector {
	vals := []float64{v.Joy, v.Anger, v.Sadness, v.Pleasure}
	peak := 0.0
	for _, x := range vals {
		if x < 0 || x > 100 || x != math.Trunc(x) {
			return v
		}
		peak = math.Max(peak, x)
	}
	if peak < 2 {
		return v
	}
	return &diary.SentimentVector{
		Joy:      v.Joy / 100,
		Anger:    v.Anger / 100,
		Sadness:  v.Sadness / 100,
		Pleasure: v.Pleasure / 100,
	}
}
