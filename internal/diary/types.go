// Package diary holds the domain types shared by the diary client and server:
// dialogue turns, sentiment vectors, stored entries and the error taxonomy.
package diary

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Role identifies who produced a dialogue turn.
type Role string

const (
	RolePrompter   Role = "prompter"
	RoleRespondent Role = "respondent"
)

// Turn is a single utterance in a dialogue session.
type Turn struct {
	Role Role
	Text string
}

// SentimentVector holds the four emotional channel scores. Each value is
// nominally in [0,1]; consumers clamp before display.
type SentimentVector struct {
	Joy      float64 `json:"joy"`
	Anger    float64 `json:"anger"`
	Sadness  float64 `json:"sadness"`
	Pleasure float64 `json:"pleasure"`
}

// partialVector is used to detect which channels were actually present.
type partialVector struct {
	Joy      *float64 `json:"joy"`
	Anger    *float64 `json:"anger"`
	Sadness  *float64 `json:"sadness"`
	Pleasure *float64 `json:"pleasure"`
}

func (p partialVector) complete() (*SentimentVector, bool) {
	if p.Joy == nil || p.Anger == nil || p.Sadness == nil || p.Pleasure == nil {
		return nil, false
	}
	return &SentimentVector{Joy: *p.Joy, Anger: *p.Anger, Sadness: *p.Sadness, Pleasure: *p.Pleasure}, true
}

// DecodeVector parses a JSON object with all four channels. A missing channel
// or a non-object payload is a ParseError.
func DecodeVector(data []byte) (*SentimentVector, error) {
	var p partialVector
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &ParseError{What: "sentiment", Err: err}
	}
	v, ok := p.complete()
	if !ok {
		return nil, &ParseError{What: "sentiment", Err: fmt.Errorf("missing channel in %s", truncate(string(data), 80))}
	}
	return v, nil
}

// FieldKind discriminates the SentimentField variants.
type FieldKind int

const (
	FieldMissing FieldKind = iota
	FieldEncoded
	FieldStructured
)

// SentimentField is the wire representation of an entry's sentiment. The
// record store returns it either absent, as a JSON-encoded string, or as an
// object. Decode turns any of these into a vector.
type SentimentField struct {
	Kind    FieldKind
	Encoded string
	Vector  SentimentVector
}

// EncodedField wraps a string-encoded sentiment payload.
func EncodedField(s string) SentimentField {
	return SentimentField{Kind: FieldEncoded, Encoded: s}
}

// StructuredField wraps an already-decoded vector. A nil vector yields a
// missing field.
func StructuredField(v *SentimentVector) SentimentField {
	if v == nil {
		return SentimentField{}
	}
	return SentimentField{Kind: FieldStructured, Vector: *v}
}

// Decode returns the vector carried by the field. A missing field returns
// (nil, nil).
func (f SentimentField) Decode() (*SentimentVector, error) {
	switch f.Kind {
	case FieldStructured:
		v := f.Vector
		return &v, nil
	case FieldEncoded:
		if strings.TrimSpace(f.Encoded) == "" {
			return nil, nil
		}
		return DecodeVector([]byte(f.Encoded))
	default:
		return nil, nil
	}
}

// UnmarshalJSON accepts null, a string or an object.
func (f *SentimentField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = SentimentField{}
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = EncodedField(s)
	case data[0] == '{':
		if v, err := DecodeVector(data); err == nil {
			*f = StructuredField(v)
			return nil
		}
		// Keep the raw object so a partial one surfaces at Decode time
		// instead of failing the enclosing document.
		*f = EncodedField(string(data))
	default:
		*f = EncodedField(string(data))
	}
	return nil
}

// MarshalJSON emits the field the way the record store stores it: null or a
// JSON-encoded string.
func (f SentimentField) MarshalJSON() ([]byte, error) {
	switch f.Kind {
	case FieldEncoded:
		return json.Marshal(f.Encoded)
	case FieldStructured:
		b, err := json.Marshal(f.Vector)
		if err != nil {
			return nil, err
		}
		return json.Marshal(string(b))
	default:
		return []byte("null"), nil
	}
}

// EntryID is the store-assigned identifier of a diary entry.
type EntryID int64

// Entry is a persisted diary record.
type Entry struct {
	ID        EntryID        `json:"id"`
	Content   string         `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
	Sentiment SentimentField `json:"emotion"`
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
