// Package sentiment maps sentiment vectors to display badges.
package sentiment

import (
	"fmt"
	"math"

	"github.com/kalambet/aidiary/internal/diary"
)

// Channel names a sentiment channel.
type Channel string

const (
	Joy      Channel = "joy"
	Anger    Channel = "anger"
	Sadness  Channel = "sadness"
	Pleasure Channel = "pleasure"
)

// Channels lists channels in display order.
var Channels = []Channel{Joy, Anger, Sadness, Pleasure}

type style struct {
	label string
	color string
}

var styles = map[Channel]style{
	Joy:      {label: "喜び", color: "#FFC107"},
	Anger:    {label: "怒り", color: "#F44336"},
	Sadness:  {label: "悲しみ", color: "#2196F3"},
	Pleasure: {label: "楽しさ", color: "#4CAF50"},
}

// Badge is the display model for one channel.
type Badge struct {
	Channel  Channel
	Label    string
	Color    string
	Fraction float64 // clamped to [0,1]
	Percent  int
	Opacity  float64
}

// Width returns the CSS width of the badge bar.
func (b Badge) Width() string {
	return fmt.Sprintf("%d%%", b.Percent)
}

// Style returns the label and color for a channel. Unknown channels fall back
// to the pleasure styling.
func Style(c Channel) (label, color string) {
	s, ok := styles[c]
	if !ok {
		s = styles[Pleasure]
	}
	return s.label, s.color
}

// Clamp bounds v to [0,1]. NaN maps to 0.
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Badges builds one badge per channel in display order. A nil vector yields
// no badges.
func Badges(v *diary.SentimentVector) []Badge {
	if v == nil {
		return nil
	}
	values := map[Channel]float64{
		Joy:      v.Joy,
		Anger:    v.Anger,
		Sadness:  v.Sadness,
		Pleasure: v.Pleasure,
	}
	badges := make([]Badge, 0, len(Channels))
	for _, c := range Channels {
		f := Clamp(values[c])
		label, color := Style(c)
		badges = append(badges, Badge{
			Channel:  c,
			Label:    label,
			Color:    color,
			Fraction: f,
			Percent:  int(math.Round(f * 100)),
			Opacity:  f*0.8 + 0.2,
		})
	}
	return badges
}
