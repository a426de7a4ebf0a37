package main

import (
	"fmt"
	"io"
	"os"

	"github.com/kalambet/aidiary/internal/sentiment"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

// ANSI colors closest to each channel's badge color.
var channelColors = map[sentiment.Channel]string{
	sentiment.Joy:      colorYellow,
	sentiment.Anger:    colorRed,
	sentiment.Sadness:  "\033[34m",
	sentiment.Pleasure: colorGreen,
}

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(colorBold, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}

func printStep(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorCyan, "→ "+msg))
}

func printBadges(w io.Writer, badges []sentiment.Badge) {
	for _, b := range badges {
		fmt.Fprintf(w, "  %s %3d%%\n", colorize(channelColors[b.Channel], b.Label), b.Percent)
	}
}
