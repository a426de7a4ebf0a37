package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/spf13/cobra"

	"github.com/kalambet/aidiary/internal/archive"
	"github.com/kalambet/aidiary/internal/config"
	"github.com/kalambet/aidiary/internal/diary"
	"github.com/kalambet/aidiary/internal/sentiment"
)

// --- write ---

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Write today's entry in a guided conversation",
	Long: `Answer a few questions and get a diary draft to review.

While reviewing a draft:
  /save      save the draft
  /continue  answer more questions
  /edit      replace the draft with the next line you type
  /cancel    discard the session and start over
  /quit      leave without saving`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runWrite(cmd.Context(), client.engine(), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// --- save ---

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save an entry written by hand",
	Long: `Save an entry written by hand.

Examples:
  aidiary save --text "今日は雨だった"
  aidiary save --file ./today.md --joy 0.2 --anger 0 --sadness 0.6 --pleasure 0.1
  aidiary save --file ./scan.pdf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, _ := cmd.Flags().GetString("text")
		file, _ := cmd.Flags().GetString("file")

		if text == "" && file == "" {
			return fmt.Errorf("one of --text or --file is required")
		}
		if file != "" {
			var err error
			if text, err = readEntryFile(file); err != nil {
				return err
			}
		}
		if strings.TrimSpace(text) == "" {
			return diary.ErrEmptyContent
		}

		vec, err := sentimentFlags(cmd)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		id, err := client.records().CreateEntry(cmd.Context(), text, vec)
		if err != nil {
			return err
		}

		printSuccess("Saved entry #%d", id)
		return nil
	},
}

func init() {
	saveCmd.Flags().String("text", "", "entry text")
	saveCmd.Flags().String("file", "", "read the entry from a text, Markdown or PDF file")
	for _, c := range sentiment.Channels {
		saveCmd.Flags().Float64(string(c), 0, fmt.Sprintf("%s score in [0,1]", c))
	}
}

// sentimentFlags returns a vector when all four channel flags are set, nil
// when none are, and an error for a partial set.
func sentimentFlags(cmd *cobra.Command) (*diary.SentimentVector, error) {
	var set []string
	for _, c := range sentiment.Channels {
		if cmd.Flags().Changed(string(c)) {
			set = append(set, string(c))
		}
	}
	switch len(set) {
	case 0:
		return nil, nil
	case len(sentiment.Channels):
	default:
		return nil, fmt.Errorf("sentiment needs all of --joy, --anger, --sadness and --pleasure (got %s)", strings.Join(set, ", "))
	}

	get := func(c sentiment.Channel) float64 {
		v, _ := cmd.Flags().GetFloat64(string(c))
		return sentiment.Clamp(v)
	}
	return &diary.SentimentVector{
		Joy:      get(sentiment.Joy),
		Anger:    get(sentiment.Anger),
		Sadness:  get(sentiment.Sadness),
		Pleasure: get(sentiment.Pleasure),
	}, nil
}

func readEntryFile(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return readPDF(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}
	return string(data), nil
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	text, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting PDF text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(text); err != nil {
		return "", fmt.Errorf("reading PDF text: %w", err)
	}
	return buf.String(), nil
}

// --- archive ---

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "List saved entries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if n, _ := cmd.Flags().GetInt("preview"); n > 0 {
			client.archive.PreviewChars = n
		}
		return runArchive(cmd.Context(), client, cmd.OutOrStdout())
	},
}

func init() {
	archiveCmd.Flags().Int("preview", 0, "preview length in characters (default from config)")
}

func runArchive(ctx context.Context, client *apiClient, w io.Writer) error {
	fmt.Fprintln(os.Stderr, archive.LoadingText)
	page, err := client.archive.Load(ctx, client.records())
	if err != nil {
		return fmt.Errorf("loading archive: %w", err)
	}
	return archive.RenderText(w, page)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return fmt.Errorf("%w (valid keys: %s)", err, strings.Join(config.ValidKeys(), ", "))
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Generate a new API bearer token",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := config.GenerateAPIToken(config.NewSecretStore())
		if err != nil {
			return err
		}
		if os.Getenv("AIDIARY_API_TOKEN") != "" {
			printWarning("AIDIARY_API_TOKEN is set and takes precedence over the stored token")
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configTokenCmd)
}
