package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kalambet/aidiary/internal/dialogue"
	"github.com/kalambet/aidiary/internal/diary"
	"github.com/kalambet/aidiary/internal/sentiment"
)

const (
	cmdSave     = "/save"
	cmdContinue = "/continue"
	cmdEdit     = "/edit"
	cmdCancel   = "/cancel"
	cmdQuit     = "/quit"
)

// runWrite drives one engine from line-oriented input until EOF or /quit.
func runWrite(ctx context.Context, eng *dialogue.Engine, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	printQuestion(out, eng.Snapshot())
	for sc.Scan() {
		line := sc.Text()
		cmd := strings.TrimSpace(line)
		if cmd == cmdQuit {
			return nil
		}

		snap := eng.Snapshot()
		if cmd == cmdCancel {
			if err := eng.Cancel(); err != nil {
				printError("%v", err)
				continue
			}
			printWarning("セッションを破棄しました")
			printQuestion(out, eng.Snapshot())
			continue
		}

		if snap.Phase == dialogue.Collecting {
			submit(ctx, eng, line, out)
			continue
		}

		switch cmd {
		case cmdSave:
			id, err := eng.Commit(ctx)
			if err != nil {
				printError("保存できませんでした: %v", err)
				continue
			}
			printSuccess("保存しました (#%d)", id)
			printQuestion(out, eng.Snapshot())
		case cmdContinue:
			if err := eng.Continue(); err != nil {
				printError("%v", err)
				continue
			}
			printQuestion(out, eng.Snapshot())
		case cmdEdit:
			fmt.Fprintln(out, "新しい本文を入力してください:")
			if !sc.Scan() {
				return sc.Err()
			}
			if err := eng.EditDraft(sc.Text()); err != nil {
				printError("%v", err)
			}
			printDraft(out, eng.Snapshot().Review)
		default:
			printWarning("%s / %s / %s / %s のいずれかを入力してください", cmdSave, cmdContinue, cmdEdit, cmdCancel)
		}
	}
	return sc.Err()
}

func submit(ctx context.Context, eng *dialogue.Engine, line string, out io.Writer) {
	if strings.TrimSpace(line) != "" {
		printStep("考え中…")
	}
	outcome, err := eng.Submit(ctx, line)
	switch {
	case err == nil:
	case diary.IsTransport(err):
		printError("通信に失敗しました。もう一度送信してください: %v", err)
		return
	case diary.IsValidation(err):
		printWarning("%v", err)
		return
	default:
		printError("%v", err)
		return
	}

	snap := eng.Snapshot()
	switch outcome {
	case dialogue.Asked:
		printQuestion(out, snap)
	case dialogue.Summarized:
		printDraft(out, snap.Review)
	}
}

func printQuestion(out io.Writer, snap dialogue.Snapshot) {
	for i := len(snap.Turns) - 1; i >= 0; i-- {
		if snap.Turns[i].Role == diary.RolePrompter {
			fmt.Fprintf(out, "\n%s\n> ", colorize(colorCyan, snap.Turns[i].Text))
			return
		}
	}
}

func printDraft(out io.Writer, d *dialogue.Draft) {
	if d == nil {
		return
	}
	fmt.Fprintf(out, "\n%s\n\n%s\n\n", colorize(colorBold, "── 下書き ──"), d.Text)
	if badges := sentiment.Badges(d.Sentiment); len(badges) > 0 {
		printBadges(out, badges)
	} else {
		fmt.Fprintln(out, "  （感情スコアなし）")
	}
	fmt.Fprintf(out, "\n%s / %s / %s / %s\n> ", cmdSave, cmdContinue, cmdEdit, cmdCancel)
}
