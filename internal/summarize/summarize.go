// Package summarize backfills the Summary field of story records by
// asking the chat model to condense each dialogue.
package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/aoba-labs/mocabot/internal/chat"
	"github.com/aoba-labs/mocabot/internal/memory"
	"github.com/aoba-labs/mocabot/internal/retry"
)

// ErrEmptyStoryDir is returned when the story directory has no records.
var ErrEmptyStoryDir = errors.New("story directory has no records to summarize")

// Summarization prompts per chat language.
const (
	promptEN = "The following is a dialogue script. Please summarize all the main characters and the main plot in 1-2 sentences, keeping it as concise as possible:\n"
	promptJP = "以下は会話の脚本です。主要なキャラクターと主要なストーリーを1～2文で要約し、できるだけ簡潔にまとめてください：\n"
	promptCN = "以下是一段对话脚本，请用 1-2 句话概括所有主要角色和主要剧情，在此基础上尽量简短：\n"
)

// Options controls a summarization run.
type Options struct {
	// StoryDir holds the record files to summarize.
	StoryDir string

	// OutSuffix replaces the .json suffix of the output file, so the
	// source records stay untouched.
	OutSuffix string

	// MaxChars truncates very long dialogues before prompting.
	MaxChars int

	// Concurrency bounds the in-flight completions.
	Concurrency int

	// Language selects the prompt wording.
	Language string

	// Retry is applied around each completion.
	Retry retry.Policy
}

// DefaultOptions matches the batch summarizer defaults.
func DefaultOptions(storyDir string) Options {
	return Options{
		StoryDir:    storyDir,
		OutSuffix:   ".with_summary.json",
		MaxChars:    50000,
		Concurrency: 10,
		Language:    os.Getenv("BOT_LANG"),
		Retry:       retry.DefaultPolicy(),
	}
}

// Stats reports what a run did.
type Stats struct {
	Summarized int
	Skipped    int
}

// Run summarizes every record in the story directory that has no summary
// yet. Records that already carry one, or whose output file exists, are
// skipped. Each output preserves all fields of its source record.
func Run(ctx context.Context, completer chat.Completer, opts Options) (Stats, error) {
	entries, err := os.ReadDir(opts.StoryDir)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read story directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if opts.OutSuffix != "" && strings.HasSuffix(name, opts.OutSuffix) {
			continue
		}
		files = append(files, name)
	}
	if len(files) == 0 {
		return Stats{}, ErrEmptyStoryDir
	}

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	var summarized, skipped atomic.Int64

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)
	for _, name := range files {
		name := name
		group.Go(func() error {
			done, err := processFile(ctx, completer, opts, name)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			if done {
				summarized.Add(1)
			} else {
				skipped.Add(1)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return Stats{}, err
	}

	return Stats{
		Summarized: int(summarized.Load()),
		Skipped:    int(skipped.Load()),
	}, nil
}

// processFile summarizes one record. Returns false when the record was
// skipped because it is already summarized.
func processFile(ctx context.Context, completer chat.Completer, opts Options, name string) (bool, error) {
	outName := name
	if opts.OutSuffix != "" {
		outName = strings.TrimSuffix(name, ".json") + opts.OutSuffix
	}
	outPath := filepath.Join(opts.StoryDir, outName)
	if _, err := os.Stat(outPath); err == nil {
		return false, nil
	}

	raw, err := os.ReadFile(filepath.Join(opts.StoryDir, name))
	if err != nil {
		return false, err
	}

	// Decode into a generic map so unknown fields survive the rewrite.
	var record map[string]any
	if err := json.Unmarshal(raw, &record); err != nil {
		return false, fmt.Errorf("failed to parse record: %w", err)
	}
	if existing, ok := record["Summary"]; ok && !isEmptySummary(existing) {
		return false, nil
	}

	dialogue := joinDialogue(record["extractedData"])
	if opts.MaxChars > 0 {
		dialogue = truncate(dialogue, opts.MaxChars)
	}

	prompt := summaryPrompt(opts.Language) + dialogue

	var summary string
	err = opts.Retry.Do(ctx, func(ctx context.Context) error {
		reply, err := completer.Complete(ctx, []memory.Turn{
			{Role: memory.RoleUser, Content: prompt},
		})
		if err != nil {
			log.Printf("[Summarize] Completion failed for %s, will retry: %v", name, err)
			return err
		}
		summary = strings.TrimSpace(reply.Text)
		return nil
	})
	if err != nil {
		return false, err
	}

	record["Summary"] = summary

	out, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return false, fmt.Errorf("failed to encode record: %w", err)
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return false, err
	}
	return true, nil
}

func summaryPrompt(lang string) string {
	switch strings.ToUpper(lang) {
	case "EN":
		return promptEN
	case "JP":
		return promptJP
	default:
		return promptCN
	}
}

// isEmptySummary treats missing, blank, and empty-list summaries as absent.
func isEmptySummary(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

func joinDialogue(value any) string {
	lines, ok := value.([]any)
	if !ok {
		return ""
	}
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		if s, ok := line.(string); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// truncate cuts at a rune boundary so multibyte dialogue stays valid.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
