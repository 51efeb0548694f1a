package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aoba-labs/mocabot/internal/chat"
	"github.com/aoba-labs/mocabot/internal/memory"
	"github.com/aoba-labs/mocabot/internal/retry"
)

func fastOptions(storyDir string) Options {
	opts := DefaultOptions(storyDir)
	opts.Retry = retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond}
	return opts
}

func writeRecord(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func readRecord(t *testing.T, path string) map[string]any {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	var record map[string]any
	if err := json.Unmarshal(raw, &record); err != nil {
		t.Fatalf("failed to parse %s: %v", path, err)
	}
	return record
}

func TestRun_SummarizesAndPreservesFields(t *testing.T) {
	dir := t.TempDir()
	writeRecord(t, dir, "scene.json", `{
		"extractedData": ["Moka: hello", "Ran: hi"],
		"eventName": "Morning",
		"customField": "kept"
	}`)

	completer := &chat.MockCompleter{Reply: "Moka and Ran greet each other."}
	stats, err := Run(context.Background(), completer, fastOptions(dir))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Summarized != 1 || stats.Skipped != 0 {
		t.Errorf("Unexpected stats: %+v", stats)
	}

	record := readRecord(t, filepath.Join(dir, "scene.with_summary.json"))
	if record["Summary"] != "Moka and Ran greet each other." {
		t.Errorf("Unexpected summary: %v", record["Summary"])
	}
	if record["customField"] != "kept" {
		t.Error("Unknown fields must survive the rewrite")
	}
	if record["eventName"] != "Morning" {
		t.Error("Known fields must survive the rewrite")
	}

	// The prompt carries the joined dialogue.
	prompt := completer.LastTurns[0].Content
	if want := "Moka: hello\nRan: hi"; !strings.Contains(prompt, want) {
		t.Errorf("Prompt missing dialogue, got %q", prompt)
	}
}

func TestRun_SkipsAlreadySummarized(t *testing.T) {
	dir := t.TempDir()
	writeRecord(t, dir, "done.json", `{
		"extractedData": ["Moka: hi"],
		"Summary": "Already written."
	}`)
	writeRecord(t, dir, "outed.json", `{
		"extractedData": ["Moka: hi"]
	}`)
	writeRecord(t, dir, "outed.with_summary.json", `{
		"extractedData": ["Moka: hi"],
		"Summary": "From a previous run."
	}`)

	completer := &chat.MockCompleter{Reply: "should not be needed"}
	stats, err := Run(context.Background(), completer, fastOptions(dir))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Summarized != 0 {
		t.Errorf("Expected nothing summarized, got %d", stats.Summarized)
	}
	if stats.Skipped != 2 {
		t.Errorf("Expected 2 skipped, got %d", stats.Skipped)
	}
	if completer.Calls != 0 {
		t.Errorf("Expected no completions, got %d", completer.Calls)
	}
}

func TestRun_EmptyDirectory(t *testing.T) {
	_, err := Run(context.Background(), &chat.MockCompleter{}, fastOptions(t.TempDir()))
	if !errors.Is(err, ErrEmptyStoryDir) {
		t.Errorf("Expected ErrEmptyStoryDir, got %v", err)
	}
}

func TestRun_RetriesTransientFailures(t *testing.T) {
	dir := t.TempDir()
	writeRecord(t, dir, "scene.json", `{"extractedData": ["Moka: hi"]}`)

	completer := &flakyCompleter{failures: 1, reply: "Moka says hi."}
	opts := fastOptions(dir)
	opts.Retry = retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	stats, err := Run(context.Background(), completer, opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Summarized != 1 {
		t.Errorf("Expected 1 summarized, got %d", stats.Summarized)
	}
	if completer.calls != 2 {
		t.Errorf("Expected 2 attempts, got %d", completer.calls)
	}
}

func TestRun_TruncatesLongDialogue(t *testing.T) {
	dir := t.TempDir()
	long := make([]byte, 0, 200)
	for i := 0; i < 200; i++ {
		long = append(long, 'x')
	}
	writeRecord(t, dir, "long.json", `{"extractedData": ["`+string(long)+`"]}`)

	completer := &chat.MockCompleter{Reply: "long scene"}
	opts := fastOptions(dir)
	opts.MaxChars = 50

	if _, err := Run(context.Background(), completer, opts); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	prompt := completer.LastTurns[0].Content
	if strings.Contains(prompt, string(long)) {
		t.Error("Dialogue should have been truncated")
	}
}

// flakyCompleter fails a fixed number of times before succeeding.
type flakyCompleter struct {
	failures int
	reply    string
	calls    int
}

func (f *flakyCompleter) Complete(ctx context.Context, turns []memory.Turn) (*chat.Reply, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("rate limited")
	}
	return &chat.Reply{Text: f.reply}, nil
}
