package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// Helper to write a story record file
func writeStory(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func TestLoadEntries_FiltersByPersonaMention(t *testing.T) {
	dir := t.TempDir()
	writeStory(t, dir, "a.json", `{
		"extractedData": ["Moka: hello there", "Ran: hi"],
		"Summary": "Moka greets Ran.",
		"eventName": "Morning",
		"chapterTitle": "Chapter 1"
	}`)
	writeStory(t, dir, "b.json", `{
		"extractedData": ["Ran: nobody else here"],
		"Summary": "Ran is alone.",
		"eventName": "Noon",
		"chapterTitle": "Chapter 2"
	}`)

	entries, err := LoadEntries(dir, "Moka")
	if err != nil {
		t.Fatalf("LoadEntries failed: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].FileName != "a.json" {
		t.Errorf("Expected a.json, got %s", entries[0].FileName)
	}
	if entries[0].Sentence != "Moka greets Ran." {
		t.Errorf("Unexpected sentence: %q", entries[0].Sentence)
	}
}

func TestLoadEntries_SkipsEmptySummary(t *testing.T) {
	dir := t.TempDir()
	writeStory(t, dir, "empty.json", `{
		"extractedData": ["Moka: hm"],
		"Summary": "   "
	}`)
	writeStory(t, dir, "absent.json", `{
		"extractedData": ["Moka: hm again"]
	}`)

	entries, err := LoadEntries(dir, "Moka")
	if err != nil {
		t.Fatalf("LoadEntries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected 0 entries, got %d", len(entries))
	}
}

func TestLoadEntries_JoinsListSummaries(t *testing.T) {
	dir := t.TempDir()
	writeStory(t, dir, "list.json", `{
		"extractedData": ["Moka: yo"],
		"Summary": ["Moka practices guitar.", 42, "She takes a nap."],
		"eventName": "Practice",
		"chapterTitle": "Chapter 3"
	}`)

	entries, err := LoadEntries(dir, "Moka")
	if err != nil {
		t.Fatalf("LoadEntries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}

	want := "Moka practices guitar. She takes a nap."
	if entries[0].Summary != want {
		t.Errorf("Expected %q, got %q", want, entries[0].Summary)
	}
}

func TestLoadEntries_SkipsMalformedFiles(t *testing.T) {
	dir := t.TempDir()
	writeStory(t, dir, "bad.json", `{not json at all`)
	writeStory(t, dir, "good.json", `{
		"extractedData": ["Moka: fine"],
		"Summary": "Moka is fine."
	}`)

	entries, err := LoadEntries(dir, "Moka")
	if err != nil {
		t.Fatalf("LoadEntries should not fail on malformed files: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].FileName != "good.json" {
		t.Errorf("Expected good.json, got %s", entries[0].FileName)
	}
}

func TestLoadEntries_DeterministicOrder(t *testing.T) {
	dir := t.TempDir()
	// Write out of order; loader must return sorted file-name order.
	for _, name := range []string{"c.json", "a.json", "b.json"} {
		writeStory(t, dir, name, `{
			"extractedData": ["Moka: line"],
			"Summary": "Something about Moka."
		}`)
	}

	entries, err := LoadEntries(dir, "Moka")
	if err != nil {
		t.Fatalf("LoadEntries failed: %v", err)
	}

	wantOrder := []string{"a.json", "b.json", "c.json"}
	if len(entries) != len(wantOrder) {
		t.Fatalf("Expected %d entries, got %d", len(wantOrder), len(entries))
	}
	for i, want := range wantOrder {
		if entries[i].FileName != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, entries[i].FileName)
		}
	}
}

func TestLoadEntries_MissingDirectory(t *testing.T) {
	_, err := LoadEntries(filepath.Join(t.TempDir(), "nope"), "Moka")
	if !errors.Is(err, ErrCorpusMissing) {
		t.Errorf("Expected ErrCorpusMissing, got %v", err)
	}
}

func TestLoadEntries_DefaultsEventAndChapter(t *testing.T) {
	dir := t.TempDir()
	writeStory(t, dir, "bare.json", `{
		"extractedData": ["Moka: hi"],
		"Summary": "Moka says hi."
	}`)

	entries, err := LoadEntries(dir, "Moka")
	if err != nil {
		t.Fatalf("LoadEntries failed: %v", err)
	}
	if entries[0].EventName != "Unknown Event" {
		t.Errorf("Expected default event name, got %q", entries[0].EventName)
	}
	if entries[0].ChapterTitle != "Unknown Chapter" {
		t.Errorf("Expected default chapter title, got %q", entries[0].ChapterTitle)
	}
}

func TestReadDialogue(t *testing.T) {
	dir := t.TempDir()
	writeStory(t, dir, "talk.json", `{
		"extractedData": ["Moka: one", "Ran: two"],
		"Summary": "Two lines."
	}`)

	dialogue, err := ReadDialogue(dir, "talk.json")
	if err != nil {
		t.Fatalf("ReadDialogue failed: %v", err)
	}
	want := "Moka: one\nRan: two"
	if dialogue != want {
		t.Errorf("Expected %q, got %q", want, dialogue)
	}
}

func TestReadDialogue_MissingFile(t *testing.T) {
	_, err := ReadDialogue(t.TempDir(), "missing.json")
	if !errors.Is(err, ErrRecordInvalid) {
		t.Errorf("Expected ErrRecordInvalid, got %v", err)
	}
}
