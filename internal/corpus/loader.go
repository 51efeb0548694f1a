package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Common errors for corpus operations
var (
	ErrCorpusMissing = errors.New("story directory does not exist")
	ErrRecordInvalid = errors.New("story record is malformed")
)

// LoadEntries scans dir for *.json story records and returns the embeddable
// entries, in sorted file-name order so corpus order is deterministic across
// platforms. A record qualifies only when its dialogue mentions personaName
// and its summary is non-empty after normalization; everything else is
// skipped with a diagnostic, never fatally.
func LoadEntries(dir, personaName string) ([]Entry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorpusMissing, err)
	}

	var entries []Entry
	for _, file := range files {
		name := file.Name()
		if file.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		record, err := ReadRecord(filepath.Join(dir, name))
		if err != nil {
			log.Printf("[Corpus] Skipping %s: %v", name, err)
			continue
		}

		if !mentionsPersona(record.ExtractedData, personaName) {
			log.Printf("[Corpus] Skipping %s: dialogue never mentions %q", name, personaName)
			continue
		}

		if record.Summary.Text == "" {
			log.Printf("[Corpus] Skipping %s: no summary", name)
			continue
		}

		entries = append(entries, Entry{
			Sentence:     record.Summary.Text,
			FileName:     name,
			EventName:    record.EventName,
			ChapterTitle: record.ChapterTitle,
			Summary:      record.Summary.Text,
		})
	}

	return entries, nil
}

// ReadRecord parses a single story record file.
func ReadRecord(path string) (*StoryRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecordInvalid, err)
	}

	var record StoryRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecordInvalid, err)
	}

	if record.EventName == "" {
		record.EventName = "Unknown Event"
	}
	if record.ChapterTitle == "" {
		record.ChapterTitle = "Unknown Chapter"
	}

	return &record, nil
}

// ReadDialogue re-reads the full dialogue of one record at query time.
// The summary cached in the index is only used for matching; context
// injection always uses the original dialogue lines.
func ReadDialogue(dir, fileName string) (string, error) {
	record, err := ReadRecord(filepath.Join(dir, fileName))
	if err != nil {
		return "", err
	}
	return strings.Join(record.ExtractedData, "\n"), nil
}

// mentionsPersona reports whether any dialogue line contains the persona's
// short name. This is a relevance filter, not an error condition.
func mentionsPersona(lines []string, personaName string) bool {
	if personaName == "" {
		return true
	}
	for _, line := range lines {
		if strings.Contains(line, personaName) {
			return true
		}
	}
	return false
}
