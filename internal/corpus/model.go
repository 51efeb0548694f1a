// Package corpus loads story records from a directory of JSON files and
// derives the embeddable entries used by the retrieval index. Records are
// produced by an external authoring/summarization process and are read-only
// here.
package corpus

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Summary normalizes the record field that may arrive as a plain string or as
// a list of strings. Non-string list elements are dropped; list parts are
// joined with single spaces. Normalization happens once, at unmarshal time.
type Summary struct {
	// Parts holds the original form: one element for a plain string, one per
	// list element otherwise.
	Parts []string

	// Text is the normalized summary: parts joined with spaces and trimmed.
	Text string
}

// UnmarshalJSON accepts either a JSON string or a JSON array.
func (s *Summary) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		s.Parts = []string{plain}
		s.Text = strings.TrimSpace(plain)
		return nil
	}

	var items []any
	if err := json.Unmarshal(data, &items); err == nil {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			if str, ok := item.(string); ok {
				parts = append(parts, str)
			}
		}
		s.Parts = parts
		s.Text = strings.TrimSpace(strings.Join(parts, " "))
		return nil
	}

	return fmt.Errorf("summary must be a string or an array of strings")
}

// MarshalJSON writes the normalized text form.
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Text)
}

// StoryRecord is one corpus file. Immutable once loaded.
type StoryRecord struct {
	ExtractedData []string `json:"extractedData"`
	Summary       Summary  `json:"Summary"`
	EventName     string   `json:"eventName"`
	ChapterTitle  string   `json:"chapterTitle"`
}

// Entry is one embeddable candidate derived from a story record with a
// non-empty summary. The whole summary is embedded as a single sentence.
type Entry struct {
	Sentence     string `json:"sentence"`
	FileName     string `json:"file_name"`
	EventName    string `json:"event_name"`
	ChapterTitle string `json:"chapter_title"`
	Summary      string `json:"summary"`
}
