package subtitle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abadojack/whatlanggo"
)

// DefaultReader reads SRT files from disk
type DefaultReader struct{}

// NewReader creates a new subtitle file reader
func NewReader() Reader {
	return &DefaultReader{}
}

// Read loads and parses the subtitle file at path
func (r *DefaultReader) Read(path string) (*Document, error) {
	if !IsSRTName(path) {
		return nil, fmt.Errorf("only SRT format subtitle files are supported: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("subtitle file does not exist: %s", path)
		}
		return nil, fmt.Errorf("failed to read subtitle file: %w", err)
	}

	return ReadBytes(data), nil
}

// ReadBytes parses uploaded SRT content and detects its language.
func ReadBytes(data []byte) *Document {
	doc := Parse(string(data))
	doc.Language = detectLanguage(doc.Cues)
	return doc
}

// IsSRTName reports whether name carries the .srt extension.
func IsSRTName(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".srt")
}

// detectLanguage picks the most common language among cue texts
func detectLanguage(cues []Cue) string {
	if len(cues) == 0 {
		return ""
	}

	counts := make(map[string]int)
	for _, cue := range cues {
		if strings.TrimSpace(cue.Text) == "" {
			continue
		}
		counts[whatlanggo.DetectLang(cue.Text).Iso6391()]++
	}

	var topLang string
	var topCount int
	for lang, count := range counts {
		if count > topCount || (count == topCount && lang < topLang) {
			topLang = lang
			topCount = count
		}
	}
	return topLang
}
