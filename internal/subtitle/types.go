package subtitle

import "fmt"

// Reader is the interface for reading subtitle files
type Reader interface {
	Read(path string) (*Document, error)
}

// Writer is the interface for writing subtitle files
type Writer interface {
	Write(path string, doc *Document) error
}

// Cue is one subtitle entry.
// Timecodes are kept as the "HH:MM:SS,mmm" text found in the source.
type Cue struct {
	Index     int    `json:"index"`     // sequence number as written in the file
	StartTime string `json:"startTime"` // start timecode
	EndTime   string `json:"endTime"`   // end timecode
	Text      string `json:"text"`      // cue body, lines separated by "\n"
}

// Document is an ordered sequence of cues parsed from one subtitle file
type Document struct {
	Cues []Cue `json:"cues"`

	// Skipped counts malformed blocks dropped while parsing.
	Skipped int `json:"skipped"`

	// Language is the ISO 639-1 code detected from cue text, "" when unknown.
	Language string `json:"language"`

	Format string `json:"format"` // e.g. SRT
}

// Field names a mutable part of a cue.
type Field string

const (
	FieldText      Field = "text"
	FieldStartTime Field = "startTime"
	FieldEndTime   Field = "endTime"
)

func ParseField(name string) (Field, error) {
	switch Field(name) {
	case FieldText, FieldStartTime, FieldEndTime:
		return Field(name), nil
	default:
		return "", fmt.Errorf("unknown cue field %q", name)
	}
}
