package subtitle

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/MimeLyc/srt-editor/pkg/log"
)

var (
	blockSeparator = regexp.MustCompile(`\n\n+`)
	// trailing content after the second timecode (positioning etc.) is ignored
	timecodeLine = regexp.MustCompile(`^(\d{2}:\d{2}:\d{2},\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2},\d{3})`)
	timecode     = regexp.MustCompile(`^\d{2}:\d{2}:\d{2},\d{3}$`)
)

// Parse turns SRT text into a Document.
//
// Parsing never fails: blocks without a numeric first line, without a
// timecode second line, or with fewer than two lines are dropped and
// counted in Document.Skipped.
func Parse(content string) *Document {
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimSpace(content)

	doc := &Document{
		Cues:   make([]Cue, 0),
		Format: "SRT",
	}
	if content == "" {
		return doc
	}

	for n, block := range blockSeparator.Split(content, -1) {
		cue, ok := parseBlock(block)
		if !ok {
			doc.Skipped++
			log.Debug("skip malformed subtitle block #%d: %q", n+1, firstLine(block))
			continue
		}
		doc.Cues = append(doc.Cues, cue)
	}

	return doc
}

func parseBlock(block string) (Cue, bool) {
	lines := strings.Split(strings.TrimSpace(block), "\n")
	if len(lines) < 2 {
		return Cue{}, false
	}

	index, ok := leadingInt(strings.TrimSpace(lines[0]))
	if !ok {
		return Cue{}, false
	}

	matches := timecodeLine.FindStringSubmatch(lines[1])
	if matches == nil {
		return Cue{}, false
	}

	return Cue{
		Index:     index,
		StartTime: matches[1],
		EndTime:   matches[2],
		Text:      strings.Join(lines[2:], "\n"),
	}, true
}

// leadingInt reads an optionally signed run of leading digits, so "12" and
// "12 extra" both yield 12. It reports false when no digit is present or the
// number does not fit in an int.
func leadingInt(s string) (int, bool) {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == digits {
		return 0, false
	}

	n, err := strconv.ParseInt(s[:i], 10, 0)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

func firstLine(block string) string {
	block = strings.TrimSpace(block)
	if i := strings.IndexByte(block, '\n'); i >= 0 {
		return block[:i]
	}
	return block
}

// Serialize renders cues back into SRT text. Blocks are separated by a
// single blank line, with no leading or trailing blank line.
func Serialize(cues []Cue) string {
	var sb strings.Builder
	for i, cue := range cues {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		writeCue(&sb, cue)
	}
	return sb.String()
}

func writeCue(sb *strings.Builder, cue Cue) {
	sb.WriteString(strconv.Itoa(cue.Index))
	sb.WriteByte('\n')
	sb.WriteString(cue.StartTime)
	sb.WriteString(" --> ")
	sb.WriteString(cue.EndTime)
	sb.WriteByte('\n')
	sb.WriteString(cue.Text)
}

// ValidTimecode reports whether s has the exact HH:MM:SS,mmm shape.
func ValidTimecode(s string) bool {
	return timecode.MatchString(s)
}
