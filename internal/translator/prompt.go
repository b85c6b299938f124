package translator

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const (
	contextHeader = "=== FULL SUBTITLE FILE (CONTEXT ONLY, DO NOT TRANSLATE) ==="
	contextFooter = "=== END OF CONTEXT ==="
	cueHeader     = "=== SUBTITLE TEXT TO TRANSLATE ==="
)

var languageCode = regexp.MustCompile(`^[A-Za-z]{2,3}(-[A-Za-z0-9]{2,8})*$`)

// BuildRequest builds the single instruction sent to the completion model.
// It performs no I/O.
func BuildRequest(req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	target := languageName(req.TargetLanguage)
	withContext := req.FullDocument != ""

	var prompt strings.Builder

	if withContext {
		prompt.WriteString(contextHeader + "\n")
		prompt.WriteString(req.FullDocument)
		prompt.WriteString("\n" + contextFooter + "\n\n")
	}

	prompt.WriteString("Translate the following subtitle text to " + target)
	if req.StartTime != "" && req.EndTime != "" {
		prompt.WriteString(fmt.Sprintf(" (cue timing: %s --> %s)", req.StartTime, req.EndTime))
	}
	prompt.WriteString(".")
	if withContext {
		prompt.WriteString(" Use the subtitle file above only as context; translate only the subtitle text below, not the context.")
	}
	prompt.WriteString(" Return only the translated text, preserving every line break exactly as in the original.")

	if withContext {
		prompt.WriteString("\n\n" + cueHeader)
	}
	prompt.WriteString("\n\n")
	prompt.WriteString(req.Text)

	return prompt.String(), nil
}

// languageName expands BCP 47 codes ("es", "pt-BR") into English names so the
// model is not left guessing; free-form names are passed through.
func languageName(target string) string {
	target = strings.TrimSpace(target)
	if !languageCode.MatchString(target) {
		return target
	}
	tag, err := language.Parse(target)
	if err != nil || tag == language.Und {
		return target
	}
	name := display.English.Tags().Name(tag)
	if name == "" {
		return target
	}
	return fmt.Sprintf("%s (%s)", name, target)
}
