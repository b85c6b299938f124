package file

import (
	"path/filepath"
	"strings"
)

// InsertTag adds tag between the base name and its extension, so
// "movie.srt" tagged "es" becomes "movie.es.srt". A blank tag leaves
// the name unchanged.
func InsertTag(name, tag string) string {
	tag = strings.Trim(strings.TrimSpace(tag), ".")
	if name == "" || tag == "" {
		return name
	}
	dir, base := filepath.Split(name)
	s := stem(base)
	return dir + s + "." + tag + base[len(s):]
}

// stem is base without its final extension; dot files keep their name.
func stem(base string) string {
	lastDot := strings.LastIndex(base, ".")
	if lastDot <= 0 {
		return base
	}
	return base[:lastDot]
}
