package file

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsertTag(t *testing.T) {
	tests := []struct {
		name, tag, want string
	}{
		{"movie.srt", "es", "movie.es.srt"},
		{"movie.SRT", ".pt-BR.", "movie.pt-BR.SRT"},
		{"subtitles", "fr", "subtitles.fr"},
		{"movie.srt", " ", "movie.srt"},
		{"", "es", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InsertTag(tt.name, tt.tag), tt.name)
	}
}
