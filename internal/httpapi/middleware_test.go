package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/MimeLyc/srt-editor/pkg/log"
	"github.com/stretchr/testify/assert"
)

func TestRequestLogger_QuietPaths(t *testing.T) {
	var buf bytes.Buffer
	logger := log.GetLogger()
	logger.SetOutput(&buf)
	defer logger.SetOutput(os.Stdout)

	handler := requestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/fail" {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Empty(t, buf.String())

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/fail", nil))
	assert.Contains(t, buf.String(), "POST /api/fail 502")
	assert.Contains(t, buf.String(), "[ERROR]")
}

func TestStatusWriter_Flushes(t *testing.T) {
	rec := httptest.NewRecorder()
	w := &statusWriter{ResponseWriter: rec, status: http.StatusOK}
	var _ http.Flusher = w
	w.Flush()
	assert.True(t, rec.Flushed)
}

func TestCORSOptions_WildcardDisablesCredentials(t *testing.T) {
	opts := corsOptions(nil)
	assert.Equal(t, []string{"*"}, opts.AllowedOrigins)
	assert.False(t, opts.AllowCredentials)

	opts = corsOptions([]string{"https://app.example"})
	assert.True(t, opts.AllowCredentials)
}
