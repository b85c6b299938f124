package httpapi

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/MimeLyc/srt-editor/internal/config"
	"github.com/MimeLyc/srt-editor/internal/jobs"
	"github.com/MimeLyc/srt-editor/internal/session"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type runtimeSettingsStore interface {
	GetRuntimeSettings() (config.RuntimeSettings, error)
	UpdateRuntimeSettings(next config.RuntimeSettings) (config.RuntimeSettings, error)
}

// CredentialResolver maps the key sent with a request to the credential used
// for the provider call.
type CredentialResolver func(requestKey string) string

type Server struct {
	translator session.Translator
	sessions   *session.Store
	queue      *jobs.Queue
	settings   runtimeSettingsStore
	credential CredentialResolver
	health     func() map[string]any

	mu             sync.RWMutex
	defaultTarget  string
	lockAPIURL     bool
	uiEnabled      bool
	uiStaticDir    string
	corsOrigins    []string
	maxUploadBytes int64
	streamInterval time.Duration

	router chi.Router
	server *http.Server
}

type Option func(*Server)

func WithUI(staticDir string, enabled bool) Option {
	return func(s *Server) {
		s.uiStaticDir = staticDir
		s.uiEnabled = enabled
	}
}

func WithRuntimeSettingsStore(store runtimeSettingsStore) Option {
	return func(s *Server) {
		s.settings = store
	}
}

// WithLockedAPIURL rejects settings updates that change llm_api_url. Use it
// when the server attaches its own API key to every provider call.
func WithLockedAPIURL(locked bool) Option {
	return func(s *Server) {
		s.lockAPIURL = locked
	}
}

// WithCredentialResolver overrides the default, which uses the request key as is.
func WithCredentialResolver(resolve CredentialResolver) Option {
	return func(s *Server) {
		s.credential = resolve
	}
}

// WithDefaultTargetLanguage is used when a session translation names no target.
func WithDefaultTargetLanguage(tag string) Option {
	return func(s *Server) {
		s.defaultTarget = tag
	}
}

func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		s.maxUploadBytes = n
	}
}

// WithHealthInfo adds fields to the /api/health response.
func WithHealthInfo(fn func() map[string]any) Option {
	return func(s *Server) {
		s.health = fn
	}
}

func NewServer(tr session.Translator, sessions *session.Store, queue *jobs.Queue, opts ...Option) *Server {
	s := &Server{
		translator:     tr,
		sessions:       sessions,
		queue:          queue,
		credential:     func(key string) string { return strings.TrimSpace(key) },
		defaultTarget:  "en",
		maxUploadBytes: 10 << 20,
		streamInterval: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) targetLanguage(requested string) string {
	if t := strings.TrimSpace(requested); t != "" {
		return t
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultTarget
}

func (s *Server) setDefaultTarget(tag string) {
	s.mu.Lock()
	s.defaultTarget = tag
	s.mu.Unlock()
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(cors.Handler(corsOptions(s.corsOrigins)))

	r.Route("/api", func(r chi.Router) {
		r.Use(maxBodySize(s.maxUploadBytes))

		r.Get("/health", s.handleHealth)
		r.Post("/translate", s.handleTranslate)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Post("/", s.handleCreateSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Get("/export", s.handleExportSession)
				r.Post("/translate", s.handleTranslateSession)
				r.Patch("/cues/{index}", s.handleUpdateCue)
				r.Post("/cues/{index}/translate", s.handleTranslateCue)
			})
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", s.handleListJobs)
			r.Get("/stream", s.handleJobStream)
			r.Get("/{jobID}", s.handleGetJob)
			r.Delete("/{jobID}", s.handleCancelJob)
		})

		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusNotFound, "not found")
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		})
	})

	r.Get("/*", s.handleStatic)
	s.router = r
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if !s.uiEnabled || s.uiStaticDir == "" {
		http.NotFound(w, r)
		return
	}

	rel := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	indexPath := filepath.Join(s.uiStaticDir, "index.html")

	if rel == "" || !strings.Contains(filepath.Base(rel), ".") {
		http.ServeFile(w, r, indexPath)
		return
	}

	filePath := filepath.Join(s.uiStaticDir, rel)
	if _, err := os.Stat(filePath); err != nil {
		// SPA fallback: non-existing static file path returns index
		http.ServeFile(w, r, indexPath)
		return
	}
	http.ServeFile(w, r, filePath)
}
