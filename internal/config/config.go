package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MimeLyc/srt-editor/pkg/icron"
	"github.com/MimeLyc/srt-editor/pkg/log"
	"golang.org/x/text/language"
)

// Config holds all application configuration
// Supports environment variables with sensible defaults
//
// Environment Variables:
// HTTP:
// - HTTP_ADDR: Listen address (default: :8080)
// - UI_ENABLED: Serve the web UI (default: true)
// - UI_STATIC_DIR: Web UI build directory (default: /app/web)
// - CORS_ALLOWED_ORIGINS: Comma separated allowed origins (optional)
// - MAX_UPLOAD_BYTES: Largest accepted subtitle upload (default: 10 MiB)
//
// LLM Configuration:
// - LLM_API_KEY: Server-side API key (required when CREDENTIAL_SOURCE=server-config)
// - LLM_API_URL: API endpoint URL (default: https://api.openai.com/v1)
// - LLM_PROVIDER: Provider label reported with the model (default: openai)
// - LLM_MODEL: Model name to use (default: gpt-4o-mini)
// - LLM_MAX_TOKENS: Maximum tokens for responses (default: 2000)
// - LLM_TEMPERATURE: Temperature for responses (default: 0.3)
// - LLM_TIMEOUT: Request timeout in seconds (default: 60)
// - LLM_SITE_URL: Site URL for HTTP referer header (optional)
// - LLM_APP_NAME: Application name for X-Title header (optional)
//
// Translation:
// - CREDENTIAL_SOURCE: "request" or "server-config" (default: request)
// - DEFAULT_TARGET_LANGUAGE: Target used when a request names none (default: en)
//
// Sessions and jobs:
// - SESSION_TTL_MINUTES: Idle session lifetime, 0 keeps sessions forever (default: 120)
// - SESSION_SWEEP_CRON: Schedule of the expiry sweep (default: @every 5m)
// - JOB_WORKERS: Whole-document translation workers (default: 2)
// - JOB_CUE_CONCURRENCY: Cues translated in parallel per job (default: 4)
//
// Cache:
// - CACHE_DB_PATH: SQLite translation memory, empty disables it (optional)
// - CACHE_RETENTION_HOURS: Drop entries unused for this long, 0 keeps them (default: 720)
//
// System:
// - SETTINGS_FILE: Runtime settings file (default: /app/config/settings.json)
// - LOG_LEVEL: debug, info, warn or error (default: info)
// - LOG_FILE: Write logs to this file instead of stdout (optional)
type Config struct {
	HTTP      HTTPConfig      `json:"http"`
	LLM       LLMConfig       `json:"llm"`
	Translate TranslateConfig `json:"translate"`
	Session   SessionConfig   `json:"session"`
	Jobs      JobsConfig      `json:"jobs"`
	Cache     CacheConfig     `json:"cache"`
	LogLevel  string          `json:"log_level"`
	LogFile   string          `json:"log_file"`
}

type HTTPConfig struct {
	Addr           string   `json:"addr"`
	UIEnabled      bool     `json:"ui_enabled"`
	UIStaticDir    string   `json:"ui_static_dir"`
	CORSOrigins    []string `json:"cors_origins"`
	MaxUploadBytes int64    `json:"max_upload_bytes"`
}

// LLMConfig holds the configuration for LLM client
// Supports any OpenAI-compatible provider (OpenAI, OpenRouter, local gateways)
type LLMConfig struct {
	APIKey      string  `json:"-"`
	APIURL      string  `json:"api_url"`
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Timeout     int     `json:"timeout"`
	SiteURL     string  `json:"site_url"`
	AppName     string  `json:"app_name"`
}

// CredentialSource says where the provider credential comes from.
type CredentialSource string

const (
	// CredentialFromRequest uses the key supplied with each request.
	CredentialFromRequest CredentialSource = "request"
	// CredentialFromServer uses LLM_API_KEY and ignores request keys.
	CredentialFromServer CredentialSource = "server-config"
)

func ParseCredentialSource(value string) (CredentialSource, error) {
	switch CredentialSource(strings.ToLower(strings.TrimSpace(value))) {
	case "", CredentialFromRequest:
		return CredentialFromRequest, nil
	case CredentialFromServer:
		return CredentialFromServer, nil
	default:
		return "", fmt.Errorf("invalid CREDENTIAL_SOURCE %q: want %q or %q", value, CredentialFromRequest, CredentialFromServer)
	}
}

type TranslateConfig struct {
	CredentialSource      CredentialSource `json:"credential_source"`
	DefaultTargetLanguage language.Tag     `json:"default_target_language"`
}

type SessionConfig struct {
	TTL       time.Duration `json:"ttl"`
	SweepCron string        `json:"sweep_cron"`
}

type JobsConfig struct {
	Workers        int `json:"workers"`
	CueConcurrency int `json:"cue_concurrency"`
}

type CacheConfig struct {
	DBPath    string        `json:"db_path"`
	Retention time.Duration `json:"retention"`
}

func (c CacheConfig) Enabled() bool {
	return strings.TrimSpace(c.DBPath) != ""
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	source, err := ParseCredentialSource(getEnvString("CREDENTIAL_SOURCE", string(CredentialFromRequest)))
	if err != nil {
		return nil, err
	}
	target, err := language.Parse(getEnvString("DEFAULT_TARGET_LANGUAGE", "en"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_TARGET_LANGUAGE: %w", err)
	}

	config := &Config{
		HTTP: HTTPConfig{
			Addr:           getEnvString("HTTP_ADDR", ":8080"),
			UIEnabled:      getEnvBool("UI_ENABLED", true),
			UIStaticDir:    getEnvString("UI_STATIC_DIR", "/app/web"),
			CORSOrigins:    getEnvList("CORS_ALLOWED_ORIGINS"),
			MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
		},
		LLM: LLMConfig{
			APIKey:      getEnvString("LLM_API_KEY", ""),
			APIURL:      getEnvString("LLM_API_URL", "https://api.openai.com/v1"),
			Provider:    getEnvString("LLM_PROVIDER", "openai"),
			Model:       getEnvString("LLM_MODEL", "gpt-4o-mini"),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 2000),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.3),
			Timeout:     getEnvInt("LLM_TIMEOUT", 60),
			SiteURL:     getEnvString("LLM_SITE_URL", ""),
			AppName:     getEnvString("LLM_APP_NAME", ""),
		},
		Translate: TranslateConfig{
			CredentialSource:      source,
			DefaultTargetLanguage: target,
		},
		Session: SessionConfig{
			TTL:       time.Duration(getEnvInt("SESSION_TTL_MINUTES", 120)) * time.Minute,
			SweepCron: getEnvString("SESSION_SWEEP_CRON", "@every 5m"),
		},
		Jobs: JobsConfig{
			Workers:        getEnvInt("JOB_WORKERS", 2),
			CueConcurrency: getEnvInt("JOB_CUE_CONCURRENCY", 4),
		},
		Cache: CacheConfig{
			DBPath:    getEnvString("CACHE_DB_PATH", ""),
			Retention: time.Duration(getEnvInt("CACHE_RETENTION_HOURS", 720)) * time.Hour,
		},
		LogLevel: getEnvString("LOG_LEVEL", "info"),
		LogFile:  getEnvString("LOG_FILE", ""),
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Info("Config: addr=%s model=%s/%s credentials=%s sessions_ttl=%s cache=%t",
		config.HTTP.Addr, config.LLM.Provider, config.LLM.Model,
		config.Translate.CredentialSource, config.Session.TTL, config.Cache.Enabled())

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.Translate.CredentialSource == CredentialFromServer && strings.TrimSpace(c.LLM.APIKey) == "" {
		return fmt.Errorf("LLM_API_KEY is required when CREDENTIAL_SOURCE=%s", CredentialFromServer)
	}
	if strings.TrimSpace(c.LLM.APIURL) == "" {
		return fmt.Errorf("LLM_API_URL is required")
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return fmt.Errorf("LLM_MODEL is required")
	}
	if c.Jobs.Workers < 1 {
		return fmt.Errorf("JOB_WORKERS must be greater than 0")
	}
	if c.Jobs.CueConcurrency < 1 {
		return fmt.Errorf("JOB_CUE_CONCURRENCY must be greater than 0")
	}
	if c.HTTP.MaxUploadBytes < 1 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be greater than 0")
	}
	if err := icron.Validate(c.Session.SweepCron); err != nil {
		return fmt.Errorf("invalid SESSION_SWEEP_CRON: %w", err)
	}
	return nil
}

// ResolveCredential returns the credential a translation should use given
// the key supplied with the request.
func (c *Config) ResolveCredential(requestKey string) string {
	if c.Translate.CredentialSource == CredentialFromServer {
		return c.LLM.APIKey
	}
	return strings.TrimSpace(requestKey)
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean value from environment variables with default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty items
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	ret := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			ret = append(ret, item)
		}
	}
	return ret
}
