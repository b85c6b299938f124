package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MimeLyc/srt-editor/internal/config"
	"github.com/MimeLyc/srt-editor/internal/httpapi"
	"github.com/MimeLyc/srt-editor/internal/jobs"
	"github.com/MimeLyc/srt-editor/internal/llm"
	"github.com/MimeLyc/srt-editor/internal/persistence"
	"github.com/MimeLyc/srt-editor/internal/session"
	"github.com/MimeLyc/srt-editor/internal/translator"
	"github.com/MimeLyc/srt-editor/pkg/icron"
	"github.com/MimeLyc/srt-editor/pkg/log"
	"github.com/alexflint/go-arg"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const shutdownTimeout = 10 * time.Second

type scheduler interface {
	Schedule(ctx context.Context) error
}

type cronEngine interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

type cliArgs struct {
	Translate *translateCmd `arg:"subcommand:translate" help:"translate an SRT file and exit"`
}

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()
	log.InitLogger(log.ParseLevel(os.Getenv("LOG_LEVEL")))

	var args cliArgs
	arg.MustParse(&args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, args); err != nil {
		log.Fatal("%v", err)
	}
}

func run(ctx context.Context, args cliArgs) error {
	settingsPath := config.RuntimeSettingsFilePath()
	opts := make([]config.Option, 0, 1)
	if saved, err := config.LoadRuntimeSettingsFile(settingsPath); err == nil {
		opts = append(opts, config.WithRuntimeSettings(saved))
	} else if !os.IsNotExist(err) {
		log.Warn("Ignoring runtime settings file %s: %v", settingsPath, err)
	}

	cfg, err := config.NewFromEnv(opts...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.LogFile != "" {
		fl, err := log.InitFileLogger(cfg.LogFile, log.ParseLevel(cfg.LogLevel))
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer fl.Close()
	} else {
		log.GetLogger().SetLevel(log.ParseLevel(cfg.LogLevel))
	}

	deps, err := newTranslation(cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	if args.Translate != nil {
		key := args.Translate.APIKey
		if key == "" {
			key = cfg.LLM.APIKey
		}
		out, err := translateFile(ctx, args.Translate, deps.handler, key,
			cfg.Translate.DefaultTargetLanguage.String(), cfg.Jobs.CueConcurrency)
		if err != nil {
			return err
		}
		log.Info("Wrote %s", out)
		return nil
	}

	settings, err := config.NewRuntimeSettingsStore(settingsPath, cfg.RuntimeSettings())
	if err != nil {
		return fmt.Errorf("invalid runtime settings: %w", err)
	}
	settings.OnUpdate(settingsListener(deps.client, deps.handler, cfg.LLM.Provider))

	sessions := session.NewStore(cfg.Session.TTL)
	queue := jobs.NewQueue(cfg.Jobs.Workers)
	queue.Start(session.NewJobExecutor(sessions, deps.handler, cfg.Jobs.CueConcurrency))
	defer queue.Stop()

	srv := httpapi.NewServer(deps.handler, sessions, queue,
		httpapi.WithUI(cfg.HTTP.UIStaticDir, cfg.HTTP.UIEnabled),
		httpapi.WithCORSOrigins(cfg.HTTP.CORSOrigins),
		httpapi.WithMaxUploadBytes(cfg.HTTP.MaxUploadBytes),
		httpapi.WithCredentialResolver(cfg.ResolveCredential),
		httpapi.WithDefaultTargetLanguage(cfg.Translate.DefaultTargetLanguage.String()),
		httpapi.WithRuntimeSettingsStore(settings),
		httpapi.WithLockedAPIURL(cfg.Translate.CredentialSource == config.CredentialFromServer),
		httpapi.WithHealthInfo(healthInfo(cfg, deps, queue)),
	)

	engine := cron.New()
	tasks := &maintenance{
		cron:      engine,
		sessions:  sessions,
		sweepSpec: cfg.Session.SweepCron,
		cache:     deps.cache,
		retention: cfg.Cache.Retention,
	}
	return runWithComponents(ctx, cfg, tasks, engine, srv)
}

// translation bundles the provider client, the handler and its optional cache.
type translation struct {
	client  *llm.Client
	handler *translator.Handler
	cache   *persistence.SQLiteStore
}

func newTranslation(cfg *config.Config) (*translation, error) {
	client, err := llm.NewClient(&llm.Config{
		APIKey:      cfg.LLM.APIKey,
		APIURL:      cfg.LLM.APIURL,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		SiteURL:     cfg.LLM.SiteURL,
		AppName:     cfg.LLM.AppName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	t := &translation{client: client}
	handlerOpts := make([]translator.HandlerOption, 0, 1)
	if cfg.Cache.Enabled() {
		t.cache, err = persistence.NewSQLiteStore(cfg.Cache.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open translation cache: %w", err)
		}
		handlerOpts = append(handlerOpts, translator.WithCache(t.cache))
		log.Info("Translation cache enabled at %s", cfg.Cache.DBPath)
	}
	t.handler = translator.NewHandler(client,
		translator.ModelRef{Provider: cfg.LLM.Provider, Model: cfg.LLM.Model},
		handlerOpts...)
	return t, nil
}

func (t *translation) Close() {
	if t.cache != nil {
		if err := t.cache.Close(); err != nil {
			log.Warn("Failed to close translation cache: %v", err)
		}
	}
}

// settingsListener points the client and handler at newly saved settings.
func settingsListener(client *llm.Client, handler *translator.Handler, provider string) func(config.RuntimeSettings) {
	return func(next config.RuntimeSettings) {
		client.SetBaseURL(next.LLMAPIURL)
		handler.SetModel(translator.ModelRef{Provider: provider, Model: next.LLMModel})
		log.Info("Applied runtime settings: url=%s model=%s target=%s",
			next.LLMAPIURL, next.LLMModel, next.DefaultTargetLanguage)
	}
}

func healthInfo(cfg *config.Config, deps *translation, queue *jobs.Queue) func() map[string]any {
	return func() map[string]any {
		info := map[string]any{
			"model": deps.handler.Model().String(),
			"jobs":  len(queue.List()),
			"cache": deps.cache != nil,
		}
		if deps.cache != nil {
			if stats, err := deps.cache.Stats(context.Background()); err == nil {
				info["cachedTranslations"] = stats.Entries
				info["cacheHits"] = stats.Hits
			} else {
				log.Warn("Failed to read cache stats: %v", err)
			}
		}
		if trigger, err := icron.GetTriggerInfo(cfg.Session.SweepCron, time.Now()); err == nil {
			info["nextSweep"] = trigger.Next
		}
		return info
	}
}

// runWithComponents schedules background work, serves HTTP and shuts
// everything down once ctx is done or the server stops on its own.
func runWithComponents(ctx context.Context, cfg *config.Config, sched scheduler, engine cronEngine, srv httpServer) error {
	if err := sched.Schedule(ctx); err != nil {
		return fmt.Errorf("failed to schedule background tasks: %w", err)
	}
	engine.Start()
	defer func() {
		<-engine.Stop().Done()
	}()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening on %s", cfg.HTTP.Addr)
		serveErr <- srv.ListenAndServe(cfg.HTTP.Addr)
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// maintenance registers the periodic housekeeping jobs.
type maintenance struct {
	cron      *cron.Cron
	sessions  *session.Store
	sweepSpec string
	cache     *persistence.SQLiteStore
	retention time.Duration
}

func (m *maintenance) Schedule(ctx context.Context) error {
	if _, err := m.sessions.ScheduleSweep(m.cron, m.sweepSpec); err != nil {
		return fmt.Errorf("session sweep: %w", err)
	}
	if m.cache == nil || m.retention <= 0 {
		return nil
	}
	_, err := m.cron.AddFunc(m.sweepSpec, func() {
		removed, err := m.cache.PruneUnusedSince(ctx, time.Now().Add(-m.retention))
		if err != nil {
			log.Warn("Failed to prune translation cache: %v", err)
			return
		}
		if removed > 0 {
			log.Info("Pruned %d cached translations", removed)
		}
	})
	if err != nil {
		return fmt.Errorf("cache prune: %w", err)
	}
	return nil
}
