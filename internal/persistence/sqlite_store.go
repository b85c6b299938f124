package persistence

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MimeLyc/srt-editor/internal/translator"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLiteStore is a translation memory: raw model responses keyed by
// translator.CacheKey. Subtitle documents themselves are never stored.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ translator.Cache = (*SQLiteStore)(nil)

// CacheStats summarizes the translation memory.
type CacheStats struct {
	Entries int `json:"entries"`
	Hits    int `json:"hits"`
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		// embed.FS paths always use forward slashes
		content, err := migrationFiles.ReadFile(path.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

// Get returns the cached response for key and bumps its usage.
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var text string
	err := s.db.QueryRowContext(ctx, `SELECT translated_text FROM translations WHERE cache_key = ?`, key).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query translation: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE translations SET hits = hits + 1, used_at = ? WHERE cache_key = ?`,
		s.now().UTC(), key,
	); err != nil {
		return "", false, fmt.Errorf("touch translation: %w", err)
	}
	return text, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, model string, value string) error {
	now := s.now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO translations (cache_key, model, translated_text, hits, created_at, used_at)
		 VALUES (?, ?, ?, 0, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
			model=excluded.model,
			translated_text=excluded.translated_text,
			used_at=excluded.used_at`,
		key, model, value, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert translation: %w", err)
	}
	return nil
}

// PruneUnusedSince deletes entries not used since cutoff and reports how many went.
func (s *SQLiteStore) PruneUnusedSince(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translations WHERE used_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune translations: %w", err)
	}
	return res.RowsAffected()
}

// Stats counts cached responses and how often they were served.
func (s *SQLiteStore) Stats(ctx context.Context) (CacheStats, error) {
	var stats CacheStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(hits), 0) FROM translations`,
	).Scan(&stats.Entries, &stats.Hits)
	if err != nil {
		return CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return stats, nil
}
