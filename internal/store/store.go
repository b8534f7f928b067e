// Package store persists lecture progress, notes, study sessions and
// settings in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite"

	"lecturemate/internal/model"
	"lecturemate/internal/util"
)

var ErrNotFound = errors.New("store: not found")

var errNoDB = errors.New("store: missing database connection")

const defaultCacheSize = 256

type Options struct {
	BusyTimeout time.Duration
	// CacheSize is the number of progress rows kept in memory.
	CacheSize int
	Logger    *slog.Logger
}

type Store struct {
	db    *sql.DB
	cache *lru.Cache[string, model.LectureProgress]
	log   *slog.Logger
}

// Open opens (creating if needed) the database at path and applies pending
// migrations.
func Open(path string, opts Options) (*Store, error) {
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if err := util.EnsureParentDir(path); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	db, err := sql.Open("sqlite", sqliteDSN(path, opts.BusyTimeout))
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}

	cache, err := lru.New[string, model.LectureProgress](opts.CacheSize)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, cache: cache, log: opts.Logger.With("component", "store")}
	if err := s.MigrateSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// SetLogger replaces the logger used to report retried writes.
func (s *Store) SetLogger(l *slog.Logger) {
	if l != nil {
		s.log = l.With("component", "store")
	}
}

// sqliteDSN adds per-connection pragmas so every pooled connection shares
// the same busy timeout and foreign key enforcement.
func sqliteDSN(path string, busy time.Duration) string {
	if path == ":memory:" {
		return path
	}
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", dsn, sep, busy.Milliseconds())
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errNoDB
	}
	return s.db.PingContext(ctx)
}

// IntegrityCheck runs PRAGMA integrity_check. A healthy database yields ["ok"].
func (s *Store) IntegrityCheck(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, "PRAGMA integrity_check")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []string
	for rows.Next() {
		var result string
		if err := rows.Scan(&result); err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// IsContentionError reports whether err is SQLite lock contention worth retrying.
func IsContentionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database is busy") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}

// write runs fn, retrying with backoff while the database is contended.
func (s *Store) write(ctx context.Context, op string, fn func() error) error {
	if s == nil || s.db == nil {
		return errNoDB
	}
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(20*time.Millisecond),
		retry.MaxDelay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsContentionError),
		retry.OnRetry(func(n uint, err error) {
			s.log.DebugContext(ctx, "Database contention, retrying", "op", op, "attempt", n+1, "error", err)
		}),
	)
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
