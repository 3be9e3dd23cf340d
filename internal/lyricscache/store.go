package lyricscache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"lyricsync/internal/textutil"
)

// Entry is one cached lyrics record.
type Entry struct {
	Artist    string
	Title     string
	Source    string
	SourceID  string
	Lyrics    string
	Duration  float64
	FetchedAt time.Time
}

// Store manages cached lyrics backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `CREATE TABLE IF NOT EXISTS lyrics (
    key        TEXT PRIMARY KEY,
    artist     TEXT NOT NULL,
    title      TEXT NOT NULL,
    source     TEXT NOT NULL,
    source_id  TEXT,
    lyrics     TEXT NOT NULL,
    duration   REAL NOT NULL DEFAULT 0,
    fetched_at TEXT NOT NULL
)`

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the cache database.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("lyrics cache: path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init lyrics cache schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Key returns the cache key for an artist and title.
func Key(artist, title string) string {
	return textutil.MatchKey(artist) + "\x1f" + textutil.MatchKey(title)
}

// Get returns the cached entry, reporting false on a miss.
func (s *Store) Get(ctx context.Context, artist, title string) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT artist, title, source, COALESCE(source_id, ''), lyrics, duration, fetched_at
         FROM lyrics WHERE key = ?`, Key(artist, title))
	var (
		entry   Entry
		fetched string
	)
	if err := row.Scan(&entry.Artist, &entry.Title, &entry.Source, &entry.SourceID, &entry.Lyrics, &entry.Duration, &fetched); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("lookup cached lyrics: %w", err)
	}
	if ts, err := time.Parse(time.RFC3339Nano, fetched); err == nil {
		entry.FetchedAt = ts
	}
	return entry, true, nil
}

// Put inserts or replaces an entry. A zero FetchedAt is stamped with now.
func (s *Store) Put(ctx context.Context, entry Entry) error {
	if strings.TrimSpace(entry.Lyrics) == "" {
		return errors.New("lyrics cache: refusing to store empty lyrics")
	}
	if entry.FetchedAt.IsZero() {
		entry.FetchedAt = time.Now().UTC()
	}
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO lyrics (key, artist, title, source, source_id, lyrics, duration, fetched_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)
             ON CONFLICT(key) DO UPDATE SET
                artist = excluded.artist, title = excluded.title, source = excluded.source,
                source_id = excluded.source_id, lyrics = excluded.lyrics,
                duration = excluded.duration, fetched_at = excluded.fetched_at`,
			Key(entry.Artist, entry.Title), entry.Artist, entry.Title, entry.Source,
			nullableString(entry.SourceID), entry.Lyrics, entry.Duration,
			entry.FetchedAt.UTC().Format(time.RFC3339Nano))
		return err
	})
}

// Delete removes an entry; deleting a missing entry is not an error.
func (s *Store) Delete(ctx context.Context, artist, title string) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM lyrics WHERE key = ?`, Key(artist, title))
		return err
	})
}

// Count returns the number of cached songs.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lyrics`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cached lyrics: %w", err)
	}
	return n, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return fmt.Errorf("write cached lyrics: %w", lastErr)
}
