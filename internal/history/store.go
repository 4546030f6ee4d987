// Package history persists per-file processing outcomes in SQLite.
//
// The store doubles as a stripper.Observer, recording outcomes as a run
// reports them, and as a stripper.Skipper, letting later runs skip files that
// were checked under the same exclusion policy and have not changed since.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"trackstrip/internal/logging"
)

// Outcome values stored per row.
const (
	OutcomeCompleted = "completed"
	OutcomeUnchanged = "unchanged"
	OutcomeFailed    = "failed"
)

// Entry is one recorded outcome.
type Entry struct {
	ID               int64  `db:"id"`
	Path             string `db:"path"`
	Size             int64  `db:"size"`
	ModTimeNS        int64  `db:"mtime_ns"`
	Fingerprint      string `db:"fingerprint"`
	Outcome          string `db:"outcome"`
	AudioRemoved     string `db:"audio_removed"`
	SubtitlesRemoved string `db:"subtitles_removed"`
	SizeBefore       int64  `db:"size_before"`
	RunID            string `db:"run_id"`
	Error            string `db:"error"`
	RecordedAtNS     int64  `db:"recorded_at"`
}

// ModTime returns the file mtime captured with the entry.
func (e Entry) ModTime() time.Time {
	return time.Unix(0, e.ModTimeNS)
}

// RecordedAt returns when the entry was written.
func (e Entry) RecordedAt() time.Time {
	return time.Unix(0, e.RecordedAtNS)
}

// RemovedCount returns the number of track ids the entry removed.
func (e Entry) RemovedCount() int {
	return len(splitIDs(e.AudioRemoved)) + len(splitIDs(e.SubtitlesRemoved))
}

// Store manages history persistence backed by SQLite.
type Store struct {
	db     *sqlx.DB
	path   string
	logger *slog.Logger
	now    func() time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the history database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history: database path not set")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer; the pragmas below are per connection.
	db.SetMaxOpenConns(1)

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

	store := &Store{db: db, path: path, logger: logging.NewComponentLogger(logger, "history"), now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS file_history (
id INTEGER PRIMARY KEY AUTOINCREMENT,
path TEXT NOT NULL,
size INTEGER NOT NULL,
mtime_ns INTEGER NOT NULL,
fingerprint TEXT NOT NULL,
outcome TEXT NOT NULL,
audio_removed TEXT NOT NULL DEFAULT '',
subtitles_removed TEXT NOT NULL DEFAULT '',
size_before INTEGER NOT NULL DEFAULT 0,
run_id TEXT NOT NULL DEFAULT '',
error TEXT NOT NULL DEFAULT '',
recorded_at INTEGER NOT NULL);`,
		`CREATE INDEX IF NOT EXISTS file_history_path_idx ON file_history (path, id);`,
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	defer tx.Rollback()
	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return tx.Commit()
}

// Record inserts entry. RecordedAtNS defaults to now.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if entry.RecordedAtNS == 0 {
		entry.RecordedAtNS = s.now().UnixNano()
	}
	const query = `INSERT INTO file_history
(path, size, mtime_ns, fingerprint, outcome, audio_removed, subtitles_removed, size_before, run_id, error, recorded_at)
VALUES (:path, :size, :mtime_ns, :fingerprint, :outcome, :audio_removed, :subtitles_removed, :size_before, :run_id, :error, :recorded_at)`
	return retryOnBusy(ctx, func() error {
		_, err := s.db.NamedExecContext(ctx, query, entry)
		return err
	})
}

// Latest returns the most recent entry for path.
func (s *Store) Latest(ctx context.Context, path string) (Entry, bool, error) {
	var entries []Entry
	err := retryOnBusy(ctx, func() error {
		entries = entries[:0]
		return s.db.SelectContext(ctx, &entries,
			`SELECT * FROM file_history WHERE path = ? ORDER BY id DESC LIMIT 1`, path)
	})
	if err != nil {
		return Entry{}, false, fmt.Errorf("history latest: %w", err)
	}
	if len(entries) == 0 {
		return Entry{}, false, nil
	}
	return entries[0], true, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	var entries []Entry
	err := retryOnBusy(ctx, func() error {
		entries = entries[:0]
		return s.db.SelectContext(ctx, &entries,
			`SELECT * FROM file_history ORDER BY id DESC LIMIT ?`, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("history recent: %w", err)
	}
	return entries, nil
}

// Unchanged reports whether path was last settled (completed or unchanged)
// under fingerprint with the same size and mtime it has now.
func (s *Store) Unchanged(ctx context.Context, path string, size int64, modTime time.Time, fingerprint string) (bool, error) {
	latest, ok, err := s.Latest(ctx, path)
	if err != nil || !ok {
		return false, err
	}
	if latest.Outcome != OutcomeCompleted && latest.Outcome != OutcomeUnchanged {
		return false, nil
	}
	return latest.Fingerprint == fingerprint &&
		latest.Size == size &&
		latest.ModTimeNS == modTime.UnixNano(), nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
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
	return lastErr
}

func joinIDs(ids []string) string {
	return strings.Join(ids, ",")
}

func splitIDs(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return strings.Split(value, ",")
}
