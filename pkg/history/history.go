// Package history persists one row per dispatch for reporting and quota
// accounting.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/cvforge/cvforge/pkg/models"
)

// Store records and queries dispatch history.
type Store interface {
	// Record stores a dispatch record.
	Record(ctx context.Context, rec models.DispatchRecord) error
	// CountSince returns the number of non-cached dispatches for user since
	// a given time. An empty task counts every task.
	CountSince(ctx context.Context, user string, task models.TaskType, since time.Time) (int64, error)
	// Summary returns aggregates by task and model, optionally filtered by user.
	Summary(ctx context.Context, user string) ([]models.HistorySummary, error)
	// Recent returns the newest records first.
	Recent(ctx context.Context, limit int) ([]models.DispatchRecord, error)
	// Close releases resources.
	Close() error
}

// SQLiteStore implements Store with a SQLite database and prunes rows older
// than the retention period once an hour.
type SQLiteStore struct {
	db        *sql.DB
	retention time.Duration
	done      chan struct{}
	wg        sync.WaitGroup
}

const createTable = `
CREATE TABLE IF NOT EXISTS dispatches (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL DEFAULT '',
	task TEXT NOT NULL,
	tier TEXT NOT NULL,
	model TEXT NOT NULL DEFAULT '',
	cached INTEGER NOT NULL DEFAULT 0,
	ok INTEGER NOT NULL DEFAULT 0,
	error_kind TEXT NOT NULL DEFAULT '',
	latency_ms INTEGER NOT NULL DEFAULT 0,
	quality REAL NOT NULL DEFAULT 0,
	prompt_chars INTEGER NOT NULL DEFAULT 0,
	response_chars INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_dispatches_user_time ON dispatches(user_id, created_at);
`

// New opens the history database and runs auto-migration. A positive
// retentionDays starts the background cleanup loop.
func New(dbPath string, retentionDays int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}

	s := &SQLiteStore{
		db:        db,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		done:      make(chan struct{}),
	}
	if s.retention > 0 {
		s.wg.Add(1)
		go s.retentionLoop()
	}
	return s, nil
}

// Record stores a dispatch record. Missing ids and timestamps are filled in.
func (s *SQLiteStore) Record(ctx context.Context, rec models.DispatchRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dispatches (id, user_id, task, tier, model, cached, ok, error_kind, latency_ms, quality, prompt_chars, response_chars, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.User, string(rec.Task), rec.Tier, rec.Model, rec.Cached, rec.OK, string(rec.ErrorKind),
		rec.Latency.Milliseconds(), rec.Quality, rec.PromptChars, rec.ResponseChars, rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record dispatch: %w", err)
	}
	return nil
}

// CountSince returns the number of non-cached dispatches for user since a
// given time.
func (s *SQLiteStore) CountSince(ctx context.Context, user string, task models.TaskType, since time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM dispatches WHERE user_id = ? AND cached = 0 AND created_at >= ?`
	args := []any{user, since.UnixNano()}
	if task != "" {
		query += ` AND task = ?`
		args = append(args, string(task))
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count dispatches: %w", err)
	}
	return n, nil
}

// Summary returns aggregated dispatch summaries, optionally filtered by user.
func (s *SQLiteStore) Summary(ctx context.Context, user string) ([]models.HistorySummary, error) {
	query := `SELECT task, model, COUNT(*), SUM(ok), SUM(cached), AVG(latency_ms),
		COALESCE(AVG(CASE WHEN ok = 1 AND cached = 0 THEN quality END), 0)
		FROM dispatches`
	var args []any
	if user != "" {
		query += ` WHERE user_id = ?`
		args = append(args, user)
	}
	query += ` GROUP BY task, model ORDER BY task, model`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history summary: %w", err)
	}
	defer rows.Close()

	var out []models.HistorySummary
	for rows.Next() {
		var h models.HistorySummary
		var task string
		if err := rows.Scan(&task, &h.Model, &h.Requests, &h.Succeeded, &h.CacheHits, &h.AvgLatencyMs, &h.AvgQuality); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		h.Task = models.TaskType(task)
		out = append(out, h)
	}
	return out, rows.Err()
}

// Recent returns up to limit records, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]models.DispatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, task, tier, model, cached, ok, error_kind, latency_ms, quality, prompt_chars, response_chars, created_at
		 FROM dispatches ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent dispatches: %w", err)
	}
	defer rows.Close()

	var out []models.DispatchRecord
	for rows.Next() {
		var r models.DispatchRecord
		var task, kind string
		var latencyMs, created int64
		if err := rows.Scan(&r.ID, &r.User, &task, &r.Tier, &r.Model, &r.Cached, &r.OK, &kind,
			&latencyMs, &r.Quality, &r.PromptChars, &r.ResponseChars, &created); err != nil {
			return nil, fmt.Errorf("scan dispatch: %w", err)
		}
		r.Task = models.TaskType(task)
		r.ErrorKind = models.ErrorKind(kind)
		r.Latency = time.Duration(latencyMs) * time.Millisecond
		r.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Cleanup deletes records older than the retention period.
func (s *SQLiteStore) Cleanup(ctx context.Context) (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-s.retention).UnixNano()
	res, err := s.db.ExecContext(ctx, `DELETE FROM dispatches WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("history cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (s *SQLiteStore) Close() error {
	close(s.done)
	s.wg.Wait()
	return s.db.Close()
}

func (s *SQLiteStore) retentionLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			_, _ = s.Cleanup(context.Background())
		}
	}
}
