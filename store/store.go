// Package store persists scrape progress in SQLite so a batch can stop at
// any point and resume without revisiting completed URLs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/maksud51/linkharvest/internal/dbopen"
	"github.com/maksud51/linkharvest/profile"
)

// Row statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// DefaultMaxRetries caps how often a failed URL returns to the pending pool.
const DefaultMaxRetries = 3

const completedCacheSize = 4096

// Store is the progress database handle. Completed-URL lookups run per
// candidate URL on every batch, so they go through a small read cache.
type Store struct {
	DB         *sql.DB
	maxRetries int
	completed  *lru.Cache[string, struct{}]
}

// Option configures a Store.
type Option func(*Store)

// WithMaxRetries sets the failed-URL retry cap.
func WithMaxRetries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// Open opens (or creates) the progress database at path, applying pragmas
// and the schema.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, err
	}
	return NewWithDB(db, opts...), nil
}

// NewWithDB wraps an already-open database. Tests pass dbopen.OpenMemory(t).
func NewWithDB(db *sql.DB, opts ...Option) *Store {
	cache, _ := lru.New[string, struct{}](completedCacheSize)
	s := &Store{DB: db, maxRetries: DefaultMaxRetries, completed: cache}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// AddPending registers url for scraping. Already-known URLs keep their
// current status.
func (s *Store) AddPending(ctx context.Context, url string) error {
	now := time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO profiles (url, status, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(url) DO NOTHING`,
		url, StatusPending, now, now,
	)
	if err != nil {
		return fmt.Errorf("store: add pending: %w", err)
	}
	return nil
}

// IsCompleted reports whether url has already been scraped successfully.
func (s *Store) IsCompleted(ctx context.Context, url string) (bool, error) {
	if _, ok := s.completed.Get(url); ok {
		return true, nil
	}
	var status string
	err := s.DB.QueryRowContext(ctx,
		`SELECT status FROM profiles WHERE url = ?`, url).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: query status: %w", err)
	}
	if status == StatusCompleted {
		s.completed.Add(url, struct{}{})
		return true, nil
	}
	return false, nil
}

// Save marks url completed and stores the scraped record with its
// completeness score.
func (s *Store) Save(ctx context.Context, url string, rec *profile.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("store: marshal record: %w", err)
	}
	now := time.Now().UnixMilli()
	// Busy-retried: an export reading the WAL must not lose a scraped record.
	_, err = dbopen.Exec(ctx, s.DB, `
		INSERT INTO profiles (url, status, data, error, completeness, created_at, updated_at)
		VALUES (?, ?, ?, '', ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			status=excluded.status, data=excluded.data, error='',
			completeness=excluded.completeness, updated_at=excluded.updated_at`,
		url, StatusCompleted, string(data), rec.Completeness(), now, now,
	)
	if err != nil {
		return fmt.Errorf("store: save: %w", err)
	}
	s.completed.Add(url, struct{}{})
	return nil
}

// MarkFailed records a failure for url. The URL stays pending until it has
// failed maxRetries times, then turns failed.
func (s *Store) MarkFailed(ctx context.Context, url, errMsg string) error {
	now := time.Now().UnixMilli()
	_, err := dbopen.Exec(ctx, s.DB, `
		INSERT INTO profiles (url, status, error, retry_count, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			retry_count = retry_count + 1,
			status = CASE WHEN retry_count + 1 >= ? THEN ? ELSE ? END,
			error = excluded.error,
			updated_at = excluded.updated_at`,
		url, s.initialFailStatus(), errMsg, now, now,
		s.maxRetries, StatusFailed, StatusPending,
	)
	if err != nil {
		return fmt.Errorf("store: mark failed: %w", err)
	}
	return nil
}

func (s *Store) initialFailStatus() string {
	if s.maxRetries <= 1 {
		return StatusFailed
	}
	return StatusPending
}

// GetPending returns up to limit pending URLs in insertion order. limit <= 0
// means all.
func (s *Store) GetPending(ctx context.Context, limit int) ([]string, error) {
	return s.listByStatus(ctx, StatusPending, limit)
}

// GetFailed returns up to limit failed URLs.
func (s *Store) GetFailed(ctx context.Context, limit int) ([]string, error) {
	return s.listByStatus(ctx, StatusFailed, limit)
}

func (s *Store) listByStatus(ctx context.Context, status string, limit int) ([]string, error) {
	query := `SELECT url FROM profiles WHERE status = ? ORDER BY created_at, url`
	args := []any{status}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list %s: %w", status, err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("store: scan url: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// ResetFailedToPending returns every failed URL to the pending pool with a
// fresh retry budget. Reports how many rows moved.
func (s *Store) ResetFailedToPending(ctx context.Context) (int, error) {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE profiles SET status = ?, retry_count = 0, error = '', updated_at = ?
		WHERE status = ?`,
		StatusPending, time.Now().UnixMilli(), StatusFailed,
	)
	if err != nil {
		return 0, fmt.Errorf("store: reset failed: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Record returns the stored profile record for a completed url, or nil when
// the url is unknown or has no data.
func (s *Store) Record(ctx context.Context, url string) (*profile.Record, error) {
	var data string
	err := s.DB.QueryRowContext(ctx,
		`SELECT data FROM profiles WHERE url = ? AND status = ?`,
		url, StatusCompleted).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: query record: %w", err)
	}
	if data == "" {
		return nil, nil
	}
	rec := &profile.Record{}
	if err := json.Unmarshal([]byte(data), rec); err != nil {
		return nil, fmt.Errorf("store: unmarshal record: %w", err)
	}
	return rec, nil
}

// CompletedRecords streams every completed record with completeness at or
// above minCompleteness.
func (s *Store) CompletedRecords(ctx context.Context, minCompleteness float64) ([]*profile.Record, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT data FROM profiles
		WHERE status = ? AND data != '' AND completeness >= ?
		ORDER BY created_at, url`,
		StatusCompleted, minCompleteness,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list completed: %w", err)
	}
	defer rows.Close()

	var records []*profile.Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("store: scan record: %w", err)
		}
		rec := &profile.Record{}
		if err := json.Unmarshal([]byte(data), rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Stats summarizes the progress table.
type Stats struct {
	Pending   int     `json:"pending"`
	Completed int     `json:"completed"`
	Failed    int     `json:"failed"`
	Total     int     `json:"total"`
	AvgScore  float64 `json:"avg_completeness"`
}

// Stats counts rows per status and averages completeness over completed rows.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	rows, err := s.DB.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM profiles GROUP BY status`)
	if err != nil {
		return st, fmt.Errorf("store: stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return st, fmt.Errorf("store: scan stats: %w", err)
		}
		switch status {
		case StatusPending:
			st.Pending = n
		case StatusCompleted:
			st.Completed = n
		case StatusFailed:
			st.Failed = n
		}
		st.Total += n
	}
	if err := rows.Err(); err != nil {
		return st, err
	}

	err = s.DB.QueryRowContext(ctx,
		`SELECT COALESCE(AVG(completeness), 0) FROM profiles WHERE status = ?`,
		StatusCompleted).Scan(&st.AvgScore)
	if err != nil {
		return st, fmt.Errorf("store: avg completeness: %w", err)
	}
	return st, nil
}

// Cleanup deletes completed rows last touched before cutoff. Reports how
// many rows were removed.
func (s *Store) Cleanup(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.DB.ExecContext(ctx, `
		DELETE FROM profiles WHERE status = ? AND updated_at < ?`,
		StatusCompleted, cutoff.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("store: cleanup: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.completed.Purge()
	}
	return int(n), nil
}
