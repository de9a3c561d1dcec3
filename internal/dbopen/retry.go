package dbopen

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

var busyMarkers = []string{
	"SQLITE_BUSY",
	"database is locked",
	"database table is locked",
}

// IsBusy reports whether err is an SQLite busy or locked condition.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, m := range busyMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// Exec runs a statement with a short linear backoff when the database is
// busy. WAL keeps writers rare here, so three attempts cover contention
// between the scrape loop and a concurrent export.
func Exec(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error) {
	const attempts = 3
	var lastErr error
	for i := 1; i <= attempts; i++ {
		res, err := db.ExecContext(ctx, query, args...)
		if err == nil {
			return res, nil
		}
		if !IsBusy(err) {
			return nil, err
		}
		lastErr = err
		if i == attempts {
			break
		}
		wait := time.Duration(i) * 100 * time.Millisecond
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("dbopen: retry interrupted: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("dbopen: still busy after %d attempts: %w", attempts, lastErr)
}
