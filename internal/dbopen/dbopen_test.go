package dbopen_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/maksud51/linkharvest/internal/dbopen"
)

func TestOpenAppliesPragmas(t *testing.T) {
	db := dbopen.OpenMemory(t)

	// journal_mode on :memory: reports "memory" even though the WAL pragma
	// executed.
	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if mode != "wal" && mode != "memory" {
		t.Errorf("journal_mode = %q", mode)
	}

	intPragmas := []struct {
		pragma string
		want   int
	}{
		{"foreign_keys", 1},
		{"busy_timeout", 10_000},
		{"synchronous", 1}, // NORMAL
	}
	for _, tt := range intPragmas {
		var got int
		if err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got); err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("%s = %d, want %d", tt.pragma, got, tt.want)
		}
	}
}

func TestWithBusyTimeout(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithBusyTimeout(5000))

	var got int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&got); err != nil {
		t.Fatal(err)
	}
	if got != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", got)
	}
}

func TestWithSchemaRunsDDL(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(`CREATE TABLE notes (id TEXT PRIMARY KEY, body TEXT)`))

	if _, err := db.Exec(`INSERT INTO notes (id, body) VALUES ('1', 'hello')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var body string
	if err := db.QueryRow(`SELECT body FROM notes WHERE id = '1'`).Scan(&body); err != nil {
		t.Fatal(err)
	}
	if body != "hello" {
		t.Errorf("body = %q", body)
	}
}

func TestWithMkdirAllCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dirs", "progress.db")

	db, err := dbopen.Open(path, dbopen.WithMkdirAll())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Errorf("parent directory missing: %v", err)
	}
}

func TestIsBusy(t *testing.T) {
	busy := []error{
		errors.New("SQLITE_BUSY"),
		errors.New("store: save: database is locked"),
		errors.New("database table is locked"),
	}
	for _, err := range busy {
		if !dbopen.IsBusy(err) {
			t.Errorf("IsBusy(%v) = false", err)
		}
	}
	notBusy := []error{nil, errors.New("no such table: notes")}
	for _, err := range notBusy {
		if dbopen.IsBusy(err) {
			t.Errorf("IsBusy(%v) = true", err)
		}
	}
}

func TestExecRetriesOnlyBusyErrors(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(`CREATE TABLE items (id TEXT PRIMARY KEY)`))
	ctx := context.Background()

	if _, err := dbopen.Exec(ctx, db, `INSERT INTO items (id) VALUES (?)`, "a"); err != nil {
		t.Fatalf("Exec: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	// A schema error is not retried, it surfaces as-is.
	if _, err := dbopen.Exec(ctx, db, `INSERT INTO missing (id) VALUES (?)`, "a"); err == nil {
		t.Error("expected error for missing table")
	}
}
