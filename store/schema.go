package store

// Schema contains the complete DDL for the progress database.
const Schema = `
-- Per-URL scrape progress. data holds the full profile record as JSON once
-- the URL is completed.
CREATE TABLE IF NOT EXISTS profiles (
    url             TEXT PRIMARY KEY,
    status          TEXT NOT NULL DEFAULT 'pending',
    data            TEXT NOT NULL DEFAULT '',
    error           TEXT NOT NULL DEFAULT '',
    retry_count     INTEGER NOT NULL DEFAULT 0,
    completeness    REAL NOT NULL DEFAULT 0.0,
    created_at      INTEGER NOT NULL,
    updated_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_profiles_status ON profiles(status);
CREATE INDEX IF NOT EXISTS idx_profiles_updated ON profiles(updated_at);
`
