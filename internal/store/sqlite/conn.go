package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Open opens (or creates) a SQLite database at the given path and enables
// WAL journal mode. The URI parameters give better concurrency for
// read-heavy workloads.
func Open(path string) (*sql.DB, error) {
	// ensure parent directory exists to avoid SQLITE_CANTOPEN errors
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	// busy_timeout keeps best-effort writes from a second connection
	// (strategy retrieval counters) from failing immediately while a turn
	// transaction holds the write lock
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// OpenMemory opens a private in-memory database, used by tests and
// throwaway environments.
func OpenMemory() (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, err
	}
	// A single connection keeps the in-memory database alive and visible
	// across the pool.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS conversations (
    conversation_id INTEGER PRIMARY KEY AUTOINCREMENT,
    report_id       INTEGER,
    creation_time   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
    message_id      INTEGER PRIMARY KEY AUTOINCREMENT,
    conversation_id INTEGER NOT NULL REFERENCES conversations(conversation_id) ON DELETE CASCADE,
    sender_role     TEXT NOT NULL CHECK (sender_role IN ('HUMAN','AI')),
    content         TEXT NOT NULL,
    sent_time       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, sent_time);

CREATE TABLE IF NOT EXISTS scam_reports (
    report_id              INTEGER PRIMARY KEY AUTOINCREMENT,
    incident_date          TEXT NOT NULL,
    report_date            TEXT NOT NULL,
    scam_type              TEXT NOT NULL DEFAULT '',
    approach_platform      TEXT NOT NULL DEFAULT '',
    communication_platform TEXT NOT NULL DEFAULT '',
    transaction_type       TEXT NOT NULL DEFAULT '',
    beneficiary_platform   TEXT NOT NULL DEFAULT '',
    beneficiary_identifier TEXT NOT NULL DEFAULT '',
    contact_no             TEXT NOT NULL DEFAULT '',
    email                  TEXT NOT NULL DEFAULT '',
    moniker                TEXT NOT NULL DEFAULT '',
    url_link               TEXT NOT NULL DEFAULT '',
    amount_lost            REAL NOT NULL DEFAULT 0,
    description            TEXT NOT NULL,
    creation_time          TEXT NOT NULL,
    update_time            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS strategies (
    strategy_id     INTEGER PRIMARY KEY AUTOINCREMENT,
    strategy_type   TEXT NOT NULL,
    response        TEXT NOT NULL,
    success_score   REAL NOT NULL,
    user_profile    TEXT NOT NULL DEFAULT '{}',
    retrieval_count INTEGER NOT NULL DEFAULT 0,
    creation_time   TEXT NOT NULL
);
`

// EnsureSchema creates the tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schemaDDL)
	return err
}
