// Package journal provides SQLite bookkeeping for maildesk runs.
//
// The journal is not the source of truth for conversation state (that lives
// in the issue body); it records which mail UIDs were already mirrored, as a
// defense against servers that drop the \Seen flag, plus per-run outcome
// rows for `hd status`-style inspection.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/maildesk/maildesk/internal/types"
	_ "modernc.org/sqlite"
)

// Schema is the DDL for the journal database.
const Schema = `
CREATE TABLE IF NOT EXISTS processed (
    message_id   TEXT PRIMARY KEY,
    uid          INTEGER NOT NULL,
    issue        INTEGER NOT NULL,
    created      INTEGER NOT NULL DEFAULT 0,
    processed_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    direction   TEXT NOT NULL,
    processed   INTEGER NOT NULL,
    failed      INTEGER NOT NULL,
    skipped     INTEGER NOT NULL,
    finished_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_processed_issue ON processed(issue);
`

// DB wraps a SQLite connection for journal operations.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens (or creates) the journal at the given path.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}

	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if _, err := conn.Exec(Schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &DB{conn: conn, path: dbPath}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}

// Path returns the journal file path.
func (d *DB) Path() string { return d.path }

// now returns the current time as an ISO 8601 string.
func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// MarkProcessed records that a message was mirrored into an issue.
func (d *DB) MarkProcessed(messageID string, uid uint32, issue int, created bool) error {
	createdInt := 0
	if created {
		createdInt = 1
	}
	_, err := d.conn.Exec(`
		INSERT OR IGNORE INTO processed (message_id, uid, issue, created, processed_at)
		VALUES (?, ?, ?, ?, ?)`,
		messageID, uid, issue, createdInt, now(),
	)
	return err
}

// Processed reports whether a message id was already mirrored.
func (d *DB) Processed(messageID string) bool {
	var n int
	d.conn.QueryRow("SELECT 1 FROM processed WHERE message_id = ?", messageID).Scan(&n)
	return n == 1
}

// RecordRun appends one batch outcome row.
func (d *DB) RecordRun(s *types.RunSummary) error {
	_, err := d.conn.Exec(`
		INSERT INTO runs (direction, processed, failed, skipped, finished_at)
		VALUES (?, ?, ?, ?, ?)`,
		s.Direction, s.Processed, s.Failed, s.Skipped, now(),
	)
	return err
}

// ProcessedCount returns the number of mirrored messages on record.
func (d *DB) ProcessedCount() int {
	var n int
	d.conn.QueryRow("SELECT COUNT(*) FROM processed").Scan(&n)
	return n
}

// RunRow is one recorded batch outcome.
type RunRow struct {
	Direction  string `json:"direction"`
	Processed  int    `json:"processed"`
	Failed     int    `json:"failed"`
	Skipped    int    `json:"skipped"`
	FinishedAt string `json:"finished_at"`
}

// RecentRuns returns the latest n run rows, newest first.
func (d *DB) RecentRuns(n int) ([]RunRow, error) {
	rows, err := d.conn.Query(`
		SELECT direction, processed, failed, skipped, finished_at
		FROM runs ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.Direction, &r.Processed, &r.Failed, &r.Skipped, &r.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
