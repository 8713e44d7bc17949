package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"adpilot/internal/domain"
)

// SQLiteSink is the durable audit store. The table is append-only: the sink
// exposes no update or single-row delete path, only the retention purge.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (or creates) the audit database at dbPath and runs the
// schema migration.
func NewSQLiteSink(dbPath string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_entries (
			id        TEXT PRIMARY KEY,
			timestamp TEXT NOT NULL,
			identity  TEXT NOT NULL,
			action    TEXT NOT NULL,
			result    TEXT NOT NULL,
			detail    TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_entries (timestamp);
		CREATE INDEX IF NOT EXISTS idx_audit_identity ON audit_entries (identity)
	`)
	return err
}

// Append inserts one audit entry.
func (s *SQLiteSink) Append(ctx context.Context, entry domain.AuditEntry) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO audit_entries (id, timestamp, identity, action, result, detail) VALUES (?, ?, ?, ?, ?, ?)",
		entry.ID,
		entry.Timestamp.UTC().Format(time.RFC3339Nano),
		string(entry.Identity),
		entry.Action,
		string(entry.Result),
		entry.Detail,
	)
	if err != nil {
		return domain.NewDomainError("SQLiteSink.Append", domain.ErrAuditWrite, err.Error())
	}
	return nil
}

// Recent returns up to limit entries, newest first. Intended for operator
// inspection, not the request path.
func (s *SQLiteSink) Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, timestamp, identity, action, result, detail FROM audit_entries ORDER BY timestamp DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var ts, identity, result string
		if err := rows.Scan(&e.ID, &ts, &identity, &e.Action, &result, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		e.Identity = domain.Identity(identity)
		e.Result = domain.AuditResult(result)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PurgeOlderThan deletes entries older than cutoff and returns how many were
// removed. Called by the retention job, never by request handling.
func (s *SQLiteSink) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM audit_entries WHERE timestamp < ?",
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("purge audit entries: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the underlying database connection.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
