package audit

import (
	"context"
	"database/sql"
	"errors"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists audit events in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and returns a store
// that owns it.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store, err := NewSQLiteStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore creates a SQLite-backed audit store and ensures schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Record stores a single audit event.
func (s *SQLiteStore) Record(ctx context.Context, event Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO question_events (
			event_id, run_id, role, question, row_count, status, answer, error_text, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.ID,
		event.RunID,
		event.Role,
		event.Question,
		event.Rows,
		string(event.Status),
		event.Answer,
		event.Error,
		normalizeTime(event.StartedAt),
		normalizeTime(event.FinishedAt),
	)
	return err
}

// List returns audit events matching the filter, newest first.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]Event, error) {
	query := `
		SELECT event_id, run_id, role, question, row_count, status, answer, error_text, started_at, finished_at
		FROM question_events
	`
	var args []any
	where := ""
	addFilter := func(clause string, value any) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, value)
	}
	if filter.Role != "" {
		addFilter("role = ?", filter.Role)
	}
	if filter.Status != "" {
		addFilter("status = ?", string(filter.Status))
	}
	query += where + " ORDER BY started_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event    Event
			status   string
			started  sql.NullTime
			finished sql.NullTime
		)
		if err := rows.Scan(
			&event.ID,
			&event.RunID,
			&event.Role,
			&event.Question,
			&event.Rows,
			&status,
			&event.Answer,
			&event.Error,
			&started,
			&finished,
		); err != nil {
			return nil, err
		}
		event.Status = Status(status)
		if started.Valid {
			event.StartedAt = started.Time
		}
		if finished.Valid {
			event.FinishedAt = finished.Time
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS question_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT NOT NULL UNIQUE,
			run_id TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL,
			question TEXT NOT NULL,
			row_count INTEGER NOT NULL,
			status TEXT NOT NULL,
			answer TEXT NOT NULL DEFAULT '',
			error_text TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMP,
			finished_at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_question_events_role ON question_events(role);
		CREATE INDEX IF NOT EXISTS idx_question_events_status ON question_events(status);
	`)
	return err
}
