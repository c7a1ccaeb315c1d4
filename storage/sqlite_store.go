package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"worksync/worklog"
)

// Session states persisted in the ledger.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

var ErrSessionNotFound = errors.New("session not found")

// SQLiteStore is the run ledger: one row per sync session and one per
// processed worklog outcome. Odoo stays the source of truth for duplicates;
// the ledger only feeds history, export and the weekly report.
type SQLiteStore struct {
	db *sql.DB
}

type SessionRow struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Stats      worklog.Stats
	Error      string
}

type OutcomeRow struct {
	ID          int64
	SessionID   string
	WorklogID   string
	IssueKey    string
	Author      string
	WorkDate    string
	Seconds     int
	Hours       float64
	Kind        worklog.OutcomeKind
	TargetModel string
	TargetID    int64
	LineID      int64
	Error       string
	RecordedAt  time.Time
}

// OutcomeFilter narrows ListOutcomes. Zero values match everything; From and
// To compare against the work date, inclusive.
type OutcomeFilter struct {
	From      time.Time
	To        time.Time
	SessionID string
	Kinds     []worklog.OutcomeKind
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ensureSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	created INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	errors INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS outcomes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	worklog_id TEXT NOT NULL,
	issue_key TEXT NOT NULL,
	author TEXT NOT NULL,
	work_date TEXT NOT NULL,
	seconds INTEGER NOT NULL CHECK(seconds >= 0),
	hours REAL NOT NULL,
	kind TEXT NOT NULL,
	target_model TEXT NOT NULL DEFAULT '',
	target_id INTEGER NOT NULL DEFAULT 0,
	line_id INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outcomes_work_date ON outcomes(work_date);
CREATE INDEX IF NOT EXISTS idx_outcomes_session ON outcomes(session_id);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// BeginSession inserts a running session row.
func (s *SQLiteStore) BeginSession(id string, startedAt time.Time) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("session id is required")
	}
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, started_at, status) VALUES (?, ?, ?);`,
		id,
		startedAt.UTC().Format(time.RFC3339),
		StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", id, err)
	}
	return nil
}

// FinishSession stores the final stats and status of a session.
func (s *SQLiteStore) FinishSession(id string, finishedAt time.Time, stats worklog.Stats, status, errMessage string) error {
	const updateStmt = `
UPDATE sessions
SET finished_at = ?,
	status = ?,
	created = ?,
	skipped = ?,
	errors = ?,
	duration_ms = ?,
	error = ?
WHERE id = ?;`

	res, err := s.db.Exec(
		updateStmt,
		finishedAt.UTC().Format(time.RFC3339),
		status,
		stats.Created,
		stats.Skipped,
		stats.Errors,
		stats.Duration.Milliseconds(),
		errMessage,
		id,
	)
	if err != nil {
		return fmt.Errorf("update session %s: %w", id, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read updated row count: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// RecordOutcome appends one processed worklog to the session's outcomes.
func (s *SQLiteStore) RecordOutcome(sessionID string, outcome worklog.Outcome, recordedAt time.Time) (int64, error) {
	const insertStmt = `
INSERT INTO outcomes (
	session_id,
	worklog_id,
	issue_key,
	author,
	work_date,
	seconds,
	hours,
	kind,
	target_model,
	target_id,
	line_id,
	error,
	recorded_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`

	errMessage := ""
	if outcome.Err != nil {
		errMessage = outcome.Err.Error()
	}
	seconds := outcome.Record.TimeSpentSeconds
	if seconds < 0 {
		seconds = 0
	}

	res, err := s.db.Exec(
		insertStmt,
		sessionID,
		outcome.Record.IdempotencyKey(),
		outcome.Record.IssueKey,
		authorLabel(outcome.Record),
		outcome.Record.WorkDate(recordedAt),
		seconds,
		outcome.Hours,
		string(outcome.Kind),
		string(outcome.Target.Model),
		outcome.Target.ID,
		outcome.LineID,
		errMessage,
		recordedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("insert outcome for worklog %s: %w", outcome.Record.ID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read inserted row id: %w", err)
	}
	return id, nil
}

// ListSessions returns the most recent sessions first. limit <= 0 means all.
func (s *SQLiteStore) ListSessions(limit int) ([]SessionRow, error) {
	query := sessionSelect + ` ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.querySessions(query+";", args...)
}

// ListSessionsSince returns sessions started at or after from, oldest first.
func (s *SQLiteStore) ListSessionsSince(from time.Time) ([]SessionRow, error) {
	return s.querySessions(
		sessionSelect+` WHERE started_at >= ? ORDER BY started_at, rowid;`,
		from.UTC().Format(time.RFC3339),
	)
}

const sessionSelect = `
SELECT
	id,
	started_at,
	finished_at,
	status,
	created,
	skipped,
	errors,
	duration_ms,
	error
FROM sessions`

func (s *SQLiteStore) querySessions(query string, args ...any) ([]SessionRow, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]SessionRow, 0, 32)
	for rows.Next() {
		var (
			row         SessionRow
			startedRaw  string
			finishedRaw string
			durationMS  int64
		)
		if err := rows.Scan(
			&row.ID,
			&startedRaw,
			&finishedRaw,
			&row.Status,
			&row.Stats.Created,
			&row.Stats.Skipped,
			&row.Stats.Errors,
			&durationMS,
			&row.Error,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}

		row.StartedAt, err = time.Parse(time.RFC3339, startedRaw)
		if err != nil {
			return nil, fmt.Errorf("parse started_at %q: %w", startedRaw, err)
		}
		if finishedRaw != "" {
			row.FinishedAt, err = time.Parse(time.RFC3339, finishedRaw)
			if err != nil {
				return nil, fmt.Errorf("parse finished_at %q: %w", finishedRaw, err)
			}
		}
		row.Stats.Duration = time.Duration(durationMS) * time.Millisecond

		sessions = append(sessions, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// ListOutcomes returns outcomes ordered by work date and insertion.
func (s *SQLiteStore) ListOutcomes(filter OutcomeFilter) ([]OutcomeRow, error) {
	var (
		where []string
		args  []any
	)
	if !filter.From.IsZero() {
		where = append(where, "work_date >= ?")
		args = append(args, filter.From.Format("2006-01-02"))
	}
	if !filter.To.IsZero() {
		where = append(where, "work_date <= ?")
		args = append(args, filter.To.Format("2006-01-02"))
	}
	if strings.TrimSpace(filter.SessionID) != "" {
		where = append(where, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if len(filter.Kinds) > 0 {
		placeholders := make([]string, 0, len(filter.Kinds))
		for _, kind := range filter.Kinds {
			placeholders = append(placeholders, "?")
			args = append(args, string(kind))
		}
		where = append(where, "kind IN ("+strings.Join(placeholders, ", ")+")")
	}

	query := `
SELECT
	id,
	session_id,
	worklog_id,
	issue_key,
	author,
	work_date,
	seconds,
	hours,
	kind,
	target_model,
	target_id,
	line_id,
	error,
	recorded_at
FROM outcomes`
	if len(where) > 0 {
		query += "\nWHERE " + strings.Join(where, " AND ")
	}
	query += "\nORDER BY work_date, id;"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := make([]OutcomeRow, 0, 256)
	for rows.Next() {
		var (
			row         OutcomeRow
			kind        string
			recordedRaw string
		)
		if err := rows.Scan(
			&row.ID,
			&row.SessionID,
			&row.WorklogID,
			&row.IssueKey,
			&row.Author,
			&row.WorkDate,
			&row.Seconds,
			&row.Hours,
			&kind,
			&row.TargetModel,
			&row.TargetID,
			&row.LineID,
			&row.Error,
			&recordedRaw,
		); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		row.Kind = worklog.OutcomeKind(kind)
		row.RecordedAt, err = time.Parse(time.RFC3339, recordedRaw)
		if err != nil {
			return nil, fmt.Errorf("parse recorded_at %q: %w", recordedRaw, err)
		}
		outcomes = append(outcomes, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}

	return outcomes, nil
}

// PruneBefore deletes sessions started before cutoff together with their
// outcomes and returns the number of sessions removed.
func (s *SQLiteStore) PruneBefore(cutoff time.Time) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}

	bound := cutoff.UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		`DELETE FROM outcomes WHERE session_id IN (SELECT id FROM sessions WHERE started_at < ?);`,
		bound,
	); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("delete outcomes: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM sessions WHERE started_at < ?;`, bound)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("delete sessions: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune transaction: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read deleted row count: %w", err)
	}
	return removed, nil
}

func authorLabel(record worklog.Record) string {
	if name := strings.TrimSpace(record.AuthorName); name != "" {
		return name
	}
	return strings.TrimSpace(record.AuthorAccountID)
}
