package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store manages render history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database and applies migrations.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("ledger path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// StartSession inserts a running session row and returns it. The session id
// is a fresh UUID so ledgers from different machines can be merged.
func (s *Store) StartSession(ctx context.Context, project, scriptDigest, mode string, scenesTotal int) (*Session, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO render_sessions (
            id, project, script_digest, mode, status, scenes_total, started_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id,
		project,
		scriptDigest,
		mode,
		string(SessionRunning),
		scenesTotal,
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	return s.Session(ctx, id)
}

// FinishSession stamps the session's final status, counters, and finish time.
func (s *Store) FinishSession(ctx context.Context, id string, status SessionStatus, totals SessionTotals, errorMessage string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE render_sessions
         SET status = ?, scenes_rendered = ?, scenes_cached = ?, scenes_failed = ?,
             paragraphs_dropped = ?, error_message = ?, finished_at = ?
         WHERE id = ?`,
		string(status),
		totals.ScenesRendered,
		totals.ScenesCached,
		totals.ScenesFailed,
		totals.ParagraphsDropped,
		nullableString(errorMessage),
		now.Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish session rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("finish session: unknown session %s", id)
	}
	return nil
}

// Session fetches a session by id, or nil when absent.
func (s *Store) Session(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM render_sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// RecentSessions returns up to limit sessions, newest first.
func (s *Store) RecentSessions(ctx context.Context, limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+sessionColumns+` FROM render_sessions ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// RecordJob appends one provider interaction to the session's history.
func (s *Store) RecordJob(ctx context.Context, job Job) error {
	if strings.TrimSpace(job.SessionID) == "" {
		return errors.New("job session id is required")
	}
	createdAt := job.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO provider_jobs (
            session_id, provider, kind, scene_digest, paragraph_digest, actor,
            reference, status, attempts, duration_ms, error_message, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.SessionID,
		job.Provider,
		job.Kind,
		job.SceneDigest,
		job.ParagraphDigest,
		job.Actor,
		nullableString(job.Reference),
		job.Status,
		job.Attempts,
		job.Duration.Milliseconds(),
		nullableString(job.ErrorMessage),
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// SessionJobs returns the provider jobs recorded for one session, oldest first.
func (s *Store) SessionJobs(ctx context.Context, sessionID string) ([]*Job, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM provider_jobs WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list session jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// RecentJobs returns up to limit provider jobs across sessions, newest first.
func (s *Store) RecentJobs(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM provider_jobs ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

const sessionColumns = "id, project, script_digest, mode, status, scenes_total, scenes_rendered, scenes_cached, scenes_failed, paragraphs_dropped, error_message, started_at, finished_at"

const jobColumns = "id, session_id, provider, kind, scene_digest, paragraph_digest, actor, reference, status, attempts, duration_ms, error_message, created_at"

func scanSession(scanner interface{ Scan(dest ...any) error }) (*Session, error) {
	var (
		session     Session
		statusStr   string
		errMessage  sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&session.ID,
		&session.Project,
		&session.ScriptDigest,
		&session.Mode,
		&statusStr,
		&session.ScenesTotal,
		&session.ScenesRendered,
		&session.ScenesCached,
		&session.ScenesFailed,
		&session.ParagraphsDropped,
		&errMessage,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	session.Status = SessionStatus(statusStr)
	session.ErrorMessage = errMessage.String
	started, err := parseTimeString(startedRaw)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	session.StartedAt = started
	if finishedRaw.Valid && finishedRaw.String != "" {
		finished, err := parseTimeString(finishedRaw.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		session.FinishedAt = &finished
	}
	return &session, nil
}

func collectJobs(rows *sql.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		var (
			job        Job
			reference  sql.NullString
			durationMS int64
			errMessage sql.NullString
			createdRaw string
		)
		if err := rows.Scan(
			&job.ID,
			&job.SessionID,
			&job.Provider,
			&job.Kind,
			&job.SceneDigest,
			&job.ParagraphDigest,
			&job.Actor,
			&reference,
			&job.Status,
			&job.Attempts,
			&durationMS,
			&errMessage,
			&createdRaw,
		); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		job.Reference = reference.String
		job.Duration = time.Duration(durationMS) * time.Millisecond
		job.ErrorMessage = errMessage.String
		created, err := parseTimeString(createdRaw)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		job.CreatedAt = created
		jobs = append(jobs, &job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
