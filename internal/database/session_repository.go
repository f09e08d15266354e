package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hirewire/jobcrawl/internal/domain"
)

// ErrSessionNotFound is returned when a session ID does not exist.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository handles database operations for crawl sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// sessionRow maps the crawl_sessions table. Nested documents live in JSONB
// columns and are marshaled on the way in and out.
type sessionRow struct {
	SessionID       string     `db:"session_id"`
	CrawlerInstance int        `db:"crawler_instance"`
	Status          string     `db:"status"`
	StartTime       time.Time  `db:"start_time"`
	EndTime         *time.Time `db:"end_time"`
	Configuration   []byte     `db:"configuration"`
	Progress        []byte     `db:"progress"`
	Statistics      []byte     `db:"statistics"`
	Results         []byte     `db:"results"`
	Errors          []byte     `db:"errors"`
	Notifications   []byte     `db:"notifications"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// Create inserts a new session record into the database.
func (r *SessionRepository) Create(ctx context.Context, session *domain.CrawlSession) error {
	row, err := toRow(session)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO crawl_sessions (
			session_id, crawler_instance, status,
			start_time, end_time,
			configuration, progress, statistics,
			results, errors, notifications,
			created_at, updated_at
		)
		VALUES (
			:session_id, :crawler_instance, :status,
			:start_time, :end_time,
			:configuration, :progress, :statistics,
			:results, :errors, :notifications,
			:created_at, :updated_at
		)
	`

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Save updates an existing session record.
func (r *SessionRepository) Save(ctx context.Context, session *domain.CrawlSession) error {
	row, err := toRow(session)
	if err != nil {
		return err
	}

	query := `
		UPDATE crawl_sessions
		SET crawler_instance = :crawler_instance,
		    status = :status,
		    end_time = :end_time,
		    configuration = :configuration,
		    progress = :progress,
		    statistics = :statistics,
		    results = :results,
		    errors = :errors,
		    notifications = :notifications,
		    updated_at = :updated_at
		WHERE session_id = :session_id
	`

	result, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, session.SessionID)
	}
	return nil
}

// GetBySessionID retrieves a session by its ID.
func (r *SessionRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.CrawlSession, error) {
	var row sessionRow
	query := `
		SELECT session_id, crawler_instance, status,
		       start_time, end_time,
		       configuration, progress, statistics,
		       results, errors, notifications,
		       created_at, updated_at
		FROM crawl_sessions
		WHERE session_id = $1
	`

	err := r.db.GetContext(ctx, &row, query, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return fromRow(&row)
}

// List retrieves sessions newest first, optionally filtered by status.
func (r *SessionRepository) List(
	ctx context.Context,
	status string,
	limit, offset int,
) ([]*domain.CrawlSession, error) {
	var rows []sessionRow

	query := `
		SELECT session_id, crawler_instance, status,
		       start_time, end_time,
		       configuration, progress, statistics,
		       results, errors, notifications,
		       created_at, updated_at
		FROM crawl_sessions
		WHERE ($1 = '' OR status = $1)
		ORDER BY start_time DESC
		LIMIT $2 OFFSET $3
	`

	if err := r.db.SelectContext(ctx, &rows, query, status, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := make([]*domain.CrawlSession, 0, len(rows))
	for i := range rows {
		session, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// Delete removes a session from the database.
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM crawl_sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return nil
}

// toRow marshals the session's nested documents into JSONB columns.
func toRow(session *domain.CrawlSession) (*sessionRow, error) {
	row := &sessionRow{
		SessionID:       session.SessionID,
		CrawlerInstance: session.CrawlerInstance,
		Status:          string(session.Status),
		StartTime:       session.StartTime,
		EndTime:         session.EndTime,
		CreatedAt:       session.CreatedAt,
		UpdatedAt:       session.UpdatedAt,
	}

	for _, field := range []struct {
		name string
		src  any
		dst  *[]byte
	}{
		{"configuration", session.Configuration, &row.Configuration},
		{"progress", session.Progress, &row.Progress},
		{"statistics", session.Statistics, &row.Statistics},
		{"results", emptySlice(session.Results), &row.Results},
		{"errors", emptySlice(session.Errors), &row.Errors},
		{"notifications", emptySlice(session.Notifications), &row.Notifications},
	} {
		data, err := json.Marshal(field.src)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal session %s: %w", field.name, err)
		}
		*field.dst = data
	}

	return row, nil
}

// fromRow unmarshals the JSONB columns back into the session.
func fromRow(row *sessionRow) (*domain.CrawlSession, error) {
	session := &domain.CrawlSession{
		SessionID:       row.SessionID,
		CrawlerInstance: row.CrawlerInstance,
		Status:          domain.SessionStatus(row.Status),
		StartTime:       row.StartTime,
		EndTime:         row.EndTime,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}

	for _, field := range []struct {
		name string
		src  []byte
		dst  any
	}{
		{"configuration", row.Configuration, &session.Configuration},
		{"progress", row.Progress, &session.Progress},
		{"statistics", row.Statistics, &session.Statistics},
		{"results", row.Results, &session.Results},
		{"errors", row.Errors, &session.Errors},
		{"notifications", row.Notifications, &session.Notifications},
	} {
		if len(field.src) == 0 {
			continue
		}
		if err := json.Unmarshal(field.src, field.dst); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session %s: %w", field.name, err)
		}
	}

	return session, nil
}

// emptySlice keeps JSONB arrays as [] instead of null.
func emptySlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
