package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dograh/blogforge/internal/models"
)

// ErrNotFound is returned when a queried row does not exist.
var ErrNotFound = errors.New("not found")

// SaveSession inserts or replaces a session's full state. The session row
// mirrors the state blob's listing fields so the list query never has to
// unmarshal every session.
func (db *DB) SaveSession(state *models.SessionState) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}

	_, err = db.conn.Exec(`
		INSERT INTO sessions (session_id, workflow_kind, primary_keyword, blog_type, status, current_step, state, created_at, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			status = excluded.status,
			current_step = excluded.current_step,
			state = excluded.state,
			updated_at = excluded.updated_at,
			expires_at = excluded.expires_at
	`, state.SessionID, state.WorkflowKind, state.PrimaryKeyword, state.BlogType,
		state.Status, state.CurrentStep, stateJSON,
		state.CreatedAt, state.UpdatedAt, state.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// GetSession retrieves a session's full state by ID
func (db *DB) GetSession(id string) (*models.SessionState, error) {
	var stateJSON string
	err := db.conn.QueryRow(`
		SELECT state FROM sessions WHERE session_id = ?
	`, id).Scan(&stateJSON)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var state models.SessionState
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session state: %w", err)
	}

	return &state, nil
}

// ListSessions retrieves session summaries, newest first, with pagination.
// An empty status matches all sessions.
func (db *DB) ListSessions(status string, limit, offset int) ([]*models.SessionSummary, error) {
	query := `
		SELECT session_id, workflow_kind, primary_keyword, blog_type, status, current_step, created_at, updated_at
		FROM sessions
	`
	args := []interface{}{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.SessionSummary
	for rows.Next() {
		s := &models.SessionSummary{}
		if err := rows.Scan(&s.SessionID, &s.WorkflowKind, &s.PrimaryKeyword, &s.BlogType,
			&s.Status, &s.CurrentStep, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sessions, nil
}

// DeleteSession deletes a session and its audit entries
func (db *DB) DeleteSession(id string) error {
	result, err := db.conn.Exec("DELETE FROM sessions WHERE session_id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}

	return nil
}

// ExpireSessions marks every active session past its expiry as expired and
// returns how many were affected.
func (db *DB) ExpireSessions(now time.Time) (int64, error) {
	result, err := db.conn.Exec(`
		UPDATE sessions SET status = ?, updated_at = ?
		WHERE status = ? AND expires_at < ?
	`, models.StatusExpired, now, models.StatusActive, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire sessions: %w", err)
	}
	return result.RowsAffected()
}

// AppendAudit records one audit entry for a session
func (db *DB) AppendAudit(entry *models.AuditEntry) error {
	_, err := db.conn.Exec(`
		INSERT INTO audit_entries (session_id, step_number, step_name, owner, timestamp, duration_seconds, summary, human_action, skipped, skip_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.SessionID, entry.StepNumber, entry.StepName, entry.Owner, entry.Timestamp,
		entry.DurationSeconds, entry.Summary, entry.HumanAction, entry.Skipped, entry.SkipReason)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// GetAudit retrieves a session's audit trail in chronological order
func (db *DB) GetAudit(sessionID string) ([]*models.AuditEntry, error) {
	rows, err := db.conn.Query(`
		SELECT session_id, step_number, step_name, owner, timestamp, duration_seconds, summary, human_action, skipped, skip_reason
		FROM audit_entries
		WHERE session_id = ?
		ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		e := &models.AuditEntry{}
		if err := rows.Scan(&e.SessionID, &e.StepNumber, &e.StepName, &e.Owner, &e.Timestamp,
			&e.DurationSeconds, &e.Summary, &e.HumanAction, &e.Skipped, &e.SkipReason); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// CountSessionsByStatus returns session counts grouped by status
func (db *DB) CountSessionsByStatus() (map[string]int, error) {
	rows, err := db.conn.Query("SELECT status, COUNT(*) FROM sessions GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return counts, nil
}
