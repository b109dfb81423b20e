package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dograh/blogforge/internal/plagiarism"
)

// IndexSessionInputs stores or refreshes one session's extracted inputs in
// the corpus. Re-indexing after an edit replaces the previous record.
func (db *DB) IndexSessionInputs(inputs plagiarism.SessionInputs) error {
	inputsJSON, err := json.Marshal(inputs)
	if err != nil {
		return fmt.Errorf("failed to marshal session inputs: %w", err)
	}

	_, err = db.conn.Exec(`
		INSERT INTO user_inputs (session_id, workflow_kind, primary_keyword, inputs, created_at, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			workflow_kind = excluded.workflow_kind,
			primary_keyword = excluded.primary_keyword,
			inputs = excluded.inputs,
			indexed_at = excluded.indexed_at
	`, inputs.SessionID, inputs.WorkflowKind, inputs.PrimaryKeyword, inputsJSON,
		inputs.CreatedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to index session inputs: %w", err)
	}

	return nil
}

// GetCorpus retrieves every indexed session's inputs, oldest first, leaving
// out the named session so a session is never compared against itself.
func (db *DB) GetCorpus(excludeSessionID string) ([]plagiarism.SessionInputs, error) {
	rows, err := db.conn.Query(`
		SELECT inputs FROM user_inputs
		WHERE session_id != ?
		ORDER BY created_at ASC
	`, excludeSessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query corpus: %w", err)
	}
	defer rows.Close()

	var corpus []plagiarism.SessionInputs
	for rows.Next() {
		var inputsJSON string
		if err := rows.Scan(&inputsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		var inputs plagiarism.SessionInputs
		if err := json.Unmarshal([]byte(inputsJSON), &inputs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session inputs: %w", err)
		}
		corpus = append(corpus, inputs)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return corpus, nil
}

// CountIndexedSessions returns the number of sessions in the corpus
func (db *DB) CountIndexedSessions() (int, error) {
	var count int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM user_inputs").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count indexed sessions: %w", err)
	}
	return count, nil
}
