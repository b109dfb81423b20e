package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dograh/blogforge/internal/models"
)

// setupTestDB creates a migrated SQLite database in a per-test temp dir
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

// newTestSession builds a minimal active session for storage tests
func newTestSession(id, keyword string) *models.SessionState {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.SessionState{
		SessionID:      id,
		WorkflowKind:   models.WorkflowStandard,
		PrimaryKeyword: keyword,
		BlogType:       "how_to_guide",
		Status:         models.StatusActive,
		CurrentStep:    1,
		Steps: map[string]*models.StepInfo{
			"1": {StepNumber: 1, StepName: "Search Intent Analysis", Status: models.StepPending, Owner: models.OwnerAI},
		},
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
}
