package database

import (
	"testing"

	"github.com/dograh/blogforge/internal/plagiarism"
)

func testInputs(sessionID, keyword string, createdAt string) plagiarism.SessionInputs {
	return plagiarism.SessionInputs{
		SessionID:      sessionID,
		WorkflowKind:   "standard",
		PrimaryKeyword: keyword,
		CreatedAt:      createdAt,
		Steps: map[string]plagiarism.StepInput{
			"5": {Keywords: []string{"ai calling", "voice agent"}},
		},
	}
}

func TestIndexAndGetCorpus(t *testing.T) {
	db := setupTestDB(t)

	if err := db.IndexSessionInputs(testInputs("sess-1", "ai calling", "2026-01-01T00:00:00Z")); err != nil {
		t.Fatalf("Failed to index inputs: %v", err)
	}
	if err := db.IndexSessionInputs(testInputs("sess-2", "voice bots", "2026-01-02T00:00:00Z")); err != nil {
		t.Fatalf("Failed to index inputs: %v", err)
	}

	corpus, err := db.GetCorpus("")
	if err != nil {
		t.Fatalf("Failed to get corpus: %v", err)
	}
	if len(corpus) != 2 {
		t.Fatalf("Expected 2 corpus entries, got %d", len(corpus))
	}
	if corpus[0].SessionID != "sess-1" {
		t.Errorf("Expected oldest entry first, got %s", corpus[0].SessionID)
	}
	if got := corpus[0].Steps["5"].Keywords; len(got) != 2 || got[0] != "ai calling" {
		t.Errorf("Step inputs did not round-trip: %v", got)
	}
}

func TestGetCorpusExcludesSession(t *testing.T) {
	db := setupTestDB(t)

	if err := db.IndexSessionInputs(testInputs("sess-1", "ai calling", "2026-01-01T00:00:00Z")); err != nil {
		t.Fatalf("Failed to index inputs: %v", err)
	}
	if err := db.IndexSessionInputs(testInputs("sess-2", "voice bots", "2026-01-02T00:00:00Z")); err != nil {
		t.Fatalf("Failed to index inputs: %v", err)
	}

	corpus, err := db.GetCorpus("sess-1")
	if err != nil {
		t.Fatalf("Failed to get corpus: %v", err)
	}
	if len(corpus) != 1 || corpus[0].SessionID != "sess-2" {
		t.Errorf("Expected only sess-2, got %v", corpus)
	}
}

func TestIndexSessionInputsReplaces(t *testing.T) {
	db := setupTestDB(t)

	if err := db.IndexSessionInputs(testInputs("sess-1", "ai calling", "2026-01-01T00:00:00Z")); err != nil {
		t.Fatalf("Failed to index inputs: %v", err)
	}

	updated := testInputs("sess-1", "ai calling revised", "2026-01-01T00:00:00Z")
	if err := db.IndexSessionInputs(updated); err != nil {
		t.Fatalf("Failed to re-index inputs: %v", err)
	}

	corpus, err := db.GetCorpus("")
	if err != nil {
		t.Fatalf("Failed to get corpus: %v", err)
	}
	if len(corpus) != 1 {
		t.Fatalf("Expected re-index to replace, got %d entries", len(corpus))
	}
	if corpus[0].PrimaryKeyword != "ai calling revised" {
		t.Errorf("Expected updated keyword, got %s", corpus[0].PrimaryKeyword)
	}
}

func TestCountIndexedSessions(t *testing.T) {
	db := setupTestDB(t)

	count, err := db.CountIndexedSessions()
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected empty corpus, got %d", count)
	}

	if err := db.IndexSessionInputs(testInputs("sess-1", "ai calling", "2026-01-01T00:00:00Z")); err != nil {
		t.Fatalf("Failed to index inputs: %v", err)
	}

	count, err = db.CountIndexedSessions()
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 indexed session, got %d", count)
	}
}
