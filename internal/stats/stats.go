package stats

import (
	"github.com/dograh/blogforge/internal/database"
	"github.com/dograh/blogforge/internal/models"
)

// Overview aggregates the dashboard numbers in one response
type Overview struct {
	TotalSessions     int            `json:"total_sessions"`
	SessionsByStatus  map[string]int `json:"sessions_by_status"`
	ActiveSessions    int            `json:"active_sessions"`
	CompletedSessions int            `json:"completed_sessions"`
	ExpiredSessions   int            `json:"expired_sessions"`
	CorpusSize        int            `json:"corpus_size"`
}

// Collector computes dashboard statistics from the database
type Collector struct {
	db *database.DB
}

// NewCollector creates a stats collector
func NewCollector(db *database.DB) *Collector {
	return &Collector{db: db}
}

// Overview returns the current aggregate numbers
func (c *Collector) Overview() (*Overview, error) {
	byStatus, err := c.db.CountSessionsByStatus()
	if err != nil {
		return nil, err
	}

	corpusSize, err := c.db.CountIndexedSessions()
	if err != nil {
		return nil, err
	}

	total := 0
	for _, count := range byStatus {
		total += count
	}

	return &Overview{
		TotalSessions:     total,
		SessionsByStatus:  byStatus,
		ActiveSessions:    byStatus[models.StatusActive],
		CompletedSessions: byStatus[models.StatusCompleted],
		ExpiredSessions:   byStatus[models.StatusExpired],
		CorpusSize:        corpusSize,
	}, nil
}
