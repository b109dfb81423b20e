package models

import "time"

// Session status values
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusExpired   = "expired"
)

// Step status values
const (
	StepPending    = "pending"
	StepInProgress = "in_progress"
	StepCompleted  = "completed"
	StepSkipped    = "skipped"
	StepError      = "error"
)

// Step owner values
const (
	OwnerAI    = "AI"
	OwnerHuman = "Human"
	OwnerMixed = "AI+Human"
)

// Workflow kinds
const (
	WorkflowStandard = "standard"
	WorkflowWebinar  = "webinar"
)

// StepInfo holds the state of a single workflow step
type StepInfo struct {
	StepNumber  int                    `json:"step_number"`
	StepName    string                 `json:"step_name"`
	Status      string                 `json:"status"`
	Owner       string                 `json:"owner"`
	Data        map[string]interface{} `json:"data"`
	HumanAction string                 `json:"human_action,omitempty"`
	SkipReason  string                 `json:"skip_reason,omitempty"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	UpdatedAt   *time.Time             `json:"updated_at,omitempty"`
}

// SessionState is the complete state of one blog-creation session.
// Steps is keyed by step number as a string, matching the stored JSON shape.
type SessionState struct {
	SessionID      string               `json:"session_id"`
	WorkflowKind   string               `json:"workflow_kind"`
	PrimaryKeyword string               `json:"primary_keyword"`
	BlogType       string               `json:"blog_type"`
	Status         string               `json:"status"`
	CurrentStep    int                  `json:"current_step"`
	Steps          map[string]*StepInfo `json:"steps"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
	ExpiresAt      time.Time            `json:"expires_at"`
}

// AuditEntry is one row in a session's audit log
type AuditEntry struct {
	SessionID       string    `json:"session_id"`
	StepNumber      int       `json:"step_number"`
	StepName        string    `json:"step_name"`
	Owner           string    `json:"owner"`
	Timestamp       time.Time `json:"timestamp"`
	DurationSeconds float64   `json:"duration_seconds"`
	Summary         string    `json:"summary"`
	HumanAction     string    `json:"human_action,omitempty"`
	Skipped         bool      `json:"skipped"`
	SkipReason      string    `json:"skip_reason,omitempty"`
}

// SessionSummary is the listing view of a session
type SessionSummary struct {
	SessionID      string    `json:"session_id"`
	WorkflowKind   string    `json:"workflow_kind"`
	PrimaryKeyword string    `json:"primary_keyword"`
	BlogType       string    `json:"blog_type"`
	Status         string    `json:"status"`
	CurrentStep    int       `json:"current_step"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
