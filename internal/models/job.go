package models

import "time"

// Job statuses as stored in bridge_jobs.
const (
	JobRunning   = "RUNNING"
	JobSubmitted = "SUBMITTED"
	JobCompleted = "COMPLETED"
	JobFailed    = "FAILED"
)

// Job is one row of bridge_jobs.
type Job struct {
	ID            string     `json:"id"`
	Status        string     `json:"status"`
	SourceURL     string     `json:"source_url"`
	PromptID      string     `json:"prompt_id,omitempty"`
	Message       string     `json:"message,omitempty"`
	RefreshWorker bool       `json:"refresh_worker"`
	CreatedAt     time.Time  `json:"created_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}
