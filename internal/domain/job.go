package domain

import "time"

// JobStatus represents the status of a processing job.
// Transitions are one-directional: processing moves to completed or failed
// and terminal states never change again.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ProcessingJob tracks one upload batch through ingestion.
// The in-memory job tracker owns the live state; rows in this table are
// best-effort snapshots so status polling survives a restart as a stale read.
type ProcessingJob struct {
	ID          string     `gorm:"type:text;primaryKey" json:"id"`
	Status      JobStatus  `gorm:"type:text;default:processing" json:"status"`
	Progress    int        `gorm:"default:0" json:"progress"`
	Total       int        `gorm:"not null" json:"total"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TableName returns the database table name for ProcessingJob.
func (ProcessingJob) TableName() string {
	return "processing_jobs"
}
