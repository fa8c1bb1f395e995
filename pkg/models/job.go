package models

import "time"

// Job asks a worker to analyze one subtitle file
type Job struct {
	ID               string     `json:"id"`
	Source           string     `json:"source"`
	ObjectKey        string     `json:"object_key,omitempty"`
	Path             string     `json:"path,omitempty"`
	IncludeStopwords bool       `json:"include_stopwords"`
	SaveJSON         bool       `json:"save_json"`
	Priority         int        `json:"priority"`
	RetryCount       int        `json:"retry_count"`
	Status           string     `json:"status"`
	ErrorMsg         string     `json:"error_msg,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// JobSource constants
const (
	JobSourceFile    = "file"
	JobSourceStorage = "storage"
)

// JobStatus constants
const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusSkipped    = "skipped"
	JobStatusFailed     = "failed"
)

// JobPriority constants
const (
	JobPriorityLow    = 0
	JobPriorityNormal = 5
	JobPriorityHigh   = 10
)

// MaxJobRetries bounds redelivery of a failing job
const MaxJobRetries = 3
