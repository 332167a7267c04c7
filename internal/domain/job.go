package domain

import (
	"time"
)

// Job status values over its lifecycle.
const (
	JobStatusPending    = "pending"
	JobStatusInProgress = "in_progress"
	JobStatusSucceeded  = "succeeded"
	JobStatusRetry      = "retry"
	JobStatusFailed     = "failed"
)

// DefaultMaxAttempts bounds how many times a job may be started.
const DefaultMaxAttempts = 3

// JobMetadata carries per-source settings resolved at planning time.
type JobMetadata struct {
	CSSRulesPath string  `json:"css_rules_path"`
	MaxQPS       float64 `json:"max_qps"`
	Concurrency  int     `json:"concurrency"`
}

// Job is one unit of planned fetch-and-extract work for a single start URL.
type Job struct {
	JobID       string      `json:"job_id"`
	SourceID    string      `json:"source_id"`
	EntityType  string      `json:"entity_type"`
	URL         string      `json:"url"`
	Attempts    int         `json:"attempts"`
	MaxAttempts int         `json:"max_attempts"`
	Status      string      `json:"status"`
	LastError   string      `json:"last_error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	Metadata    JobMetadata `json:"metadata"`
}

// NewJob creates a pending job with the default attempt budget.
func NewJob(jobID, sourceID, entityType, url string, metadata JobMetadata) *Job {
	return &Job{
		JobID:       jobID,
		SourceID:    sourceID,
		EntityType:  entityType,
		URL:         url,
		MaxAttempts: DefaultMaxAttempts,
		Status:      JobStatusPending,
		CreatedAt:   time.Now().UTC(),
		Metadata:    metadata,
	}
}

// MarkStarted transitions the job into the in-progress state and consumes
// one attempt.
func (j *Job) MarkStarted() {
	j.Status = JobStatusInProgress
	j.Attempts++
}

// MarkSucceeded marks the job as successfully completed.
func (j *Job) MarkSucceeded() {
	j.Status = JobStatusSucceeded
}

// MarkFailed records a failure. The job lands in retry while attempts
// remain, otherwise failed.
func (j *Job) MarkFailed(err error) {
	if j.Attempts >= j.MaxAttempts {
		j.Status = JobStatusFailed
	} else {
		j.Status = JobStatusRetry
	}
	if err != nil {
		j.LastError = err.Error()
	}
}

// ShouldRetry reports whether the job is eligible for another attempt.
func (j *Job) ShouldRetry() bool {
	return j.Status == JobStatusRetry && j.Attempts < j.MaxAttempts
}
