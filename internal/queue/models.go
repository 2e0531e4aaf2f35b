package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// StopReason is the error message set when in-flight jobs are failed due to
// daemon shutdown.
const StopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusActive,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Job represents one submission persisted in SQLite.
type Job struct {
	ID              int64
	SourceName      string
	DisplayTitle    string
	SourcePath      string
	SourceSizeBytes int64
	ResultSizeBytes int64
	SourceSizeLabel string
	ResultSizeLabel string
	Status          Status
	ErrorMessage    string
	SourceHandle    string
	ResultHandle    string
	ProgressMessage string
	ProgressPercent float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status can no longer change.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// SetActive marks the job as occupying the backend.
func (j *Job) SetActive() {
	j.Status = StatusActive
	j.ErrorMessage = ""
	j.ProgressPercent = 0
	j.ProgressMessage = ""
}

// SetCompleted records a successful transcode, including the result size,
// label, and preview handle, in one transition.
func (j *Job) SetCompleted(resultSize int64, resultLabel, resultHandle string) {
	j.Status = StatusCompleted
	j.ResultSizeBytes = resultSize
	j.ResultSizeLabel = resultLabel
	j.ResultHandle = resultHandle
	j.ErrorMessage = ""
	j.ProgressPercent = 100
}

// SetFailed marks the job as failed with the given reason. Result fields are
// cleared so a failed job never carries a result handle.
func (j *Job) SetFailed(reason string) {
	j.Status = StatusFailed
	j.ErrorMessage = reason
	j.ResultSizeBytes = 0
	j.ResultSizeLabel = ""
	j.ResultHandle = ""
	j.ProgressPercent = 0
	j.ProgressMessage = reason
}

// SetProgress updates the progress fields together.
func (j *Job) SetProgress(message string, percent float64) {
	j.ProgressMessage = message
	j.ProgressPercent = percent
}
