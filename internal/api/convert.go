package api

import (
	"squeeze/internal/queue"
	"squeeze/internal/sequencer"
)

// FromJob converts a queue record to its API representation.
func FromJob(job *queue.Job) Job {
	if job == nil {
		return Job{}
	}

	dto := Job{
		ID:              job.ID,
		SourceName:      job.SourceName,
		DisplayTitle:    job.DisplayTitle,
		Status:          string(job.Status),
		SourceSizeBytes: job.SourceSizeBytes,
		SourceSizeLabel: job.SourceSizeLabel,
		ResultSizeBytes: job.ResultSizeBytes,
		ResultSizeLabel: job.ResultSizeLabel,
		SourceHandle:    job.SourceHandle,
		ResultHandle:    job.ResultHandle,
		Progress: JobProgress{
			Percent: job.ProgressPercent,
			Message: job.ProgressMessage,
		},
		ErrorMessage: job.ErrorMessage,
	}
	if !job.CreatedAt.IsZero() {
		dto.CreatedAt = job.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !job.UpdatedAt.IsZero() {
		dto.UpdatedAt = job.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromJobs converts a slice of queue records into API DTOs.
func FromJobs(jobs []*queue.Job) []Job {
	if len(jobs) == 0 {
		return nil
	}
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// FromStatusSummary converts a sequencer status summary to an API payload.
func FromStatusSummary(summary sequencer.StatusSummary, activeCount int) SequencerStatus {
	status := SequencerStatus{
		Running:     summary.Running,
		Ready:       summary.Ready,
		ActiveJobID: summary.ActiveJobID,
		ActiveCount: activeCount,
		QueueStats:  MergeQueueStats(summary.QueueStats),
	}
	if summary.LastError != "" {
		status.LastError = summary.LastError
	}
	return status
}

// MergeQueueStats produces a string-keyed representation of queue stats.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}
