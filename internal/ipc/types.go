package ipc

import (
	"squeeze/internal/api"
	"squeeze/internal/sequencer"
)

// Job mirrors the API queue DTO for IPC callers.
type Job = api.Job

// SubmitRequest enqueues a batch of source files.
type SubmitRequest struct {
	Paths []string `json:"paths"`
}

// SubmitResponse contains the jobs created for an accepted batch.
type SubmitResponse struct {
	Jobs []Job `json:"jobs"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon/sequencer status information.
type StatusResponse struct {
	Running            bool                `json:"running"`
	Sequencer          api.SequencerStatus `json:"sequencer"`
	OutstandingHandles int                 `json:"outstanding_handles"`
	QueueDBPath        string              `json:"queue_db_path"`
	LockPath           string              `json:"lock_path"`
	SocketPath         string              `json:"socket_path"`
	PID                int                 `json:"pid"`
}

// StopRequest stops daemon processing.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// QueueListRequest filters queue listing by status.
type QueueListRequest struct {
	Statuses []string `json:"statuses"`
}

// QueueListResponse contains queue entries.
type QueueListResponse struct {
	Jobs []Job `json:"jobs"`
}

// QueueDescribeRequest fetches a single queue job by id.
type QueueDescribeRequest struct {
	ID int64 `json:"id"`
}

// QueueDescribeResponse contains a single queue entry.
type QueueDescribeResponse struct {
	Job Job `json:"job"`
}

// QueueClearRequest removes all jobs.
type QueueClearRequest struct{}

// QueueClearResponse reports number of removed entries.
type QueueClearResponse struct {
	Removed int64 `json:"removed"`
}

// QueueRetryRequest retries failed jobs. Empty list means all failed jobs.
type QueueRetryRequest struct {
	IDs []int64 `json:"ids"`
}

// QueueRetryResponse reports number of retried jobs.
type QueueRetryResponse struct {
	Updated int64 `json:"updated"`
}

// EventsRequest fetches sequenced events after the given sequence number.
type EventsRequest struct {
	SinceSeq int64 `json:"since_seq"`
}

// EventsResponse returns sequenced progress events.
type EventsResponse struct {
	Events []sequencer.Event `json:"events"`
}

// PreviewResolveRequest resolves a preview handle token to its path.
type PreviewResolveRequest struct {
	Token string `json:"token"`
}

// PreviewResolveResponse reports the preview artifact path, if live.
type PreviewResolveResponse struct {
	Path  string `json:"path"`
	Found bool   `json:"found"`
}
