package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes a queue entry in a transport-friendly format.
type Job struct {
	ID              int64       `json:"id"`
	SourceName      string      `json:"sourceName"`
	DisplayTitle    string      `json:"displayTitle"`
	Status          string      `json:"status"`
	SourceSizeBytes int64       `json:"sourceSizeBytes"`
	SourceSizeLabel string      `json:"sourceSizeLabel"`
	ResultSizeBytes int64       `json:"resultSizeBytes,omitempty"`
	ResultSizeLabel string      `json:"resultSizeLabel,omitempty"`
	SourceHandle    string      `json:"sourceHandle,omitempty"`
	ResultHandle    string      `json:"resultHandle,omitempty"`
	Progress        JobProgress `json:"progress"`
	ErrorMessage    string      `json:"errorMessage,omitempty"`
	CreatedAt       string      `json:"createdAt,omitempty"`
	UpdatedAt       string      `json:"updatedAt,omitempty"`
}

// JobProgress captures progress information for a queue entry.
type JobProgress struct {
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// SequencerStatus summarizes sequencer execution state.
type SequencerStatus struct {
	Running     bool           `json:"running"`
	Ready       bool           `json:"ready"`
	ActiveJobID int64          `json:"activeJobId,omitempty"`
	ActiveCount int            `json:"activeCount"`
	QueueStats  map[string]int `json:"queueStats"`
	LastError   string         `json:"lastError,omitempty"`
}
