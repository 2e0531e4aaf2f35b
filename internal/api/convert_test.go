package api_test

import (
	"testing"
	"time"

	"squeeze/internal/api"
	"squeeze/internal/queue"
	"squeeze/internal/sequencer"
)

func TestFromJobMapsFields(t *testing.T) {
	created := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	job := &queue.Job{
		ID:              7,
		SourceName:      "clip.mov",
		DisplayTitle:    "Clip",
		Status:          queue.StatusCompleted,
		SourceSizeBytes: 2048,
		SourceSizeLabel: "2.00 KB",
		ResultSizeBytes: 1024,
		ResultSizeLabel: "1.00 KB",
		ResultHandle:    "token-1",
		ProgressPercent: 100,
		CreatedAt:       created,
	}

	dto := api.FromJob(job)
	if dto.ID != 7 || dto.Status != "completed" {
		t.Fatalf("unexpected dto: %+v", dto)
	}
	if dto.ResultSizeLabel != "1.00 KB" || dto.ResultHandle != "token-1" {
		t.Fatalf("result fields not mapped: %+v", dto)
	}
	if dto.Progress.Percent != 100 {
		t.Fatalf("progress not mapped: %+v", dto.Progress)
	}
	if dto.CreatedAt != "2025-03-14T09:26:53.000Z" {
		t.Fatalf("unexpected createdAt %q", dto.CreatedAt)
	}
	if dto.UpdatedAt != "" {
		t.Fatalf("expected empty updatedAt for zero time, got %q", dto.UpdatedAt)
	}
}

func TestFromJobNil(t *testing.T) {
	dto := api.FromJob(nil)
	if dto.ID != 0 || dto.Status != "" {
		t.Fatalf("expected zero dto, got %+v", dto)
	}
}

func TestFromStatusSummary(t *testing.T) {
	summary := sequencer.StatusSummary{
		Running:     true,
		Ready:       true,
		ActiveJobID: 3,
		QueueStats: map[queue.Status]int{
			queue.StatusPending: 2,
			queue.StatusActive:  1,
		},
		LastError: "boom",
	}

	status := api.FromStatusSummary(summary, 1)
	if !status.Running || !status.Ready || status.ActiveJobID != 3 || status.ActiveCount != 1 {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.QueueStats["pending"] != 2 || status.QueueStats["active"] != 1 {
		t.Fatalf("unexpected queue stats: %+v", status.QueueStats)
	}
	if status.LastError != "boom" {
		t.Fatalf("unexpected last error %q", status.LastError)
	}
}
