package main

import (
	"testing"

	"squeeze/internal/ipc"
)

func TestBuildQueueStatusRowsLifecycleOrder(t *testing.T) {
	stats := map[string]int{
		"completed": 3,
		"pending":   2,
		"failed":    1,
	}

	rows := buildQueueStatusRows(stats)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	wantOrder := []string{"pending", "completed", "failed"}
	for i, want := range wantOrder {
		if rows[i][0] != want {
			t.Fatalf("row %d: expected status %q, got %q", i, want, rows[i][0])
		}
	}
	if rows[0][1] != "2" {
		t.Fatalf("expected pending count 2, got %s", rows[0][1])
	}
}

func TestBuildQueueStatusRowsSkipsZeroCounts(t *testing.T) {
	rows := buildQueueStatusRows(map[string]int{"pending": 0, "active": 1})
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0][0] != "active" {
		t.Fatalf("unexpected status row: %#v", rows[0])
	}
}

func TestBuildQueueListRowsShowsFailureReason(t *testing.T) {
	jobs := []ipc.Job{
		{
			ID:              7,
			DisplayTitle:    "Clip",
			Status:          "failed",
			SourceSizeLabel: "1.00 MB",
			ErrorMessage:    "transcode run failed",
		},
		{
			ID:              8,
			DisplayTitle:    "Other",
			Status:          "active",
			SourceSizeLabel: "2.00 MB",
		},
	}
	jobs[1].Progress.Message = "Transcoding"

	rows := buildQueueListRows(jobs)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][5] != "transcode run failed" {
		t.Fatalf("expected failure reason in progress column, got %q", rows[0][5])
	}
	if rows[1][5] != "Transcoding" {
		t.Fatalf("expected progress message, got %q", rows[1][5])
	}
}
