package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func writeStubBinary(t *testing.T, path string) {
	t.Helper()
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(path, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

func TestCheck(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	writeStubBinary(t, present)
	tools := []Tool{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := Check(tools)
	if len(results) != len(tools) {
		t.Fatalf("expected %d results, got %d", len(tools), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first tool to be available, got %#v", results[0])
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}

	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available tool: %s", results[0].Detail)
	}
}

func TestCheckUnconfiguredTool(t *testing.T) {
	results := Check([]Tool{{Name: "Blank"}})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Available {
		t.Fatalf("expected unconfigured tool to be unavailable")
	}
	if results[0].Detail != "command not configured" {
		t.Fatalf("unexpected detail: %s", results[0].Detail)
	}
}

func TestCheckFFmpegExplicitPath(t *testing.T) {
	tmp := t.TempDir()
	ffmpegPath := filepath.Join(tmp, "ffmpeg")
	writeStubBinary(t, ffmpegPath)

	result := CheckFFmpeg(ffmpegPath)
	if !result.Available {
		t.Fatalf("expected explicit path to be available, got %#v", result)
	}
	if result.Command != ffmpegPath {
		t.Fatalf("unexpected command: %s", result.Command)
	}
}

func TestCheckFFmpegMissingExplicitPath(t *testing.T) {
	result := CheckFFmpeg(filepath.Join(t.TempDir(), "ffmpeg"))
	if result.Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if result.Detail == "" {
		t.Fatalf("expected detail for missing binary")
	}
}
