package main

import (
	"path/filepath"

	"squeeze/internal/config"
)

// blobDir is where the backend keeps its private named blobs.
func blobDir(cfg *config.Config) string {
	if cfg == nil {
		return "blobs"
	}
	return filepath.Join(cfg.Paths.StagingDir, "blobs")
}
