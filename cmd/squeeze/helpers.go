package main

import (
	"path/filepath"

	"squeeze/internal/config"
)

func blobDir(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.StagingDir, "blobs")
}
