package testsupport

import (
	"path/filepath"
	"testing"

	"squeeze/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.PreviewDir = filepath.Join(base, "previews")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.SocketPath = filepath.Join(base, "squeezed.sock")

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithAcceptedKinds overrides the intake accepted kinds on the test config.
func WithAcceptedKinds(kinds ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Intake.AcceptedKinds = kinds
	}
}

// WithMaxFileMiB overrides the per-file size ceiling on the test config.
func WithMaxFileMiB(mib int64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Intake.MaxFileMiB = mib
	}
}

// WithMaxBatch overrides the per-submission cardinality limit.
func WithMaxBatch(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Intake.MaxBatch = n
	}
}
