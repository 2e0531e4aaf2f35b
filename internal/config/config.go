package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and socket configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	PreviewDir string `toml:"preview_dir"`
	LogDir     string `toml:"log_dir"`
	SocketPath string `toml:"socket_path"`
}

// Intake contains submission acceptance constraints.
type Intake struct {
	// AcceptedKinds lists media-type patterns (e.g. "video/*") or file
	// extensions (e.g. ".mov") a submission must match.
	AcceptedKinds []string `toml:"accepted_kinds"`
	MaxFileMiB    int64    `toml:"max_file_mib"`
	// MaxBatch caps files per submission; 0 means unbounded.
	MaxBatch int `toml:"max_batch"`
	// MaxPending caps jobs waiting in the queue; 0 means unbounded.
	MaxPending int `toml:"max_pending"`
}

// FFmpeg contains transcoder invocation settings.
type FFmpeg struct {
	Binary       string `toml:"binary"`
	VideoCodec   string `toml:"video_codec"`
	Preset       string `toml:"preset"`
	CRF          int    `toml:"crf"`
	AudioCodec   string `toml:"audio_codec"`
	AudioBitrate string `toml:"audio_bitrate"`
}

// Workflow contains sequencer timing configuration.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for squeeze.
//
// Configuration sections by subsystem:
//   - Paths: directories and the daemon socket path
//   - Intake: accepted kinds, size and cardinality ceilings
//   - FFmpeg: backend binary and encode settings
//   - Workflow: sequencer polling intervals
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Intake   Intake   `toml:"intake"`
	FFmpeg   FFmpeg   `toml:"ffmpeg"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/squeeze/config.toml")
}

// SampleConfig returns the embedded sample configuration contents.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes the embedded sample configuration to path.
func CreateSample(path string) error {
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// ExpandPath resolves ~ prefixes and relative segments to an absolute path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("squeeze.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StagingDir, c.Paths.PreviewDir, c.Paths.LogDir}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	if socket := strings.TrimSpace(c.Paths.SocketPath); socket != "" {
		if err := os.MkdirAll(filepath.Dir(socket), 0o755); err != nil {
			return fmt.Errorf("create socket directory: %w", err)
		}
	}
	return nil
}

// MaxFileBytes returns the per-file size ceiling in bytes; 0 means unbounded.
func (c *Config) MaxFileBytes() int64 {
	if c.Intake.MaxFileMiB <= 0 {
		return 0
	}
	return c.Intake.MaxFileMiB * 1024 * 1024
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", path, err)
	}
	return abs, nil
}
