package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"

	"squeeze/internal/backend"
)

var commandContext = exec.CommandContext

// detailLines is how many trailing output lines are kept for failure detail.
const detailLines = 8

// Option configures the engine.
type Option func(*Engine)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(e *Engine) {
		if binary != "" {
			e.binary = binary
		}
	}
}

// Engine wraps the ffmpeg command-line tool behind the backend contract.
type Engine struct {
	binary  string
	workDir string
	ready   atomic.Bool
}

// New constructs an engine whose blob storage lives under workDir.
func New(workDir string, opts ...Option) *Engine {
	engine := &Engine{binary: "ffmpeg", workDir: workDir}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Initialize resolves the binary and probes it once. All other methods are
// gated on this completing without error.
func (e *Engine) Initialize(ctx context.Context) error {
	if e.ready.Load() {
		return nil
	}
	if strings.TrimSpace(e.workDir) == "" {
		return &backend.InitializationError{Err: errors.New("work directory required")}
	}
	if err := os.MkdirAll(e.workDir, 0o755); err != nil {
		return &backend.InitializationError{Err: fmt.Errorf("create work directory: %w", err)}
	}
	resolved, err := exec.LookPath(e.binary)
	if err != nil {
		return &backend.InitializationError{Err: fmt.Errorf("locate %s: %w", e.binary, err)}
	}

	cmd := commandContext(ctx, resolved, "-hide_banner", "-version")
	if output, err := cmd.CombinedOutput(); err != nil {
		return &backend.InitializationError{
			Err: fmt.Errorf("probe %s: %w: %s", e.binary, err, firstLine(output)),
		}
	}
	e.binary = resolved
	e.ready.Store(true)
	return nil
}

// Ready reports whether Initialize has completed.
func (e *Engine) Ready() bool {
	return e.ready.Load()
}

// WriteInput stores data as a blob under name in the work directory.
func (e *Engine) WriteInput(name string, data []byte) error {
	path, err := e.blobPath(name)
	if err != nil {
		return &backend.StorageError{Name: name, Op: "write", Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &backend.StorageError{Name: name, Op: "write", Err: err}
	}
	return nil
}

// Purge removes the blob stored under name. Absent names are a no-op.
func (e *Engine) Purge(name string) {
	path, err := e.blobPath(name)
	if err != nil {
		return
	}
	_ = os.Remove(path)
}

// ReadOutput retrieves the blob stored under name.
func (e *Engine) ReadOutput(name string) ([]byte, error) {
	path, err := e.blobPath(name)
	if err != nil {
		return nil, &backend.StorageError{Name: name, Op: "read", Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &backend.StorageError{Name: name, Op: "read", Err: err}
	}
	return data, nil
}

// Run executes one ffmpeg invocation inside the work directory, forwarding
// merged output lines to onProgress as they arrive.
func (e *Engine) Run(ctx context.Context, argv []string, onProgress func(message string)) error {
	if !e.ready.Load() {
		return &backend.TranscodeError{Detail: "engine not initialized"}
	}
	if len(argv) == 0 {
		return &backend.TranscodeError{Detail: "empty argument vector"}
	}

	cmd := commandContext(ctx, e.binary, argv...) //nolint:gosec
	cmd.Dir = e.workDir
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &backend.TranscodeError{Detail: "stdout pipe", Err: err}
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return &backend.TranscodeError{Detail: fmt.Sprintf("start %s", e.binary), Err: err}
	}

	var tail []string
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tail = append(tail, line)
		if len(tail) > detailLines {
			tail = tail[1:]
		}
		if onProgress != nil {
			onProgress(line)
		}
	}
	scanErr := scanner.Err()

	if err := cmd.Wait(); err != nil {
		detail := strings.Join(tail, "; ")
		if detail == "" {
			detail = err.Error()
		}
		return &backend.TranscodeError{Detail: detail, Err: err}
	}
	if scanErr != nil {
		return &backend.TranscodeError{Detail: "read output stream", Err: scanErr}
	}
	return nil
}

// blobPath maps a blob name to its file, rejecting names that would escape
// the work directory. Storage under a name is private to the job using it.
func (e *Engine) blobPath(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", errors.New("blob name required")
	}
	if trimmed != filepath.Base(trimmed) || trimmed == "." || trimmed == ".." {
		return "", fmt.Errorf("invalid blob name %q", name)
	}
	return filepath.Join(e.workDir, trimmed), nil
}

func firstLine(output []byte) string {
	text := strings.TrimSpace(string(output))
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	return text
}

var _ backend.Engine = (*Engine)(nil)
