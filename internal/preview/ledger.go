// Package preview tracks previewable artifacts and guarantees each one is
// released exactly once.
//
// The Ledger wraps content as opaque handles backed by files in the preview
// directory. It knows nothing about transcoding outcomes; the sequencer and
// intake call it at every lifecycle boundary (job creation, completion,
// replacement, teardown). Releasing an unknown or already-released handle is
// a deliberate no-op.
package preview

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"squeeze/internal/fileutil"
	"squeeze/internal/logging"
)

// Handle is an opaque, releasable reference to a previewable artifact.
type Handle struct {
	Token string
	Path  string
}

// Ledger allocates and releases preview handles backed by files.
type Ledger struct {
	mu      sync.Mutex
	dir     string
	logger  *slog.Logger
	handles map[string]string
}

// NewLedger creates a ledger rooted at dir, creating it if needed.
func NewLedger(dir string, logger *slog.Logger) (*Ledger, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("preview directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create preview directory: %w", err)
	}
	return &Ledger{
		dir:     dir,
		logger:  logging.NewComponentLogger(logger, "preview"),
		handles: make(map[string]string),
	}, nil
}

// Allocate copies the file at sourcePath into the preview directory and
// returns a handle for it.
func (l *Ledger) Allocate(sourcePath string) (Handle, error) {
	if strings.TrimSpace(sourcePath) == "" {
		return Handle{}, errors.New("source path required")
	}
	token := uuid.NewString()
	target := filepath.Join(l.dir, token+filepath.Ext(sourcePath))
	if err := fileutil.CopyFile(sourcePath, target); err != nil {
		return Handle{}, fmt.Errorf("stage preview copy: %w", err)
	}
	l.register(token, target)
	return Handle{Token: token, Path: target}, nil
}

// AllocateBytes writes data into the preview directory under a name derived
// from the given file name's extension and returns a handle for it.
func (l *Ledger) AllocateBytes(name string, data []byte) (Handle, error) {
	token := uuid.NewString()
	target := filepath.Join(l.dir, token+filepath.Ext(name))
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return Handle{}, fmt.Errorf("write preview artifact: %w", err)
	}
	l.register(token, target)
	return Handle{Token: token, Path: target}, nil
}

// Path resolves a handle token to its backing file.
func (l *Ledger) Path(token string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	path, ok := l.handles[token]
	return path, ok
}

// Release frees the artifact behind a handle token. Unknown or already
// released tokens are a no-op, never a fault.
func (l *Ledger) Release(token string) {
	if strings.TrimSpace(token) == "" {
		return
	}
	l.mu.Lock()
	path, ok := l.handles[token]
	delete(l.handles, token)
	l.mu.Unlock()
	if !ok {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		l.logger.Warn("failed to remove preview artifact",
			logging.Error(err),
			logging.String("path", path),
		)
	}
}

// ReleaseAll frees every outstanding handle. Called at session teardown.
func (l *Ledger) ReleaseAll() {
	l.mu.Lock()
	tokens := make([]string, 0, len(l.handles))
	for token := range l.handles {
		tokens = append(tokens, token)
	}
	l.mu.Unlock()
	for _, token := range tokens {
		l.Release(token)
	}
}

// Outstanding reports the number of live handles.
func (l *Ledger) Outstanding() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.handles)
}

func (l *Ledger) register(token, path string) {
	l.mu.Lock()
	l.handles[token] = path
	l.mu.Unlock()
}
