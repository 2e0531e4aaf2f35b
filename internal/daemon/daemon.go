package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"squeeze/internal/config"
	"squeeze/internal/intake"
	"squeeze/internal/logging"
	"squeeze/internal/preview"
	"squeeze/internal/queue"
	"squeeze/internal/sequencer"
)

// Daemon coordinates background processing and enforces single-instance
// execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *queue.Store
	ledger    *preview.Ledger
	intake    *intake.Service
	sequencer *sequencer.Manager
	logPath   string

	lockPath string
	lock     *flock.Flock

	running  atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	doneOnce sync.Once
}

// Status represents daemon runtime information.
type Status struct {
	Running            bool
	Sequencer          sequencer.StatusSummary
	ActiveCount        int
	OutstandingHandles int
	QueueDBPath        string
	LockFilePath       string
	SocketPath         string
	PID                int
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, ledger *preview.Ledger, in *intake.Service, seq *sequencer.Manager, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || ledger == nil || in == nil || seq == nil {
		return nil, errors.New("daemon requires config, store, ledger, intake, and sequencer")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "squeezed.lock")
	return &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		store:     store,
		ledger:    ledger,
		intake:    in,
		sequencer: seq,
		logPath:   filepath.Join(cfg.Paths.LogDir, "squeezed.log"),
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
		done:      make(chan struct{}),
	}, nil
}

// Start acquires the daemon lock and launches the sequencer.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another squeeze daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.sequencer.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start sequencer: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("squeeze daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts the sequencer, fails any remaining active rows, releases all
// preview handles, and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.sequencer.Stop()

	// The sequencer fails its own in-flight job; this sweeps rows left
	// active by an earlier crash.
	if updated, err := d.store.FailActive(context.Background(), queue.StopReason); err != nil {
		d.logger.Warn("failed to fail active jobs during shutdown", logging.Error(err))
	} else if updated > 0 {
		d.logger.Info("failed stale active jobs", logging.Int64("count", updated))
	}

	d.ledger.ReleaseAll()

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.doneOnce.Do(func() { close(d.done) })
	d.logger.Info("squeeze daemon stopped")
}

// Done is closed once the daemon has stopped, whether from a local shutdown
// or a stop request over IPC.
func (d *Daemon) Done() <-chan struct{} {
	return d.done
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Submit validates and enqueues a batch of source files.
func (d *Daemon) Submit(ctx context.Context, paths []string) ([]*queue.Job, error) {
	return d.intake.Submit(ctx, paths)
}

// ListQueue returns queue jobs filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Job, error) {
	if len(statuses) == 0 {
		return d.store.List(ctx)
	}
	return d.store.List(ctx, statuses...)
}

// GetJob returns a single queue job by id.
func (d *Daemon) GetJob(ctx context.Context, id int64) (*queue.Job, error) {
	return d.store.GetByID(ctx, id)
}

// ClearQueue removes all queue jobs, releases their preview handles, and
// deletes their staged source copies. The store snapshots the rows it
// deletes, so handles persisted up to the delete are always released here.
func (d *Daemon) ClearQueue(ctx context.Context) (int64, error) {
	removed, err := d.store.Clear(ctx)
	if err != nil {
		return 0, err
	}
	for _, job := range removed {
		d.ledger.Release(job.SourceHandle)
		d.ledger.Release(job.ResultHandle)
		d.removeStagedSource(job)
	}
	return int64(len(removed)), nil
}

// removeStagedSource deletes a job's intake copy from the staging directory.
func (d *Daemon) removeStagedSource(job *queue.Job) {
	if job.SourcePath == "" {
		return
	}
	if err := os.Remove(job.SourcePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		d.logger.Warn("failed to remove staged source",
			logging.String("path", job.SourcePath),
			logging.Error(err),
		)
	}
}

// RetryFailed resets failed jobs (optionally a subset) back to pending.
func (d *Daemon) RetryFailed(ctx context.Context, ids []int64) (int64, error) {
	return d.store.RetryFailed(ctx, ids...)
}

// Events returns sequenced progress events after the given sequence number.
func (d *Daemon) Events(sinceSeq int64) []sequencer.Event {
	return d.sequencer.Events().Since(sinceSeq)
}

// PreviewPath resolves a preview handle token to its backing file.
func (d *Daemon) PreviewPath(token string) (string, bool) {
	return d.ledger.Path(token)
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	summary := d.sequencer.Status(ctx)
	return Status{
		Running:            d.running.Load(),
		Sequencer:          summary,
		ActiveCount:        d.sequencer.ActiveCount(),
		OutstandingHandles: d.ledger.Outstanding(),
		QueueDBPath:        d.store.Path(),
		LockFilePath:       d.lockPath,
		SocketPath:         d.cfg.Paths.SocketPath,
		PID:                os.Getpid(),
	}
}
