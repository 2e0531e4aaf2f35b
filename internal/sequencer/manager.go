package sequencer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"squeeze/internal/backend"
	"squeeze/internal/config"
	"squeeze/internal/logging"
	"squeeze/internal/preview"
	"squeeze/internal/queue"
	"squeeze/internal/textutil"
)

// progressPersistInterval bounds how often progress updates hit the store;
// every progress line still reaches the event stream.
const progressPersistInterval = 2 * time.Second

// Manager coordinates queue processing against the shared backend.
type Manager struct {
	cfg           *config.Config
	store         *queue.Store
	ledger        *preview.Ledger
	engine        backend.Engine
	logger        *slog.Logger
	events        *EventStream
	pollInterval  time.Duration
	retryInterval time.Duration

	ready     atomic.Bool
	activeJob atomic.Int64

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithIntervals overrides the queue poll and error retry intervals (used in
// tests).
func WithIntervals(poll, retry time.Duration) ManagerOption {
	return func(m *Manager) {
		if poll > 0 {
			m.pollInterval = poll
		}
		if retry > 0 {
			m.retryInterval = retry
		}
	}
}

// WithEventStream substitutes the event buffer.
func WithEventStream(events *EventStream) ManagerOption {
	return func(m *Manager) {
		if events != nil {
			m.events = events
		}
	}
}

// NewManager constructs a sequencer manager.
func NewManager(cfg *config.Config, store *queue.Store, ledger *preview.Ledger, engine backend.Engine, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:           cfg,
		store:         store,
		ledger:        ledger,
		engine:        engine,
		logger:        logging.NewComponentLogger(logger, "sequencer"),
		events:        NewEventStream(0),
		pollInterval:  time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		retryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Events returns the sequenced progress stream.
func (m *Manager) Events() *EventStream {
	return m.events
}

// Ready reports whether backend initialization has completed. The flag flips
// once and never reverts.
func (m *Manager) Ready() bool {
	return m.ready.Load()
}

// ActiveCount reports how many jobs currently occupy the backend (0 or 1).
func (m *Manager) ActiveCount() int {
	if m.activeJob.Load() != 0 {
		return 1
	}
	return 0
}

// StatusSummary represents lightweight sequencer diagnostics.
type StatusSummary struct {
	Running     bool
	Ready       bool
	ActiveJobID int64
	LastError   string
	QueueStats  map[queue.Status]int
}

// Status returns the latest sequencer information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.Lock()
	running := m.running
	lastErr := m.lastErr
	m.mu.Unlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}

	summary := StatusSummary{
		Running:     running,
		Ready:       m.ready.Load(),
		ActiveJobID: m.activeJob.Load(),
		QueueStats:  stats,
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	return summary
}

// Start begins background processing. Backend initialization runs inside the
// processing goroutine so submissions are accepted immediately.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("sequencer already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion. Any
// in-flight job is failed with the stop reason before Stop returns; the
// occupant slot is never left held.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	if !m.initialize(ctx) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := m.store.NextPending(ctx)
		if err != nil {
			m.setLastError(err)
			m.logger.Error("failed to fetch next queue job",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_fetch_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
			m.sleep(ctx, m.retryInterval)
			continue
		}
		if job == nil {
			m.sleep(ctx, m.pollInterval)
			continue
		}

		if err := m.processJob(ctx, job); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

// initialize retries backend setup until it succeeds or the context ends,
// then flips the readiness flag. Pending jobs accumulate in the meantime.
func (m *Manager) initialize(ctx context.Context) bool {
	if m.ready.Load() {
		return true
	}
	for {
		err := m.engine.Initialize(ctx)
		if err == nil {
			m.ready.Store(true)
			m.logger.Info("backend initialized",
				logging.String(logging.FieldEventType, "backend_ready"),
			)
			return true
		}
		m.setLastError(err)
		m.logger.Error("backend initialization failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "backend_init_failed"),
			logging.String(logging.FieldErrorHint, "check ffmpeg installation"),
		)
		if !m.sleep(ctx, m.retryInterval) {
			return false
		}
	}
}

func (m *Manager) processJob(ctx context.Context, job *queue.Job) error {
	logger := m.logger.With(logging.Int64(logging.FieldJobID, job.ID))

	job.SetActive()
	if err := m.store.Update(ctx, job); err != nil {
		m.setLastError(err)
		logger.Error("failed to mark job active", logging.Error(err))
		m.sleep(ctx, m.retryInterval)
		return err
	}
	m.activeJob.Store(job.ID)
	defer m.activeJob.Store(0)

	inputName := backend.InputName(job.SourceName)
	outputName := backend.OutputName(job.SourceName)

	// Purge before and after the run: stale blobs from a crashed
	// predecessor must never feed a later job.
	m.engine.Purge(inputName)
	m.engine.Purge(outputName)
	defer func() {
		m.engine.Purge(inputName)
		m.engine.Purge(outputName)
	}()

	m.events.Publish(Event{
		JobID:   job.ID,
		Type:    EventTypeStarted,
		Status:  queue.StatusActive,
		Message: job.SourceName,
	})
	logger.Info("transcode started",
		logging.String("source", job.SourceName),
		logging.String(logging.FieldEventType, "transcode_started"),
	)

	result, err := m.transcode(ctx, job, inputName, outputName)
	if err != nil {
		m.failJob(ctx, logger, job, err)
		return err
	}
	m.completeJob(ctx, logger, job, outputName, result)
	return nil
}

// transcode stages the source into the backend, runs it, and reads back the
// result blob.
func (m *Manager) transcode(ctx context.Context, job *queue.Job, inputName, outputName string) ([]byte, error) {
	source, err := os.ReadFile(job.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("read staged source: %w", err)
	}
	if err := m.engine.WriteInput(inputName, source); err != nil {
		return nil, err
	}

	lastPersist := time.Now()
	onProgress := func(message string) {
		m.events.Publish(Event{
			JobID:   job.ID,
			Type:    EventTypeProgress,
			Status:  queue.StatusActive,
			Message: message,
		})
		if time.Since(lastPersist) < progressPersistInterval {
			return
		}
		lastPersist = time.Now()
		job.SetProgress(message, job.ProgressPercent)
		if err := m.store.Update(ctx, job); err != nil {
			m.logger.Warn("failed to persist progress", logging.Error(err))
		}
	}

	if err := m.engine.Run(ctx, m.buildArgs(inputName, outputName), onProgress); err != nil {
		return nil, err
	}
	return m.engine.ReadOutput(outputName)
}

// buildArgs assembles the ffmpeg argument vector from configuration. Blob
// names are relative; the engine runs inside its own storage directory.
func (m *Manager) buildArgs(inputName, outputName string) []string {
	enc := m.cfg.FFmpeg
	args := []string{"-hide_banner", "-nostats", "-progress", "pipe:1", "-y", "-i", inputName}
	if enc.VideoCodec != "" {
		args = append(args, "-c:v", enc.VideoCodec)
	}
	if enc.Preset != "" {
		args = append(args, "-preset", enc.Preset)
	}
	if enc.CRF > 0 {
		args = append(args, "-crf", strconv.Itoa(enc.CRF))
	}
	if enc.AudioCodec != "" {
		args = append(args, "-c:a", enc.AudioCodec)
	}
	if enc.AudioBitrate != "" {
		args = append(args, "-b:a", enc.AudioBitrate)
	}
	return append(args, outputName)
}

func (m *Manager) completeJob(ctx context.Context, logger *slog.Logger, job *queue.Job, outputName string, result []byte) {
	// Replacing a result releases the handle from any earlier run first, so
	// retried jobs never leak preview copies.
	if job.ResultHandle != "" {
		m.ledger.Release(job.ResultHandle)
	}

	token := ""
	if handle, err := m.ledger.AllocateBytes(outputName, result); err != nil {
		logger.Warn("preview handle allocation failed; result recorded without preview",
			logging.Error(err),
			logging.String(logging.FieldEventType, "preview_allocation_failed"),
		)
	} else {
		token = handle.Token
	}

	size := int64(len(result))
	job.SetCompleted(size, textutil.FormatByteSize(size), token)
	if err := m.persist(ctx, job); err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			// The job was cleared while completing; the clear released the
			// handles it saw, so only the one allocated above is ours.
			m.ledger.Release(token)
			logger.Warn("job removed during completion; released result preview")
			return
		}
		m.setLastError(err)
		logger.Error("failed to persist completion", logging.Error(err))
		return
	}
	m.removeStagedSource(logger, job)

	m.events.Publish(Event{
		JobID:   job.ID,
		Type:    EventTypeCompleted,
		Status:  queue.StatusCompleted,
		Message: job.ResultSizeLabel,
	})
	logger.Info("transcode completed",
		logging.String("result_size", job.ResultSizeLabel),
		logging.String(logging.FieldEventType, "transcode_completed"),
	)
}

// failJob records the terminal failure and moves on; one job's failure never
// halts the queue.
func (m *Manager) failJob(ctx context.Context, logger *slog.Logger, job *queue.Job, cause error) {
	// A cancelled run surfaces as a killed backend process, so consult the
	// context rather than the error chain alone.
	reason := cause.Error()
	if errors.Is(cause, context.Canceled) || ctx.Err() != nil {
		reason = queue.StopReason
	}

	job.SetFailed(reason)
	if err := m.persist(ctx, job); err != nil && !errors.Is(err, queue.ErrNotFound) {
		m.setLastError(err)
		logger.Error("failed to persist failure", logging.Error(err))
	}

	m.events.Publish(Event{
		JobID:   job.ID,
		Type:    EventTypeFailed,
		Status:  queue.StatusFailed,
		Message: reason,
	})
	logger.Error("transcode failed",
		logging.Error(cause),
		logging.String(logging.FieldEventType, "transcode_failed"),
		logging.String(logging.FieldErrorHint, "inspect job error via squeeze queue describe"),
	)
}

// removeStagedSource deletes the intake copy once the job no longer needs
// it. Failed jobs keep theirs so a retry can re-read the source.
func (m *Manager) removeStagedSource(logger *slog.Logger, job *queue.Job) {
	if job.SourcePath == "" {
		return
	}
	if err := os.Remove(job.SourcePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to remove staged source",
			logging.String("path", job.SourcePath),
			logging.Error(err),
		)
	}
}

// persist writes terminal job state even when the run context was cancelled
// by shutdown.
func (m *Manager) persist(ctx context.Context, job *queue.Job) error {
	return m.store.Update(context.WithoutCancel(ctx), job)
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

// sleep waits for the duration or context end, reporting false on shutdown.
func (m *Manager) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
