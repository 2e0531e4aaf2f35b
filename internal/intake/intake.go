package intake

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"squeeze/internal/config"
	"squeeze/internal/fileutil"
	"squeeze/internal/logging"
	"squeeze/internal/preview"
	"squeeze/internal/queue"
	"squeeze/internal/textutil"
)

// Service validates submissions against the configured constraints and
// appends accepted files to the queue as pending jobs.
type Service struct {
	cfg    *config.Config
	store  *queue.Store
	ledger *preview.Ledger
	logger *slog.Logger
}

// NewService constructs an intake service.
func NewService(cfg *config.Config, store *queue.Store, ledger *preview.Ledger, logger *slog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		store:  store,
		ledger: ledger,
		logger: logging.NewComponentLogger(logger, "intake"),
	}
}

// Submit validates the raw files as one gesture and enqueues a job per file
// in submission order. Any violation rejects the whole submission with a
// ValidationError and leaves the queue unchanged.
func (s *Service) Submit(ctx context.Context, paths []string) ([]*queue.Job, error) {
	if len(paths) == 0 {
		return nil, &ValidationError{Constraint: "batch", Detail: "no files submitted"}
	}
	if max := s.cfg.Intake.MaxBatch; max > 0 && len(paths) > max {
		return nil, &ValidationError{
			Constraint: "max_batch",
			Detail:     fmt.Sprintf("%d files submitted, limit is %d", len(paths), max),
		}
	}
	if err := s.checkQueueDepth(ctx, len(paths)); err != nil {
		return nil, err
	}

	sizes := make([]int64, len(paths))
	for i, path := range paths {
		size, err := s.validateFile(path)
		if err != nil {
			return nil, err
		}
		sizes[i] = size
	}

	jobs := make([]*queue.Job, 0, len(paths))
	for i, path := range paths {
		job, err := s.enqueue(ctx, path, sizes[i])
		if err != nil {
			return jobs, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *Service) checkQueueDepth(ctx context.Context, incoming int) error {
	max := s.cfg.Intake.MaxPending
	if max <= 0 {
		return nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("read queue stats: %w", err)
	}
	if pending := stats[queue.StatusPending]; pending+incoming > max {
		return &ValidationError{
			Constraint: "max_pending",
			Detail:     fmt.Sprintf("%d jobs pending, limit is %d", pending, max),
		}
	}
	return nil
}

func (s *Service) validateFile(path string) (int64, error) {
	name := filepath.Base(path)
	size, err := fileutil.FileSize(path)
	if err != nil {
		return 0, &ValidationError{File: name, Constraint: "readable", Detail: err.Error()}
	}
	if !kindMatches(name, s.cfg.Intake.AcceptedKinds) {
		return 0, &ValidationError{
			File:       name,
			Constraint: "accepted_kinds",
			Detail:     fmt.Sprintf("kind not in %v", s.cfg.Intake.AcceptedKinds),
		}
	}
	if max := s.cfg.MaxFileBytes(); max > 0 && size > max {
		return 0, &ValidationError{
			File:       name,
			Constraint: "max_file_mib",
			Detail:     fmt.Sprintf("%s exceeds limit of %s", textutil.FormatByteSize(size), textutil.FormatByteSize(max)),
		}
	}
	return size, nil
}

func (s *Service) enqueue(ctx context.Context, path string, size int64) (*queue.Job, error) {
	name := filepath.Base(path)
	staged := filepath.Join(s.cfg.Paths.StagingDir, uuid.NewString()+"_"+name)
	if err := fileutil.CopyFileVerified(path, staged); err != nil {
		return nil, fmt.Errorf("stage %s: %w", name, err)
	}

	job := &queue.Job{
		SourceName:      name,
		DisplayTitle:    deriveTitle(name),
		SourcePath:      staged,
		SourceSizeBytes: size,
		SourceSizeLabel: textutil.FormatByteSize(size),
	}

	// The original is previewable before transcoding starts. Handle
	// allocation failure degrades the preview, never the submission.
	if handle, err := s.ledger.Allocate(staged); err != nil {
		s.logger.Warn("source preview allocation failed",
			logging.Error(err),
			logging.String("source", name),
		)
	} else {
		job.SourceHandle = handle.Token
	}

	inserted, err := s.store.NewJob(ctx, job)
	if err != nil {
		s.ledger.Release(job.SourceHandle)
		_ = os.Remove(staged)
		return nil, fmt.Errorf("enqueue %s: %w", name, err)
	}
	s.logger.Info("job enqueued",
		logging.Int64(logging.FieldJobID, inserted.ID),
		logging.String("source", name),
		logging.String("size", inserted.SourceSizeLabel),
	)
	return inserted, nil
}
