package teardown

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zfogg/inkwell/internal/logger"
	"github.com/zfogg/inkwell/internal/metrics"
	"github.com/zfogg/inkwell/internal/repository"
	"github.com/zfogg/inkwell/internal/storage"
	"github.com/zfogg/inkwell/internal/vote"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	stepEntity   = "entity"
	stepVoteKeys = "vote_keys"
	stepFile     = "file"

	cleanupTimeout = 30 * time.Second
)

// EntityDeleter removes an entity and its children from the database
type EntityDeleter interface {
	Delete(ctx context.Context, kind vote.Kind, id string) (*repository.Removed, error)
}

// VoteForgetter drops the voter sets of deleted entities
type VoteForgetter interface {
	Forget(ctx context.Context, refs ...vote.Ref) error
}

// Report is the outcome of one deletion
type Report struct {
	Entities     []vote.Ref `json:"-"`
	Deleted      int        `json:"deleted"`
	VoteKeysGone bool       `json:"vote_keys_cleared"`
	FilesDeleted int        `json:"files_deleted"`
	Pending      int        `json:"pending_cleanup"`
	errs         error
}

// Err returns the cleanup failures, if any. The entity itself is deleted even
// when Err is non-nil.
func (r *Report) Err() error {
	return r.errs
}

// Service runs the deletion workflow: delete the rows, then clear the vote
// sets, then delete stored files. Cleanup failures are logged, counted and
// queued for retry by the background loop.
type Service struct {
	entities EntityDeleter
	votes    VoteForgetter
	files    storage.FileDeleter
	metrics  *metrics.Metrics

	mu      sync.Mutex
	pending []pendingCleanup

	ctx      context.Context
	cancel   context.CancelFunc
	interval time.Duration
	done     chan struct{}
}

type pendingCleanup struct {
	kind     vote.Kind
	refs     []vote.Ref
	fileKey  string
	attempts int
}

// NewService creates a deletion workflow. files may be nil when no object
// storage is configured.
func NewService(entities EntityDeleter, votes VoteForgetter, files storage.FileDeleter, retryInterval time.Duration) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		entities: entities,
		votes:    votes,
		files:    files,
		metrics:  metrics.Get(),
		ctx:      ctx,
		cancel:   cancel,
		interval: retryInterval,
	}
}

// Delete removes the entity. An error is returned only when the database
// deletion failed; cleanup problems are reported through Report.Err.
func (s *Service) Delete(ctx context.Context, kind vote.Kind, id string) (*Report, error) {
	removed, err := s.entities.Delete(ctx, kind, id)
	if err != nil {
		s.record(kind, stepEntity, err)
		return nil, err
	}
	s.record(kind, stepEntity, nil)

	report := &Report{Entities: removed.Entities, Deleted: len(removed.Entities)}

	// The rows are gone; finish the cleanup even if the client went away.
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := s.votes.Forget(cleanupCtx, removed.Entities...); err != nil {
		s.fail(report, pendingCleanup{kind: kind, refs: removed.Entities}, err)
	} else {
		report.VoteKeysGone = true
		s.record(kind, stepVoteKeys, nil)
	}

	for _, key := range removed.FileKeys {
		if s.files == nil {
			s.fail(report, pendingCleanup{kind: kind, fileKey: key}, fmt.Errorf("file storage not configured"))
			continue
		}
		if err := s.files.DeleteFile(cleanupCtx, key); err != nil {
			s.fail(report, pendingCleanup{kind: kind, fileKey: key}, err)
			continue
		}
		report.FilesDeleted++
		s.record(kind, stepFile, nil)
	}

	logger.Log.Info("Entity deleted",
		logger.WithEntity(kind.String(), id),
		zap.Int("entities", report.Deleted),
		zap.Int("files_deleted", report.FilesDeleted),
		zap.Int("pending_cleanup", report.Pending),
	)
	return report, nil
}

// DeleteFile removes a single stored object, queueing it for retry on failure.
// Used when an upload replaces an older file.
func (s *Service) DeleteFile(ctx context.Context, kind vote.Kind, key string) {
	if key == "" {
		return
	}
	if s.files == nil {
		s.enqueue(pendingCleanup{kind: kind, fileKey: key})
		return
	}
	if err := s.files.DeleteFile(ctx, key); err != nil {
		s.record(kind, stepFile, err)
		logger.Log.Warn("Failed to delete replaced file", zap.String("key", key), zap.Error(err))
		s.enqueue(pendingCleanup{kind: kind, fileKey: key})
		return
	}
	s.record(kind, stepFile, nil)
}

func (s *Service) fail(report *Report, p pendingCleanup, err error) {
	step := stepVoteKeys
	if p.fileKey != "" {
		step = stepFile
	}
	s.record(p.kind, step, err)
	logger.Log.Error("Deletion cleanup step failed, queued for retry",
		zap.String("kind", p.kind.String()),
		zap.String("step", step),
		zap.String("file_key", p.fileKey),
		zap.Int("entities", len(p.refs)),
		zap.Error(err),
	)
	report.errs = multierr.Append(report.errs, fmt.Errorf("%s cleanup: %w", step, err))
	report.Pending++
	s.enqueue(p)
}

func (s *Service) enqueue(p pendingCleanup) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, p)
}

// PendingCount returns how many cleanups wait for a retry
func (s *Service) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Service) record(kind vote.Kind, step string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.TeardownStepsTotal.WithLabelValues(kind.String(), step, status).Inc()
}
