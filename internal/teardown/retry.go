package teardown

import (
	"context"
	"errors"
	"time"

	"github.com/zfogg/inkwell/internal/logger"
	"go.uber.org/zap"
)

const maxAttempts = 10

// Start begins retrying failed cleanups in the background
func (s *Service) Start() {
	if s.interval <= 0 {
		return
	}
	s.done = make(chan struct{})
	logger.Log.Info("🧹 Starting deletion cleanup retry loop", zap.Duration("interval", s.interval))
	go s.run()
}

// Stop stops the retry loop and waits for it to exit
func (s *Service) Stop(ctx context.Context) error {
	s.cancel()
	if s.done == nil {
		return nil
	}
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RetryPending(s.ctx)
		case <-s.ctx.Done():
			return
		}
	}
}

// RetryPending attempts every queued cleanup once. Items that keep failing are
// dropped after maxAttempts and logged at error level.
func (s *Service) RetryPending(ctx context.Context) (succeeded, remaining int) {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return 0, 0
	}

	var retry []pendingCleanup
	for _, p := range batch {
		var err error
		switch {
		case p.fileKey != "" && s.files == nil:
			err = errors.New("file storage not configured")
			p.attempts = maxAttempts
		case p.fileKey != "":
			err = s.files.DeleteFile(ctx, p.fileKey)
			s.record(p.kind, stepFile, err)
		default:
			err = s.votes.Forget(ctx, p.refs...)
			s.record(p.kind, stepVoteKeys, err)
		}

		if err == nil {
			succeeded++
			continue
		}

		p.attempts++
		if p.attempts >= maxAttempts {
			logger.Log.Error("Giving up on deletion cleanup",
				zap.String("kind", p.kind.String()),
				zap.String("file_key", p.fileKey),
				zap.Int("attempts", p.attempts),
				zap.Error(err),
			)
			continue
		}
		retry = append(retry, p)
	}

	s.mu.Lock()
	s.pending = append(s.pending, retry...)
	remaining = len(s.pending)
	s.mu.Unlock()

	logger.Log.Info("🧹 Deletion cleanup retry finished",
		zap.Int("succeeded", succeeded),
		zap.Int("remaining", remaining),
	)
	return succeeded, remaining
}
