package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/voiceweave/voiceweave/shared/domain"
	"github.com/voiceweave/voiceweave/shared/logger"
	"github.com/voiceweave/voiceweave/shared/middleware/metrics"
)

// RetentionSweeper deletes resolved polls once they are older than maxAge.
type RetentionSweeper struct {
	storage         RetentionStorage
	maxAge          time.Duration
	cascadeComments bool
	now             func() time.Time

	mu               sync.Mutex
	lastCleanupStats RetentionStats
}

// RetentionStats tracks metrics from the last sweep.
type RetentionStats struct {
	RunAt           time.Time
	Cutoff          time.Time
	PollsDeleted    int
	CommentsDeleted int
	DurationMs      int64
}

type RetentionStorage interface {
	// DeleteResolvedPollsBefore removes, as one batch, every resolved poll created before cutoff.
	// With cascadeComments their comments go in the same batch.
	DeleteResolvedPollsBefore(ctx context.Context, cutoff time.Time, cascadeComments bool) (polls []domain.PollId, comments int, err error)
}

func NewRetentionSweeper(storage RetentionStorage, maxAge time.Duration, cascadeComments bool) *RetentionSweeper {
	return &RetentionSweeper{
		storage:         storage,
		maxAge:          maxAge,
		cascadeComments: cascadeComments,
		now:             time.Now,
	}
}

// StartBackgroundCleanup sweeps every interval until ctx is cancelled.
func (s *RetentionSweeper) StartBackgroundCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	logger.Log.Info("started retention sweeper",
		"component", "retention",
		"interval", interval,
		"max_age", s.maxAge,
		"cascade_comments", s.cascadeComments)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.RunCleanup(ctx); err != nil {
					logger.Log.Error("retention sweep failed",
						"component", "retention",
						"error", err)
				} else {
					stats := s.GetLastCleanupStats()
					logger.Log.Info("retention sweep completed",
						"component", "retention",
						"polls_deleted", stats.PollsDeleted,
						"comments_deleted", stats.CommentsDeleted,
						"duration_ms", stats.DurationMs)
				}
			case <-ctx.Done():
				logger.Log.Info("retention sweeper shutting down",
					"component", "retention")
				return
			}
		}
	}()
}

// RunCleanup executes a single sweep.
func (s *RetentionSweeper) RunCleanup(ctx context.Context) error {
	startTime := s.now()
	stats := RetentionStats{
		RunAt:  startTime,
		Cutoff: startTime.Add(-s.maxAge).UTC(),
	}

	polls, comments, err := s.storage.DeleteResolvedPollsBefore(ctx, stats.Cutoff, s.cascadeComments)
	if err != nil {
		return fmt.Errorf("failed to delete resolved polls: %w", err)
	}
	stats.PollsDeleted = len(polls)
	stats.CommentsDeleted = comments
	stats.DurationMs = time.Since(startTime).Milliseconds()

	metrics.RetentionDeleted.WithLabelValues("polls").Add(float64(stats.PollsDeleted))
	metrics.RetentionDeleted.WithLabelValues("comments").Add(float64(stats.CommentsDeleted))

	s.mu.Lock()
	s.lastCleanupStats = stats
	s.mu.Unlock()
	return nil
}

func (s *RetentionSweeper) GetLastCleanupStats() RetentionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCleanupStats
}
