package service

import (
	"context"
	"time"

	"github.com/voiceweave/voiceweave/shared/domain"
	"github.com/voiceweave/voiceweave/shared/logger"
)

type EngagementStorage interface {
	// RecordCommunityActivity adds votes to the community's total and stamps its last activity.
	RecordCommunityActivity(ctx context.Context, id domain.CommunityId, votes int, at time.Time) error
}

// EngagementTracker keeps community vote totals current from the poll change feed.
type EngagementTracker struct {
	storage EngagementStorage
	now     func() time.Time
}

func NewEngagementTracker(storage EngagementStorage) *EngagementTracker {
	return &EngagementTracker{storage: storage, now: time.Now}
}

func (e *EngagementTracker) OnPollChange(ctx context.Context, before, after domain.Poll) {
	added := after.TotalVotes() - before.TotalVotes()
	if added <= 0 {
		return
	}
	if err := e.storage.RecordCommunityActivity(ctx, after.CommunityId, added, e.now().UTC()); err != nil {
		logger.Log.Error("failed to update community engagement",
			"component", "engagement",
			"community_id", after.CommunityId,
			"error", err)
	}
}
