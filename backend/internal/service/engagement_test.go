package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voiceweave/voiceweave/shared/domain"
)

type MockEngagementStorage struct {
	recordFunc func(id string, votes int) error
	calls      []int
}

func (m *MockEngagementStorage) RecordCommunityActivity(ctx context.Context, id domain.CommunityId, votes int, at time.Time) error {
	m.calls = append(m.calls, votes)
	if m.recordFunc != nil {
		return m.recordFunc(id, votes)
	}
	return nil
}

func TestEngagementTracker(t *testing.T) {
	ctx := context.Background()
	before := domain.Poll{CommunityId: "c1", Votes: map[string]int{"yes": 2, "no": 1}}
	voted := domain.Poll{CommunityId: "c1", Votes: map[string]int{"yes": 3, "no": 1}}
	commented := before.Clone()
	commented.CommentCount = 1

	t.Run("counts added votes", func(t *testing.T) {
		storage := &MockEngagementStorage{}
		NewEngagementTracker(storage).OnPollChange(ctx, before, voted)
		assert.Equal(t, []int{1}, storage.calls)
	})

	t.Run("ignores changes without votes", func(t *testing.T) {
		storage := &MockEngagementStorage{}
		NewEngagementTracker(storage).OnPollChange(ctx, before, commented)
		assert.Empty(t, storage.calls)
	})

	t.Run("storage failure is logged only", func(t *testing.T) {
		storage := &MockEngagementStorage{recordFunc: func(string, int) error { return errors.New("down") }}
		assert.NotPanics(t, func() {
			NewEngagementTracker(storage).OnPollChange(ctx, before, voted)
		})
	})
}

func TestEngagementTracker_FromFeed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.polls.OnPollChange(NewEngagementTracker(f.store).OnPollChange)

	p := f.mustPoll(t, domain.PollCreationData{Type: domain.PollTypePetition, VoteGoal: 10})
	for i := 1; i <= 4; i++ {
		require.NoError(t, f.vote.Submit(ctx, domain.VoteSubmission{PollId: p.Id, Option: domain.PetitionNo, Voter: voter(i)}))
	}
	f.polls.Wait()

	c, err := f.store.GetCommunity(ctx, p.CommunityId)
	require.NoError(t, err)
	assert.Equal(t, 4, c.TotalVotes)
	assert.NotNil(t, c.LastActivity)
}
