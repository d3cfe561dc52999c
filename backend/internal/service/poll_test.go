package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voiceweave/voiceweave/shared/domain"
	"github.com/voiceweave/voiceweave/shared/errors"
)

func TestPollCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("petition", func(t *testing.T) {
		f := newFixture(t)
		c := f.mustCommunity(t)

		p, err := f.poll.Create(ctx, domain.PollCreationData{
			CommunityId: c.Id,
			Question:    "  Install a bike rack? ",
			Type:        domain.PollTypePetition,
			Options:     []string{"ignored"},
			VoteGoal:    5,
			Creator:     creator,
		})

		require.NoError(t, err)
		assert.Equal(t, "Install a bike rack?", p.Question)
		assert.Equal(t, []string{domain.PetitionYes, domain.PetitionNo}, p.Options)
		assert.Equal(t, map[string]int{domain.PetitionYes: 0, domain.PetitionNo: 0}, p.Votes)
		assert.Len(t, p.VoterDetails, 2)
		assert.Equal(t, domain.PollStatusActive, p.Status)
		assert.Nil(t, p.ResolvedAt)

		community, err := f.store.GetCommunity(ctx, c.Id)
		require.NoError(t, err)
		assert.Equal(t, 1, community.PollCount)
	})

	t.Run("multiple choice trims options", func(t *testing.T) {
		f := newFixture(t)
		p := f.mustPoll(t, domain.PollCreationData{
			Type:     domain.PollTypeMultipleChoice,
			Options:  []string{" Red ", "", "Blue"},
			VoteGoal: 3,
		})
		assert.Equal(t, []string{"Red", "Blue"}, p.Options)
	})

	invalid := []struct {
		name string
		data domain.PollCreationData
	}{
		{"empty question", domain.PollCreationData{Question: " ", Type: domain.PollTypePetition, VoteGoal: 1}},
		{"zero goal", domain.PollCreationData{Question: "q", Type: domain.PollTypePetition, VoteGoal: 0}},
		{"one option", domain.PollCreationData{Question: "q", Type: domain.PollTypeMultipleChoice, Options: []string{"a"}, VoteGoal: 1}},
		{"duplicate options", domain.PollCreationData{Question: "q", Type: domain.PollTypeMultipleChoice, Options: []string{"a", "A"}, VoteGoal: 1}},
		{"unknown type", domain.PollCreationData{Question: "q", Type: "ranked", VoteGoal: 1}},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			c := f.mustCommunity(t)
			tc.data.CommunityId = c.Id
			tc.data.Creator = creator

			_, err := f.poll.Create(ctx, tc.data)

			assert.True(t, errors.IsValidation(err), "got %v", err)
			community, err := f.store.GetCommunity(ctx, c.Id)
			require.NoError(t, err)
			assert.Zero(t, community.PollCount)
		})
	}

	t.Run("unknown community", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.poll.Create(ctx, domain.PollCreationData{
			CommunityId: "nope", Question: "q", Type: domain.PollTypePetition, VoteGoal: 1, Creator: creator,
		})
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("non-member", func(t *testing.T) {
		f := newFixture(t)
		c := f.mustCommunity(t)
		_, err := f.poll.Create(ctx, domain.PollCreationData{
			CommunityId: c.Id, Question: "q", Type: domain.PollTypePetition, VoteGoal: 1, Creator: domain.User{Id: "stranger"},
		})

		var e *errors.ErrorWithStatusCode
		require.ErrorAs(t, err, &e)
		assert.Equal(t, 403, e.StatusCode)
	})
}

func TestPollQueries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.mustCommunity(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	f.poll.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	older := f.mustPoll(t, domain.PollCreationData{CommunityId: c.Id, Type: domain.PollTypePetition, VoteGoal: 1})
	newer := f.mustPoll(t, domain.PollCreationData{CommunityId: c.Id, Type: domain.PollTypePetition, VoteGoal: 5})

	list, err := f.poll.ListByCommunity(ctx, c.Id)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.Id, list[0].Id)
	assert.Equal(t, older.Id, list[1].Id)

	require.NoError(t, f.vote.Submit(ctx, domain.VoteSubmission{PollId: older.Id, Option: domain.PetitionYes, Voter: voter(1)}))

	voted, err := f.poll.HasVoted(ctx, older.Id, "voter-1")
	require.NoError(t, err)
	assert.True(t, voted)
	voted, err = f.poll.HasVoted(ctx, newer.Id, "voter-1")
	require.NoError(t, err)
	assert.False(t, voted)

	trending, err := f.poll.Trending(ctx, []string{c.Id})
	require.NoError(t, err)
	require.Len(t, trending, 1, "resolved polls are not trending")
	assert.Equal(t, newer.Id, trending[0].Id)

	empty, err := f.poll.Trending(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPollTrending_Limits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	communities := []string{}
	for i := 0; i < MaxTrendingCommunities+2; i++ {
		c := f.mustCommunity(t)
		communities = append(communities, c.Id)
		f.mustPoll(t, domain.PollCreationData{CommunityId: c.Id, Type: domain.PollTypePetition, VoteGoal: 3})
		f.mustPoll(t, domain.PollCreationData{CommunityId: c.Id, Type: domain.PollTypePetition, VoteGoal: 3})
	}

	trending, err := f.poll.Trending(ctx, communities)
	require.NoError(t, err)
	assert.Len(t, trending, TrendingLimit)

	allowed := communities[:MaxTrendingCommunities]
	for _, p := range trending {
		assert.Contains(t, allowed, p.CommunityId)
	}
}

func TestPollSubscribe(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.mustPoll(t, domain.PollCreationData{Type: domain.PollTypePetition, VoteGoal: 2})

	var mu sync.Mutex
	var seen []domain.Poll
	cancel, err := f.poll.Subscribe(ctx, p.Id, func(poll domain.Poll) {
		mu.Lock()
		seen = append(seen, poll)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, f.vote.Submit(ctx, domain.VoteSubmission{PollId: p.Id, Option: domain.PetitionYes, Voter: voter(1)}))
	require.NoError(t, f.vote.Submit(ctx, domain.VoteSubmission{PollId: p.Id, Option: domain.PetitionNo, Voter: voter(2)}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0 && seen[len(seen)-1].IsResolved()
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, seen[0].TotalVotes(), "first delivery is the current state")
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i].Progress(), seen[i-1].Progress())
	}

	t.Run("unknown poll", func(t *testing.T) {
		_, err := f.poll.Subscribe(ctx, "missing", func(domain.Poll) {})
		assert.True(t, errors.IsNotFound(err))
	})
}
