package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/voiceweave/voiceweave/backend/internal/feed"
	"github.com/voiceweave/voiceweave/backend/internal/storage/memory"
	"github.com/voiceweave/voiceweave/backend/internal/utils"
	"github.com/voiceweave/voiceweave/shared/domain"
)

type seqIDs struct {
	prefix string
	n      atomic.Int64
}

func (g *seqIDs) NewID() string {
	return fmt.Sprintf("%s%d", g.prefix, g.n.Add(1))
}

// queuedCodes hands out codes in order and repeats the last one when exhausted.
type queuedCodes struct {
	mu    sync.Mutex
	codes []string
	calls int
	err   error
}

func (q *queuedCodes) NewJoinCode() (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls++
	if q.err != nil {
		return "", q.err
	}
	code := q.codes[0]
	if len(q.codes) > 1 {
		q.codes = q.codes[1:]
	}
	return code, nil
}

// fixture wires the services to one in-memory store.
type fixture struct {
	store     *memory.Storage
	polls     *feed.PollFeed
	comments  *feed.CommentFeed
	community *Community
	poll      *Poll
	vote      *Vote
	comment   *Comment
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	polls := feed.NewPollFeed()
	comments := feed.NewCommentFeed()
	store := memory.New(polls, comments)
	return &fixture{
		store:     store,
		polls:     polls,
		comments:  comments,
		community: NewCommunity(store, &utils.CommunityValidator{}, &seqIDs{prefix: "c"}, utils.RandomJoinCodeGenerator{}),
		poll:      NewPoll(store, &utils.PollValidator{}, &seqIDs{prefix: "p"}, polls),
		vote:      NewVote(store),
		comment:   NewComment(store, &utils.CommentValidator{}, &seqIDs{prefix: "m"}, comments),
	}
}

var creator = domain.User{Id: "creator", DisplayName: "Creator", Email: "creator@example.com"}

func (f *fixture) mustCommunity(t *testing.T) domain.Community {
	t.Helper()
	c, err := f.community.Create(context.Background(), domain.CommunityCreationData{Title: "Residents", Creator: creator})
	require.NoError(t, err)
	return c
}

func (f *fixture) mustPoll(t *testing.T, data domain.PollCreationData) domain.Poll {
	t.Helper()
	if data.CommunityId == "" {
		data.CommunityId = f.mustCommunity(t).Id
	}
	if data.Creator.Id == "" {
		data.Creator = creator
	}
	if data.Question == "" {
		data.Question = "Which option?"
	}
	p, err := f.poll.Create(context.Background(), data)
	require.NoError(t, err)
	return p
}

func voter(i int) domain.User {
	return domain.User{Id: fmt.Sprintf("voter-%d", i), DisplayName: fmt.Sprintf("Voter %d", i)}
}
