package service

import (
	"context"
	"strings"
	"time"

	"github.com/voiceweave/voiceweave/shared/domain"
	"github.com/voiceweave/voiceweave/shared/errors"
)

const (
	// Trending looks at no more than this many of the caller's communities.
	MaxTrendingCommunities = 10
	TrendingLimit          = 10
)

type PollService interface {
	Create(ctx context.Context, data domain.PollCreationData) (domain.Poll, error)
	Get(ctx context.Context, id domain.PollId) (domain.Poll, error)
	ListByCommunity(ctx context.Context, communityId domain.CommunityId) ([]domain.Poll, error)
	Trending(ctx context.Context, communityIds []domain.CommunityId) ([]domain.Poll, error)
	HasVoted(ctx context.Context, pollId domain.PollId, userId domain.UserId) (bool, error)
	Subscribe(ctx context.Context, pollId domain.PollId, fn func(domain.Poll)) (cancel func(), err error)
}

type Poll struct {
	storage   PollStorage
	validator PollValidator
	ids       IDGenerator
	live      PollSubscriber
	now       func() time.Time
}

type PollStorage interface {
	GetCommunity(ctx context.Context, id domain.CommunityId) (domain.Community, error)
	// CreatePoll stores the poll and increments the owning community's poll count atomically.
	CreatePoll(ctx context.Context, poll domain.Poll) error
	GetPoll(ctx context.Context, id domain.PollId) (domain.Poll, error)
	// PollsByCommunity returns polls newest first.
	PollsByCommunity(ctx context.Context, communityId domain.CommunityId) ([]domain.Poll, error)
	// ActivePolls returns active polls of the given communities, newest first.
	ActivePolls(ctx context.Context, communityIds []domain.CommunityId, limit int) ([]domain.Poll, error)
}

type PollValidator interface {
	Question(question string) error
	Options(pollType domain.PollType, options []domain.PollOption) ([]domain.PollOption, error)
	VoteGoal(goal int) error
}

// PollSubscriber delivers full poll snapshots after every committed change.
type PollSubscriber interface {
	SubscribePoll(pollId domain.PollId, fn func(domain.Poll)) (seed func(domain.Poll), cancel func())
}

func NewPoll(storage PollStorage, validator PollValidator, ids IDGenerator, live PollSubscriber) *Poll {
	return &Poll{storage: storage, validator: validator, ids: ids, live: live, now: time.Now}
}

func (p *Poll) Create(ctx context.Context, data domain.PollCreationData) (domain.Poll, error) {
	if err := p.validator.Question(data.Question); err != nil {
		return domain.Poll{}, err
	}
	options, err := p.validator.Options(data.Type, data.Options)
	if err != nil {
		return domain.Poll{}, err
	}
	if err := p.validator.VoteGoal(data.VoteGoal); err != nil {
		return domain.Poll{}, err
	}

	community, err := p.storage.GetCommunity(ctx, data.CommunityId)
	if err != nil {
		return domain.Poll{}, err
	}
	if !community.IsMember(data.Creator.Id) {
		return domain.Poll{}, errors.Forbidden("Only members can create polls in this community")
	}

	poll := domain.Poll{
		Id:           p.ids.NewID(),
		CommunityId:  community.Id,
		Question:     strings.TrimSpace(data.Question),
		Type:         data.Type,
		Options:      options,
		Anonymous:    data.Anonymous,
		VoteGoal:     data.VoteGoal,
		Votes:        make(map[domain.PollOption]int, len(options)),
		Voters:       []domain.UserId{},
		VoterDetails: make(map[domain.PollOption][]domain.VoterRecord, len(options)),
		Status:       domain.PollStatusActive,
		CreatedAt:    p.now().UTC(),
		CreatedBy:    data.Creator.Id,
	}
	for _, option := range options {
		poll.Votes[option] = 0
		poll.VoterDetails[option] = []domain.VoterRecord{}
	}

	if err := p.storage.CreatePoll(ctx, poll); err != nil {
		return domain.Poll{}, err
	}
	return poll, nil
}

func (p *Poll) Get(ctx context.Context, id domain.PollId) (domain.Poll, error) {
	return p.storage.GetPoll(ctx, id)
}

func (p *Poll) ListByCommunity(ctx context.Context, communityId domain.CommunityId) ([]domain.Poll, error) {
	return p.storage.PollsByCommunity(ctx, communityId)
}

func (p *Poll) Trending(ctx context.Context, communityIds []domain.CommunityId) ([]domain.Poll, error) {
	if len(communityIds) == 0 {
		return []domain.Poll{}, nil
	}
	if len(communityIds) > MaxTrendingCommunities {
		communityIds = communityIds[:MaxTrendingCommunities]
	}
	return p.storage.ActivePolls(ctx, communityIds, TrendingLimit)
}

func (p *Poll) HasVoted(ctx context.Context, pollId domain.PollId, userId domain.UserId) (bool, error) {
	poll, err := p.storage.GetPoll(ctx, pollId)
	if err != nil {
		return false, err
	}
	return poll.HasVoter(userId), nil
}

// Subscribe calls fn with the current poll and then after every change until cancel is called.
func (p *Poll) Subscribe(ctx context.Context, pollId domain.PollId, fn func(domain.Poll)) (func(), error) {
	seed, cancel := p.live.SubscribePoll(pollId, fn)
	poll, err := p.storage.GetPoll(ctx, pollId)
	if err != nil {
		cancel()
		return nil, err
	}
	seed(poll)
	return cancel, nil
}
