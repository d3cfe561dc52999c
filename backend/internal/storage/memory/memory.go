// Package memory is a process-local store. Every primitive runs as one critical section and
// committed poll updates are published to the change feed before the lock is released,
// so feed order matches commit order.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/voiceweave/voiceweave/backend/internal/feed"
	"github.com/voiceweave/voiceweave/shared/domain"
	"github.com/voiceweave/voiceweave/shared/errors"
)

type Storage struct {
	mu          sync.RWMutex
	communities map[domain.CommunityId]*domain.Community
	joinCodes   map[domain.JoinCode]domain.CommunityId
	polls       map[domain.PollId]*domain.Poll
	comments    map[domain.PollId][]domain.Comment // oldest first

	pollFeed    *feed.PollFeed
	commentFeed *feed.CommentFeed
}

func New(polls *feed.PollFeed, comments *feed.CommentFeed) *Storage {
	return &Storage{
		communities: make(map[domain.CommunityId]*domain.Community),
		joinCodes:   make(map[domain.JoinCode]domain.CommunityId),
		polls:       make(map[domain.PollId]*domain.Poll),
		comments:    make(map[domain.PollId][]domain.Comment),
		pollFeed:    polls,
		commentFeed: comments,
	}
}

func (s *Storage) Ping(ctx context.Context) error {
	return nil
}

func (s *Storage) Cleanup() error {
	return nil
}

// Communities

func cloneCommunity(c *domain.Community) domain.Community {
	out := *c
	out.Members = slices.Clone(c.Members)
	out.Admins = slices.Clone(c.Admins)
	out.AuthorityEmails = slices.Clone(c.AuthorityEmails)
	if c.LastActivity != nil {
		at := *c.LastActivity
		out.LastActivity = &at
	}
	return out
}

func (s *Storage) CreateCommunity(ctx context.Context, community domain.Community) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.joinCodes[community.JoinCode]; taken {
		return errors.Conflict(errors.CodeJoinCodeTaken, "join code already in use")
	}
	if _, exists := s.communities[community.Id]; exists {
		return errors.Conflict("", "community already exists")
	}
	c := cloneCommunity(&community)
	s.communities[c.Id] = &c
	s.joinCodes[c.JoinCode] = c.Id
	return nil
}

func (s *Storage) GetCommunity(ctx context.Context, id domain.CommunityId) (domain.Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.communities[id]
	if !ok {
		return domain.Community{}, errors.NotFound("Community not found")
	}
	return cloneCommunity(c), nil
}

func (s *Storage) GetCommunityByJoinCode(ctx context.Context, code domain.JoinCode) (domain.Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.joinCodes[code]
	if !ok {
		return domain.Community{}, errors.NotFound("No community matches this join code")
	}
	return cloneCommunity(s.communities[id]), nil
}

func (s *Storage) AddMember(ctx context.Context, id domain.CommunityId, user domain.User) (domain.Community, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.communities[id]
	if !ok {
		return domain.Community{}, errors.NotFound("Community not found")
	}
	if c.IsMember(user.Id) {
		return domain.Community{}, errors.Conflict(errors.CodeAlreadyMember, "You are already a member of this community")
	}
	c.Members = append(c.Members, user.Id)
	if user.Email != "" && !slices.Contains(c.AuthorityEmails, user.Email) {
		c.AuthorityEmails = append(c.AuthorityEmails, user.Email)
	}
	return cloneCommunity(c), nil
}

func (s *Storage) CommunitiesForUser(ctx context.Context, userId domain.UserId) ([]domain.Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []domain.Community{}
	for _, c := range s.communities {
		if c.IsMember(userId) {
			result = append(result, cloneCommunity(c))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Storage) RecordCommunityActivity(ctx context.Context, id domain.CommunityId, votes int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.communities[id]
	if !ok {
		return errors.NotFound("Community not found")
	}
	c.TotalVotes += votes
	c.LastActivity = &at
	return nil
}

// Polls

func (s *Storage) CreatePoll(ctx context.Context, poll domain.Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.communities[poll.CommunityId]
	if !ok {
		return errors.NotFound("Community not found")
	}
	if _, exists := s.polls[poll.Id]; exists {
		return errors.Conflict("", "poll already exists")
	}
	p := poll.Clone()
	s.polls[p.Id] = &p
	c.PollCount++
	return nil
}

func (s *Storage) GetPoll(ctx context.Context, id domain.PollId) (domain.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.polls[id]
	if !ok {
		return domain.Poll{}, errors.NotFound("Poll not found")
	}
	return p.Clone(), nil
}

func newestFirst(polls []domain.Poll) {
	sort.SliceStable(polls, func(i, j int) bool {
		return polls[i].CreatedAt.After(polls[j].CreatedAt)
	})
}

func (s *Storage) PollsByCommunity(ctx context.Context, communityId domain.CommunityId) ([]domain.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []domain.Poll{}
	for _, p := range s.polls {
		if p.CommunityId == communityId {
			result = append(result, p.Clone())
		}
	}
	newestFirst(result)
	return result, nil
}

func (s *Storage) ActivePolls(ctx context.Context, communityIds []domain.CommunityId, limit int) ([]domain.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []domain.Poll{}
	for _, p := range s.polls {
		if p.Status == domain.PollStatusActive && slices.Contains(communityIds, p.CommunityId) {
			result = append(result, p.Clone())
		}
	}
	newestFirst(result)
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// mutatePoll runs fn on the stored poll under the write lock and publishes the change if fn reports one.
func (s *Storage) mutatePoll(ctx context.Context, id domain.PollId, fn func(p *domain.Poll) (changed bool, err error)) (domain.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.polls[id]
	if !ok {
		return domain.Poll{}, errors.NotFound("Poll not found")
	}
	before := p.Clone()
	changed, err := fn(p)
	if err != nil {
		return domain.Poll{}, err
	}
	after := p.Clone()
	if changed {
		s.publish(ctx, before, after)
	}
	return after, nil
}

func (s *Storage) publish(ctx context.Context, before, after domain.Poll) {
	if s.pollFeed == nil {
		return
	}
	s.pollFeed.Publish(ctx, before, after)
	s.pollFeed.Snapshot(after.Clone())
}

func (s *Storage) RecordVote(ctx context.Context, pollId domain.PollId, option domain.PollOption, record *domain.VoterRecord) (domain.Poll, error) {
	return s.mutatePoll(ctx, pollId, func(p *domain.Poll) (bool, error) {
		if p.Status != domain.PollStatusActive {
			return false, errors.Conflict(errors.CodeAlreadyResolved, "This poll is already resolved")
		}
		if !p.HasOption(option) {
			return false, errors.InvalidOption("Unknown option")
		}
		if record != nil {
			if p.HasVoter(record.VoterId) {
				return false, errors.Conflict(errors.CodeDuplicateVote, "You have already voted on this poll")
			}
			p.Voters = append(p.Voters, record.VoterId)
			if p.VoterDetails == nil {
				p.VoterDetails = make(map[domain.PollOption][]domain.VoterRecord)
			}
			p.VoterDetails[option] = append(p.VoterDetails[option], *record)
		}
		p.Votes[option]++
		return true, nil
	})
}

func (s *Storage) ResolvePoll(ctx context.Context, pollId domain.PollId, at time.Time) (bool, error) {
	resolved := false
	_, err := s.mutatePoll(ctx, pollId, func(p *domain.Poll) (bool, error) {
		if p.Status != domain.PollStatusActive {
			return false, nil
		}
		p.Status = domain.PollStatusResolved
		p.ResolvedAt = &at
		resolved = true
		return true, nil
	})
	return resolved, err
}

func (s *Storage) DeleteResolvedPollsBefore(ctx context.Context, cutoff time.Time, cascadeComments bool) ([]domain.PollId, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := []domain.PollId{}
	comments := 0
	for id, p := range s.polls {
		if p.Status != domain.PollStatusResolved || !p.CreatedAt.Before(cutoff) {
			continue
		}
		delete(s.polls, id)
		deleted = append(deleted, id)
		if cascadeComments {
			comments += len(s.comments[id])
			delete(s.comments, id)
		}
	}
	return deleted, comments, nil
}

// Comments

func (s *Storage) CreateComment(ctx context.Context, comment domain.Comment) error {
	_, err := s.mutatePoll(ctx, comment.PollId, func(p *domain.Poll) (bool, error) {
		s.comments[p.Id] = append(s.comments[p.Id], comment)
		p.CommentCount++
		if s.commentFeed != nil {
			s.commentFeed.Snapshot(p.Id, s.newestComments(p.Id))
		}
		return true, nil
	})
	return err
}

func (s *Storage) CommentsByPoll(ctx context.Context, pollId domain.PollId) ([]domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.newestComments(pollId), nil
}

// newestComments must be called with s.mu held.
func (s *Storage) newestComments(pollId domain.PollId) []domain.Comment {
	stored := s.comments[pollId]
	out := make([]domain.Comment, len(stored))
	for i, c := range stored {
		out[len(stored)-1-i] = c
	}
	return out
}
