package handler

import (
	"context"
	"net/http"

	"github.com/voiceweave/voiceweave/shared/config"
	"github.com/voiceweave/voiceweave/shared/domain"
	mw "github.com/voiceweave/voiceweave/shared/middleware"
)

type MockCommunityService struct {
	CreateFunc      func(ctx context.Context, data domain.CommunityCreationData) (domain.Community, error)
	JoinByCodeFunc  func(ctx context.Context, code string, user domain.User) (domain.Community, error)
	GetFunc         func(ctx context.Context, id domain.CommunityId) (domain.Community, error)
	ListForUserFunc func(ctx context.Context, userId domain.UserId) ([]domain.Community, error)
}

func (m *MockCommunityService) Create(ctx context.Context, data domain.CommunityCreationData) (domain.Community, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, data)
	}
	return domain.Community{}, nil
}

func (m *MockCommunityService) JoinByCode(ctx context.Context, code string, user domain.User) (domain.Community, error) {
	if m.JoinByCodeFunc != nil {
		return m.JoinByCodeFunc(ctx, code, user)
	}
	return domain.Community{}, nil
}

func (m *MockCommunityService) Get(ctx context.Context, id domain.CommunityId) (domain.Community, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return domain.Community{}, nil
}

func (m *MockCommunityService) ListForUser(ctx context.Context, userId domain.UserId) ([]domain.Community, error) {
	if m.ListForUserFunc != nil {
		return m.ListForUserFunc(ctx, userId)
	}
	return nil, nil
}

type MockPollService struct {
	CreateFunc          func(ctx context.Context, data domain.PollCreationData) (domain.Poll, error)
	GetFunc             func(ctx context.Context, id domain.PollId) (domain.Poll, error)
	ListByCommunityFunc func(ctx context.Context, communityId domain.CommunityId) ([]domain.Poll, error)
	TrendingFunc        func(ctx context.Context, communityIds []domain.CommunityId) ([]domain.Poll, error)
	HasVotedFunc        func(ctx context.Context, pollId domain.PollId, userId domain.UserId) (bool, error)
	SubscribeFunc       func(ctx context.Context, pollId domain.PollId, fn func(domain.Poll)) (func(), error)
}

func (m *MockPollService) Create(ctx context.Context, data domain.PollCreationData) (domain.Poll, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, data)
	}
	return domain.Poll{}, nil
}

func (m *MockPollService) Get(ctx context.Context, id domain.PollId) (domain.Poll, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return domain.Poll{}, nil
}

func (m *MockPollService) ListByCommunity(ctx context.Context, communityId domain.CommunityId) ([]domain.Poll, error) {
	if m.ListByCommunityFunc != nil {
		return m.ListByCommunityFunc(ctx, communityId)
	}
	return nil, nil
}

func (m *MockPollService) Trending(ctx context.Context, communityIds []domain.CommunityId) ([]domain.Poll, error) {
	if m.TrendingFunc != nil {
		return m.TrendingFunc(ctx, communityIds)
	}
	return nil, nil
}

func (m *MockPollService) HasVoted(ctx context.Context, pollId domain.PollId, userId domain.UserId) (bool, error) {
	if m.HasVotedFunc != nil {
		return m.HasVotedFunc(ctx, pollId, userId)
	}
	return false, nil
}

func (m *MockPollService) Subscribe(ctx context.Context, pollId domain.PollId, fn func(domain.Poll)) (func(), error) {
	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(ctx, pollId, fn)
	}
	return func() {}, nil
}

type MockVoteService struct {
	SubmitFunc func(ctx context.Context, vote domain.VoteSubmission) error
}

func (m *MockVoteService) Submit(ctx context.Context, vote domain.VoteSubmission) error {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, vote)
	}
	return nil
}

type MockCommentService struct {
	AddFunc       func(ctx context.Context, data domain.CommentCreationData) (domain.Comment, error)
	ListFunc      func(ctx context.Context, pollId domain.PollId) ([]domain.Comment, error)
	SubscribeFunc func(ctx context.Context, pollId domain.PollId, fn func([]domain.Comment)) (func(), error)
}

func (m *MockCommentService) Add(ctx context.Context, data domain.CommentCreationData) (domain.Comment, error) {
	if m.AddFunc != nil {
		return m.AddFunc(ctx, data)
	}
	return domain.Comment{}, nil
}

func (m *MockCommentService) List(ctx context.Context, pollId domain.PollId) ([]domain.Comment, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, pollId)
	}
	return nil, nil
}

func (m *MockCommentService) Subscribe(ctx context.Context, pollId domain.PollId, fn func([]domain.Comment)) (func(), error) {
	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(ctx, pollId, fn)
	}
	return func() {}, nil
}

var testUser = domain.User{Id: "u-1", DisplayName: "Alice", Email: "alice@example.com"}

type testDeps struct {
	community *MockCommunityService
	poll      *MockPollService
	vote      *MockVoteService
	comment   *MockCommentService
}

func newTestHandler() (*Handler, *testDeps) {
	deps := &testDeps{
		community: &MockCommunityService{},
		poll:      &MockPollService{},
		vote:      &MockVoteService{},
		comment:   &MockCommentService{},
	}
	cfg := &config.Config{Public: config.DefaultPublic()}
	return New(deps.community, deps.poll, deps.vote, deps.comment, &MockHealthChecker{}, cfg), deps
}

// asUser stands in for the auth middleware.
func asUser(user *domain.User) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user != nil {
				r = r.WithContext(context.WithValue(r.Context(), mw.UserClaimsKey, user))
			}
			next.ServeHTTP(w, r)
		})
	}
}
