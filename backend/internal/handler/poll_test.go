package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voiceweave/voiceweave/shared/api"
	"github.com/voiceweave/voiceweave/shared/domain"
	"github.com/voiceweave/voiceweave/shared/errors"
)

func pollRouter(h *Handler, user *domain.User) http.Handler {
	r := chi.NewRouter()
	r.Use(asUser(user))
	r.Post("/v1/communities/{communityId}/polls", h.CreatePoll)
	r.Get("/v1/polls/trending", h.TrendingPolls)
	r.Get("/v1/polls/{pollId}", h.GetPoll)
	r.Get("/v1/polls/{pollId}/voted", h.HasVoted)
	r.Post("/v1/polls/{pollId}/votes", h.SubmitVote)
	return r
}

func samplePoll(anonymous bool) domain.Poll {
	return domain.Poll{
		Id:          "p-1",
		CommunityId: "c-1",
		Question:    "Which day for the market?",
		Type:        domain.PollTypeMultipleChoice,
		Options:     []domain.PollOption{"Sat", "Sun", "Mon"},
		Anonymous:   anonymous,
		VoteGoal:    20,
		Votes:       map[domain.PollOption]int{"Sat": 5, "Sun": 3, "Mon": 2},
		Voters:      []domain.UserId{"u-1", "u-2"},
		VoterDetails: map[domain.PollOption][]domain.VoterRecord{
			"Sat": {{VoterId: "u-1", DisplayName: "Alice", Email: "alice@example.com", VotedAt: time.Unix(100, 0).UTC()}},
			"Sun": {{VoterId: "u-2", DisplayName: "Anonymous User", VotedAt: time.Unix(200, 0).UTC()}},
			"Mon": {},
		},
		Status: domain.PollStatusActive,
	}
}

func TestCreatePollHandler(t *testing.T) {
	h, deps := newTestHandler()
	router := pollRouter(h, &testUser)

	t.Run("multiple choice", func(t *testing.T) {
		var got domain.PollCreationData
		deps.poll.CreateFunc = func(ctx context.Context, data domain.PollCreationData) (domain.Poll, error) {
			got = data
			return samplePoll(false), nil
		}

		body := `{"question": "Which day?", "type": "multiple_choice", "options": ["Sat", "Sun"], "voteGoal": 20, "anonymous": true}`
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/communities/c-1/polls", bytes.NewBufferString(body)))

		require.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, domain.PollCreationData{
			CommunityId: "c-1",
			Question:    "Which day?",
			Type:        domain.PollTypeMultipleChoice,
			Options:     []domain.PollOption{"Sat", "Sun"},
			Anonymous:   true,
			VoteGoal:    20,
			Creator:     testUser,
		}, got)
	})

	tests := []struct {
		name string
		body string
	}{
		{"unknown type", `{"question": "Q?", "type": "ranked", "voteGoal": 5}`},
		{"missing goal", `{"question": "Q?", "type": "petition"}`},
		{"negative goal", `{"question": "Q?", "type": "petition", "voteGoal": -1}`},
		{"missing question", `{"type": "petition", "voteGoal": 5}`},
		{"option too long", `{"question": "Q?", "type": "multiple_choice", "options": ["` + strings.Repeat("o", 101) + `", "b"], "voteGoal": 5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps.poll.CreateFunc = func(ctx context.Context, data domain.PollCreationData) (domain.Poll, error) {
				t.Fatal("service must not be called")
				return domain.Poll{}, nil
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/communities/c-1/polls", bytes.NewBufferString(tt.body)))
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}

	t.Run("non member", func(t *testing.T) {
		deps.poll.CreateFunc = func(ctx context.Context, data domain.PollCreationData) (domain.Poll, error) {
			return domain.Poll{}, errors.Forbidden("Only members can create polls in this community")
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/communities/c-1/polls",
			bytes.NewBufferString(`{"question": "Q?", "type": "petition", "voteGoal": 5}`)))
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestGetPollHandler(t *testing.T) {
	h, deps := newTestHandler()
	router := pollRouter(h, &testUser)

	t.Run("results and voter lists", func(t *testing.T) {
		deps.poll.GetFunc = func(ctx context.Context, id domain.PollId) (domain.Poll, error) {
			return samplePoll(false), nil
		}

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/polls/p-1", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		var resp api.PollResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.NotNil(t, resp.Results)
		assert.Equal(t, 10, resp.Results.TotalVotes)
		assert.Equal(t, "Moderate", resp.Results.Tier)
		require.NotNil(t, resp.Results.Winner)
		assert.Equal(t, "Sat", resp.Results.Winner.Option)
		assert.Equal(t, 50.0, resp.Results.Winner.Percentage)
		assert.Equal(t, "Alice", resp.VoterDetails["Sat"][0].DisplayName)
		assert.NotContains(t, rr.Body.String(), `"voters"`)
	})

	t.Run("anonymous poll hides voters", func(t *testing.T) {
		deps.poll.GetFunc = func(ctx context.Context, id domain.PollId) (domain.Poll, error) {
			return samplePoll(true), nil
		}

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/polls/p-1", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.NotContains(t, rr.Body.String(), "voterDetails")
		assert.NotContains(t, rr.Body.String(), "u-1")
	})

	t.Run("not found", func(t *testing.T) {
		deps.poll.GetFunc = func(ctx context.Context, id domain.PollId) (domain.Poll, error) {
			return domain.Poll{}, errors.NotFound("Poll not found")
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/polls/nope", nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestTrendingPollsHandler(t *testing.T) {
	h, deps := newTestHandler()
	deps.community.ListForUserFunc = func(ctx context.Context, userId domain.UserId) ([]domain.Community, error) {
		return []domain.Community{{Id: "c-1"}, {Id: "c-2"}}, nil
	}
	var gotIds []domain.CommunityId
	deps.poll.TrendingFunc = func(ctx context.Context, ids []domain.CommunityId) ([]domain.Poll, error) {
		gotIds = ids
		return []domain.Poll{samplePoll(false)}, nil
	}

	rr := httptest.NewRecorder()
	pollRouter(h, &testUser).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/polls/trending", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []domain.CommunityId{"c-1", "c-2"}, gotIds)
	var resp api.PollListResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.Polls, 1)
}

func TestHasVotedHandler(t *testing.T) {
	h, deps := newTestHandler()
	deps.poll.HasVotedFunc = func(ctx context.Context, pollId domain.PollId, userId domain.UserId) (bool, error) {
		return pollId == "p-1" && userId == testUser.Id, nil
	}

	rr := httptest.NewRecorder()
	pollRouter(h, &testUser).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/polls/p-1/voted", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"voted": true}`, rr.Body.String())
}

func TestSubmitVoteHandler(t *testing.T) {
	h, deps := newTestHandler()
	router := pollRouter(h, &testUser)

	t.Run("accepted", func(t *testing.T) {
		var got domain.VoteSubmission
		deps.vote.SubmitFunc = func(ctx context.Context, vote domain.VoteSubmission) error {
			got = vote
			return nil
		}

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/polls/p-1/votes", bytes.NewBufferString(`{"option": "Sat", "disclose": true}`)))

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, domain.VoteSubmission{PollId: "p-1", Option: "Sat", Voter: testUser, Disclose: true}, got)
	})

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"duplicate", errors.Conflict(errors.CodeDuplicateVote, "You have already voted on this poll"), http.StatusConflict, errors.CodeDuplicateVote},
		{"resolved", errors.Conflict(errors.CodeAlreadyResolved, "This poll is already resolved"), http.StatusConflict, errors.CodeAlreadyResolved},
		{"invalid option", errors.InvalidOption("Invalid option"), http.StatusBadRequest, errors.CodeInvalidOption},
		{"store unavailable", errors.Transient("Storage temporarily unavailable"), http.StatusServiceUnavailable, errors.CodeTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps.vote.SubmitFunc = func(ctx context.Context, vote domain.VoteSubmission) error { return tt.err }

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/polls/p-1/votes", bytes.NewBufferString(`{"option": "Sat"}`)))

			assert.Equal(t, tt.status, rr.Code)
			var resp struct{ Code string }
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Code)
		})
	}

	t.Run("missing option", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/polls/p-1/votes", bytes.NewBufferString(`{}`)))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
