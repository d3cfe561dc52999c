package handler

import (
	"net/http"

	"github.com/voiceweave/voiceweave/backend/internal/service"
	"github.com/voiceweave/voiceweave/shared/api"
	"github.com/voiceweave/voiceweave/shared/domain"
	"github.com/voiceweave/voiceweave/shared/errors"
	mw "github.com/voiceweave/voiceweave/shared/middleware"
	"github.com/voiceweave/voiceweave/shared/utils"
)

// currentUser writes a 401 and returns nil when the request carries no user.
func currentUser(w http.ResponseWriter, r *http.Request) *domain.User {
	user := mw.GetUserFromContext(r)
	if user == nil {
		utils.WriteErrorAndStatusCode(w, &errors.ErrorWithStatusCode{Message: "Please sign-in", StatusCode: http.StatusUnauthorized})
	}
	return user
}

func resultsResponse(r service.PollResults) *api.PollResultsResponse {
	resp := &api.PollResultsResponse{
		TotalVotes: r.TotalVotes,
		Ranked:     make([]api.OptionResultResponse, 0, len(r.Ranked)),
		Tier:       string(r.Tier),
	}
	for _, o := range r.Ranked {
		resp.Ranked = append(resp.Ranked, api.OptionResultResponse{Option: o.Option, Count: o.Count, Percentage: o.Percentage})
	}
	if len(r.Ranked) > 0 {
		resp.Winner = &api.OptionResultResponse{Option: r.Winner.Option, Count: r.Winner.Count, Percentage: r.Winner.Percentage}
	}
	return resp
}

// pollResponse is the API view of a poll with its computed results.
func pollResponse(p domain.Poll) api.PollResponse {
	resp := api.NewPollResponse(p)
	resp.Results = resultsResponse(service.ComputeResults(p))
	return resp
}

func pollListResponse(polls []domain.Poll) api.PollListResponse {
	resp := api.PollListResponse{Polls: make([]api.PollResponse, 0, len(polls))}
	for _, p := range polls {
		resp.Polls = append(resp.Polls, pollResponse(p))
	}
	return resp
}
