package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/voiceweave/voiceweave/shared/api"
	"github.com/voiceweave/voiceweave/shared/domain"
	"github.com/voiceweave/voiceweave/shared/utils"
)

func (h *Handler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	user := currentUser(w, r)
	if user == nil {
		return
	}
	var body api.CreatePollRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	poll, err := h.poll.Create(r.Context(), domain.PollCreationData{
		CommunityId: chi.URLParam(r, "communityId"),
		Question:    body.Question,
		Type:        domain.PollType(body.Type),
		Options:     body.Options,
		Anonymous:   body.Anonymous,
		VoteGoal:    body.VoteGoal,
		Creator:     *user,
	})
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, pollResponse(poll))
}

func (h *Handler) GetPoll(w http.ResponseWriter, r *http.Request) {
	poll, err := h.poll.Get(r.Context(), chi.URLParam(r, "pollId"))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, pollResponse(poll))
}

// TrendingPolls lists active polls across the caller's communities.
func (h *Handler) TrendingPolls(w http.ResponseWriter, r *http.Request) {
	user := currentUser(w, r)
	if user == nil {
		return
	}

	communities, err := h.community.ListForUser(r.Context(), user.Id)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	ids := make([]domain.CommunityId, 0, len(communities))
	for _, c := range communities {
		ids = append(ids, c.Id)
	}

	polls, err := h.poll.Trending(r.Context(), ids)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, pollListResponse(polls))
}

func (h *Handler) HasVoted(w http.ResponseWriter, r *http.Request) {
	user := currentUser(w, r)
	if user == nil {
		return
	}

	voted, err := h.poll.HasVoted(r.Context(), chi.URLParam(r, "pollId"), user.Id)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.HasVotedResponse{Voted: voted})
}

func (h *Handler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	user := currentUser(w, r)
	if user == nil {
		return
	}
	var body api.VoteRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	err := h.vote.Submit(r.Context(), domain.VoteSubmission{
		PollId:   chi.URLParam(r, "pollId"),
		Option:   body.Option,
		Voter:    *user,
		Disclose: body.Disclose,
	})
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
