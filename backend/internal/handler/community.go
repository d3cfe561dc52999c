package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	backend_utils "github.com/voiceweave/voiceweave/backend/internal/utils"
	"github.com/voiceweave/voiceweave/shared/api"
	"github.com/voiceweave/voiceweave/shared/domain"
	"github.com/voiceweave/voiceweave/shared/errors"
	"github.com/voiceweave/voiceweave/shared/utils"
)

func communityResponse(c domain.Community, viewer domain.UserId) api.CommunityResponse {
	return api.NewCommunityResponse(c, viewer, backend_utils.FormatJoinCode(c.JoinCode))
}

func (h *Handler) CreateCommunity(w http.ResponseWriter, r *http.Request) {
	user := currentUser(w, r)
	if user == nil {
		return
	}
	var body api.CreateCommunityRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	community, err := h.community.Create(r.Context(), domain.CommunityCreationData{
		Title:       body.Title,
		Description: body.Description,
		Creator:     *user,
	})
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, communityResponse(community, user.Id))
}

func (h *Handler) JoinCommunity(w http.ResponseWriter, r *http.Request) {
	user := currentUser(w, r)
	if user == nil {
		return
	}
	var body api.JoinCommunityRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	community, err := h.community.JoinByCode(r.Context(), body.JoinCode, *user)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, communityResponse(community, user.Id))
}

func (h *Handler) ListCommunities(w http.ResponseWriter, r *http.Request) {
	user := currentUser(w, r)
	if user == nil {
		return
	}

	communities, err := h.community.ListForUser(r.Context(), user.Id)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	resp := api.CommunityListResponse{Communities: make([]api.CommunityResponse, 0, len(communities))}
	for _, c := range communities {
		resp.Communities = append(resp.Communities, communityResponse(c, user.Id))
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

// memberCommunity loads the community in the URL and checks the caller belongs to it.
func (h *Handler) memberCommunity(w http.ResponseWriter, r *http.Request, user *domain.User) (domain.Community, bool) {
	community, err := h.community.Get(r.Context(), chi.URLParam(r, "communityId"))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return domain.Community{}, false
	}
	if !community.IsMember(user.Id) {
		utils.WriteErrorAndStatusCode(w, errors.Forbidden("You are not a member of this community"))
		return domain.Community{}, false
	}
	return community, true
}

func (h *Handler) GetCommunity(w http.ResponseWriter, r *http.Request) {
	user := currentUser(w, r)
	if user == nil {
		return
	}
	community, ok := h.memberCommunity(w, r, user)
	if !ok {
		return
	}
	utils.WriteJSON(w, http.StatusOK, communityResponse(community, user.Id))
}

func (h *Handler) ListCommunityPolls(w http.ResponseWriter, r *http.Request) {
	user := currentUser(w, r)
	if user == nil {
		return
	}
	community, ok := h.memberCommunity(w, r, user)
	if !ok {
		return
	}

	polls, err := h.poll.ListByCommunity(r.Context(), community.Id)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, pollListResponse(polls))
}
