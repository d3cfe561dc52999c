package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/voiceweave/voiceweave/shared/api"
	"github.com/voiceweave/voiceweave/shared/domain"
	"github.com/voiceweave/voiceweave/shared/utils"
)

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	user := currentUser(w, r)
	if user == nil {
		return
	}
	var body api.CreateCommentRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	comment, err := h.comment.Add(r.Context(), domain.CommentCreationData{
		PollId:   chi.URLParam(r, "pollId"),
		Text:     body.Text,
		Author:   *user,
		Disclose: body.Disclose,
	})
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, api.NewCommentResponse(comment))
}

func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.comment.List(r.Context(), chi.URLParam(r, "pollId"))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.NewCommentListResponse(comments))
}
