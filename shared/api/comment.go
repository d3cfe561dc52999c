package api

import (
	"time"

	"github.com/voiceweave/voiceweave/shared/domain"
)

type CreateCommentRequest struct {
	Text     string `json:"text" validate:"required"`
	Disclose bool   `json:"disclose"`
}

type CommentResponse struct {
	Id        domain.CommentId   `json:"id"`
	PollId    domain.PollId      `json:"pollId"`
	Content   domain.CommentText `json:"content"`
	Disclosed bool               `json:"disclosed"`
	AuthorId  domain.UserId      `json:"authorId,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
}

type CommentListResponse struct {
	Comments []CommentResponse `json:"comments"`
}

func NewCommentResponse(c domain.Comment) CommentResponse {
	return CommentResponse{
		Id:        c.Id,
		PollId:    c.PollId,
		Content:   c.Content,
		Disclosed: c.Disclosed,
		AuthorId:  c.AuthorId,
		CreatedAt: c.CreatedAt,
	}
}

func NewCommentListResponse(comments []domain.Comment) CommentListResponse {
	resp := CommentListResponse{Comments: make([]CommentResponse, 0, len(comments))}
	for _, c := range comments {
		resp.Comments = append(resp.Comments, NewCommentResponse(c))
	}
	return resp
}
