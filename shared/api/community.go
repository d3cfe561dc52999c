package api

import (
	"time"

	"github.com/voiceweave/voiceweave/shared/domain"
)

// Request DTOs

type CreateCommunityRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

type JoinCommunityRequest struct {
	JoinCode string `json:"joinCode" validate:"required"`
}

// Response DTOs

// CommunityResponse is the member view of a community. Member ids are not exposed, only the count.
type CommunityResponse struct {
	Id              domain.CommunityId `json:"id"`
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	JoinCode        domain.JoinCode    `json:"joinCode"`
	MemberCount     int                `json:"memberCount"`
	IsAdmin         bool               `json:"isAdmin"`
	AuthorityEmails []domain.Email     `json:"authorityEmails,omitempty"` // admins only
	PollCount       int                `json:"pollCount"`
	TotalVotes      int                `json:"totalVotes"`
	LastActivity    *time.Time         `json:"lastActivity,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
}

type CommunityListResponse struct {
	Communities []CommunityResponse `json:"communities"`
}

// NewCommunityResponse builds the response for viewer.
func NewCommunityResponse(c domain.Community, viewer domain.UserId, formattedJoinCode string) CommunityResponse {
	resp := CommunityResponse{
		Id:           c.Id,
		Title:        c.Title,
		Description:  c.Description,
		JoinCode:     formattedJoinCode,
		MemberCount:  len(c.Members),
		IsAdmin:      c.IsAdmin(viewer),
		PollCount:    c.PollCount,
		TotalVotes:   c.TotalVotes,
		LastActivity: c.LastActivity,
		CreatedAt:    c.CreatedAt,
	}
	if resp.IsAdmin {
		resp.AuthorityEmails = c.AuthorityEmails
	}
	return resp
}
