package domain

import (
	"slices"
	"time"
)

type CommunityCreationData struct {
	Title       string
	Description string
	Creator     User
}

type Community struct {
	Id              CommunityId `json:"id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	JoinCode        JoinCode    `json:"joinCode"`
	Members         []UserId    `json:"members"`
	Admins          []UserId    `json:"admins"`
	AuthorityEmails []Email     `json:"authorityEmails"`
	PollCount       int         `json:"pollCount"`
	TotalVotes      int         `json:"totalVotes"`
	LastActivity    *time.Time  `json:"lastActivity,omitempty"`
	CreatedBy       UserId      `json:"createdBy"`
	CreatedAt       time.Time   `json:"createdAt"`
}

func (c *Community) IsMember(id UserId) bool {
	return slices.Contains(c.Members, id)
}

func (c *Community) IsAdmin(id UserId) bool {
	return slices.Contains(c.Admins, id)
}
