package api

import (
	"time"

	"github.com/voiceweave/voiceweave/shared/domain"
)

// Request DTOs

type CreatePollRequest struct {
	Question  string   `json:"question" validate:"required"`
	Type      string   `json:"type" validate:"required,oneof=petition multiple_choice"`
	Options   []string `json:"options,omitempty" validate:"dive,max=100"`
	Anonymous bool     `json:"anonymous"`
	VoteGoal  int      `json:"voteGoal" validate:"required,gt=0"`
}

type VoteRequest struct {
	Option   string `json:"option" validate:"required"`
	Disclose bool   `json:"disclose"`
}

// Response DTOs

type OptionResultResponse struct {
	Option     domain.PollOption `json:"option"`
	Count      int               `json:"count"`
	Percentage float64           `json:"percentage"`
}

type PollResultsResponse struct {
	TotalVotes int                    `json:"totalVotes"`
	Ranked     []OptionResultResponse `json:"ranked"`
	Winner     *OptionResultResponse  `json:"winner,omitempty"`
	Tier       string                 `json:"tier"`
}

// PollResponse never carries the voter ledger. Voter lists are included for non-anonymous polls only.
type PollResponse struct {
	Id           domain.PollId                               `json:"id"`
	CommunityId  domain.CommunityId                          `json:"communityId"`
	Question     domain.PollQuestion                         `json:"question"`
	Type         domain.PollType                             `json:"type"`
	Options      []domain.PollOption                         `json:"options"`
	Anonymous    bool                                        `json:"anonymous"`
	VoteGoal     int                                         `json:"voteGoal"`
	Votes        map[domain.PollOption]int                   `json:"votes"`
	VoterDetails map[domain.PollOption][]VoterRecordResponse `json:"voterDetails,omitempty"`
	Status       domain.PollStatus                           `json:"status"`
	CommentCount int                                         `json:"commentCount"`
	CreatedAt    time.Time                                   `json:"createdAt"`
	ResolvedAt   *time.Time                                  `json:"resolvedAt,omitempty"`
	Results      *PollResultsResponse                        `json:"results,omitempty"`
}

type VoterRecordResponse struct {
	DisplayName string       `json:"displayName"`
	Email       domain.Email `json:"email,omitempty"`
	VotedAt     time.Time    `json:"votedAt"`
}

type PollListResponse struct {
	Polls []PollResponse `json:"polls"`
}

type HasVotedResponse struct {
	Voted bool `json:"voted"`
}

func NewPollResponse(p domain.Poll) PollResponse {
	resp := PollResponse{
		Id:           p.Id,
		CommunityId:  p.CommunityId,
		Question:     p.Question,
		Type:         p.Type,
		Options:      p.Options,
		Anonymous:    p.Anonymous,
		VoteGoal:     p.VoteGoal,
		Votes:        p.Votes,
		Status:       p.Status,
		CommentCount: p.CommentCount,
		CreatedAt:    p.CreatedAt,
		ResolvedAt:   p.ResolvedAt,
	}
	if !p.Anonymous && p.VoterDetails != nil {
		resp.VoterDetails = make(map[domain.PollOption][]VoterRecordResponse, len(p.VoterDetails))
		for option, records := range p.VoterDetails {
			list := make([]VoterRecordResponse, 0, len(records))
			for _, r := range records {
				list = append(list, VoterRecordResponse{DisplayName: r.DisplayName, Email: r.Email, VotedAt: r.VotedAt})
			}
			resp.VoterDetails[option] = list
		}
	}
	return resp
}
