package domain

import (
	"maps"
	"slices"
	"time"
)

type PollType string

const (
	PollTypePetition       PollType = "petition"
	PollTypeMultipleChoice PollType = "multiple_choice"
)

type PollStatus string

const (
	PollStatusActive   PollStatus = "active"
	PollStatusResolved PollStatus = "resolved"
)

const (
	PetitionYes PollOption = "yes"
	PetitionNo  PollOption = "no"
)

type PollCreationData struct {
	CommunityId CommunityId
	Question    PollQuestion
	Type        PollType
	Options     []PollOption // ignored for petitions
	Anonymous   bool
	VoteGoal    int
	Creator     User
}

type VoteSubmission struct {
	PollId   PollId
	Option   PollOption
	Voter    User
	Disclose bool // show the voter's name and email in the poll's voter list
}

// VoterRecord is one entry of a non-anonymous poll's per-option voter list.
type VoterRecord struct {
	VoterId     UserId    `json:"voterId"`
	DisplayName string    `json:"displayName"`
	Email       Email     `json:"email,omitempty"`
	VotedAt     time.Time `json:"votedAt"`
}

type Poll struct {
	Id           PollId                       `json:"id"`
	CommunityId  CommunityId                  `json:"communityId"`
	Question     PollQuestion                 `json:"question"`
	Type         PollType                     `json:"type"`
	Options      []PollOption                 `json:"options"`
	Anonymous    bool                         `json:"anonymous"`
	VoteGoal     int                          `json:"voteGoal"`
	Votes        map[PollOption]int           `json:"votes"`
	Voters       []UserId                     `json:"voters"`
	VoterDetails map[PollOption][]VoterRecord `json:"voterDetails"`
	Status       PollStatus                   `json:"status"`
	CommentCount int                          `json:"commentCount"`
	CreatedAt    time.Time                    `json:"createdAt"`
	CreatedBy    UserId                       `json:"createdBy"`
	ResolvedAt   *time.Time                   `json:"resolvedAt,omitempty"`
}

func (p *Poll) TotalVotes() int {
	total := 0
	for _, count := range p.Votes {
		total += count
	}
	return total
}

func (p *Poll) HasOption(option PollOption) bool {
	return slices.Contains(p.Options, option)
}

func (p *Poll) HasVoter(id UserId) bool {
	return slices.Contains(p.Voters, id)
}

func (p *Poll) IsResolved() bool {
	return p.Status == PollStatusResolved
}

// Progress is a monotonically non-decreasing measure of how many writes a poll has seen.
// Every committed update strictly increases it.
func (p *Poll) Progress() int64 {
	progress := int64(p.TotalVotes() + p.CommentCount)
	if p.IsResolved() {
		progress++
	}
	return progress
}

// Clone returns a deep copy, safe to hand out while the original keeps mutating.
func (p Poll) Clone() Poll {
	p.Options = slices.Clone(p.Options)
	p.Votes = maps.Clone(p.Votes)
	p.Voters = slices.Clone(p.Voters)
	if p.VoterDetails != nil {
		details := make(map[PollOption][]VoterRecord, len(p.VoterDetails))
		for option, records := range p.VoterDetails {
			details[option] = slices.Clone(records)
		}
		p.VoterDetails = details
	}
	if p.ResolvedAt != nil {
		resolvedAt := *p.ResolvedAt
		p.ResolvedAt = &resolvedAt
	}
	return p
}
