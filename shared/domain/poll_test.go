package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoll_Clone(t *testing.T) {
	original := Poll{
		Options:      []PollOption{"a", "b"},
		Votes:        map[PollOption]int{"a": 1, "b": 0},
		Voters:       []UserId{"u1"},
		VoterDetails: map[PollOption][]VoterRecord{"a": {{VoterId: "u1"}}, "b": {}},
	}

	clone := original.Clone()
	clone.Votes["a"] = 5
	clone.Voters = append(clone.Voters, "u2")
	clone.VoterDetails["a"][0].VoterId = "changed"

	assert.Equal(t, 1, original.Votes["a"])
	assert.Equal(t, []UserId{"u1"}, original.Voters)
	assert.Equal(t, "u1", original.VoterDetails["a"][0].VoterId)
}

func TestPoll_Progress(t *testing.T) {
	p := Poll{Votes: map[PollOption]int{"yes": 2, "no": 1}, Status: PollStatusActive}
	assert.EqualValues(t, 3, p.Progress())

	p.CommentCount = 2
	assert.EqualValues(t, 5, p.Progress())

	p.Status = PollStatusResolved
	assert.EqualValues(t, 6, p.Progress())
}

func TestUser_VisibleName(t *testing.T) {
	assert.Equal(t, "Ann", User{Id: "1", DisplayName: "Ann", Email: "ann@x.io"}.VisibleName())
	assert.Equal(t, "ann@x.io", User{Id: "1", Email: "ann@x.io"}.VisibleName())
	assert.Equal(t, AnonymousDisplayName, User{Id: "1"}.VisibleName())
}
