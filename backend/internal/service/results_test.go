package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/voiceweave/voiceweave/shared/domain"
)

func TestComputeResults(t *testing.T) {
	tests := []struct {
		name    string
		options []string
		votes   map[string]int
		ranking []string
		winner  float64
		tier    ConsensusTier
	}{
		{
			name:    "moderate",
			options: []string{"A", "B", "C"},
			votes:   map[string]int{"A": 5, "B": 3, "C": 2},
			ranking: []string{"A", "B", "C"},
			winner:  50.0,
			tier:    TierModerate,
		},
		{
			name:    "strong petition",
			options: []string{domain.PetitionYes, domain.PetitionNo},
			votes:   map[string]int{domain.PetitionYes: 7, domain.PetitionNo: 3},
			ranking: []string{domain.PetitionYes, domain.PetitionNo},
			winner:  70.0,
			tier:    TierStrong,
		},
		{
			name:    "mixed",
			options: []string{"A", "B", "C"},
			votes:   map[string]int{"A": 1, "B": 1, "C": 1},
			ranking: []string{"A", "B", "C"},
			winner:  33.3,
			tier:    TierMixed,
		},
		{
			name:    "ties keep option order",
			options: []string{"A", "B", "C", "D"},
			votes:   map[string]int{"A": 1, "B": 4, "C": 1, "D": 4},
			ranking: []string{"B", "D", "A", "C"},
			winner:  40.0,
			tier:    TierMixed,
		},
		{
			name:    "boundary is inclusive",
			options: []string{"A", "B"},
			votes:   map[string]int{"A": 3, "B": 2},
			ranking: []string{"A", "B"},
			winner:  60.0,
			tier:    TierStrong,
		},
		{
			name:    "no votes",
			options: []string{"A", "B"},
			votes:   map[string]int{},
			ranking: []string{"A", "B"},
			winner:  0,
			tier:    TierMixed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := ComputeResults(domain.Poll{Options: tt.options, Votes: tt.votes})

			ranking := make([]string, 0, len(results.Ranked))
			for _, r := range results.Ranked {
				ranking = append(ranking, r.Option)
			}
			assert.Equal(t, tt.ranking, ranking)
			assert.Equal(t, tt.winner, results.Winner.Percentage)
			assert.Equal(t, tt.tier, results.Tier)
		})
	}
}
