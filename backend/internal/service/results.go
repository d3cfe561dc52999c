package service

import (
	"math"
	"sort"

	"github.com/voiceweave/voiceweave/shared/domain"
)

type ConsensusTier string

const (
	TierStrong   ConsensusTier = "Strong"
	TierModerate ConsensusTier = "Moderate"
	TierMixed    ConsensusTier = "Mixed"
)

type OptionResult struct {
	Option     domain.PollOption
	Count      int
	Percentage float64 // rounded to one decimal
}

type PollResults struct {
	TotalVotes int
	Ranked     []OptionResult // descending by count, ties in option order
	Winner     OptionResult
	Tier       ConsensusTier
}

// ComputeResults ranks a poll's options and derives the consensus tier from the winner's share.
func ComputeResults(poll domain.Poll) PollResults {
	total := poll.TotalVotes()
	ranked := make([]OptionResult, 0, len(poll.Options))
	for _, option := range poll.Options {
		count := poll.Votes[option]
		percentage := 0.0
		if total > 0 {
			percentage = roundOneDecimal(float64(count) / float64(total) * 100)
		}
		ranked = append(ranked, OptionResult{Option: option, Count: count, Percentage: percentage})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})

	results := PollResults{TotalVotes: total, Ranked: ranked, Tier: TierMixed}
	if len(ranked) > 0 {
		results.Winner = ranked[0]
		results.Tier = tierFor(ranked[0].Percentage)
	}
	return results
}

func tierFor(percentage float64) ConsensusTier {
	switch {
	case percentage >= 60:
		return TierStrong
	case percentage >= 50:
		return TierModerate
	default:
		return TierMixed
	}
}

func roundOneDecimal(x float64) float64 {
	return math.Round(x*10) / 10
}
