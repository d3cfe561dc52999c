package service

import (
	"context"
	"fmt"
	"time"

	"github.com/voiceweave/voiceweave/shared/domain"
	"github.com/voiceweave/voiceweave/shared/errors"
	"github.com/voiceweave/voiceweave/shared/logger"
	"github.com/voiceweave/voiceweave/shared/middleware/metrics"
)

type VoteService interface {
	Submit(ctx context.Context, vote domain.VoteSubmission) error
}

type Vote struct {
	storage VoteStorage
	now     func() time.Time
}

type VoteStorage interface {
	GetPoll(ctx context.Context, id domain.PollId) (domain.Poll, error)
	// RecordVote increments votes[option] by one, conditional on the poll being active.
	// With a non-nil record it also, in the same atomic step, rejects voters already in the
	// ledger, adds the voter to the ledger and appends the record to the option's voter list.
	// Returns the poll as committed.
	// Fails with CodeAlreadyResolved or CodeDuplicateVote conflicts when the condition does not hold.
	RecordVote(ctx context.Context, pollId domain.PollId, option domain.PollOption, record *domain.VoterRecord) (domain.Poll, error)
	// ResolvePoll moves an active poll to resolved. Reports false if it was already resolved.
	ResolvePoll(ctx context.Context, pollId domain.PollId, at time.Time) (bool, error)
}

func NewVote(storage VoteStorage) *Vote {
	return &Vote{storage: storage, now: time.Now}
}

func (v *Vote) Submit(ctx context.Context, vote domain.VoteSubmission) error {
	poll, err := v.storage.GetPoll(ctx, vote.PollId)
	if err != nil {
		return err
	}
	if !poll.HasOption(vote.Option) {
		return errors.InvalidOption(fmt.Sprintf("%q is not an option of this poll", vote.Option))
	}
	if poll.IsResolved() {
		return errAlreadyResolved()
	}
	if poll.TotalVotes() >= poll.VoteGoal {
		// an earlier submitter reached the goal but its transition did not commit
		if err := v.resolve(ctx, poll); err != nil {
			return err
		}
		return errAlreadyResolved()
	}

	// anonymous polls keep no ledger, so the same voter may vote again
	var record *domain.VoterRecord
	if !poll.Anonymous {
		if poll.HasVoter(vote.Voter.Id) {
			return errDuplicateVote()
		}
		record = &domain.VoterRecord{
			VoterId:     vote.Voter.Id,
			DisplayName: domain.AnonymousDisplayName,
			VotedAt:     v.now().UTC(),
		}
		if vote.Disclose {
			record.DisplayName = vote.Voter.VisibleName()
			record.Email = vote.Voter.Email
		}
	}

	committed, err := v.storage.RecordVote(ctx, vote.PollId, vote.Option, record)
	if err != nil {
		return err
	}
	metrics.VotesTotal.WithLabelValues(string(committed.Type)).Inc()

	if committed.IsResolved() || committed.TotalVotes() < committed.VoteGoal {
		return nil
	}
	return v.resolve(ctx, committed)
}

// resolve performs the active -> resolved compare-and-set. Losing the race is not an error.
func (v *Vote) resolve(ctx context.Context, poll domain.Poll) error {
	resolved, err := v.storage.ResolvePoll(ctx, poll.Id, v.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to resolve poll %s: %w", poll.Id, err)
	}
	if resolved {
		metrics.PollsResolved.Inc()
		logger.Log.Info("poll resolved",
			"component", "vote",
			"poll_id", poll.Id,
			"total_votes", poll.TotalVotes(),
			"vote_goal", poll.VoteGoal)
	}
	return nil
}

func errAlreadyResolved() error {
	return errors.Conflict(errors.CodeAlreadyResolved, "This poll is already resolved")
}

func errDuplicateVote() error {
	return errors.Conflict(errors.CodeDuplicateVote, "You have already voted on this poll")
}
