package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/voiceweave/voiceweave/shared/domain"
	internal_errors "github.com/voiceweave/voiceweave/shared/errors"

	"github.com/lib/pq"
)

const pollColumns = `id, community_id, question, type, options, anonymous, vote_goal, votes,
	voters, voter_details, status, comment_count, created_at, created_by, resolved_at`

func scanPoll(row rowScanner) (domain.Poll, error) {
	var p domain.Poll
	var votes, details []byte
	var resolvedAt sql.NullTime
	err := row.Scan(
		&p.Id, &p.CommunityId, &p.Question, &p.Type, pq.Array(&p.Options), &p.Anonymous, &p.VoteGoal, &votes,
		pq.Array(&p.Voters), &details, &p.Status, &p.CommentCount, &p.CreatedAt, &p.CreatedBy, &resolvedAt,
	)
	if err != nil {
		return domain.Poll{}, err
	}
	if err := json.Unmarshal(votes, &p.Votes); err != nil {
		return domain.Poll{}, fmt.Errorf("failed to decode votes of poll %s: %w", p.Id, err)
	}
	if err := json.Unmarshal(details, &p.VoterDetails); err != nil {
		return domain.Poll{}, fmt.Errorf("failed to decode voter details of poll %s: %w", p.Id, err)
	}
	if p.Voters == nil {
		p.Voters = []domain.UserId{}
	}
	p.CreatedAt = p.CreatedAt.UTC()
	if resolvedAt.Valid {
		at := resolvedAt.Time.UTC()
		p.ResolvedAt = &at
	}
	return p, nil
}

func pollNotFound() error {
	return internal_errors.NotFound("Poll not found")
}

// CreatePoll inserts the poll and bumps the community's poll count in one transaction.
func (s *Storage) CreatePoll(ctx context.Context, p domain.Poll) error {
	votes, err := json.Marshal(p.Votes)
	if err != nil {
		return fmt.Errorf("failed to encode votes: %w", err)
	}
	details, err := json.Marshal(p.VoterDetails)
	if err != nil {
		return fmt.Errorf("failed to encode voter details: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError("begin transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE communities SET poll_count = poll_count + 1 WHERE id = $1`, p.CommunityId)
	if err != nil {
		return storeError("update poll count", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return storeError("update poll count", err)
	} else if n == 0 {
		return communityNotFound()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO polls (id, community_id, question, type, options, anonymous, vote_goal, votes,
			voters, voter_details, status, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, p.Id, p.CommunityId, p.Question, p.Type, pq.Array(p.Options), p.Anonymous, p.VoteGoal, votes,
		pq.Array(p.Voters), details, p.Status, p.CreatedAt, p.CreatedBy)
	if err != nil {
		if isUniqueViolation(err, "") {
			return internal_errors.Conflict("", "poll already exists")
		}
		return storeError("insert poll", err)
	}

	if err := tx.Commit(); err != nil {
		return storeError("commit transaction", err)
	}
	return nil
}

func (s *Storage) GetPoll(ctx context.Context, id domain.PollId) (domain.Poll, error) {
	p, err := scanPoll(s.db.QueryRowContext(ctx, `SELECT `+pollColumns+` FROM polls WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Poll{}, pollNotFound()
		}
		return domain.Poll{}, storeError("get poll", err)
	}
	return p, nil
}

func (s *Storage) queryPolls(ctx context.Context, op, query string, args ...any) ([]domain.Poll, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError(op, err)
	}
	defer rows.Close()

	result := []domain.Poll{}
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			return nil, storeError(op, err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(op, err)
	}
	return result, nil
}

func (s *Storage) PollsByCommunity(ctx context.Context, communityId domain.CommunityId) ([]domain.Poll, error) {
	return s.queryPolls(ctx, "list community polls", `
		SELECT `+pollColumns+`
		FROM polls
		WHERE community_id = $1
		ORDER BY created_at DESC
	`, communityId)
}

func (s *Storage) ActivePolls(ctx context.Context, communityIds []domain.CommunityId, limit int) ([]domain.Poll, error) {
	return s.queryPolls(ctx, "list active polls", `
		SELECT `+pollColumns+`
		FROM polls
		WHERE status = 'active' AND community_id = ANY($1)
		ORDER BY created_at DESC
		LIMIT $2
	`, pq.Array(communityIds), limit)
}

// RecordVote is one conditional UPDATE. The WHERE clause carries every precondition
// (active, known option, voter not yet in the ledger) so concurrent votes serialize on the
// row lock and none is lost. When no row matches, the poll is re-read to report why.
func (s *Storage) RecordVote(ctx context.Context, pollId domain.PollId, option domain.PollOption, record *domain.VoterRecord) (domain.Poll, error) {
	var row *sql.Row
	if record == nil {
		row = s.db.QueryRowContext(ctx, `
			UPDATE polls
			SET votes = jsonb_set(votes, ARRAY[$2::text], to_jsonb(COALESCE((votes->>$2::text)::int, 0) + 1))
			WHERE id = $1 AND status = 'active' AND $2::text = ANY(options)
			RETURNING `+pollColumns, pollId, option)
	} else {
		entry, err := json.Marshal(record)
		if err != nil {
			return domain.Poll{}, fmt.Errorf("failed to encode voter record: %w", err)
		}
		row = s.db.QueryRowContext(ctx, `
			UPDATE polls
			SET votes = jsonb_set(votes, ARRAY[$2::text], to_jsonb(COALESCE((votes->>$2::text)::int, 0) + 1)),
				voters = array_append(voters, $3::text),
				voter_details = jsonb_set(voter_details, ARRAY[$2::text],
					COALESCE(voter_details->$2::text, '[]'::jsonb) || jsonb_build_array($4::jsonb))
			WHERE id = $1 AND status = 'active' AND $2::text = ANY(options) AND NOT ($3::text = ANY(voters))
			RETURNING `+pollColumns, pollId, option, record.VoterId, string(entry))
	}

	p, err := scanPoll(row)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Poll{}, storeError("record vote", err)
	}

	current, err := s.GetPoll(ctx, pollId)
	if err != nil {
		return domain.Poll{}, err
	}
	switch {
	case current.IsResolved():
		return domain.Poll{}, internal_errors.Conflict(internal_errors.CodeAlreadyResolved, "This poll is already resolved")
	case !current.HasOption(option):
		return domain.Poll{}, internal_errors.InvalidOption("Unknown option")
	case record != nil && current.HasVoter(record.VoterId):
		return domain.Poll{}, internal_errors.Conflict(internal_errors.CodeDuplicateVote, "You have already voted on this poll")
	}
	return domain.Poll{}, fmt.Errorf("vote on poll %s was not recorded", pollId)
}

func (s *Storage) ResolvePoll(ctx context.Context, pollId domain.PollId, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE polls SET status = 'resolved', resolved_at = $2
		WHERE id = $1 AND status = 'active'
	`, pollId, at)
	if err != nil {
		return false, storeError("resolve poll", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeError("resolve poll", err)
	}
	if n == 1 {
		return true, nil
	}
	if _, err := s.GetPoll(ctx, pollId); err != nil {
		return false, err
	}
	return false, nil
}

// DeleteResolvedPollsBefore removes the matching polls, and optionally their comments, in one transaction.
func (s *Storage) DeleteResolvedPollsBefore(ctx context.Context, cutoff time.Time, cascadeComments bool) ([]domain.PollId, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, storeError("begin transaction", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		DELETE FROM polls
		WHERE status = 'resolved' AND created_at < $1
		RETURNING id
	`, cutoff)
	if err != nil {
		return nil, 0, storeError("delete resolved polls", err)
	}
	ids := []domain.PollId{}
	for rows.Next() {
		var id domain.PollId
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, 0, storeError("scan deleted poll", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, storeError("iterate deleted polls", err)
	}

	comments := 0
	if cascadeComments && len(ids) > 0 {
		res, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE poll_id = ANY($1)`, pq.Array(ids))
		if err != nil {
			return nil, 0, storeError("delete comments of swept polls", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, 0, storeError("delete comments of swept polls", err)
		}
		comments = int(n)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, storeError("commit transaction", err)
	}
	return ids, comments, nil
}
