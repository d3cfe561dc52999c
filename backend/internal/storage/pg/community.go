package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/voiceweave/voiceweave/shared/domain"
	internal_errors "github.com/voiceweave/voiceweave/shared/errors"

	"github.com/lib/pq"
)

const communityColumns = `id, title, description, join_code, members, admins, authority_emails,
	poll_count, total_votes, last_activity, created_by, created_at`

func scanCommunity(row rowScanner) (domain.Community, error) {
	var c domain.Community
	var lastActivity sql.NullTime
	err := row.Scan(
		&c.Id, &c.Title, &c.Description, &c.JoinCode,
		pq.Array(&c.Members), pq.Array(&c.Admins), pq.Array(&c.AuthorityEmails),
		&c.PollCount, &c.TotalVotes, &lastActivity, &c.CreatedBy, &c.CreatedAt,
	)
	if err != nil {
		return domain.Community{}, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	if lastActivity.Valid {
		at := lastActivity.Time.UTC()
		c.LastActivity = &at
	}
	if c.AuthorityEmails == nil {
		c.AuthorityEmails = []domain.Email{}
	}
	return c, nil
}

func communityNotFound() error {
	return internal_errors.NotFound("Community not found")
}

func (s *Storage) CreateCommunity(ctx context.Context, c domain.Community) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO communities (id, title, description, join_code, members, admins, authority_emails, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, c.Id, c.Title, c.Description, c.JoinCode,
		pq.Array(c.Members), pq.Array(c.Admins), pq.Array(c.AuthorityEmails),
		c.CreatedBy, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "communities_join_code_key") {
			return internal_errors.Conflict(internal_errors.CodeJoinCodeTaken, "join code already in use")
		}
		if isUniqueViolation(err, "") {
			return internal_errors.Conflict("", "community already exists")
		}
		return storeError("insert community", err)
	}
	return nil
}

func (s *Storage) GetCommunity(ctx context.Context, id domain.CommunityId) (domain.Community, error) {
	c, err := scanCommunity(s.db.QueryRowContext(ctx,
		`SELECT `+communityColumns+` FROM communities WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Community{}, communityNotFound()
		}
		return domain.Community{}, storeError("get community", err)
	}
	return c, nil
}

func (s *Storage) GetCommunityByJoinCode(ctx context.Context, code domain.JoinCode) (domain.Community, error) {
	c, err := scanCommunity(s.db.QueryRowContext(ctx,
		`SELECT `+communityColumns+` FROM communities WHERE join_code = $1`, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Community{}, internal_errors.NotFound("No community matches this join code")
		}
		return domain.Community{}, storeError("get community by join code", err)
	}
	return c, nil
}

// AddMember is a single conditional update: the member and authority arrays only grow when
// the user is not already present.
func (s *Storage) AddMember(ctx context.Context, id domain.CommunityId, user domain.User) (domain.Community, error) {
	c, err := scanCommunity(s.db.QueryRowContext(ctx, `
		UPDATE communities
		SET members = array_append(members, $2::text),
			authority_emails = CASE
				WHEN $3::text <> '' AND NOT ($3::text = ANY(authority_emails))
				THEN array_append(authority_emails, $3::text)
				ELSE authority_emails
			END
		WHERE id = $1 AND NOT ($2::text = ANY(members))
		RETURNING `+communityColumns, id, user.Id, user.Email))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Community{}, storeError("add member", err)
	}

	// nothing updated: either the community is missing or the user already belongs to it
	if _, err := s.GetCommunity(ctx, id); err != nil {
		return domain.Community{}, err
	}
	return domain.Community{}, internal_errors.Conflict(internal_errors.CodeAlreadyMember, "You are already a member of this community")
}

func (s *Storage) CommunitiesForUser(ctx context.Context, userId domain.UserId) ([]domain.Community, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+communityColumns+`
		FROM communities
		WHERE $1::text = ANY(members)
		ORDER BY created_at DESC
	`, userId)
	if err != nil {
		return nil, storeError("list communities", err)
	}
	defer rows.Close()

	result := []domain.Community{}
	for rows.Next() {
		c, err := scanCommunity(rows)
		if err != nil {
			return nil, storeError("scan community", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate communities", err)
	}
	return result, nil
}

func (s *Storage) RecordCommunityActivity(ctx context.Context, id domain.CommunityId, votes int, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE communities
		SET total_votes = total_votes + $2,
			last_activity = GREATEST(COALESCE(last_activity, $3), $3)
		WHERE id = $1
	`, id, votes, at)
	if err != nil {
		return storeError("record community activity", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return communityNotFound()
	}
	return nil
}
