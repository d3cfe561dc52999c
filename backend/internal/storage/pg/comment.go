package pg

import (
	"context"
	"database/sql"

	"github.com/voiceweave/voiceweave/shared/domain"
)

// CreateComment inserts the comment and bumps the poll's comment count in one transaction.
func (s *Storage) CreateComment(ctx context.Context, c domain.Comment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError("begin transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE polls SET comment_count = comment_count + 1 WHERE id = $1`, c.PollId)
	if err != nil {
		return storeError("update comment count", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return storeError("update comment count", err)
	} else if n == 0 {
		return pollNotFound()
	}

	author := sql.NullString{String: c.AuthorId, Valid: c.AuthorId != ""}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO comments (id, poll_id, content, disclosed, author_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.Id, c.PollId, c.Content, c.Disclosed, author, c.CreatedAt)
	if err != nil {
		return storeError("insert comment", err)
	}

	if err := tx.Commit(); err != nil {
		return storeError("commit transaction", err)
	}
	return nil
}

func (s *Storage) CommentsByPoll(ctx context.Context, pollId domain.PollId) ([]domain.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, poll_id, content, disclosed, author_id, created_at
		FROM comments
		WHERE poll_id = $1
		ORDER BY seq DESC
	`, pollId)
	if err != nil {
		return nil, storeError("list comments", err)
	}
	defer rows.Close()

	result := []domain.Comment{}
	for rows.Next() {
		var c domain.Comment
		var author sql.NullString
		if err := rows.Scan(&c.Id, &c.PollId, &c.Content, &c.Disclosed, &author, &c.CreatedAt); err != nil {
			return nil, storeError("scan comment", err)
		}
		c.AuthorId = author.String
		c.CreatedAt = c.CreatedAt.UTC()
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate comments", err)
	}
	return result, nil
}
