package service

import (
	"context"
	"strings"
	"time"

	"github.com/voiceweave/voiceweave/shared/domain"
)

type CommentService interface {
	Add(ctx context.Context, data domain.CommentCreationData) (domain.Comment, error)
	List(ctx context.Context, pollId domain.PollId) ([]domain.Comment, error)
	Subscribe(ctx context.Context, pollId domain.PollId, fn func([]domain.Comment)) (cancel func(), err error)
}

type Comment struct {
	storage   CommentStorage
	validator CommentValidator
	ids       IDGenerator
	live      CommentSubscriber
	now       func() time.Time
}

type CommentStorage interface {
	GetPoll(ctx context.Context, id domain.PollId) (domain.Poll, error)
	// CreateComment stores the comment and increments the poll's comment count atomically.
	CreateComment(ctx context.Context, comment domain.Comment) error
	// CommentsByPoll returns comments newest first.
	CommentsByPoll(ctx context.Context, pollId domain.PollId) ([]domain.Comment, error)
}

type CommentValidator interface {
	Text(text string) error
}

type CommentSubscriber interface {
	SubscribeComments(pollId domain.PollId, fn func([]domain.Comment)) (seed func([]domain.Comment), cancel func())
}

func NewComment(storage CommentStorage, validator CommentValidator, ids IDGenerator, live CommentSubscriber) *Comment {
	return &Comment{storage: storage, validator: validator, ids: ids, live: live, now: time.Now}
}

func (c *Comment) Add(ctx context.Context, data domain.CommentCreationData) (domain.Comment, error) {
	text := strings.TrimSpace(data.Text)
	if err := c.validator.Text(text); err != nil {
		return domain.Comment{}, err
	}
	if _, err := c.storage.GetPoll(ctx, data.PollId); err != nil {
		return domain.Comment{}, err
	}

	comment := domain.Comment{
		Id:        c.ids.NewID(),
		PollId:    data.PollId,
		Content:   text,
		Disclosed: data.Disclose,
		CreatedAt: c.now().UTC(),
	}
	if data.Disclose {
		comment.AuthorId = data.Author.Id
	}

	if err := c.storage.CreateComment(ctx, comment); err != nil {
		return domain.Comment{}, err
	}
	return comment, nil
}

func (c *Comment) List(ctx context.Context, pollId domain.PollId) ([]domain.Comment, error) {
	if _, err := c.storage.GetPoll(ctx, pollId); err != nil {
		return nil, err
	}
	return c.storage.CommentsByPoll(ctx, pollId)
}

// Subscribe calls fn with the current comment list and then after every new comment until cancel is called.
func (c *Comment) Subscribe(ctx context.Context, pollId domain.PollId, fn func([]domain.Comment)) (func(), error) {
	seed, cancel := c.live.SubscribeComments(pollId, fn)
	comments, err := c.List(ctx, pollId)
	if err != nil {
		cancel()
		return nil, err
	}
	seed(comments)
	return cancel, nil
}
