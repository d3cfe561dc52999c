package feed

import (
	"context"
	"sync"

	"github.com/voiceweave/voiceweave/shared/domain"
	"github.com/voiceweave/voiceweave/shared/logger"
)

// PollChangeHandler is invoked once per committed poll update with the record before and after it.
type PollChangeHandler func(ctx context.Context, before, after domain.Poll)

// PollFeed is the poll change feed. Stores call Publish after every committed update and
// Snapshot with the full current record for live views.
type PollFeed struct {
	mu       sync.RWMutex
	handlers []PollChangeHandler
	live     *Hub[domain.Poll]
	inflight sync.WaitGroup
}

func NewPollFeed() *PollFeed {
	return &PollFeed{
		live: NewHub(func(p domain.Poll) int64 { return p.Progress() }),
	}
}

// OnPollChange registers a change handler.
func (f *PollFeed) OnPollChange(handler PollChangeHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, handler)
}

// Publish runs every handler asynchronously; the caller's cancellation does not reach them.
func (f *PollFeed) Publish(ctx context.Context, before, after domain.Poll) {
	f.mu.RLock()
	handlers := make([]PollChangeHandler, len(f.handlers))
	copy(handlers, f.handlers)
	f.mu.RUnlock()

	detached := context.WithoutCancel(ctx)
	for _, h := range handlers {
		h := h
		f.inflight.Add(1)
		go func() {
			defer f.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.Log.Error("poll change handler panicked",
						"component", "feed",
						"poll_id", after.Id,
						"panic", r)
				}
			}()
			h(detached, before, after)
		}()
	}
}

// Snapshot pushes the full current poll to its live subscribers.
func (f *PollFeed) Snapshot(poll domain.Poll) {
	f.live.Publish(poll.Id, poll)
}

// Subscribe registers fn for snapshots of one poll.
func (f *PollFeed) Subscribe(pollId domain.PollId, fn func(domain.Poll)) *Subscription[domain.Poll] {
	return f.live.Subscribe(pollId, fn)
}

// SubscribePoll is Subscribe split into a seed function for the initial snapshot and a cancel function.
func (f *PollFeed) SubscribePoll(pollId domain.PollId, fn func(domain.Poll)) (func(domain.Poll), func()) {
	sub := f.Subscribe(pollId, fn)
	return sub.Deliver, sub.Cancel
}

// Watched reports whether the poll has live subscribers.
func (f *PollFeed) Watched(pollId domain.PollId) bool {
	return f.live.Subscribers(pollId) > 0
}

// Wait blocks until every handler started so far has returned.
func (f *PollFeed) Wait() {
	f.inflight.Wait()
}

// CommentFeed carries full comment lists (newest first) of a poll to live subscribers.
type CommentFeed struct {
	live *Hub[[]domain.Comment]
}

func NewCommentFeed() *CommentFeed {
	return &CommentFeed{
		live: NewHub(func(c []domain.Comment) int64 { return int64(len(c)) }),
	}
}

func (f *CommentFeed) Snapshot(pollId domain.PollId, comments []domain.Comment) {
	f.live.Publish(pollId, comments)
}

func (f *CommentFeed) Subscribe(pollId domain.PollId, fn func([]domain.Comment)) *Subscription[[]domain.Comment] {
	return f.live.Subscribe(pollId, fn)
}

func (f *CommentFeed) SubscribeComments(pollId domain.PollId, fn func([]domain.Comment)) (func([]domain.Comment), func()) {
	sub := f.Subscribe(pollId, fn)
	return sub.Deliver, sub.Cancel
}

func (f *CommentFeed) Watched(pollId domain.PollId) bool {
	return f.live.Subscribers(pollId) > 0
}
