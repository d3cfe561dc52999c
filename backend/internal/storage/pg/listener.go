package pg

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/voiceweave/voiceweave/shared/domain"
	"github.com/voiceweave/voiceweave/shared/logger"

	"github.com/lib/pq"
)

const (
	pollChannel    = "poll_changes"
	commentChannel = "comment_changes"

	listenerMinReconnect = 10 * time.Second
	listenerMaxReconnect = time.Minute
	listenerPingInterval = 90 * time.Second
)

// pollState is the mutable part of a poll row as sent by the notify_poll_change trigger.
// Votes are counts in option order.
type pollState struct {
	Status       string     `json:"status"`
	Votes        []int      `json:"votes"`
	CommentCount int        `json:"comment_count"`
	ResolvedAt   *time.Time `json:"resolved_at"`
}

// apply returns stored with its mutable columns replaced by the notified state.
// Options never change after creation, so the counts line up with stored.Options.
// The voter ledger is left as read.
func (st pollState) apply(stored domain.Poll) domain.Poll {
	p := stored.Clone()
	p.Status = domain.PollStatus(st.Status)
	p.Votes = make(map[domain.PollOption]int, len(p.Options))
	for i, option := range p.Options {
		if i < len(st.Votes) {
			p.Votes[option] = st.Votes[i]
		} else {
			p.Votes[option] = 0
		}
	}
	p.CommentCount = st.CommentCount
	p.ResolvedAt = nil
	if st.ResolvedAt != nil {
		at := st.ResolvedAt.UTC()
		p.ResolvedAt = &at
	}
	return p
}

type pollChange struct {
	Id     domain.PollId `json:"id"`
	Before pollState     `json:"before"`
	After  pollState     `json:"after"`
}

func decodePollChange(payload string) (pollChange, error) {
	var change pollChange
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		return pollChange{}, fmt.Errorf("failed to decode poll change: %w", err)
	}
	if change.Id == "" {
		return pollChange{}, fmt.Errorf("poll change without id")
	}
	return change, nil
}

func (s *Storage) startListener(ctx context.Context) error {
	listener := pq.NewListener(s.connStr, listenerMinReconnect, listenerMaxReconnect,
		func(event pq.ListenerEventType, err error) {
			switch event {
			case pq.ListenerEventDisconnected:
				logger.Log.Warn("change feed listener disconnected",
					"component", "pg_listener",
					"error", err)
			case pq.ListenerEventReconnected:
				logger.Log.Info("change feed listener reconnected",
					"component", "pg_listener")
			case pq.ListenerEventConnectionAttemptFailed:
				logger.Log.Error("change feed listener connection attempt failed",
					"component", "pg_listener",
					"error", err)
			}
		})

	for _, channel := range []string{pollChannel, commentChannel} {
		if err := listener.Listen(channel); err != nil {
			listener.Close()
			return fmt.Errorf("failed to listen on %s: %w", channel, err)
		}
	}

	listenCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.stopListen = cancel
	s.listenDone = make(chan struct{})
	go s.relay(listenCtx, listener)

	logger.Log.Info("change feed listener started",
		"component", "pg_listener",
		"channels", []string{pollChannel, commentChannel})
	return nil
}

// relay forwards notifications in arrival order, which Postgres guarantees is commit order.
func (s *Storage) relay(ctx context.Context, listener *pq.Listener) {
	defer close(s.listenDone)
	defer listener.Close()

	ping := time.NewTicker(listenerPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-listener.Notify:
			if n == nil {
				// sent after a reconnect; notifications during the outage are lost
				logger.Log.Warn("change feed may have missed notifications",
					"component", "pg_listener")
				continue
			}
			s.dispatch(ctx, n)
		case <-ping.C:
			go func() {
				if err := listener.Ping(); err != nil {
					logger.Log.Warn("change feed listener ping failed",
						"component", "pg_listener",
						"error", err)
				}
			}()
		}
	}
}

func (s *Storage) dispatch(ctx context.Context, n *pq.Notification) {
	switch n.Channel {
	case pollChannel:
		change, err := decodePollChange(n.Extra)
		if err != nil {
			logger.Log.Error("dropping poll change",
				"component", "pg_listener",
				"error", err)
			return
		}
		if s.pollFeed == nil {
			return
		}
		current, err := s.GetPoll(ctx, change.Id)
		if err != nil {
			// swept by retention before the notification was handled
			logger.Log.Warn("dropping poll change",
				"component", "pg_listener",
				"poll_id", change.Id,
				"error", err)
			return
		}
		s.pollFeed.Publish(ctx, change.Before.apply(current), change.After.apply(current))
		if s.pollFeed.Watched(current.Id) {
			s.pollFeed.Snapshot(current)
		}
	case commentChannel:
		pollId := n.Extra
		if s.commentFeed == nil || !s.commentFeed.Watched(pollId) {
			return
		}
		comments, err := s.CommentsByPoll(ctx, pollId)
		if err != nil {
			logger.Log.Error("failed to load comment snapshot",
				"component", "pg_listener",
				"poll_id", pollId,
				"error", err)
			return
		}
		s.commentFeed.Snapshot(pollId, comments)
	}
}
