package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/voiceweave/voiceweave/shared/api"
	"github.com/voiceweave/voiceweave/shared/domain"
	"github.com/voiceweave/voiceweave/shared/logger"
	"github.com/voiceweave/voiceweave/shared/middleware/metrics"
	"github.com/voiceweave/voiceweave/shared/utils"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 10 * time.Second
	pongWait     = 3 * pingInterval
	maxInbound   = 512
)

// latest is a one-slot mailbox that keeps only the newest value.
// put must not be called concurrently, which holds for feed callbacks of one subscription.
type latest[T any] chan T

func (l latest[T]) put(v T) {
	select {
	case <-l:
	default:
	}
	l <- v
}

// PollLive streams poll snapshots over a websocket, the current state first.
func (h *Handler) PollLive(w http.ResponseWriter, r *http.Request) {
	updates := make(latest[domain.Poll], 1)
	cancel, err := h.poll.Subscribe(r.Context(), chi.URLParam(r, "pollId"), updates.put)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	defer cancel()

	serveLive(h, w, r, "poll", updates, func(p domain.Poll) any { return pollResponse(p) })
}

// CommentsLive streams the full comment list of a poll, newest first, after every new comment.
func (h *Handler) CommentsLive(w http.ResponseWriter, r *http.Request) {
	updates := make(latest[[]domain.Comment], 1)
	cancel, err := h.comment.Subscribe(r.Context(), chi.URLParam(r, "pollId"), updates.put)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	defer cancel()

	serveLive(h, w, r, "comments", updates, func(c []domain.Comment) any { return api.NewCommentListResponse(c) })
}

func serveLive[T any](h *Handler, w http.ResponseWriter, r *http.Request, view string, updates latest[T], render func(T) any) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied
		logger.Log.Debug("websocket upgrade failed", "view", view, "error", err)
		return
	}
	defer conn.Close()

	gauge := metrics.LiveSubscribers.WithLabelValues(view)
	gauge.Inc()
	defer gauge.Dec()

	// clients only send control frames; the read loop exists to process pongs and notice close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(maxInbound)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case v := <-updates:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(render(v)); err != nil {
				logger.Log.Debug("live view write failed", "view", view, "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
