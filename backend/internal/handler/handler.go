package handler

import (
	"context"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/voiceweave/voiceweave/backend/internal/service"
	"github.com/voiceweave/voiceweave/shared/config"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	community service.CommunityService
	poll      service.PollService
	vote      service.VoteService
	comment   service.CommentService
	health    HealthChecker
	cfg       *config.Config
	upgrader  websocket.Upgrader
}

func New(community service.CommunityService, poll service.PollService, vote service.VoteService, comment service.CommentService, health HealthChecker, cfg *config.Config) *Handler {
	h := &Handler{
		community: community,
		poll:      poll,
		vote:      vote,
		comment:   comment,
		health:    health,
		cfg:       cfg,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin accepts non-browser clients and origins listed in allowed_origins.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	allowed := h.cfg.Public.AllowedOrigins
	return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
}
