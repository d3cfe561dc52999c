package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voiceweave/voiceweave/backend/internal/setup"
	"github.com/voiceweave/voiceweave/shared/csrf"
	mw "github.com/voiceweave/voiceweave/shared/middleware"
	"github.com/voiceweave/voiceweave/shared/middleware/metrics"
)

// New builds the API router.
// Limiters attached with Use are shared by every route of that group.
func New(deps *setup.Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Public.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", csrf.HeaderName},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.SecurityHeaders(deps.Config.Public.HTTPS, mw.APIContentSecurityPolicy))

	h := deps.Handler

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.CSRF(deps.Config.Public.HTTPS))
		r.Use(deps.AuthMiddleware.NeedAuth())

		r.Route("/communities", func(r chi.Router) {
			r.Get("/", h.ListCommunities)
			r.Post("/", h.CreateCommunity)
			r.Post("/join", h.JoinCommunity)
			r.Get("/{communityId}", h.GetCommunity)
			r.Get("/{communityId}/polls", h.ListCommunityPolls)
			r.Post("/{communityId}/polls", h.CreatePoll)
		})

		r.Route("/polls", func(r chi.Router) {
			r.Get("/trending", h.TrendingPolls)
			r.Get("/{pollId}", h.GetPoll)
			r.Get("/{pollId}/voted", h.HasVoted)
			r.Get("/{pollId}/comments", h.ListComments)
			r.Get("/{pollId}/live", h.PollLive)
			r.Get("/{pollId}/comments/live", h.CommentsLive)

			r.With(mw.RateLimit(deps.VoteLimiter, mw.GetUserIDFromContext)).
				Post("/{pollId}/votes", h.SubmitVote)
			r.With(mw.RateLimit(deps.CommentLimiter, mw.GetUserIDFromContext)).
				Post("/{pollId}/comments", h.AddComment)
		})
	})

	return r
}
