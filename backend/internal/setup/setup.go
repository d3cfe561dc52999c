package setup

import (
	"context"
	"fmt"
	"time"

	"github.com/voiceweave/voiceweave/backend/internal/feed"
	"github.com/voiceweave/voiceweave/backend/internal/handler"
	"github.com/voiceweave/voiceweave/backend/internal/markdown"
	"github.com/voiceweave/voiceweave/backend/internal/service"
	"github.com/voiceweave/voiceweave/backend/internal/storage/memory"
	"github.com/voiceweave/voiceweave/backend/internal/storage/pg"
	"github.com/voiceweave/voiceweave/backend/internal/utils"
	"github.com/voiceweave/voiceweave/backend/internal/utils/email"
	"github.com/voiceweave/voiceweave/shared/config"
	"github.com/voiceweave/voiceweave/shared/jwt"
	"github.com/voiceweave/voiceweave/shared/logger"
	mw "github.com/voiceweave/voiceweave/shared/middleware"
	"github.com/voiceweave/voiceweave/shared/middleware/ratelimiter"
)

// rate limiter buckets are dropped after this much inactivity
const limiterExpiration = time.Hour

// Store is everything the services need from a storage backend.
type Store interface {
	service.CommunityStorage
	service.PollStorage
	service.VoteStorage
	service.CommentStorage
	service.EngagementStorage
	service.RetentionStorage
	Ping(ctx context.Context) error
	Cleanup() error
}

// Dependencies holds every initialized component of the API server.
type Dependencies struct {
	Config         *config.Config
	Storage        Store
	PollFeed       *feed.PollFeed
	CommentFeed    *feed.CommentFeed
	Handler        *handler.Handler
	AuthMiddleware *mw.Auth
	VoteLimiter    *ratelimiter.UserRateLimiter
	CommentLimiter *ratelimiter.UserRateLimiter
	Notifier       *service.Notifier
	Retention      *service.RetentionSweeper
}

func newStore(ctx context.Context, cfg *config.Config, polls *feed.PollFeed, comments *feed.CommentFeed) (Store, error) {
	switch cfg.Public.Storage {
	case config.StorageMemory:
		logger.Log.Warn("using in-memory storage, data is lost on restart")
		return memory.New(polls, comments), nil
	case config.StoragePostgres:
		storage, err := pg.New(ctx, cfg, polls, comments)
		if err != nil {
			return nil, err
		}
		if err := storage.Migrate(ctx); err != nil {
			storage.Cleanup()
			return nil, err
		}
		return storage, nil
	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Public.Storage)
	}
}

func newMailer(cfg config.Email) service.Mailer {
	if cfg.SMTPServer == "" {
		logger.Log.Warn("smtp_server is not set, resolution emails will only be logged")
		return email.LogOnly{}
	}
	return email.New(&cfg)
}

// SetupDependencies wires storage, services and change feed subscribers.
func SetupDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	pollFeed := feed.NewPollFeed()
	commentFeed := feed.NewCommentFeed()

	storage, err := newStore(ctx, cfg, pollFeed, commentFeed)
	if err != nil {
		return nil, err
	}

	ids := utils.UUIDGenerator{}
	community := service.NewCommunity(storage, &utils.CommunityValidator{}, ids, utils.RandomJoinCodeGenerator{})
	poll := service.NewPoll(storage, &utils.PollValidator{}, ids, pollFeed)
	vote := service.NewVote(storage)
	comment := service.NewComment(storage, &utils.CommentValidator{}, ids, commentFeed)

	notifier := service.NewNotifier(storage, newMailer(cfg.Private.Email), markdown.New(),
		cfg.Public.Notifier.Concurrency, cfg.Public.Notifier.SiteName)
	if cfg.Public.ChangeHandlers {
		pollFeed.OnPollChange(notifier.OnPollChange)
		pollFeed.OnPollChange(service.NewEngagementTracker(storage).OnPollChange)
	} else {
		logger.Log.Info("change handlers disabled, another instance sends notifications and counts engagement")
	}

	retention := service.NewRetentionSweeper(storage, cfg.Public.Retention.MaxAge, cfg.Public.Retention.CascadeComments)

	limits := cfg.Public.RateLimits
	return &Dependencies{
		Config:         cfg,
		Storage:        storage,
		PollFeed:       pollFeed,
		CommentFeed:    commentFeed,
		Handler:        handler.New(community, poll, vote, comment, storage, cfg),
		AuthMiddleware: mw.NewAuth(jwt.New(cfg.JwtKey(), 0)),
		VoteLimiter:    ratelimiter.New(limits.VoteRate, limits.VoteBurst, limiterExpiration),
		CommentLimiter: ratelimiter.New(limits.CommentRate, limits.CommentBurst, limiterExpiration),
		Notifier:       notifier,
		Retention:      retention,
	}, nil
}

// Close releases resources in reverse order of creation. Pending feed handlers finish first.
func (d *Dependencies) Close() {
	d.VoteLimiter.Stop()
	d.CommentLimiter.Stop()
	d.PollFeed.Wait()
	if err := d.Storage.Cleanup(); err != nil {
		logger.Log.Error("failed to close storage", "error", err)
	}
}
