package pg

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/voiceweave/voiceweave/backend/internal/feed"
	"github.com/voiceweave/voiceweave/shared/config"
	internal_errors "github.com/voiceweave/voiceweave/shared/errors"
	"github.com/voiceweave/voiceweave/shared/logger"

	"github.com/lib/pq"
)

type Storage struct {
	db      *sql.DB
	connStr string

	pollFeed    *feed.PollFeed
	commentFeed *feed.CommentFeed
	stopListen  context.CancelFunc
	listenDone  chan struct{}
}

// New connects to Postgres and, when feeds are given, starts relaying the database change
// notifications into them until Cleanup.
func New(ctx context.Context, cfg *config.Config, polls *feed.PollFeed, comments *feed.CommentFeed) (*Storage, error) {
	logger.Log.Info("connecting to database",
		"component", "pg",
		"host", cfg.Private.Pg.Host,
		"dbname", cfg.Private.Pg.Dbname)
	connStr := ConnString(cfg.Private.Pg)
	db, err := Connect(ctx, connStr)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("connected to database", "component", "pg")

	storage := &Storage{db: db, connStr: connStr, pollFeed: polls, commentFeed: comments}
	if polls != nil || comments != nil {
		if err := storage.startListener(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	return storage, nil
}

func ConnString(pg config.Pg) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		pg.Host, pg.Port, pg.User, pg.Password, pg.Dbname)
}

func Connect(ctx context.Context, connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return storeError("ping database", s.db.PingContext(ctx))
}

func (s *Storage) Cleanup() error {
	if s.stopListen != nil {
		s.stopListen()
		<-s.listenDone
	}
	return s.db.Close()
}

// storeError wraps a driver error. Connectivity and availability failures become Transient
// so callers know a retry is safe.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isTransient(err) {
		logger.Log.Warn("transient storage failure",
			"component", "pg",
			"op", op,
			"error", err)
		return internal_errors.Transient(fmt.Sprintf("Storage temporarily unavailable (%s)", op))
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53", "57": // connection exception, insufficient resources, operator intervention
			return true
		}
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

type rowScanner interface {
	Scan(dest ...any) error
}
