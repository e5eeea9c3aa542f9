package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jjudge-oj/scoreboard/config"
	"github.com/jjudge-oj/scoreboard/internal/cache"
	"github.com/jjudge-oj/scoreboard/internal/db"
	"github.com/jjudge-oj/scoreboard/internal/metrics"
	"github.com/jjudge-oj/scoreboard/internal/mq"
	"github.com/jjudge-oj/scoreboard/internal/services"
	"github.com/jjudge-oj/scoreboard/internal/storage"
	"github.com/jjudge-oj/scoreboard/internal/store"
)

// Components holds the connections and services shared by the HTTP server
// and the administrative commands.
type Components struct {
	DB      *sql.DB
	Cache   *cache.RedisCache
	Queue   *mq.MQ
	Storage *storage.Storage
	Metrics *metrics.Metrics

	// Origin identifies this process in the standings updates it publishes.
	Origin string

	Users       *services.UserService
	Standings   *services.StandingsService
	Submissions *services.SubmissionService
}

// Open connects every configured backend. Optional backends (cache, queue,
// storage) are left nil when disabled; a cache that cannot be reached is
// logged and skipped.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{Metrics: metrics.New(), Origin: uuid.NewString()}

	var err error
	if c.DB, err = db.Open(ctx, cfg); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	var standingsCache services.StandingsCache
	if cfg.Redis.Addr != "" {
		if c.Cache, err = cache.NewRedisCache(ctx, cfg.Redis); err != nil {
			logger.Warn("standings cache disabled", zap.Error(err))
		} else {
			standingsCache = c.Cache
		}
	}

	if c.Queue, err = mq.Open(ctx, cfg.MQ); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("open message queue: %w", err)
	}

	var notifier services.Notifier
	if c.Queue != nil {
		notifier = services.NewUpdateNotifier(c.Queue, cfg.MQ.UpdatesChannel, c.Origin)
	}

	var archive services.ArchiveStorage
	if c.Storage, err = storage.Open(ctx, cfg.Storage); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("open object storage: %w", err)
	}
	if c.Storage != nil {
		archive = c.Storage
	}

	c.Users = services.NewUserService(store.NewUserRepository(c.DB))
	c.Standings = services.NewStandingsService(
		store.NewStandingsRepository(c.DB),
		standingsCache,
		archive,
		notifier,
		cfg.Standings,
		logger.Named("standings"),
		c.Metrics,
	)
	c.Submissions = services.NewSubmissionService(
		store.NewSubmissionRepository(c.DB),
		c.Standings,
		notifier,
		logger.Named("submissions"),
	)
	return c, nil
}

// Close releases every open connection.
func (c *Components) Close() error {
	var errs []error
	if c.Queue != nil {
		errs = append(errs, c.Queue.Close())
	}
	if c.Cache != nil {
		errs = append(errs, c.Cache.Close())
	}
	if c.DB != nil {
		errs = append(errs, c.DB.Close())
	}
	return errors.Join(errs...)
}
