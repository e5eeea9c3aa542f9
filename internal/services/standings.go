package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jjudge-oj/scoreboard/config"
	"github.com/jjudge-oj/scoreboard/internal/metrics"
	"github.com/jjudge-oj/scoreboard/internal/standings"
	"github.com/jjudge-oj/scoreboard/internal/store"
	"github.com/jjudge-oj/scoreboard/types"
)

// StandingsRepository reads the consistent input of one contest.
type StandingsRepository interface {
	LoadContestData(ctx context.Context, contestID int) (standings.Input, error)
}

// StandingsCache keeps ranked tables between requests. Every Invalidate
// advances the contest's generation, and Set refuses a table computed under
// an older one.
type StandingsCache interface {
	Get(ctx context.Context, contestID int) (standings.Table, bool, error)
	Generation(ctx context.Context, contestID int) (int64, error)
	Set(ctx context.Context, contestID int, generation int64, table standings.Table) (bool, error)
	Invalidate(ctx context.Context, contestID int) error
}

// ArchiveStorage persists final standings.
type ArchiveStorage interface {
	PutJSON(ctx context.Context, key string, v any) error
}

// Query selects one page of a contest's standings.
type Query struct {
	ContestID int
	Page      int

	// Limit defaults to the configured page size when zero and is capped at
	// the configured maximum.
	Limit int

	// ViewerID is the authenticated user, or zero for anonymous requests.
	ViewerID int
}

// StandingsService serves ranked, paginated scoreboards.
type StandingsService struct {
	repo    StandingsRepository
	cache   StandingsCache
	archive ArchiveStorage
	notify  Notifier
	cfg     config.StandingsConfig
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewStandingsService builds the service. cache, archive and notifier may
// be nil.
func NewStandingsService(
	repo StandingsRepository,
	cache StandingsCache,
	archive ArchiveStorage,
	notifier Notifier,
	cfg config.StandingsConfig,
	logger *zap.Logger,
	m *metrics.Metrics,
) *StandingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StandingsService{
		repo:    repo,
		cache:   cache,
		archive: archive,
		notify:  notifier,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Snapshot returns one page of the contest's standings.
func (s *StandingsService) Snapshot(ctx context.Context, q Query) (types.StandingsSnapshot, error) {
	limit, err := s.limit(q.Page, q.Limit)
	if err != nil {
		return types.StandingsSnapshot{}, err
	}

	table, err := s.table(ctx, q.ContestID, true)
	if err != nil {
		return types.StandingsSnapshot{}, err
	}

	snapshot, err := standings.Paginate(table, q.Page, limit)
	if err != nil {
		return types.StandingsSnapshot{}, fmt.Errorf("%w: %w", ErrInvalidPage, err)
	}
	if s.showLate() && q.ViewerID > 0 {
		standings.AttachLate(&snapshot, table, q.ViewerID)
	}
	return snapshot, nil
}

// Archive writes the final standings of an ended contest to object storage
// and returns the object key.
func (s *StandingsService) Archive(ctx context.Context, contestID int) (string, error) {
	if s.archive == nil {
		return "", ErrArchiveDisabled
	}

	table, err := s.table(ctx, contestID, false)
	if err != nil {
		return "", err
	}
	if !table.Contest.Ended(s.now()) {
		return "", ErrContestRunning
	}
	if table.Pending > 0 {
		return "", fmt.Errorf("%w: %d waiting", ErrPendingSubmissions, table.Pending)
	}

	snapshot, err := standings.Paginate(table, 1, max(len(table.Rows), 1))
	if err != nil {
		return "", err
	}

	key := ArchiveKey(contestID)
	if err := s.archive.PutJSON(ctx, key, snapshot); err != nil {
		return "", fmt.Errorf("archive standings: %w", err)
	}
	s.logger.Info("standings archived",
		zap.Int("contest_id", contestID),
		zap.String("key", key),
		zap.Int("rows", len(table.Rows)),
	)
	if s.notify != nil {
		update := types.StandingsUpdate{ContestID: contestID, Reason: types.UpdateReasonArchived}
		if err := s.notify.Notify(ctx, update); err != nil {
			s.logger.Warn("standings update not published", zap.Int("contest_id", contestID), zap.Error(err))
		}
	}
	return key, nil
}

// Invalidate drops the cached table of a contest.
func (s *StandingsService) Invalidate(ctx context.Context, contestID int) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, contestID)
}

// ArchiveKey is the object key of a contest's final standings.
func ArchiveKey(contestID int) string {
	return fmt.Sprintf("standings/%d/final.json", contestID)
}

func (s *StandingsService) limit(page, limit int) (int, error) {
	if page < 1 || limit < 0 {
		return 0, ErrInvalidPage
	}
	if limit == 0 {
		limit = s.cfg.DefaultLimit
	}
	if s.cfg.MaxLimit > 0 && limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}
	if limit < 1 {
		limit = 1
	}
	return limit, nil
}

func (s *StandingsService) showLate() bool {
	return s.cfg.LateSubmissionPolicy == config.LatePolicyShowToOwner
}

// table returns the ranked table of a contest, going through the cache when
// useCache is set. Cache failures degrade to a direct read.
func (s *StandingsService) table(ctx context.Context, contestID int, useCache bool) (standings.Table, error) {
	cacheable := useCache && s.cache != nil
	var generation int64
	if cacheable {
		table, ok, err := s.cache.Get(ctx, contestID)
		switch {
		case err != nil:
			s.metrics.CacheLookup(metrics.CacheError)
			s.logger.Warn("standings cache read failed", zap.Int("contest_id", contestID), zap.Error(err))
		case ok:
			s.metrics.CacheLookup(metrics.CacheHit)
			return table, nil
		default:
			s.metrics.CacheLookup(metrics.CacheMiss)
		}

		// Read before loading so a verdict recorded during the load keeps
		// this table out of the cache.
		if generation, err = s.cache.Generation(ctx, contestID); err != nil {
			cacheable = false
			s.logger.Warn("standings cache generation read failed", zap.Int("contest_id", contestID), zap.Error(err))
		}
	}

	started := time.Now()
	in, err := s.repo.LoadContestData(ctx, contestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return standings.Table{}, ErrContestNotFound
		}
		s.metrics.Unavailable()
		s.logger.Error("load standings input", zap.Int("contest_id", contestID), zap.Error(err))
		return standings.Table{}, fmt.Errorf("%w: %w", ErrStandingsUnavailable, err)
	}

	table := standings.Compute(in, standings.Options{
		WrongAttemptPenalty:               s.cfg.WrongAttemptPenalty,
		IncludeZeroSubmissionParticipants: s.cfg.IncludeZeroSubmissionParticipants,
		TrackLate:                         s.showLate(),
	}, s.now())
	s.metrics.ObserveCompute(time.Since(started))

	if cacheable {
		stored, err := s.cache.Set(ctx, contestID, generation, table)
		switch {
		case err != nil:
			s.logger.Warn("standings cache write failed", zap.Int("contest_id", contestID), zap.Error(err))
		case !stored:
			s.logger.Debug("stale standings not cached",
				zap.Int("contest_id", contestID),
				zap.Int64("generation", generation),
			)
		}
	}
	return table, nil
}
