package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jjudge-oj/scoreboard/internal/store"
	"github.com/jjudge-oj/scoreboard/types"
)

// SubmissionRepository defines persistence operations for submissions.
type SubmissionRepository interface {
	RecordVerdict(ctx context.Context, id int64, verdict types.Verdict, judgedAt time.Time) (types.Submission, error)
}

// Invalidator drops derived state of a contest.
type Invalidator interface {
	Invalidate(ctx context.Context, contestID int) error
}

// SubmissionService applies judge verdicts.
type SubmissionService struct {
	repo        SubmissionRepository
	invalidator Invalidator
	notifier    Notifier
	logger      *zap.Logger
	now         func() time.Time
}

// NewSubmissionService builds the service. invalidator and notifier may be
// nil.
func NewSubmissionService(repo SubmissionRepository, invalidator Invalidator, notifier Notifier, logger *zap.Logger) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{repo: repo, invalidator: invalidator, notifier: notifier, logger: logger, now: time.Now}
}

// RecordVerdict moves a pending submission to its terminal verdict,
// invalidates the contest's cached standings and announces the change. A verdict for an already
// judged submission returns store.ErrAlreadyJudged and changes nothing.
func (s *SubmissionService) RecordVerdict(ctx context.Context, event types.VerdictEvent) (types.Submission, error) {
	if !event.Verdict.Terminal() {
		return types.Submission{}, ErrInvalidVerdict
	}
	judgedAt := event.JudgedAt
	if judgedAt.IsZero() {
		judgedAt = s.now()
	}

	submission, err := s.repo.RecordVerdict(ctx, event.SubmissionID, event.Verdict, judgedAt.UTC())
	switch {
	case errors.Is(err, store.ErrNotFound):
		return types.Submission{}, ErrSubmissionNotFound
	case errors.Is(err, store.ErrAlreadyJudged):
		s.logger.Info("duplicate verdict ignored",
			zap.Int64("submission_id", event.SubmissionID),
			zap.Stringer("verdict", event.Verdict),
			zap.Stringer("current", submission.Verdict),
		)
		return submission, err
	case err != nil:
		return types.Submission{}, err
	}

	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx, submission.ContestID); err != nil {
			s.logger.Warn("standings invalidation failed",
				zap.Int("contest_id", submission.ContestID),
				zap.Error(err),
			)
		}
	}
	if s.notifier != nil {
		update := types.StandingsUpdate{
			ContestID:    submission.ContestID,
			Reason:       types.UpdateReasonVerdict,
			SubmissionID: submission.ID,
		}
		if err := s.notifier.Notify(ctx, update); err != nil {
			s.logger.Warn("standings update not published",
				zap.Int("contest_id", submission.ContestID),
				zap.Error(err),
			)
		}
	}
	s.logger.Debug("verdict recorded",
		zap.Int64("submission_id", submission.ID),
		zap.Int("contest_id", submission.ContestID),
		zap.Stringer("verdict", submission.Verdict),
	)
	return submission, nil
}
