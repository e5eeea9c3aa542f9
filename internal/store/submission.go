package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jjudge-oj/scoreboard/types"
)

// SubmissionRepository handles persistence for submissions.
type SubmissionRepository struct {
	db *sql.DB
}

func NewSubmissionRepository(db *sql.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func (r *SubmissionRepository) Get(ctx context.Context, id int64) (types.Submission, error) {
	const query = `
		SELECT id, contest_id, problem_id, user_id, verdict, submitted_at, judged_at
		FROM submissions
		WHERE id = $1`
	var submission types.Submission
	var judgedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&submission.ID,
		&submission.ContestID,
		&submission.ProblemID,
		&submission.UserID,
		&submission.Verdict,
		&submission.SubmittedAt,
		&judgedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Submission{}, ErrNotFound
		}
		return types.Submission{}, err
	}
	if judgedAt.Valid {
		submission.JudgedAt = &judgedAt.Time
	}
	return submission, nil
}

func (r *SubmissionRepository) Create(ctx context.Context, submission types.Submission) (types.Submission, error) {
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = time.Now()
	}

	const query = `
		INSERT INTO submissions (contest_id, problem_id, user_id, verdict, submitted_at, judged_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		submission.ContestID,
		submission.ProblemID,
		submission.UserID,
		submission.Verdict,
		submission.SubmittedAt,
		submission.JudgedAt,
	).Scan(&submission.ID); err != nil {
		return types.Submission{}, err
	}

	return submission, nil
}

// RecordVerdict moves a pending submission to a terminal verdict. The
// transition happens at most once; later calls return ErrAlreadyJudged.
func (r *SubmissionRepository) RecordVerdict(ctx context.Context, id int64, verdict types.Verdict, judgedAt time.Time) (types.Submission, error) {
	const query = `
		UPDATE submissions
		SET verdict = $1,
			judged_at = $2
		WHERE id = $3 AND verdict = $4
		RETURNING contest_id, problem_id, user_id, submitted_at`
	submission := types.Submission{ID: id, Verdict: verdict, JudgedAt: &judgedAt}
	err := r.db.QueryRowContext(ctx, query, verdict, judgedAt, id, types.VerdictPending).Scan(
		&submission.ContestID,
		&submission.ProblemID,
		&submission.UserID,
		&submission.SubmittedAt,
	)
	if err == nil {
		return submission, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return types.Submission{}, err
	}

	existing, err := r.Get(ctx, id)
	if err != nil {
		return types.Submission{}, err
	}
	return existing, ErrAlreadyJudged
}
