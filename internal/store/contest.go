package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jjudge-oj/scoreboard/types"
)

// ContestRepository handles persistence for contests, their problem sets
// and registration rosters.
type ContestRepository struct {
	db *sql.DB
}

func NewContestRepository(db *sql.DB) *ContestRepository {
	return &ContestRepository{db: db}
}

func (r *ContestRepository) Get(ctx context.Context, id int) (types.Contest, error) {
	return getContest(ctx, r.db, id)
}

func (r *ContestRepository) Create(ctx context.Context, contest types.Contest) (types.Contest, error) {
	now := time.Now()
	contest.CreatedAt = now
	contest.UpdatedAt = now

	const query = `
		INSERT INTO contests (title, start_time, duration_seconds, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		contest.Title,
		contest.StartTime,
		contest.DurationSeconds,
		contest.CreatedAt,
		contest.UpdatedAt,
	).Scan(&contest.ID); err != nil {
		return types.Contest{}, err
	}
	return contest, nil
}

func (r *ContestRepository) AddProblem(ctx context.Context, problem types.ContestProblem) error {
	const query = `
		INSERT INTO contest_problems (contest_id, problem_id, problem_index)
		VALUES ($1, $2, $3)`
	_, err := r.db.ExecContext(ctx, query, problem.ContestID, problem.ProblemID, problem.ProblemIndex)
	return err
}

func (r *ContestRepository) Register(ctx context.Context, contestID, userID int) error {
	const query = `
		INSERT INTO contest_participants (contest_id, user_id, registered_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (contest_id, user_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query, contestID, userID, time.Now())
	return err
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getContest(ctx context.Context, q queryRower, id int) (types.Contest, error) {
	const query = `
		SELECT id, title, start_time, duration_seconds, created_at, updated_at
		FROM contests
		WHERE id = $1`
	var contest types.Contest
	err := q.QueryRowContext(ctx, query, id).Scan(
		&contest.ID,
		&contest.Title,
		&contest.StartTime,
		&contest.DurationSeconds,
		&contest.CreatedAt,
		&contest.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Contest{}, ErrNotFound
		}
		return types.Contest{}, err
	}
	return contest, nil
}
