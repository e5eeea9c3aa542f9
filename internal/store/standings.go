package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jjudge-oj/scoreboard/internal/standings"
	"github.com/jjudge-oj/scoreboard/types"
)

// StandingsRepository reads everything a scoreboard is computed from.
type StandingsRepository struct {
	db *sql.DB
}

func NewStandingsRepository(db *sql.DB) *StandingsRepository {
	return &StandingsRepository{db: db}
}

// LoadContestData reads the contest, its problems, its users and all of its
// submissions inside one read-only repeatable-read transaction, so verdicts
// recorded while the read runs never split a snapshot.
func (r *StandingsRepository) LoadContestData(ctx context.Context, contestID int) (standings.Input, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return standings.Input{}, fmt.Errorf("begin standings read: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	contest, err := getContest(ctx, tx, contestID)
	if err != nil {
		return standings.Input{}, err
	}

	in := standings.Input{Contest: contest}
	if in.Problems, err = listContestProblems(ctx, tx, contestID); err != nil {
		return standings.Input{}, fmt.Errorf("load contest problems: %w", err)
	}
	if in.Users, err = listContestUsers(ctx, tx, contestID); err != nil {
		return standings.Input{}, fmt.Errorf("load contest users: %w", err)
	}
	if in.Submissions, err = listContestSubmissions(ctx, tx, contestID); err != nil {
		return standings.Input{}, fmt.Errorf("load contest submissions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return standings.Input{}, fmt.Errorf("commit standings read: %w", err)
	}
	return in, nil
}

func listContestProblems(ctx context.Context, tx *sql.Tx, contestID int) ([]types.ContestProblem, error) {
	const query = `
		SELECT contest_id, problem_id, problem_index
		FROM contest_problems
		WHERE contest_id = $1
		ORDER BY problem_index`
	rows, err := tx.QueryContext(ctx, query, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var problems []types.ContestProblem
	for rows.Next() {
		var p types.ContestProblem
		if err := rows.Scan(&p.ContestID, &p.ProblemID, &p.ProblemIndex); err != nil {
			return nil, err
		}
		problems = append(problems, p)
	}
	return problems, rows.Err()
}

func listContestUsers(ctx context.Context, tx *sql.Tx, contestID int) ([]types.Participant, error) {
	const query = `
		SELECT u.id, u.username, u.name, u.clan, cp.registered_at
		FROM users u
		LEFT JOIN contest_participants cp ON cp.user_id = u.id AND cp.contest_id = $1
		WHERE cp.contest_id IS NOT NULL
		   OR EXISTS (SELECT 1 FROM submissions s WHERE s.contest_id = $1 AND s.user_id = u.id)
		ORDER BY u.id`
	rows, err := tx.QueryContext(ctx, query, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []types.Participant
	for rows.Next() {
		var p types.Participant
		var registeredAt sql.NullTime
		if err := rows.Scan(&p.UserID, &p.Username, &p.Name, &p.Clan, &registeredAt); err != nil {
			return nil, err
		}
		if registeredAt.Valid {
			p.RegisteredAt = &registeredAt.Time
		}
		users = append(users, p)
	}
	return users, rows.Err()
}

func listContestSubmissions(ctx context.Context, tx *sql.Tx, contestID int) ([]types.Submission, error) {
	const query = `
		SELECT id, contest_id, problem_id, user_id, verdict, submitted_at, judged_at
		FROM submissions
		WHERE contest_id = $1
		ORDER BY submitted_at, id`
	rows, err := tx.QueryContext(ctx, query, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var submissions []types.Submission
	for rows.Next() {
		var s types.Submission
		var judgedAt sql.NullTime
		if err := rows.Scan(&s.ID, &s.ContestID, &s.ProblemID, &s.UserID, &s.Verdict, &s.SubmittedAt, &judgedAt); err != nil {
			return nil, err
		}
		if judgedAt.Valid {
			s.JudgedAt = &judgedAt.Time
		}
		submissions = append(submissions, s)
	}
	return submissions, rows.Err()
}
