package types

import "time"

// ProblemResult is one user's outcome on one contest problem.
type ProblemResult struct {
	// ProblemIndex is the 1-based position of the problem in the contest.
	ProblemIndex int `json:"problem_index"`

	// Attempts counts judged submissions up to and including the first
	// accepted one, or all judged submissions when unsolved.
	Attempts int `json:"attempts"`

	Solved bool `json:"solved"`

	// PenaltyMinutes is zero for unsolved problems.
	PenaltyMinutes int `json:"penalty"`

	FirstBlood bool `json:"first_blood"`

	// LateAttempts and LateSolved describe submissions made after the
	// contest ended. They are only filled in for the requesting user and
	// never affect ranking.
	LateAttempts int  `json:"late_attempts,omitempty"`
	LateSolved   bool `json:"late_solved,omitempty"`
}

// UserStanding is one ranked row of the scoreboard.
type UserStanding struct {
	Rank         int             `json:"rank"`
	UserID       int             `json:"user_id"`
	Username     string          `json:"username"`
	FullName     string          `json:"full_name"`
	Clan         string          `json:"clan"`
	SolvedCount  int             `json:"solved_count"`
	TotalPenalty int             `json:"total_penalty"`
	Problems     []ProblemResult `json:"problems"`
}

// ProblemSolveStatus counts distinct users per problem.
type ProblemSolveStatus struct {
	Solved    int `json:"solved"`
	Attempted int `json:"attempted"`
}

// StandingsSnapshot is one consistent, point-in-time page of a contest
// scoreboard.
type StandingsSnapshot struct {
	ContestID          int                        `json:"contest_id"`
	ContestTitle       string                     `json:"contest_title"`
	StartTime          time.Time                  `json:"start_time"`
	DurationSeconds    int64                      `json:"duration_seconds"`
	TotalProblemCount  int                        `json:"total_problem_count"`
	ProblemSolveStatus map[int]ProblemSolveStatus `json:"problem_solve_status"`
	Standings          []UserStanding             `json:"standings"`
	Page               int                        `json:"page"`
	Limit              int                        `json:"limit"`
	TotalPage          int                        `json:"total_page"`
	TotalItem          int                        `json:"total_item"`
	GeneratedAt        time.Time                  `json:"generated_at"`
}

// EndTime returns the end of the contest described by the snapshot.
func (s StandingsSnapshot) EndTime() time.Time {
	return s.StartTime.Add(time.Duration(s.DurationSeconds) * time.Second)
}

// Standings update reasons.
const (
	UpdateReasonVerdict  = "verdict"
	UpdateReasonArchived = "archived"
)

// StandingsUpdate announces that a contest's standings changed.
type StandingsUpdate struct {
	ContestID    int       `json:"contest_id"`
	Reason       string    `json:"reason"`
	SubmissionID int64     `json:"submission_id,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`

	// Origin identifies the instance that published the update.
	Origin string `json:"origin"`
}
