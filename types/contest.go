package types

import "time"

// Contest is a timed event whose problems are ranked on one scoreboard.
type Contest struct {
	// ID is the unique identifier of the contest.
	ID int `json:"id" db:"id"`

	// Title is the human-readable name of the contest.
	Title string `json:"title" db:"title"`

	// StartTime is the moment submissions begin to count.
	StartTime time.Time `json:"start_time" db:"start_time"`

	// DurationSeconds is the length of the contest.
	DurationSeconds int64 `json:"duration_seconds" db:"duration_seconds"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// EndTime returns the instant after which submissions no longer rank.
func (c Contest) EndTime() time.Time {
	return c.StartTime.Add(time.Duration(c.DurationSeconds) * time.Second)
}

// Ended reports whether the contest is over at now.
func (c Contest) Ended(now time.Time) bool {
	return now.After(c.EndTime())
}

// ContestProblem binds a problem to its 1-based position (A = 1) in a contest.
type ContestProblem struct {
	ContestID    int `json:"contest_id" db:"contest_id"`
	ProblemID    int `json:"problem_id" db:"problem_id"`
	ProblemIndex int `json:"problem_index" db:"problem_index"`
}

// Participant is a user taking part in a contest. Username, Name and Clan
// are denormalised from the users table for display. RegisteredAt is nil
// for users that submitted without being on the registration roster.
type Participant struct {
	UserID       int        `json:"user_id" db:"user_id"`
	Username     string     `json:"username" db:"username"`
	Name         string     `json:"full_name" db:"name"`
	Clan         string     `json:"clan" db:"clan"`
	RegisteredAt *time.Time `json:"registered_at,omitempty" db:"registered_at"`
}
