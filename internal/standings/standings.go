// Package standings computes contest scoreboards from judged submissions.
//
// Scoring follows ICPC rules: a problem is solved by its first accepted
// submission, every rejected judged submission before it costs a fixed
// penalty, and the solve time in whole minutes since contest start is added
// on top. Users are ranked by solved count, then total penalty, then user id.
package standings

import (
	"errors"
	"sort"
	"time"

	"github.com/jjudge-oj/scoreboard/types"
)

// DefaultWrongAttemptPenalty is the penalty in minutes for each rejected
// submission that precedes an accepted one.
const DefaultWrongAttemptPenalty = 20

// ErrInvalidPagination is returned for a page or limit below one.
var ErrInvalidPagination = errors.New("page and limit must be positive")

// Options tune the ranking pass.
type Options struct {
	// WrongAttemptPenalty defaults to DefaultWrongAttemptPenalty when zero.
	WrongAttemptPenalty int

	// IncludeZeroSubmissionParticipants adds an empty row for registered
	// users that have not submitted anything in the contest window.
	IncludeZeroSubmissionParticipants bool

	// TrackLate records per-user results for submissions made after the
	// contest ended so they can be shown to their owner.
	TrackLate bool
}

// Input is everything the engine needs for one contest. It must come from a
// single consistent read.
type Input struct {
	Contest  types.Contest
	Problems []types.ContestProblem

	// Users holds every user that is registered for the contest or has
	// submitted to it. A nil RegisteredAt marks an unregistered submitter.
	Users       []types.Participant
	Submissions []types.Submission
}

// LateResult summarises one user's post-contest submissions to a problem.
type LateResult struct {
	Attempts int  `json:"attempts"`
	Solved   bool `json:"solved"`
}

// Table is the complete ranked scoreboard of a contest before pagination.
type Table struct {
	Contest      types.Contest                    `json:"contest"`
	ProblemCount int                              `json:"problem_count"`
	SolveStatus  map[int]types.ProblemSolveStatus `json:"solve_status"`
	Rows         []types.UserStanding             `json:"rows"`

	// Late is keyed by user id, then problem index.
	Late map[int]map[int]LateResult `json:"late,omitempty"`

	// Pending counts ranked-window submissions still waiting for a verdict.
	Pending     int       `json:"pending"`
	GeneratedAt time.Time `json:"generated_at"`
}

type cell struct {
	attempts   int
	rejected   int
	solved     bool
	penalty    int
	acceptedAt time.Time
	acceptedID int64
}

type cellKey struct {
	userID int
	index  int
}

// Compute ranks every user of the contest. It is a pure function of its
// input: identical input always yields an identical table apart from
// GeneratedAt, which is set to now.
func Compute(in Input, opts Options, now time.Time) Table {
	penaltyPerReject := opts.WrongAttemptPenalty
	if penaltyPerReject <= 0 {
		penaltyPerReject = DefaultWrongAttemptPenalty
	}

	indexOf := make(map[int]int, len(in.Problems))
	problemCount := 0
	for _, p := range in.Problems {
		indexOf[p.ProblemID] = p.ProblemIndex
		if p.ProblemIndex > problemCount {
			problemCount = p.ProblemIndex
		}
	}

	start := in.Contest.StartTime
	end := in.Contest.EndTime()

	subs := make([]types.Submission, len(in.Submissions))
	copy(subs, in.Submissions)
	sort.SliceStable(subs, func(i, j int) bool {
		if !subs[i].SubmittedAt.Equal(subs[j].SubmittedAt) {
			return subs[i].SubmittedAt.Before(subs[j].SubmittedAt)
		}
		return subs[i].ID < subs[j].ID
	})

	cells := make(map[cellKey]*cell)
	seen := make(map[int]bool)
	var late map[int]map[int]LateResult
	pending := 0

	for _, sub := range subs {
		index, ok := indexOf[sub.ProblemID]
		if !ok || sub.SubmittedAt.Before(start) {
			continue
		}
		if sub.SubmittedAt.After(end) {
			if opts.TrackLate {
				late = recordLate(late, sub, index)
			}
			continue
		}

		seen[sub.UserID] = true
		if !sub.Verdict.Terminal() {
			pending++
			continue
		}

		key := cellKey{userID: sub.UserID, index: index}
		c := cells[key]
		if c == nil {
			c = &cell{}
			cells[key] = c
		}
		if c.solved {
			continue
		}

		c.attempts++
		if sub.Verdict != types.VerdictAccepted {
			c.rejected++
			continue
		}
		c.solved = true
		c.acceptedAt = sub.SubmittedAt
		c.acceptedID = sub.ID
		c.penalty = penaltyPerReject*c.rejected + int(sub.SubmittedAt.Sub(start)/time.Minute)
	}

	firstBlood := make(map[int]cellKey)
	solveStatus := make(map[int]types.ProblemSolveStatus, problemCount)
	for index := 1; index <= problemCount; index++ {
		solveStatus[index] = types.ProblemSolveStatus{}
	}
	for key, c := range cells {
		status := solveStatus[key.index]
		status.Attempted++
		if c.solved {
			status.Solved++
			best, ok := firstBlood[key.index]
			if !ok || earlier(c, cells[best]) {
				firstBlood[key.index] = key
			}
		}
		solveStatus[key.index] = status
	}

	profiles := make(map[int]types.Participant, len(in.Users))
	for _, u := range in.Users {
		profiles[u.UserID] = u
		if opts.IncludeZeroSubmissionParticipants && u.RegisteredAt != nil {
			seen[u.UserID] = true
		}
	}

	rows := make([]types.UserStanding, 0, len(seen))
	for userID := range seen {
		profile := profiles[userID]
		row := types.UserStanding{
			UserID:   userID,
			Username: profile.Username,
			FullName: profile.Name,
			Clan:     profile.Clan,
			Problems: []types.ProblemResult{},
		}
		for index := 1; index <= problemCount; index++ {
			key := cellKey{userID: userID, index: index}
			c := cells[key]
			if c == nil {
				continue
			}
			result := types.ProblemResult{
				ProblemIndex: index,
				Attempts:     c.attempts,
				Solved:       c.solved,
			}
			if c.solved {
				result.PenaltyMinutes = c.penalty
				result.FirstBlood = firstBlood[index] == key
				row.SolvedCount++
				row.TotalPenalty += c.penalty
			}
			row.Problems = append(row.Problems, result)
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		return less(rows[i], rows[j])
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}

	return Table{
		Contest:      in.Contest,
		ProblemCount: problemCount,
		SolveStatus:  solveStatus,
		Rows:         rows,
		Late:         late,
		Pending:      pending,
		GeneratedAt:  now,
	}
}

func less(a, b types.UserStanding) bool {
	if a.SolvedCount != b.SolvedCount {
		return a.SolvedCount > b.SolvedCount
	}
	if a.TotalPenalty != b.TotalPenalty {
		return a.TotalPenalty < b.TotalPenalty
	}
	return a.UserID < b.UserID
}

func earlier(a, b *cell) bool {
	if !a.acceptedAt.Equal(b.acceptedAt) {
		return a.acceptedAt.Before(b.acceptedAt)
	}
	return a.acceptedID < b.acceptedID
}

func recordLate(late map[int]map[int]LateResult, sub types.Submission, index int) map[int]map[int]LateResult {
	if !sub.Verdict.Terminal() {
		return late
	}
	if late == nil {
		late = make(map[int]map[int]LateResult)
	}
	byIndex := late[sub.UserID]
	if byIndex == nil {
		byIndex = make(map[int]LateResult)
		late[sub.UserID] = byIndex
	}
	result := byIndex[index]
	if result.Solved {
		return late
	}
	result.Attempts++
	result.Solved = sub.Verdict == types.VerdictAccepted
	byIndex[index] = result
	return late
}
