package standings

import (
	"sort"

	"github.com/jjudge-oj/scoreboard/types"
)

// Paginate slices the ranked rows [(page-1)*limit, page*limit) into a
// snapshot. Pages past the end yield an empty standings list. Rows are
// copied so the snapshot can be modified without touching the table.
func Paginate(t Table, page, limit int) (types.StandingsSnapshot, error) {
	if page < 1 || limit < 1 {
		return types.StandingsSnapshot{}, ErrInvalidPagination
	}

	total := len(t.Rows)
	from := (page - 1) * limit
	to := from + limit
	if from > total {
		from = total
	}
	if to > total {
		to = total
	}

	rows := make([]types.UserStanding, 0, to-from)
	for _, row := range t.Rows[from:to] {
		problems := make([]types.ProblemResult, len(row.Problems))
		copy(problems, row.Problems)
		row.Problems = problems
		rows = append(rows, row)
	}

	status := make(map[int]types.ProblemSolveStatus, len(t.SolveStatus))
	for index, s := range t.SolveStatus {
		status[index] = s
	}

	return types.StandingsSnapshot{
		ContestID:          t.Contest.ID,
		ContestTitle:       t.Contest.Title,
		StartTime:          t.Contest.StartTime,
		DurationSeconds:    t.Contest.DurationSeconds,
		TotalProblemCount:  t.ProblemCount,
		ProblemSolveStatus: status,
		Standings:          rows,
		Page:               page,
		Limit:              limit,
		TotalPage:          (total + limit - 1) / limit,
		TotalItem:          total,
		GeneratedAt:        t.GeneratedAt,
	}, nil
}

// AttachLate copies the viewer's post-contest results into their row of
// the snapshot, if that row is on the page.
func AttachLate(s *types.StandingsSnapshot, t Table, viewerID int) {
	byIndex := t.Late[viewerID]
	if viewerID == 0 || len(byIndex) == 0 {
		return
	}
	for i := range s.Standings {
		row := &s.Standings[i]
		if row.UserID != viewerID {
			continue
		}
		for index, lr := range byIndex {
			pos := -1
			for j, p := range row.Problems {
				if p.ProblemIndex == index {
					pos = j
					break
				}
			}
			if pos < 0 {
				row.Problems = append(row.Problems, types.ProblemResult{ProblemIndex: index})
				pos = len(row.Problems) - 1
			}
			row.Problems[pos].LateAttempts = lr.Attempts
			row.Problems[pos].LateSolved = lr.Solved
		}
		sort.Slice(row.Problems, func(a, b int) bool {
			return row.Problems[a].ProblemIndex < row.Problems[b].ProblemIndex
		})
		return
	}
}
