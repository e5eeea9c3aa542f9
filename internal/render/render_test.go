package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjudge-oj/scoreboard/internal/poller"
	"github.com/jjudge-oj/scoreboard/types"
)

func TestProblemLabel(t *testing.T) {
	assert.Equal(t, "A", ProblemLabel(1))
	assert.Equal(t, "Z", ProblemLabel(26))
	assert.Equal(t, "AA", ProblemLabel(27))
	assert.Equal(t, "?", ProblemLabel(0))
}

func TestCell(t *testing.T) {
	tests := []struct {
		name    string
		result  types.ProblemResult
		touched bool
		want    string
	}{
		{name: "untouched", want: "."},
		{name: "first try", result: types.ProblemResult{Attempts: 1, Solved: true, PenaltyMinutes: 3}, touched: true, want: "+/3"},
		{name: "first blood after rejects", result: types.ProblemResult{Attempts: 3, Solved: true, PenaltyMinutes: 52, FirstBlood: true}, touched: true, want: "+2/52*"},
		{name: "unsolved", result: types.ProblemResult{Attempts: 4}, touched: true, want: "-4"},
		{name: "late solve", result: types.ProblemResult{LateAttempts: 2, LateSolved: true}, touched: true, want: ". [+]"},
		{name: "late reject", result: types.ProblemResult{Attempts: 1, LateAttempts: 1}, touched: true, want: "-1 [-1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Cell(tt.result, tt.touched))
		})
	}
}

func TestTable(t *testing.T) {
	snapshot := types.StandingsSnapshot{
		ContestTitle:      "Spring Round",
		TotalProblemCount: 2,
		ProblemSolveStatus: map[int]types.ProblemSolveStatus{
			1: {Solved: 2, Attempted: 2},
			2: {Solved: 0, Attempted: 1},
		},
		Standings: []types.UserStanding{
			{Rank: 1, UserID: 2, Username: "bob", SolvedCount: 1, TotalPenalty: 3, Problems: []types.ProblemResult{
				{ProblemIndex: 1, Attempts: 1, Solved: true, PenaltyMinutes: 3, FirstBlood: true},
			}},
			{Rank: 2, UserID: 1, Username: "alice", Clan: "uni", SolvedCount: 1, TotalPenalty: 30, Problems: []types.ProblemResult{
				{ProblemIndex: 1, Attempts: 2, Solved: true, PenaltyMinutes: 30},
				{ProblemIndex: 2, Attempts: 1},
			}},
		},
		Page:      1,
		TotalPage: 1,
		TotalItem: 2,
	}

	var buf bytes.Buffer
	require.NoError(t, Table(&buf, snapshot))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	assert.Equal(t, "Spring Round  (page 1/1, 2 participants)", lines[0])
	assert.Equal(t, []string{"#", "User", "Solved", "Penalty", "A", "B"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"1", "bob", "1", "3", "+/3*", "."}, strings.Fields(lines[3]))
	assert.Equal(t, []string{"2", "alice", "(uni)", "1", "30", "+1/30", "-1"}, strings.Fields(lines[4]))
	assert.Equal(t, []string{"solved/tried", "2/2", "0/1"}, strings.Fields(lines[5]))
}

func TestTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Table(&buf, types.StandingsSnapshot{ContestTitle: "Empty", Page: 1}))
	assert.Contains(t, buf.String(), EmptyMessage)
	assert.Contains(t, buf.String(), "page 1/1")
}

func TestView(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, View(&buf, poller.View{Status: poller.StatusLoading}))
	assert.Equal(t, "Loading standings...\n", buf.String())

	buf.Reset()
	require.NoError(t, View(&buf, poller.View{Status: poller.StatusError, Err: "Contest not found"}))
	assert.Equal(t, "Error: Contest not found\n", buf.String())

	buf.Reset()
	snapshot := types.StandingsSnapshot{ContestTitle: "Done", Page: 1}
	require.NoError(t, View(&buf, poller.View{Status: poller.StatusSuccess, Data: &snapshot, Final: true}))
	assert.Contains(t, buf.String(), "final standings")
}
