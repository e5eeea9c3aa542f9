package standings

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjudge-oj/scoreboard/types"
)

func tableWithUsers(n int) Table {
	var b subBuilder
	for user := 1; user <= n; user++ {
		b.add(user, 1, types.VerdictAccepted, time.Duration(user)*time.Minute)
	}
	return Compute(Input{Contest: testContest(), Problems: testProblems(1), Submissions: b.subs}, Options{}, contestStart)
}

func TestPaginateCoversEveryRowOnce(t *testing.T) {
	for _, tc := range []struct{ users, limit int }{
		{0, 5}, {1, 5}, {5, 5}, {6, 5}, {23, 4}, {23, 50},
	} {
		t.Run(fmt.Sprintf("%d users limit %d", tc.users, tc.limit), func(t *testing.T) {
			table := tableWithUsers(tc.users)

			first, err := Paginate(table, 1, tc.limit)
			require.NoError(t, err)
			assert.Equal(t, tc.users, first.TotalItem)
			assert.Equal(t, (tc.users+tc.limit-1)/tc.limit, first.TotalPage)

			seen := make(map[int]bool)
			count := 0
			for page := 1; page <= first.TotalPage; page++ {
				snap, err := Paginate(table, page, tc.limit)
				require.NoError(t, err)
				for _, row := range snap.Standings {
					assert.False(t, seen[row.UserID], "user %d on two pages", row.UserID)
					seen[row.UserID] = true
				}
				count += len(snap.Standings)
			}
			assert.Equal(t, first.TotalItem, count)
		})
	}
}

func TestPaginateBeyondLastPage(t *testing.T) {
	snap, err := Paginate(tableWithUsers(3), 4, 2)
	require.NoError(t, err)

	assert.Empty(t, snap.Standings)
	assert.NotNil(t, snap.Standings)
	assert.Equal(t, 2, snap.TotalPage)
}

func TestPaginateRejectsInvalidInput(t *testing.T) {
	table := tableWithUsers(1)

	_, err := Paginate(table, 0, 10)
	assert.ErrorIs(t, err, ErrInvalidPagination)

	_, err = Paginate(table, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidPagination)
}

func TestPaginateCarriesContestMetadata(t *testing.T) {
	snap, err := Paginate(tableWithUsers(2), 2, 1)
	require.NoError(t, err)

	assert.Equal(t, 7, snap.ContestID)
	assert.Equal(t, "Spring Cup", snap.ContestTitle)
	assert.Equal(t, contestStart, snap.StartTime)
	assert.Equal(t, int64(5*3600), snap.DurationSeconds)
	assert.Equal(t, 1, snap.TotalProblemCount)
	assert.Equal(t, 2, snap.Standings[0].Rank)
	assert.Equal(t, types.ProblemSolveStatus{Solved: 2, Attempted: 2}, snap.ProblemSolveStatus[1])
}

func TestPaginateDoesNotAliasTable(t *testing.T) {
	table := tableWithUsers(1)

	snap, err := Paginate(table, 1, 10)
	require.NoError(t, err)
	snap.Standings[0].Problems[0].Attempts = 99

	assert.Equal(t, 1, table.Rows[0].Problems[0].Attempts)
}

func TestAttachLateOnlyForViewer(t *testing.T) {
	var b subBuilder
	b.add(1, 1, types.VerdictAccepted, time.Minute)
	b.add(2, 1, types.VerdictWrongAnswer, time.Minute)
	b.add(2, 1, types.VerdictWrongAnswer, 6*time.Hour)
	b.add(2, 2, types.VerdictAccepted, 6*time.Hour+time.Minute)
	b.add(1, 2, types.VerdictAccepted, 7*time.Hour)

	table := Compute(Input{Contest: testContest(), Problems: testProblems(2), Submissions: b.subs}, Options{TrackLate: true}, contestStart)

	snap, err := Paginate(table, 1, 10)
	require.NoError(t, err)
	AttachLate(&snap, table, 2)

	viewer := snap.Standings[1]
	require.Equal(t, 2, viewer.UserID)
	require.Len(t, viewer.Problems, 2)
	assert.Equal(t, types.ProblemResult{ProblemIndex: 1, Attempts: 1, LateAttempts: 1}, viewer.Problems[0])
	assert.Equal(t, types.ProblemResult{ProblemIndex: 2, LateAttempts: 1, LateSolved: true}, viewer.Problems[1])

	other := snap.Standings[0]
	require.Len(t, other.Problems, 1)
	assert.Zero(t, other.Problems[0].LateAttempts)
	assert.Len(t, table.Rows[1].Problems, 1)
}
