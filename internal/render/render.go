// Package render prints standings for a terminal.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/jjudge-oj/scoreboard/internal/poller"
	"github.com/jjudge-oj/scoreboard/types"
)

// EmptyMessage is printed for a snapshot without rows.
const EmptyMessage = "No standings available yet"

// ProblemLabel turns a 1-based problem index into A, B, ..., Z, AA, AB, ...
func ProblemLabel(index int) string {
	if index < 1 {
		return "?"
	}
	var b []byte
	for index > 0 {
		index--
		b = append([]byte{byte('A' + index%26)}, b...)
		index /= 26
	}
	return string(b)
}

// Cell formats one problem result: "+" or "+k" (k rejected attempts) with
// the penalty, "*" marking first blood; "-n" for n failed attempts; "."
// when untouched. Post-contest attempts are appended in brackets.
func Cell(r types.ProblemResult, touched bool) string {
	var cell string
	switch {
	case !touched || r.Attempts == 0 && !r.Solved:
		cell = "."
	case r.Solved:
		cell = "+"
		if rejected := r.Attempts - 1; rejected > 0 {
			cell += strconv.Itoa(rejected)
		}
		cell += "/" + strconv.Itoa(r.PenaltyMinutes)
		if r.FirstBlood {
			cell += "*"
		}
	default:
		cell = "-" + strconv.Itoa(r.Attempts)
	}

	if r.LateAttempts > 0 {
		late := "-" + strconv.Itoa(r.LateAttempts)
		if r.LateSolved {
			late = "+"
		}
		cell += " [" + late + "]"
	}
	return cell
}

// Table writes a snapshot as an aligned table with a per-problem
// solved/attempted footer.
func Table(w io.Writer, s types.StandingsSnapshot) error {
	if _, err := fmt.Fprintf(w, "%s  (page %d/%d, %d participants)\n\n",
		s.ContestTitle, s.Page, max(s.TotalPage, 1), s.TotalItem); err != nil {
		return err
	}
	if len(s.Standings) == 0 {
		_, err := fmt.Fprintln(w, EmptyMessage)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	header := []string{"#", "User", "Solved", "Penalty"}
	for index := 1; index <= s.TotalProblemCount; index++ {
		header = append(header, ProblemLabel(index))
	}
	writeRow(tw, header)

	for _, row := range s.Standings {
		byIndex := make(map[int]types.ProblemResult, len(row.Problems))
		for _, p := range row.Problems {
			byIndex[p.ProblemIndex] = p
		}

		user := row.Username
		if row.Clan != "" {
			user += " (" + row.Clan + ")"
		}
		cells := []string{
			strconv.Itoa(row.Rank),
			user,
			strconv.Itoa(row.SolvedCount),
			strconv.Itoa(row.TotalPenalty),
		}
		for index := 1; index <= s.TotalProblemCount; index++ {
			result, touched := byIndex[index]
			cells = append(cells, Cell(result, touched))
		}
		writeRow(tw, cells)
	}

	footer := []string{"", "solved/tried", "", ""}
	for index := 1; index <= s.TotalProblemCount; index++ {
		status := s.ProblemSolveStatus[index]
		footer = append(footer, fmt.Sprintf("%d/%d", status.Solved, status.Attempted))
	}
	writeRow(tw, footer)

	return tw.Flush()
}

// View writes whatever the poller currently holds.
func View(w io.Writer, v poller.View) error {
	switch {
	case v.Status == poller.StatusError:
		_, err := fmt.Fprintf(w, "Error: %s\n", v.Err)
		return err
	case v.Data == nil:
		_, err := fmt.Fprintln(w, "Loading standings...")
		return err
	}

	if err := Table(w, *v.Data); err != nil {
		return err
	}
	var note string
	switch {
	case v.Final:
		note = "Contest ended; final standings."
	case v.Status == poller.StatusLoading:
		note = "Refreshing..."
	default:
		note = "Generated " + v.Data.GeneratedAt.Local().Format("15:04:05")
	}
	_, err := fmt.Fprintf(w, "\n%s\n", note)
	return err
}

func writeRow(w io.Writer, cells []string) {
	fmt.Fprintln(w, strings.Join(cells, "\t"))
}
