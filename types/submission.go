package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Submission represents a user's submission to a contest problem.
// Only the fields the standings engine needs are carried; source code and
// execution details stay with the execution engine.
type Submission struct {
	// ID is the unique identifier of the submission.
	ID int64 `json:"id" db:"id"`

	// ContestID identifies the contest the submission was made in.
	ContestID int `json:"contest_id" db:"contest_id"`

	// ProblemID identifies the problem this submission is for.
	ProblemID int `json:"problem_id" db:"problem_id"`

	// UserID identifies the user who made the submission.
	UserID int `json:"user_id" db:"user_id"`

	// Verdict is the outcome of judging the submission. It moves from
	// VerdictPending to a terminal verdict exactly once.
	Verdict Verdict `json:"verdict" db:"verdict"`

	// SubmittedAt is the time the submission was received.
	SubmittedAt time.Time `json:"submitted_at" db:"submitted_at"`

	// JudgedAt is the time the terminal verdict was recorded.
	JudgedAt *time.Time `json:"judged_at,omitempty" db:"judged_at"`
}

// VerdictEvent is published by the execution engine once a submission has
// been judged.
type VerdictEvent struct {
	SubmissionID int64     `json:"submission_id"`
	ContestID    int       `json:"contest_id"`
	Verdict      Verdict   `json:"verdict"`
	JudgedAt     time.Time `json:"judged_at"`
}

// Verdict represents the outcome of judging a submission.
type Verdict int

// Supported verdict values.
const (
	// VerdictPending indicates the submission has not been judged yet.
	VerdictPending Verdict = iota

	// VerdictAccepted indicates the submission passed all test cases.
	VerdictAccepted

	// VerdictWrongAnswer indicates the submission produced incorrect output.
	VerdictWrongAnswer

	// VerdictTimeLimitExceeded indicates the submission exceeded the time limit.
	VerdictTimeLimitExceeded

	// VerdictMemoryLimitExceeded indicates the submission exceeded the memory limit.
	VerdictMemoryLimitExceeded

	// VerdictRuntimeError indicates a runtime error occurred during execution.
	VerdictRuntimeError

	// VerdictCompilationError indicates the submission failed to compile.
	VerdictCompilationError
)

var verdictCodes = map[Verdict]string{
	VerdictPending:             "PENDING",
	VerdictAccepted:            "AC",
	VerdictWrongAnswer:         "WA",
	VerdictTimeLimitExceeded:   "TLE",
	VerdictMemoryLimitExceeded: "MLE",
	VerdictRuntimeError:        "RE",
	VerdictCompilationError:    "CE",
}

var verdictNames = map[Verdict]string{
	VerdictPending:             "Pending",
	VerdictAccepted:            "Accepted",
	VerdictWrongAnswer:         "Wrong Answer",
	VerdictTimeLimitExceeded:   "Time Limit Exceeded",
	VerdictMemoryLimitExceeded: "Memory Limit Exceeded",
	VerdictRuntimeError:        "Runtime Error",
	VerdictCompilationError:    "Compilation Error",
}

// String returns the compact string representation of the verdict
// used in API responses, storage and logs.
func (v Verdict) String() string {
	if code, ok := verdictCodes[v]; ok {
		return code
	}
	return "UNKNOWN"
}

// Terminal reports whether judging is final for this verdict.
func (v Verdict) Terminal() bool {
	_, known := verdictCodes[v]
	return known && v != VerdictPending
}

// ParseVerdict accepts either the compact code ("AC", "wa") or the full
// name ("Wrong Answer").
func ParseVerdict(raw string) (Verdict, error) {
	value := strings.TrimSpace(raw)
	for v, code := range verdictCodes {
		if strings.EqualFold(value, code) || strings.EqualFold(value, verdictNames[v]) {
			return v, nil
		}
	}
	return VerdictPending, fmt.Errorf("unknown verdict %q", raw)
}

func (v Verdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

func (v *Verdict) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseVerdict(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Value stores the verdict as its compact code.
func (v Verdict) Value() (driver.Value, error) {
	return v.String(), nil
}

// Scan reads a verdict stored as its compact code.
func (v *Verdict) Scan(src any) error {
	switch typed := src.(type) {
	case string:
		parsed, err := ParseVerdict(typed)
		if err != nil {
			return err
		}
		*v = parsed
		return nil
	case []byte:
		return v.Scan(string(typed))
	default:
		return fmt.Errorf("cannot scan %T into Verdict", src)
	}
}
