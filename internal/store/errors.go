package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyJudged is returned when a submission already carries a
// terminal verdict.
var ErrAlreadyJudged = errors.New("submission already judged")
