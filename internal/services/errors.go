package services

import "errors"

var (
	// ErrContestNotFound is returned when the requested contest does not exist.
	ErrContestNotFound = errors.New("contest not found")

	// ErrInvalidPage is returned for a page below one or a negative limit.
	ErrInvalidPage = errors.New("invalid page or limit")

	// ErrStandingsUnavailable is returned when the submission data could not
	// be read. The caller may retry; it wraps the underlying cause.
	ErrStandingsUnavailable = errors.New("standings temporarily unavailable")

	// ErrContestRunning is returned when archiving a contest that has not ended.
	ErrContestRunning = errors.New("contest has not ended")

	// ErrPendingSubmissions is returned when archiving a contest that still
	// has submissions waiting for a verdict.
	ErrPendingSubmissions = errors.New("contest has pending submissions")

	// ErrArchiveDisabled is returned when no object storage is configured.
	ErrArchiveDisabled = errors.New("standings archive is not configured")

	// ErrSubmissionNotFound is returned for a verdict on an unknown submission.
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrInvalidVerdict is returned for a verdict event that is not terminal.
	ErrInvalidVerdict = errors.New("verdict must be terminal")
)
