package domain

import "errors"

var (
	// ErrInvalidSubmission is returned for a malformed answers payload
	// (missing contest ID or empty answer set).
	ErrInvalidSubmission = errors.New("invalid submission payload")
	// ErrAlreadySubmitted is returned when a participation record already
	// exists for the (user, contest) pair. Scores are immutable once recorded.
	ErrAlreadySubmitted = errors.New("contest already submitted")
	// ErrContestNotFound indicates the contest is missing from the catalog.
	ErrContestNotFound = errors.New("contest not found")
	// ErrQuestionNotFound indicates the contest's questions could not be found.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrNotEligible is returned when the caller's role may not participate.
	ErrNotEligible = errors.New("role not eligible to participate")
	// ErrVIPOnly is returned when a non-vip caller touches a vip contest.
	ErrVIPOnly = errors.New("contest is vip only")
	// ErrContestNotActive is returned outside the contest's time window.
	ErrContestNotActive = errors.New("contest not active")
	// ErrCatalogUnavailable wraps failures of the contest/question catalog.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	// ErrDirectoryUnavailable wraps failures of the user directory.
	ErrDirectoryUnavailable = errors.New("user directory unavailable")
)
