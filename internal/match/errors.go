package match

import "errors"

var (
	// ErrPairingPrecondition indicates the matchmaker handed us groups that
	// must never be paired: inactive, empty, or overlapping member sets.
	// This is a programming error, not user input; it is logged and the
	// pairing aborts with no partial effect.
	ErrPairingPrecondition = errors.New("pairing precondition violated")

	// ErrMatchNotFound is returned when the match does not exist.
	ErrMatchNotFound = errors.New("match not found")
)
