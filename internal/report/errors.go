package report

import "errors"

var (
	// ErrAlreadyResolved is returned on a duplicate score report. The first
	// report's effects remain the only ones applied.
	ErrAlreadyResolved = errors.New("match already resolved")

	// ErrInvalidWinners is returned when the reported winner list is empty,
	// longer than the map list, contains an unknown side, or keeps going
	// after the series was already decided.
	ErrInvalidWinners = errors.New("invalid winners report")
)
