package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound       = errors.New("player not found")
	ErrInvalidLimit   = errors.New("invalid leaderboard limit")
	ErrInvalidWindow  = errors.New("invalid rating window")
	ErrDuplicateMatch = errors.New("match already applied")
	ErrInvalidUpdate  = errors.New("invalid player update")
)
