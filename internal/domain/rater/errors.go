package rater

import "errors"

var (
	// ErrUnknownModel is returned for a model name no rater implements.
	ErrUnknownModel = errors.New("unknown rating model")
	// ErrUnsupportedMatch is returned when a model cannot rate the match
	// shape, such as an Elo match with more than two teams.
	ErrUnsupportedMatch = errors.New("match not supported by rating model")
	// ErrShapeMismatch is returned when the loaded players do not line up
	// with the match teams.
	ErrShapeMismatch = errors.New("players do not match the match teams")
)
