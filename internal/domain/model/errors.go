package model

import "errors"

// ErrInvalidMatch is wrapped by every Match.Validate failure.
var ErrInvalidMatch = errors.New("invalid match")
