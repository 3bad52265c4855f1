package rating

import "errors"

// Sentinel errors for rating values.
var (
	ErrUnknownWindow = errors.New("unknown rating window")
)
