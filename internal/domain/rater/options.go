package rater

import (
	"time"

	"github.com/okian/skillboard/pkg/logger"
)

type options struct {
	log logger.Logger
	now func() time.Time
}

// Option configures a rater.
type Option func(*options)

// WithLogger sets the logger used for degenerate input warnings.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithClock sets the clock used for last-updated markers.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get().Named("rater")
	}
	return o
}
