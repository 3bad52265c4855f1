// Package worker rates queued matches through the store.
package worker

import (
	"context"

	"github.com/okian/skillboard/internal/domain/model"
	"github.com/okian/skillboard/pkg/logger"
)

// FailureFunc is called with every match a worker could not apply.
type FailureFunc func(ctx context.Context, m model.Match, err error)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithOnFailure registers fn to run after a match fails.
func WithOnFailure(fn FailureFunc) Option {
	return func(w *InMemoryWorker) {
		w.onFailure = fn
	}
}
