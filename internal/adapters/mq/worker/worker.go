package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/skillboard/internal/adapters/repository"
	"github.com/okian/skillboard/internal/domain/model"
	"github.com/okian/skillboard/internal/domain/rater"
	"github.com/okian/skillboard/internal/domain/rating"
	"github.com/okian/skillboard/pkg/logger"
	"github.com/okian/skillboard/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Queue defines how workers receive matches.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Match
}

// Applier commits a rated match. repository.Store satisfies it.
type Applier interface {
	Apply(ctx context.Context, match model.Match, seed rating.Skill, fn repository.ApplyFunc) ([][]model.Player, error)
}

// Rater computes new player states. rater.Rater satisfies it.
type Rater interface {
	Kind() rater.Kind
	Seed() rating.Skill
	Rate(ctx context.Context, match model.Match, teams [][]model.Player) ([][]model.Player, error)
}

// Worker processes matches until the queue closes or ctx ends.
type Worker interface {
	Run(ctx context.Context)
}

// InMemoryWorker applies queued matches one at a time.
type InMemoryWorker struct {
	queue     Queue
	rater     Rater
	store     Applier
	name      string
	onFailure FailureFunc
	active    *atomic.Int64

	done chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, r Rater, store Applier, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		rater:    r,
		store:    store,
		name:     "worker",
		active:   new(atomic.Int64),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	matches := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-matches:
			if !ok {
				return
			}
			if err := w.process(ctx, m); err != nil {
				w.logger.Error(ctx, "error processing match", logger.Error(err))
			}
		}
	}
}

// process rates a single match inside a store transaction.
func (w *InMemoryWorker) process(ctx context.Context, m model.Match) error {
	metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
	start := time.Now()
	defer func() {
		metrics.UpdateWorkerActiveCount(int(w.active.Add(-1)))
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	kind := string(w.rater.Kind())
	rate := func(ctx context.Context, teams [][]model.Player) ([][]model.Player, error) {
		rateStart := time.Now()
		out, err := w.rater.Rate(ctx, m, teams)
		metrics.RecordRatingLatency(kind, float64(time.Since(rateStart).Microseconds())/1000)
		return out, err
	}

	if _, err := w.store.Apply(ctx, m, w.rater.Seed(), rate); err != nil {
		reason := failureReason(err)
		metrics.RecordMatchFailed(reason)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", reason)
		if w.onFailure != nil {
			w.onFailure(ctx, m, err)
		}
		return fmt.Errorf("apply match %s: %w", m.ID, err)
	}

	metrics.RecordMatchRated(kind)
	w.logger.Debug(ctx, "match rated",
		logger.String("match_id", m.ID),
		logger.Int("teams", len(m.Teams)),
	)
	return nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, repository.ErrDuplicateMatch):
		return "duplicate"
	case errors.Is(err, rater.ErrUnsupportedMatch):
		return "unsupported"
	case errors.Is(err, rater.ErrShapeMismatch), errors.Is(err, repository.ErrInvalidUpdate):
		return "shape_mismatch"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "rating_error"
	}
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	logger  logger.Logger
}

// NewPool creates workerCount workers sharing q. A count below 1 selects
// runtime.NumCPU(). opts apply to every worker.
func NewPool(workerCount int, q Queue, r Rater, store Applier, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	active := new(atomic.Int64)
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		w := NewInMemoryWorker(q, r, store, append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)...)
		w.active = active
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Wait blocks until every worker has returned, which happens once the
// queue is closed and drained or the run context ends.
func (p *Pool) Wait(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			return fmt.Errorf("drain workers: %w", ctx.Err())
		}
	}
	return nil
}
