// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	matchqueue "github.com/okian/skillboard/internal/adapters/mq/queue"
	workerpool "github.com/okian/skillboard/internal/adapters/mq/worker"
	"github.com/okian/skillboard/internal/adapters/repository"
	"github.com/okian/skillboard/internal/domain/dedupe"
	"github.com/okian/skillboard/internal/domain/model"
	pl "github.com/okian/skillboard/internal/domain/plackettluce"
	"github.com/okian/skillboard/internal/domain/rater"
	"github.com/okian/skillboard/internal/domain/rating"
	"github.com/okian/skillboard/pkg/logger"
	"github.com/okian/skillboard/pkg/metrics"
)

// ErrNotStarted is returned by operations that need a running service.
var ErrNotStarted = errors.New("service not started")

// Service implements the API dependencies for the rating system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	rater   rater.Rater
	deduper dedupe.Deduper
	queue   *matchqueue.InMemoryQueue
	pool    *workerpool.Pool

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int
	now         func() time.Time

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the match queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many match IDs are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the rating store. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithRater sets the rating model.
func WithRater(r rater.Rater) Option {
	return func(s *Service) {
		if r != nil {
			s.rater = r
		}
	}
}

// WithClock sets the clock used to stamp submissions.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a new Service. Without WithRater it rates with a default
// Plackett-Luce model; without WithStore it keeps ratings in memory.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   10_000,
		dedupeSize:  100_000,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rater == nil {
		s.rater = rater.NewPlackettLuce(pl.New())
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	if s.store == nil {
		s.store = repository.NewTreapStore(ctx)
		s.logger.Info(ctx, "using in-memory treap store")
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = matchqueue.NewInMemoryQueue(matchqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.rater, s.store,
		workerpool.WithOnFailure(s.onFailure),
	)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "rating service started",
		logger.String("model", string(s.rater.Kind())),
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
	)
	return nil
}

// Stop closes the queue, waits for queued matches to be rated and closes
// the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping rating service...")

	var errs []error
	if err := s.queue.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.pool.Wait(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, err)
	}

	s.started = false
	s.logger.Info(ctx, "rating service stopped")
	return errors.Join(errs...)
}

// onFailure lets a failed match be submitted again unless it was already
// applied.
func (s *Service) onFailure(ctx context.Context, m model.Match, err error) {
	if errors.Is(err, repository.ErrDuplicateMatch) {
		return
	}
	s.deduper.Unrecord(ctx, m.ID)
	s.logger.Warn(ctx, "match rejected by rater",
		logger.String("match_id", m.ID),
		logger.Error(err),
	)
}

// Submit validates m and queues it for rating. A missing ID is generated.
// duplicate is true when the ID was already submitted; the match is then
// ignored.
func (s *Service) Submit(ctx context.Context, m model.Match) (id string, duplicate bool, err error) {
	if !s.running() {
		return "", false, ErrNotStarted
	}
	if m.ID == "" {
		m.ID = rating.NewID()
	}
	m.SubmittedAt = s.now()
	if m.PlayedAt.IsZero() {
		m.PlayedAt = m.SubmittedAt
	}
	if err := m.Validate(); err != nil {
		return m.ID, false, err
	}

	if s.deduper.SeenAndRecord(ctx, m.ID) {
		metrics.RecordMatchDuplicate()
		s.logger.Debug(ctx, "duplicate match ignored", logger.String("match_id", m.ID))
		return m.ID, true, nil
	}
	if err := s.queue.Enqueue(ctx, m); err != nil {
		s.deduper.Unrecord(ctx, m.ID)
		return m.ID, false, fmt.Errorf("queue match %s: %w", m.ID, err)
	}

	metrics.RecordMatchSubmitted()
	return m.ID, false, nil
}

// Player returns the leaderboard entry of a player in window w.
func (s *Service) Player(ctx context.Context, id string, w rating.Window) (repository.Entry, error) {
	if !s.running() {
		return repository.Entry{}, ErrNotStarted
	}
	return s.store.Rank(ctx, id, w)
}

// Leaderboard returns the top n entries of window w.
func (s *Service) Leaderboard(ctx context.Context, w rating.Window, n int) ([]repository.Entry, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}
	return s.store.TopN(ctx, w, n)
}

// PredictWin returns the win probability of every team.
func (s *Service) PredictWin(ctx context.Context, teams [][]string, w rating.Window) ([]float64, error) {
	players, err := s.lineup(ctx, teams)
	if err != nil {
		return nil, err
	}
	metrics.RecordPrediction("win")
	return s.rater.PredictWin(players, w)
}

// PredictDraw returns the probability that the match ends in a draw.
func (s *Service) PredictDraw(ctx context.Context, teams [][]string, w rating.Window) (float64, error) {
	players, err := s.lineup(ctx, teams)
	if err != nil {
		return 0, err
	}
	metrics.RecordPrediction("draw")
	return s.rater.PredictDraw(players, w)
}

// PredictRank returns the expected finishing position of every team.
func (s *Service) PredictRank(ctx context.Context, teams [][]string, w rating.Window) ([]pl.RankPrediction, error) {
	players, err := s.lineup(ctx, teams)
	if err != nil {
		return nil, err
	}
	metrics.RecordPrediction("rank")
	return s.rater.PredictRank(players, w)
}

// ResetWindow re-seeds window w for every player.
func (s *Service) ResetWindow(ctx context.Context, w rating.Window) (int, error) {
	if !s.running() {
		return 0, ErrNotStarted
	}
	n, err := s.store.ResetWindow(ctx, w, s.rater.Seed())
	if err != nil {
		return 0, err
	}
	metrics.RecordWindowReset(w.String())
	return n, nil
}

// lineup loads the stored state of every player of teams. Unknown players
// get the seed rating.
func (s *Service) lineup(ctx context.Context, teams [][]string) ([][]model.Player, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}
	var ids []string
	for _, t := range teams {
		ids = append(ids, t...)
	}
	players, err := s.store.Players(ctx, ids, s.rater.Seed())
	if err != nil {
		return nil, err
	}

	out := make([][]model.Player, len(teams))
	for i, t := range teams {
		out[i], players = players[:len(t):len(t)], players[len(t):]
	}
	return out, nil
}

func (s *Service) running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"model":       string(s.rater.Kind()),
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.started {
		ctx := context.Background()
		stats["queueLength"] = s.queue.Len(ctx)
		stats["seenMatches"] = s.deduper.Size()
		if players, err := s.store.Count(ctx); err == nil {
			stats["totalPlayers"] = players
			metrics.UpdatePlayersTotal(players)
		}
	}
	return stats
}
