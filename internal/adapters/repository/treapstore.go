package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/skillboard/internal/domain/model"
	"github.com/okian/skillboard/internal/domain/rating"
	"github.com/okian/skillboard/pkg/logger"
	"github.com/okian/skillboard/pkg/metrics"
)

// TreapStore is an in-memory Store keeping one treap per rating window.
// Apply holds the write lock from read to commit, so matches sharing a
// player are rated one after another.
type TreapStore struct {
	mu      sync.RWMutex
	players map[string]model.Player
	trees   []*node // indexed by rating.Window
	applied map[string]struct{}

	log                   logger.Logger
	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewTreapStore constructs a treap store with configuration options. The
// background metrics updater stops when ctx is done or on Close.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		players:               make(map[string]model.Player),
		trees:                 make([]*node, len(rating.Windows())),
		applied:               make(map[string]struct{}),
		log:                   logger.Get().Named("treap_store"),
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background metrics updater.
func (s *TreapStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// Apply implements Store.
func (s *TreapStore) Apply(ctx context.Context, match model.Match, seed rating.Skill, fn ApplyFunc) ([][]model.Player, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("apply", float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.applied[match.ID]; ok {
		return nil, ErrDuplicateMatch
	}

	teams := make([][]model.Player, len(match.Teams))
	for i, t := range match.Teams {
		teams[i] = make([]model.Player, len(t.Players))
		for j, id := range t.Players {
			teams[i][j] = s.lookup(id, seed)
		}
	}

	out, err := fn(ctx, teams)
	if err != nil {
		return nil, err
	}
	if err := checkApplied(teams, out); err != nil {
		return nil, err
	}

	for _, team := range out {
		for _, p := range team {
			s.put(p)
		}
	}
	s.applied[match.ID] = struct{}{}
	metrics.UpdatePlayersTotal(len(s.players))
	return out, nil
}

// Player implements Store.
func (s *TreapStore) Player(ctx context.Context, id string) (model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[id]
	if !ok {
		return model.Player{}, ErrNotFound
	}
	return p, nil
}

// Players implements Store.
func (s *TreapStore) Players(ctx context.Context, ids []string, seed rating.Skill) ([]model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Player, len(ids))
	for i, id := range ids {
		out[i] = s.lookup(id, seed)
	}
	return out, nil
}

// Rank returns the entry of a player in O(log n).
func (s *TreapStore) Rank(ctx context.Context, id string, w rating.Window) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("rank", float64(time.Since(start).Milliseconds()))
	}()

	if err := checkWindow(w); err != nil {
		return Entry{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, ErrNotFound
	}
	ord := toFixedPoint(p.Windows.Get(w).Ordinal())
	return newEntry(p, w, 1+countGreater(s.trees[w], ord)), nil
}

// TopN returns the top n entries of window w.
func (s *TreapStore) TopN(ctx context.Context, w rating.Window, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("top_n", float64(time.Since(start).Milliseconds()))
	}()

	if err := checkWindow(w); err != nil {
		return nil, err
	}
	if err := checkLimit(n); err != nil {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]*node, 0, min(n, len(s.players)))
	collectTopN(s.trees[w], n, &nodes)

	out := make([]Entry, len(nodes))
	for i, nd := range nodes {
		rank := i + 1
		if i > 0 && nd.ordinal == nodes[i-1].ordinal {
			rank = out[i-1].Rank
		}
		out[i] = newEntry(s.players[nd.id], w, rank)
	}
	return out, nil
}

// ResetWindow implements Store.
func (s *TreapStore) ResetWindow(ctx context.Context, w rating.Window, seed rating.Skill) (int, error) {
	if err := checkResettable(w); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var root *node
	ord := toFixedPoint(seed.Ordinal())
	for id, p := range s.players {
		p.Windows = p.Windows.With(w, seed)
		s.players[id] = p
		root = insert(root, id, ord)
	}
	s.trees[w] = root

	s.log.Info(ctx, "window reset",
		logger.String("window", w.String()),
		logger.Int("players", len(s.players)),
	)
	return len(s.players), nil
}

// Count returns the total number of players.
func (s *TreapStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players), nil
}

// lookup returns the stored player or a seeded one. Caller holds the lock.
func (s *TreapStore) lookup(id string, seed rating.Skill) model.Player {
	if p, ok := s.players[id]; ok {
		return p
	}
	return model.NewPlayer(id, seed)
}

// put stores p and moves it in every window treap. Caller holds the write lock.
func (s *TreapStore) put(p model.Player) {
	old, existed := s.players[p.ID]
	for _, w := range rating.Windows() {
		if existed {
			s.trees[w] = deleteNode(s.trees[w], p.ID, toFixedPoint(old.Windows.Get(w).Ordinal()))
		}
		s.trees[w] = insert(s.trees[w], p.ID, toFixedPoint(p.Windows.Get(w).Ordinal()))
	}
	s.players[p.ID] = p
}

// startMetricsUpdater starts a background goroutine that publishes store gauges.
func (s *TreapStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				count, _ := s.Count(ctx)
				metrics.UpdatePlayersTotal(count)
			}
		}
	}()
}
