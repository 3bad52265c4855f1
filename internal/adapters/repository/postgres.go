package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/skillboard/internal/domain/model"
	"github.com/okian/skillboard/internal/domain/rating"
	"github.com/okian/skillboard/pkg/logger"
	"github.com/okian/skillboard/pkg/metrics"
)

//go:embed schema.sql
var schemaSQL string

// PostgresStore is a Store backed by PostgreSQL. Apply runs one transaction
// per match and locks the participant rows with SELECT ... FOR UPDATE.
type PostgresStore struct {
	pool     *pgxpool.Pool
	log      logger.Logger
	maxConns int32
}

// NewPostgresStore connects to dsn and applies the schema.
func NewPostgresStore(ctx context.Context, dsn string, opts ...PostgresOption) (*PostgresStore, error) {
	s := &PostgresStore{log: logger.Get().Named("postgres_store")}
	for _, opt := range opts {
		opt(s)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if s.maxConns > 0 {
		cfg.MaxConns = s.maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	s.pool = pool

	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	s.log.Info(ctx, "postgres store ready", logger.Int("max_conns", int(cfg.MaxConns)))
	return s, nil
}

// Migrate creates the tables when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func windowNames() []string {
	ws := rating.Windows()
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.String()
	}
	return out
}

// Apply implements Store.
func (s *PostgresStore) Apply(ctx context.Context, match model.Match, seed rating.Skill, fn ApplyFunc) ([][]model.Player, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("apply", float64(time.Since(start).Milliseconds()))
	}()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var playedAt *time.Time
	if !match.PlayedAt.IsZero() {
		playedAt = &match.PlayedAt
	}
	tag, err := tx.Exec(ctx,
		`INSERT INTO matches (id, played_at) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		match.ID, playedAt)
	if err != nil {
		return nil, fmt.Errorf("record match: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrDuplicateMatch
	}

	// Sorted ids keep the lock order stable across concurrent matches.
	ids := match.PlayerIDs()
	slices.Sort(ids)

	if _, err := tx.Exec(ctx,
		`INSERT INTO players (id) SELECT unnest($1::text[]) ON CONFLICT (id) DO NOTHING`,
		ids); err != nil {
		return nil, fmt.Errorf("seed players: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO player_ratings (player_id, window_name, mu, sigma)
		 SELECT p, w, $3, $4 FROM unnest($1::text[]) AS p CROSS JOIN unnest($2::text[]) AS w
		 ON CONFLICT (player_id, window_name) DO NOTHING`,
		ids, windowNames(), seed.Mu, seed.Sigma); err != nil {
		return nil, fmt.Errorf("seed ratings: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`SELECT id FROM players WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids); err != nil {
		return nil, fmt.Errorf("lock players: %w", err)
	}
	byID, err := loadPlayers(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	teams := make([][]model.Player, len(match.Teams))
	for i, t := range match.Teams {
		teams[i] = make([]model.Player, len(t.Players))
		for j, id := range t.Players {
			teams[i][j] = byID[id]
		}
	}

	out, err := fn(ctx, teams)
	if err != nil {
		return nil, err
	}
	if err := checkApplied(teams, out); err != nil {
		return nil, err
	}

	batch := &pgx.Batch{}
	for _, team := range out {
		for _, p := range team {
			var updatedAt *time.Time
			if !p.UpdatedAt.IsZero() {
				updatedAt = &p.UpdatedAt
			}
			batch.Queue(`UPDATE players SET matches = $2, wins = $3, updated_at = $4 WHERE id = $1`,
				p.ID, p.Matches, p.Wins, updatedAt)
			for _, w := range rating.Windows() {
				sk := p.Windows.Get(w)
				batch.Queue(`UPDATE player_ratings SET mu = $3, sigma = $4 WHERE player_id = $1 AND window_name = $2`,
					p.ID, w.String(), sk.Mu, sk.Sigma)
			}
		}
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("store ratings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

// Player implements Store.
func (s *PostgresStore) Player(ctx context.Context, id string) (model.Player, error) {
	byID, err := loadPlayers(ctx, s.pool, []string{id})
	if err != nil {
		return model.Player{}, err
	}
	p, ok := byID[id]
	if !ok {
		return model.Player{}, ErrNotFound
	}
	return p, nil
}

// Players implements Store.
func (s *PostgresStore) Players(ctx context.Context, ids []string, seed rating.Skill) ([]model.Player, error) {
	byID, err := loadPlayers(ctx, s.pool, ids)
	if err != nil {
		return nil, err
	}
	out := make([]model.Player, len(ids))
	for i, id := range ids {
		p, ok := byID[id]
		if !ok {
			p = model.NewPlayer(id, seed)
		}
		out[i] = p
	}
	return out, nil
}

// Rank implements Store.
func (s *PostgresStore) Rank(ctx context.Context, id string, w rating.Window) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("rank", float64(time.Since(start).Milliseconds()))
	}()

	if err := checkWindow(w); err != nil {
		return Entry{}, err
	}

	var (
		e         Entry
		updatedAt *time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT r.player_id, r.mu, r.sigma, r.ordinal, p.matches, p.wins, p.updated_at,
		       1 + (SELECT count(*) FROM player_ratings o
		            WHERE o.window_name = r.window_name AND o.ordinal > r.ordinal)
		FROM player_ratings r JOIN players p ON p.id = r.player_id
		WHERE r.player_id = $1 AND r.window_name = $2`,
		id, w.String(),
	).Scan(&e.PlayerID, &e.Mu, &e.Sigma, &e.Ordinal, &e.Matches, &e.Wins, &updatedAt, &e.Rank)
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("rank %s: %w", id, err)
	}
	if updatedAt != nil {
		e.UpdatedAt = *updatedAt
	}
	return e, nil
}

// TopN implements Store.
func (s *PostgresStore) TopN(ctx context.Context, w rating.Window, n int) ([]Entry, error) {
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

	rows, err := s.pool.Query(ctx, `
		SELECT r.player_id, r.mu, r.sigma, r.ordinal, p.matches, p.wins, p.updated_at,
		       rank() OVER (ORDER BY r.ordinal DESC)
		FROM player_ratings r JOIN players p ON p.id = r.player_id
		WHERE r.window_name = $1
		ORDER BY r.ordinal DESC, r.player_id
		LIMIT $2`,
		w.String(), n)
	if err != nil {
		return nil, fmt.Errorf("top %d: %w", n, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e         Entry
			rank      int64
			updatedAt *time.Time
		)
		if err := rows.Scan(&e.PlayerID, &e.Mu, &e.Sigma, &e.Ordinal, &e.Matches, &e.Wins, &updatedAt, &rank); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		e.Rank = int(rank)
		if updatedAt != nil {
			e.UpdatedAt = *updatedAt
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ResetWindow implements Store.
func (s *PostgresStore) ResetWindow(ctx context.Context, w rating.Window, seed rating.Skill) (int, error) {
	if err := checkResettable(w); err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE player_ratings SET mu = $2, sigma = $3 WHERE window_name = $1`,
		w.String(), seed.Mu, seed.Sigma)
	if err != nil {
		return 0, fmt.Errorf("reset %s: %w", w, err)
	}
	s.log.Info(ctx, "window reset",
		logger.String("window", w.String()),
		logger.Int("players", int(tag.RowsAffected())),
	)
	return int(tag.RowsAffected()), nil
}

// Count implements Store.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM players`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count players: %w", err)
	}
	return n, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// loadPlayers reads the players named by ids with all their windows.
func loadPlayers(ctx context.Context, q querier, ids []string) (map[string]model.Player, error) {
	rows, err := q.Query(ctx, `
		SELECT p.id, p.matches, p.wins, p.updated_at, r.window_name, r.mu, r.sigma
		FROM players p JOIN player_ratings r ON r.player_id = p.id
		WHERE p.id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.Player, len(ids))
	for rows.Next() {
		var (
			id, window string
			matches    int
			wins       int
			updatedAt  *time.Time
			sk         rating.Skill
		)
		if err := rows.Scan(&id, &matches, &wins, &updatedAt, &window, &sk.Mu, &sk.Sigma); err != nil {
			return nil, fmt.Errorf("scan player row: %w", err)
		}
		w, err := rating.ParseWindow(window)
		if err != nil {
			return nil, fmt.Errorf("player %s: %w", id, err)
		}
		p := out[id]
		p.ID = id
		p.Matches = matches
		p.Wins = wins
		if updatedAt != nil {
			p.UpdatedAt = *updatedAt
		}
		p.Windows = p.Windows.With(w, sk)
		out[id] = p
	}
	return out, rows.Err()
}
