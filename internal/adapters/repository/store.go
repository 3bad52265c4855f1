// Package repository stores players and their per-window ratings and serves
// the ordinal leaderboards built from them.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/skillboard/internal/domain/model"
	"github.com/okian/skillboard/internal/domain/rating"
)

// Entry represents a leaderboard row for one window.
type Entry struct {
	Rank      int       `json:"rank"`
	PlayerID  string    `json:"player_id"`
	Mu        float64   `json:"mu"`
	Sigma     float64   `json:"sigma"`
	Ordinal   float64   `json:"ordinal"`
	Matches   int       `json:"matches"`
	Wins      int       `json:"wins"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ApplyFunc computes the new state of every participant of a match. teams is
// aligned with match.Teams and the result must keep that shape.
type ApplyFunc func(ctx context.Context, teams [][]model.Player) ([][]model.Player, error)

// Store provides read/write access to player ratings.
type Store interface {
	// Apply loads every participant of match, seeding unknown players with
	// seed, runs fn and commits its result atomically. No other Apply
	// touching the same players runs in between. A match ID that was
	// already applied returns ErrDuplicateMatch.
	Apply(ctx context.Context, match model.Match, seed rating.Skill, fn ApplyFunc) ([][]model.Player, error)

	// Player returns the stored state of a player or ErrNotFound.
	Player(ctx context.Context, id string) (model.Player, error)

	// Players returns the state of every id in order. Unknown players are
	// returned seeded with seed and are not stored.
	Players(ctx context.Context, ids []string, seed rating.Skill) ([]model.Player, error)

	// Rank returns the leaderboard entry of a player in window w.
	Rank(ctx context.Context, id string, w rating.Window) (Entry, error)

	// TopN returns the best n entries of window w ordered by ordinal desc.
	// Players with equal ordinals share a rank.
	TopN(ctx context.Context, w rating.Window, n int) ([]Entry, error)

	// ResetWindow re-seeds window w for every player and returns how many
	// players were reset. The overall window cannot be reset.
	ResetWindow(ctx context.Context, w rating.Window, seed rating.Skill) (int, error)

	// Count returns the number of stored players.
	Count(ctx context.Context) (int, error)

	Close() error
}

func newEntry(p model.Player, w rating.Window, rank int) Entry {
	s := p.Windows.Get(w)
	return Entry{
		Rank:      rank,
		PlayerID:  p.ID,
		Mu:        s.Mu,
		Sigma:     s.Sigma,
		Ordinal:   s.Ordinal(),
		Matches:   p.Matches,
		Wins:      p.Wins,
		UpdatedAt: p.UpdatedAt,
	}
}

func checkWindow(w rating.Window) error {
	if !w.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidWindow, w)
	}
	return nil
}

func checkResettable(w rating.Window) error {
	if err := checkWindow(w); err != nil {
		return err
	}
	if w == rating.Overall {
		return fmt.Errorf("%w: %s cannot be reset", ErrInvalidWindow, w)
	}
	return nil
}

func checkLimit(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	return nil
}

// checkApplied verifies that out keeps the shape and identities of in.
func checkApplied(in, out [][]model.Player) error {
	if len(out) != len(in) {
		return fmt.Errorf("%w: %d teams returned for %d", ErrInvalidUpdate, len(out), len(in))
	}
	for i := range in {
		if len(out[i]) != len(in[i]) {
			return fmt.Errorf("%w: team %d returned %d players for %d", ErrInvalidUpdate, i, len(out[i]), len(in[i]))
		}
		for j := range in[i] {
			if out[i][j].ID != in[i][j].ID {
				return fmt.Errorf("%w: team %d slot %d returned %q for %q", ErrInvalidUpdate, i, j, out[i][j].ID, in[i][j].ID)
			}
		}
	}
	return nil
}
