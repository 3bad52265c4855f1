// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"
	"time"

	"github.com/okian/skillboard/internal/domain/rating"
)

// Team is one side of a match. Exactly one of Score and Rank is set for
// every team of a match.
type Team struct {
	Players []string
	Score   *float64
	Rank    *int
	// Weights, when present, has one entry in [0, 1] per player.
	Weights []float64
}

// Match is a finished match submitted for rating.
type Match struct {
	ID          string
	Teams       []Team
	PlayedAt    time.Time
	SubmittedAt time.Time
}

// Player is the stored state of one player.
type Player struct {
	ID        string
	Windows   rating.WindowSet
	Matches   int
	Wins      int
	UpdatedAt time.Time
}

// NewPlayer returns a player that has not played yet, seeded with s in
// every window.
func NewPlayer(id string, s rating.Skill) Player {
	return Player{ID: id, Windows: rating.Seed(s)}
}

// Validate checks the structural rules every rating model relies on.
func (m Match) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: missing match id", ErrInvalidMatch)
	}
	if len(m.Teams) < 2 {
		return fmt.Errorf("%w: need at least 2 teams, got %d", ErrInvalidMatch, len(m.Teams))
	}

	scored := m.Teams[0].Score != nil
	seen := make(map[string]int)
	for i, t := range m.Teams {
		if len(t.Players) == 0 {
			return fmt.Errorf("%w: team %d has no players", ErrInvalidMatch, i)
		}
		switch {
		case t.Score != nil && t.Rank != nil:
			return fmt.Errorf("%w: team %d has both score and rank", ErrInvalidMatch, i)
		case t.Score == nil && t.Rank == nil:
			return fmt.Errorf("%w: team %d has neither score nor rank", ErrInvalidMatch, i)
		case (t.Score != nil) != scored:
			return fmt.Errorf("%w: teams mix scores and ranks", ErrInvalidMatch)
		}
		if t.Score != nil && (*t.Score < 0 || math.IsNaN(*t.Score) || math.IsInf(*t.Score, 0)) {
			return fmt.Errorf("%w: team %d score must be a non-negative number", ErrInvalidMatch, i)
		}
		if t.Rank != nil && *t.Rank < 0 {
			return fmt.Errorf("%w: team %d rank must not be negative", ErrInvalidMatch, i)
		}

		if t.Weights != nil {
			if len(t.Weights) != len(t.Players) {
				return fmt.Errorf("%w: team %d has %d weights for %d players", ErrInvalidMatch, i, len(t.Weights), len(t.Players))
			}
			for _, w := range t.Weights {
				if w < 0 || w > 1 || math.IsNaN(w) {
					return fmt.Errorf("%w: team %d weights must be within [0, 1]", ErrInvalidMatch, i)
				}
			}
		}

		for _, id := range t.Players {
			if id == "" {
				return fmt.Errorf("%w: team %d has an empty player id", ErrInvalidMatch, i)
			}
			if prev, ok := seen[id]; ok {
				return fmt.Errorf("%w: player %q appears in team %d and team %d", ErrInvalidMatch, id, prev, i)
			}
			seen[id] = i
		}
	}
	return nil
}

// HasScores reports whether the outcome is given as scores.
func (m Match) HasScores() bool {
	return len(m.Teams) > 0 && m.Teams[0].Score != nil
}

// Scores returns every team's score, or nil for a ranked match.
func (m Match) Scores() []float64 {
	if !m.HasScores() {
		return nil
	}
	out := make([]float64, len(m.Teams))
	for i, t := range m.Teams {
		out[i] = *t.Score
	}
	return out
}

// Ranks returns every team's rank, or nil for a scored match.
func (m Match) Ranks() []int {
	if m.HasScores() {
		return nil
	}
	out := make([]int, len(m.Teams))
	for i, t := range m.Teams {
		if t.Rank != nil {
			out[i] = *t.Rank
		}
	}
	return out
}

// Winners reports, per team, whether the team beat every other team
// outright. A shared best score or rank is not a win.
func (m Match) Winners() []bool {
	out := make([]bool, len(m.Teams))
	if m.HasScores() {
		scores := m.Scores()
		for i := range scores {
			out[i] = true
			for j := range scores {
				if j != i && scores[j] >= scores[i] {
					out[i] = false
					break
				}
			}
		}
		return out
	}
	ranks := m.Ranks()
	for i := range ranks {
		out[i] = true
		for j := range ranks {
			if j != i && ranks[j] <= ranks[i] {
				out[i] = false
				break
			}
		}
	}
	return out
}

// Weights returns the per-player weights of every team, or nil when no team
// carries any. Teams without weights get full weight.
func (m Match) Weights() [][]float64 {
	weighted := false
	for _, t := range m.Teams {
		if t.Weights != nil {
			weighted = true
			break
		}
	}
	if !weighted {
		return nil
	}
	out := make([][]float64, len(m.Teams))
	for i, t := range m.Teams {
		if t.Weights != nil {
			out[i] = append([]float64(nil), t.Weights...)
			continue
		}
		out[i] = make([]float64, len(t.Players))
		for j := range out[i] {
			out[i][j] = 1
		}
	}
	return out
}

// PlayerIDs returns every participant in team order.
func (m Match) PlayerIDs() []string {
	var out []string
	for _, t := range m.Teams {
		out = append(out, t.Players...)
	}
	return out
}
