// Package rater applies a rating model to stored players.
//
// A Rater receives a validated match together with the current state of
// every participant, runs the configured model over every rating window and
// returns the new player states. It never stores anything; the repository
// decides when the returned values are committed.
package rater

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/skillboard/internal/domain/model"
	pl "github.com/okian/skillboard/internal/domain/plackettluce"
	"github.com/okian/skillboard/internal/domain/rating"
)

// Kind names a rating model.
type Kind string

// Supported models.
const (
	KindElo          Kind = "elo"
	KindPlackettLuce Kind = "plackett-luce"
)

// ParseKind maps a configuration value to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindElo, KindPlackettLuce:
		return k, nil
	case "plackettluce", "pl":
		return KindPlackettLuce, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownModel, s)
	}
}

// Predictor estimates match outcomes from one rating window.
type Predictor interface {
	PredictWin(teams [][]model.Player, w rating.Window) ([]float64, error)
	PredictDraw(teams [][]model.Player, w rating.Window) (float64, error)
	PredictRank(teams [][]model.Player, w rating.Window) ([]pl.RankPrediction, error)
}

// Rater computes new player states for a match.
type Rater interface {
	Predictor

	// Kind names the underlying model.
	Kind() Kind
	// Seed is the skill assigned to players that have never played.
	Seed() rating.Skill
	// Rate returns the updated players of every team of match, aligned with
	// match.Teams. teams must hold the current state of those players in
	// the same order and is not modified.
	Rate(ctx context.Context, match model.Match, teams [][]model.Player) ([][]model.Player, error)
}

// checkShape verifies that teams lines up with match.Teams.
func checkShape(match model.Match, teams [][]model.Player) error {
	if len(teams) != len(match.Teams) {
		return fmt.Errorf("%w: %d teams for %d match teams", ErrShapeMismatch, len(teams), len(match.Teams))
	}
	for i, t := range match.Teams {
		if len(teams[i]) != len(t.Players) {
			return fmt.Errorf("%w: team %d has %d players, expected %d", ErrShapeMismatch, i, len(teams[i]), len(t.Players))
		}
		for j, id := range t.Players {
			if teams[i][j].ID != id {
				return fmt.Errorf("%w: team %d slot %d holds %q, expected %q", ErrShapeMismatch, i, j, teams[i][j].ID, id)
			}
		}
	}
	return nil
}

// predictor implements Predictor on a Plackett-Luce model.
type predictor struct {
	model *pl.Model
}

func (p predictor) PredictWin(teams [][]model.Player, w rating.Window) ([]float64, error) {
	return p.model.PredictWin(windowRatings(teams, w))
}

func (p predictor) PredictDraw(teams [][]model.Player, w rating.Window) (float64, error) {
	return p.model.PredictDraw(windowRatings(teams, w))
}

func (p predictor) PredictRank(teams [][]model.Player, w rating.Window) ([]pl.RankPrediction, error) {
	return p.model.PredictRank(windowRatings(teams, w))
}

// windowRatings projects the players of every team onto window w.
func windowRatings(teams [][]model.Player, w rating.Window) [][]rating.Rating {
	out := make([][]rating.Rating, len(teams))
	for i, team := range teams {
		out[i] = make([]rating.Rating, len(team))
		for j, p := range team {
			s := p.Windows.Get(w)
			out[i][j] = rating.Rating{ID: p.ID, Mu: s.Mu, Sigma: s.Sigma}
		}
	}
	return out
}

func clonePlayers(teams [][]model.Player) [][]model.Player {
	out := make([][]model.Player, len(teams))
	for i, team := range teams {
		out[i] = append([]model.Player(nil), team...)
	}
	return out
}
