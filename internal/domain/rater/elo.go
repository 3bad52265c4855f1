package rater

import (
	"context"
	"fmt"

	"github.com/okian/skillboard/internal/domain/elo"
	"github.com/okian/skillboard/internal/domain/model"
	pl "github.com/okian/skillboard/internal/domain/plackettluce"
	"github.com/okian/skillboard/internal/domain/rating"
	"github.com/okian/skillboard/pkg/logger"
)

// EloRater rates two-team matches with the Elo model.
type EloRater struct {
	predictor
	model *elo.Model
	seed  rating.Skill
	log   logger.Logger
}

// NewElo returns a rater around m. New players start at seed. Predictions
// use a Plackett-Luce model on the same scale as seed.
func NewElo(m *elo.Model, seed rating.Skill, opts ...Option) *EloRater {
	o := buildOptions(opts)
	return &EloRater{
		predictor: predictor{model: pl.New(pl.WithMu(seed.Mu), pl.WithSigma(seed.Sigma))},
		model:     m,
		seed:      seed,
		log:       o.log,
	}
}

func (r *EloRater) Kind() Kind         { return KindElo }
func (r *EloRater) Seed() rating.Skill { return r.seed }

// Rate implements Rater. Ranked matches are rated as if every team scored
// minus its rank.
func (r *EloRater) Rate(ctx context.Context, match model.Match, teams [][]model.Player) ([][]model.Player, error) {
	if len(match.Teams) != 2 {
		return nil, fmt.Errorf("%w: elo rates exactly 2 teams, got %d", ErrUnsupportedMatch, len(match.Teams))
	}
	if err := checkShape(match, teams); err != nil {
		return nil, err
	}

	var scoreA, scoreB float64
	if match.HasScores() {
		scores := match.Scores()
		scoreA, scoreB = scores[0], scores[1]
	} else {
		ranks := match.Ranks()
		scoreA, scoreB = -float64(ranks[0]), -float64(ranks[1])
	}

	if len(teams[0]) == 0 || len(teams[1]) == 0 {
		r.log.Warn(ctx, "rating against an empty team",
			logger.String("match_id", match.ID),
			logger.Int("team_a", len(teams[0])),
			logger.Int("team_b", len(teams[1])),
		)
	}

	res := r.model.Update(elo.Match{
		TeamA:  toEloPlayers(teams[0]),
		TeamB:  toEloPlayers(teams[1]),
		ScoreA: scoreA,
		ScoreB: scoreB,
	})

	out := clonePlayers(teams)
	won := match.Winners()
	fromEloPlayers(out[0], res.TeamA, won[0])
	fromEloPlayers(out[1], res.TeamB, won[1])

	r.log.Debug(ctx, "elo match rated",
		logger.String("match_id", match.ID),
		logger.Int("deltas", len(res.Deltas)),
	)
	return out, nil
}

func toEloPlayers(team []model.Player) []elo.Player {
	out := make([]elo.Player, len(team))
	for i, p := range team {
		out[i] = elo.Player{ID: p.ID, Windows: p.Windows, UpdatedAt: p.UpdatedAt}
	}
	return out
}

func fromEloPlayers(dst []model.Player, src []elo.Player, won bool) {
	for i := range dst {
		dst[i].Windows = src[i].Windows
		dst[i].UpdatedAt = src[i].UpdatedAt
		dst[i].Matches++
		if won {
			dst[i].Wins++
		}
	}
}
