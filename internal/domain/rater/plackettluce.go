package rater

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/skillboard/internal/domain/model"
	pl "github.com/okian/skillboard/internal/domain/plackettluce"
	"github.com/okian/skillboard/internal/domain/rating"
	"github.com/okian/skillboard/pkg/logger"
)

// PlackettLuceRater rates matches of any number of teams with the
// Plackett-Luce model, updating every window.
type PlackettLuceRater struct {
	predictor
	log logger.Logger
	now func() time.Time
}

// NewPlackettLuce returns a rater around m. m also serves predictions.
func NewPlackettLuce(m *pl.Model, opts ...Option) *PlackettLuceRater {
	o := buildOptions(opts)
	return &PlackettLuceRater{
		predictor: predictor{model: m},
		log:       o.log,
		now:       o.now,
	}
}

func (r *PlackettLuceRater) Kind() Kind         { return KindPlackettLuce }
func (r *PlackettLuceRater) Seed() rating.Skill { return r.model.Seed() }

// Rate implements Rater.
func (r *PlackettLuceRater) Rate(ctx context.Context, match model.Match, teams [][]model.Player) ([][]model.Player, error) {
	if err := checkShape(match, teams); err != nil {
		return nil, err
	}

	var opts []pl.RateOption
	if match.HasScores() {
		opts = append(opts, pl.Scores(match.Scores()...))
	} else {
		opts = append(opts, pl.Ranks(match.Ranks()...))
	}
	if w := match.Weights(); w != nil {
		opts = append(opts, pl.Weights(w))
	}

	out := clonePlayers(teams)
	for _, w := range rating.Windows() {
		rated, err := r.model.Rate(windowRatings(out, w), opts...)
		if err != nil {
			return nil, fmt.Errorf("rate %s window of match %s: %w", w, match.ID, err)
		}
		for i := range out {
			for j := range out[i] {
				out[i][j].Windows = out[i][j].Windows.With(w, rated[i][j].Skill())
			}
		}
	}

	stamp := r.now()
	won := match.Winners()
	for i := range out {
		for j := range out[i] {
			out[i][j].Matches++
			if won[i] {
				out[i][j].Wins++
			}
			out[i][j].UpdatedAt = stamp
		}
	}

	r.log.Debug(ctx, "plackett-luce match rated",
		logger.String("match_id", match.ID),
		logger.Int("teams", len(out)),
	)
	return out, nil
}
