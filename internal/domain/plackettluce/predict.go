package plackettluce

import (
	"cmp"
	"math"
	"slices"

	"github.com/okian/skillboard/internal/domain/rating"
)

// RankPrediction is the predicted placement of one team.
type RankPrediction struct {
	// Team is the index of the team in the input.
	Team int `json:"team"`
	// Rank starts at 1. Teams with equal probability share a rank.
	Rank        int     `json:"rank"`
	Probability float64 `json:"probability"`
}

// PredictWin returns each team's probability of winning, in input order.
// The probabilities sum to 1.
func (m *Model) PredictWin(teams [][]rating.Rating) ([]float64, error) {
	if err := validateTeams(teams); err != nil {
		return nil, err
	}
	trs := m.teamRatings(teams, nil)

	if len(trs) == 2 {
		p := phi((trs[0].mu - trs[1].mu) / m.pairDenominator(trs[0], trs[1]))
		return []float64{p, 1 - p}, nil
	}
	return m.pairwiseWin(trs), nil
}

// pairwiseWin averages every team's head-to-head win probability over its
// opponents and normalizes the result to sum to 1.
func (m *Model) pairwiseWin(trs []teamRating) []float64 {
	n := len(trs)
	out := make([]float64, n)
	total := 0.0
	for i, ti := range trs {
		for j, tj := range trs {
			if i == j {
				continue
			}
			out[i] += phi((ti.mu - tj.mu) / m.pairDenominator(ti, tj))
		}
		out[i] /= float64(n - 1)
		total += out[i]
	}
	for i := range out {
		out[i] /= total
	}
	return out
}

// PredictDraw returns the probability that the match ends in a draw.
func (m *Model) PredictDraw(teams [][]rating.Rating) (float64, error) {
	if err := validateTeams(teams); err != nil {
		return 0, err
	}

	players := 0
	for _, team := range teams {
		players += len(team)
	}
	drawProbability := 1 / float64(players)
	drawMargin := math.Sqrt(float64(players)) * m.beta * phiInverse((1+drawProbability)/2)

	trs := m.teamRatings(teams, nil)
	sum, pairs := 0.0, 0
	for i := 0; i < len(trs); i++ {
		for j := i + 1; j < len(trs); j++ {
			a, b := trs[i], trs[j]
			den := m.pairDenominator(a, b)
			sum += phi((drawMargin-a.mu+b.mu)/den) - phi((b.mu-a.mu-drawMargin)/den)
			pairs++
		}
	}
	return sum / float64(pairs), nil
}

// PredictRank returns every team's predicted placement ordered from most to
// least likely winner.
func (m *Model) PredictRank(teams [][]rating.Rating) ([]RankPrediction, error) {
	if err := validateTeams(teams); err != nil {
		return nil, err
	}
	probs := m.pairwiseWin(m.teamRatings(teams, nil))

	out := make([]RankPrediction, len(probs))
	for i, p := range probs {
		out[i] = RankPrediction{Team: i, Probability: p}
	}
	slices.SortStableFunc(out, func(a, b RankPrediction) int {
		return cmp.Compare(b.Probability, a.Probability)
	})
	for k := range out {
		if k > 0 && out[k].Probability == out[k-1].Probability {
			out[k].Rank = out[k-1].Rank
		} else {
			out[k].Rank = k + 1
		}
	}
	return out, nil
}
