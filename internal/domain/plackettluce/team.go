package plackettluce

import (
	"math"

	"github.com/okian/skillboard/internal/domain/rating"
)

// teamRating is the aggregate of one team for a single call.
type teamRating struct {
	mu      float64
	sigmaSq float64
	players []rating.Rating
	rank    int
}

// teamRatings aggregates every team. ranks holds competition positions and
// may be nil, in which case every team takes its index as rank.
func (m *Model) teamRatings(teams [][]rating.Rating, ranks []int) []teamRating {
	out := make([]teamRating, len(teams))
	for i, team := range teams {
		rank := i
		if ranks != nil {
			rank = ranks[i]
		}
		out[i] = m.aggregate(team)
		out[i].rank = rank
	}
	return out
}

// aggregate sums the team's player means and variances, scaled by the
// balance weight when balancing is enabled.
func (m *Model) aggregate(team []rating.Rating) teamRating {
	best := math.Inf(-1)
	if m.balance {
		for _, p := range team {
			best = math.Max(best, p.Ordinal())
		}
	}

	tr := teamRating{players: team}
	for _, p := range team {
		w := 1.0
		if m.balance {
			w = 1 + (best-p.Ordinal())/(best+m.kappa)
		}
		tr.mu += p.Mu * w
		tr.sigmaSq += (p.Sigma * w) * (p.Sigma * w)
	}
	return tr
}

// pooledScale returns sqrt(sum(team sigma^2 + beta^2)).
func (m *Model) pooledScale(teams []teamRating) float64 {
	betaSq := m.beta * m.beta
	sum := 0.0
	for _, t := range teams {
		sum += t.sigmaSq + betaSq
	}
	return math.Sqrt(sum)
}

// sumQ returns, for every team q, the exponential mass of all teams ranked
// at or below q.
func sumQ(teams []teamRating, c float64) []float64 {
	out := make([]float64, len(teams))
	for _, ti := range teams {
		e := math.Exp(ti.mu / c)
		for q, tq := range teams {
			if ti.rank >= tq.rank {
				out[q] += e
			}
		}
	}
	return out
}

// tieCounts returns the number of teams sharing each team's rank.
func tieCounts(teams []teamRating) []int {
	out := make([]int, len(teams))
	for i, ti := range teams {
		for _, tq := range teams {
			if ti.rank == tq.rank {
				out[i]++
			}
		}
	}
	return out
}

// pairDenominator is the performance spread between two teams.
func (m *Model) pairDenominator(a, b teamRating) float64 {
	return math.Sqrt(2*m.beta*m.beta + a.sigmaSq + b.sigmaSq)
}
