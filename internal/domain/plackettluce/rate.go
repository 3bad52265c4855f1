package plackettluce

import (
	"math"
	"slices"

	"github.com/okian/skillboard/internal/domain/rating"
)

const (
	weightLo = 1.0
	weightHi = 2.0

	marginScale = 10.0
)

type rateConfig struct {
	ranks      []int
	hasRanks   bool
	scores     []float64
	hasScores  bool
	weights    [][]float64
	hasWeights bool
	tau        float64
	hasTau     bool
	limitSigma bool
	hasLimit   bool
}

// RateOption describes the outcome of a match and per-call overrides.
type RateOption func(*rateConfig)

// Ranks gives each team's placement, lower is better. Equal values are
// ties.
func Ranks(ranks ...int) RateOption {
	return func(c *rateConfig) {
		c.ranks = slices.Clone(ranks)
		c.hasRanks = true
	}
}

// Scores gives each team's score, higher is better.
func Scores(scores ...float64) RateOption {
	return func(c *rateConfig) {
		c.scores = slices.Clone(scores)
		c.hasScores = true
	}
}

// Weights gives each player's contribution to their team, shaped like the
// teams.
func Weights(weights [][]float64) RateOption {
	return func(c *rateConfig) {
		c.weights = make([][]float64, len(weights))
		for i, w := range weights {
			c.weights[i] = slices.Clone(w)
		}
		c.hasWeights = true
	}
}

// Tau overrides the model's variance inflation for one call.
func Tau(tau float64) RateOption {
	return func(c *rateConfig) {
		c.tau = tau
		c.hasTau = true
	}
}

// LimitSigma overrides the model's limit-sigma setting for one call.
func LimitSigma(limit bool) RateOption {
	return func(c *rateConfig) {
		c.limitSigma = limit
		c.hasLimit = true
	}
}

// Rate updates every player of teams from the outcome given by either Ranks
// or Scores. The result has the shape and order of teams. teams is never
// modified.
func (m *Model) Rate(teams [][]rating.Rating, opts ...RateOption) ([][]rating.Rating, error) {
	var cfg rateConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := validateRate(teams, &cfg); err != nil {
		return nil, err
	}

	tau := m.tau
	if cfg.hasTau {
		tau = cfg.tau
	}
	limit := m.limitSigma
	if cfg.hasLimit {
		limit = cfg.limitSigma
	}

	work := inflate(teams, tau)

	ranks := cfg.ranks
	if cfg.hasScores {
		ranks = RanksFromScores(cfg.scores)
	}

	var weights [][]float64
	if cfg.hasWeights {
		weights = make([][]float64, len(cfg.weights))
		for i, w := range cfg.weights {
			weights[i] = Normalize(w, weightLo, weightHi)
		}
	}

	order := rankOrder(ranks)
	sorted := permute(ranks, order)
	var scores []float64
	if cfg.hasScores {
		scores = permute(cfg.scores, order)
	}

	updated := m.compute(
		permute(work, order),
		positions(sorted),
		scores,
		permute(weights, order),
	)
	out := unwind(updated, order)

	if limit {
		for i, team := range out {
			for j := range team {
				team[j].Sigma = math.Min(team[j].Sigma, teams[i][j].Sigma)
			}
		}
	}
	return out, nil
}

// inflate returns a deep copy of teams with tau added to every variance.
func inflate(teams [][]rating.Rating, tau float64) [][]rating.Rating {
	tauSq := tau * tau
	out := make([][]rating.Rating, len(teams))
	for i, team := range teams {
		out[i] = make([]rating.Rating, len(team))
		for j, p := range team {
			out[i][j] = p.WithSkill(p.Mu, math.Sqrt(p.Sigma*p.Sigma+tauSq))
		}
	}
	return out
}

// compute runs the update on teams already ordered best first. ranks are
// competition positions aligned with teams; scores and weights may be nil.
func (m *Model) compute(teams [][]rating.Rating, ranks []int, scores []float64, weights [][]float64) [][]rating.Rating {
	trs := m.teamRatings(teams, ranks)
	c := m.pooledScale(trs)
	sq := sumQ(trs, c)
	a := tieCounts(trs)
	factors := m.marginFactors(scores, len(trs))

	out := make([][]rating.Rating, len(trs))
	for i, ti := range trs {
		omega, delta := 0.0, 0.0
		e := math.Exp(ti.mu / c)
		for q, tq := range trs {
			if tq.rank > ti.rank {
				continue
			}
			term := e / sq[q]
			delta += term * (1 - term) / float64(a[q])
			if tq.rank == ti.rank {
				omega += (1 - term) / float64(a[q])
			} else {
				omega -= term / float64(a[q])
			}
		}

		omega *= factors[i] * ti.sigmaSq / c
		delta *= factors[i] * ti.sigmaSq / (c * c)

		var teamWeights []float64
		if weights != nil {
			teamWeights = weights[i]
		}
		delta *= m.gamma(GammaInput{
			C:         c,
			TeamCount: len(trs),
			Mu:        ti.mu,
			SigmaSq:   ti.sigmaSq,
			Team:      slices.Clone(ti.players),
			Rank:      ti.rank,
			Weights:   slices.Clone(teamWeights),
		})

		out[i] = make([]rating.Rating, len(ti.players))
		for j, p := range ti.players {
			w := 1.0
			if teamWeights != nil {
				w = teamWeights[j]
			}
			share := p.Sigma * p.Sigma / ti.sigmaSq
			mu := p.Mu + share*omega*w
			sigma := p.Sigma * math.Sqrt(math.Max(1-share*delta*w, m.kappa))
			out[i][j] = p.WithSkill(mu, sigma)
		}
	}

	averageTies(teams, out, ranks)
	return out
}

// marginFactors scales each team's update by its largest score gap when
// that gap exceeds the model margin.
func (m *Model) marginFactors(scores []float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	if scores == nil || m.margin <= 0 {
		return out
	}
	for i := range out {
		gap := 0.0
		for j := range scores {
			if j != i {
				gap = math.Max(gap, math.Abs(scores[i]-scores[j]))
			}
		}
		if gap > m.margin {
			out[i] = 1 + math.Sqrt(gap)/math.Sqrt(marginScale)
		}
	}
	return out
}

// averageTies gives every team in a tie group the group's mean mu shift.
// A team's shift is the mean shift of its players.
func averageTies(before, after [][]rating.Rating, ranks []int) {
	for start := 0; start < len(ranks); {
		end := start + 1
		for end < len(ranks) && ranks[end] == ranks[start] {
			end++
		}
		if end-start > 1 {
			avg := 0.0
			for k := start; k < end; k++ {
				avg += teamShift(before[k], after[k])
			}
			avg /= float64(end - start)
			for k := start; k < end; k++ {
				for p := range after[k] {
					after[k][p].Mu = before[k][p].Mu + avg
				}
			}
		}
		start = end
	}
}

func teamShift(before, after []rating.Rating) float64 {
	sum := 0.0
	for p := range after {
		sum += after[p].Mu - before[p].Mu
	}
	return sum / float64(len(after))
}

func validateRate(teams [][]rating.Rating, cfg *rateConfig) error {
	if err := validateTeams(teams); err != nil {
		return err
	}

	switch {
	case cfg.hasRanks && cfg.hasScores:
		return invalid("ranks", "ranks and scores are mutually exclusive")
	case !cfg.hasRanks && !cfg.hasScores:
		return invalid("ranks", "either ranks or scores must be supplied")
	}

	if cfg.hasRanks && len(cfg.ranks) != len(teams) {
		return invalid("ranks", "got %d values for %d teams", len(cfg.ranks), len(teams))
	}
	if cfg.hasScores {
		if len(cfg.scores) != len(teams) {
			return invalid("scores", "got %d values for %d teams", len(cfg.scores), len(teams))
		}
		for i, s := range cfg.scores {
			if !finite(s) {
				return invalid("scores", "score %d is not a finite number", i)
			}
		}
	}

	if cfg.hasWeights {
		if len(cfg.weights) != len(teams) {
			return invalid("weights", "got %d teams of weights for %d teams", len(cfg.weights), len(teams))
		}
		for i, w := range cfg.weights {
			if len(w) != len(teams[i]) {
				return invalid("weights", "team %d has %d weights for %d players", i, len(w), len(teams[i]))
			}
			for j, x := range w {
				if !finite(x) {
					return invalid("weights", "weight %d of team %d is not a finite number", j, i)
				}
			}
		}
	}

	if cfg.hasTau && (cfg.tau < 0 || !finite(cfg.tau)) {
		return invalid("tau", "must be a non-negative number")
	}
	return nil
}

func validateTeams(teams [][]rating.Rating) error {
	if len(teams) < 2 {
		return invalid("teams", "need at least 2 teams, got %d", len(teams))
	}
	for i, team := range teams {
		if len(team) == 0 {
			return invalid("teams", "team %d has no players", i)
		}
		for j, p := range team {
			if !finite(p.Mu) {
				return invalid("teams", "player %d of team %d has a non-finite mu", j, i)
			}
			if !finite(p.Sigma) || p.Sigma <= 0 {
				return invalid("teams", "player %d of team %d needs a positive sigma", j, i)
			}
		}
	}
	return nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
