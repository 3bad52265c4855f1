// Package elo implements a margin-weighted, uncertainty-aware Elo variant for
// two-team matches.
//
// Expectations are computed from effective ratings (mu - c*sigma) rather than
// raw means, so players the system is unsure about are treated as weaker when
// predicting the outcome. Mean updates are zero-sum across all participants
// of a match and both mean and uncertainty updates grow with the score
// margin. Every rating window is updated independently.
package elo

import (
	"math"
	"slices"
	"time"

	"github.com/okian/skillboard/internal/domain/rating"
)

// Default model parameters.
const (
	DefaultK              = 32.0
	DefaultSigmaK         = 10.0
	DefaultSigmaFloor     = 50.0
	DefaultNonLinearScale = 10.0
	DefaultC              = 3.0

	// DefaultMu and DefaultSigma seed players that have never played.
	DefaultMu    = 1000.0
	DefaultSigma = 350.0

	logisticBase    = 10.0
	logisticDivisor = 400.0
)

// Outcome values for a side of the match.
const (
	Win  = 1.0
	Tie  = 0.5
	Loss = 0.0
)

// Params tunes the model.
type Params struct {
	// K scales mean updates.
	K float64
	// SigmaK scales uncertainty updates.
	SigmaK float64
	// SigmaFloor is the smallest sigma an update may produce.
	SigmaFloor float64
	// NonLinearScale controls how fast the margin multiplier grows.
	NonLinearScale float64
	// C weights sigma in the effective rating.
	C float64
	// Windows lists the windows to update. Empty means all.
	Windows []rating.Window
}

// DefaultParams returns the parameters the model uses when none are given.
func DefaultParams() Params {
	return Params{
		K:              DefaultK,
		SigmaK:         DefaultSigmaK,
		SigmaFloor:     DefaultSigmaFloor,
		NonLinearScale: DefaultNonLinearScale,
		C:              DefaultC,
		Windows:        rating.Windows(),
	}
}

// Player is a participant snapshot: identity plus one skill per window.
type Player struct {
	ID        string
	Windows   rating.WindowSet
	UpdatedAt time.Time
}

// Match is a finished two-team match.
type Match struct {
	TeamA  []Player
	TeamB  []Player
	ScoreA float64
	ScoreB float64
}

// Delta records what one update did to one player in one window.
type Delta struct {
	PlayerID string
	Window   rating.Window
	Actual   float64
	Expected float64
	// RawMu is the mean change before the zero-sum correction.
	RawMu float64
	// Mu and Sigma are the applied changes.
	Mu    float64
	Sigma float64
}

// Result holds the updated players in input order plus per-window deltas.
type Result struct {
	TeamA  []Player
	TeamB  []Player
	Deltas []Delta
}

// Model applies Elo updates. A Model is immutable after New and safe for
// concurrent use.
type Model struct {
	params Params
	now    func() time.Time
}

// Option configures a Model.
type Option func(*Model)

// WithParams replaces the default parameters. Non-positive values keep the
// defaults. Unknown windows are dropped and repeated ones collapse.
func WithParams(p Params) Option {
	return func(m *Model) {
		if p.K > 0 {
			m.params.K = p.K
		}
		if p.SigmaK > 0 {
			m.params.SigmaK = p.SigmaK
		}
		if p.SigmaFloor > 0 {
			m.params.SigmaFloor = p.SigmaFloor
		}
		if p.NonLinearScale > 0 {
			m.params.NonLinearScale = p.NonLinearScale
		}
		if p.C > 0 {
			m.params.C = p.C
		}
		if ws := knownWindows(p.Windows); len(ws) > 0 {
			m.params.Windows = ws
		}
	}
}

// knownWindows keeps the first occurrence of every valid window in ws.
func knownWindows(ws []rating.Window) []rating.Window {
	out := make([]rating.Window, 0, len(ws))
	for _, w := range ws {
		if w.Valid() && !slices.Contains(out, w) {
			out = append(out, w)
		}
	}
	return out
}

// WithClock sets the clock used for last-updated markers.
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}

// New creates a model with default parameters overridden by opts.
func New(opts ...Option) *Model {
	m := &Model{
		params: DefaultParams(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Params returns a copy of the model parameters.
func (m *Model) Params() Params {
	p := m.params
	p.Windows = slices.Clone(m.params.Windows)
	return p
}

// Outcomes converts two scores into win/tie/loss values.
func Outcomes(scoreA, scoreB float64) (float64, float64) {
	switch {
	case scoreA > scoreB:
		return Win, Loss
	case scoreA < scoreB:
		return Loss, Win
	default:
		return Tie, Tie
	}
}

// MarginMultiplier returns exp(|scoreA-scoreB| / scale).
func MarginMultiplier(scoreA, scoreB, scale float64) float64 {
	return math.Exp(math.Abs(scoreA-scoreB) / scale)
}

// Effective returns mu - c*sigma.
func Effective(s rating.Skill, c float64) float64 {
	return s.Mu - c*s.Sigma
}

// Expected is the logistic Elo expectation of own against opponent.
func Expected(own, opponent float64) float64 {
	return 1 / (1 + math.Pow(logisticBase, (opponent-own)/logisticDivisor))
}

// averageEffective returns the mean effective rating of team in w, or 0 for
// an empty team.
func averageEffective(team []Player, w rating.Window, c float64) float64 {
	if len(team) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range team {
		sum += Effective(p.Windows.Get(w), c)
	}
	return sum / float64(len(team))
}

// Update rates match and returns new player values. The input is not
// modified. An empty opposing team is treated as having an average effective
// rating of zero.
func (m *Model) Update(match Match) Result {
	res := Result{
		TeamA: slices.Clone(match.TeamA),
		TeamB: slices.Clone(match.TeamB),
	}
	total := len(res.TeamA) + len(res.TeamB)
	if total == 0 {
		return res
	}

	actualA, actualB := Outcomes(match.ScoreA, match.ScoreB)
	mult := MarginMultiplier(match.ScoreA, match.ScoreB, m.params.NonLinearScale)
	stamp := m.now()

	res.Deltas = make([]Delta, 0, total*len(m.params.Windows))
	for _, w := range m.params.Windows {
		// opponent averages come from the pre-update snapshot of this window
		oppOfA := averageEffective(match.TeamB, w, m.params.C)
		oppOfB := averageEffective(match.TeamA, w, m.params.C)

		deltas := make([]Delta, 0, total)
		deltas = m.rawDeltas(deltas, match.TeamA, w, actualA, oppOfA, mult)
		deltas = m.rawDeltas(deltas, match.TeamB, w, actualB, oppOfB, mult)

		offset := 0.0
		for _, d := range deltas {
			offset += d.RawMu
		}
		offset /= float64(total)

		for i := range deltas {
			deltas[i].Mu = deltas[i].RawMu - offset
			deltas[i].Sigma = m.params.SigmaK * mult * (math.Abs(deltas[i].Actual-deltas[i].Expected) - 0.5)
		}

		apply(res.TeamA, deltas[:len(res.TeamA)], w, m.params.SigmaFloor)
		apply(res.TeamB, deltas[len(res.TeamA):], w, m.params.SigmaFloor)
		res.Deltas = append(res.Deltas, deltas...)
	}

	for i := range res.TeamA {
		res.TeamA[i].UpdatedAt = stamp
	}
	for i := range res.TeamB {
		res.TeamB[i].UpdatedAt = stamp
	}
	return res
}

func (m *Model) rawDeltas(out []Delta, team []Player, w rating.Window, actual, oppAvg, mult float64) []Delta {
	for _, p := range team {
		expected := Expected(Effective(p.Windows.Get(w), m.params.C), oppAvg)
		out = append(out, Delta{
			PlayerID: p.ID,
			Window:   w,
			Actual:   actual,
			Expected: expected,
			RawMu:    m.params.K * mult * (actual - expected),
		})
	}
	return out
}

// apply writes deltas into team, whose sigma values are clamped to floor.
// The resulting sigma delta is recorded back into deltas.
func apply(team []Player, deltas []Delta, w rating.Window, floor float64) {
	for i := range team {
		cur := team[i].Windows.Get(w)
		sigma := math.Max(floor, cur.Sigma+deltas[i].Sigma)
		deltas[i].Sigma = sigma - cur.Sigma
		team[i].Windows = team[i].Windows.With(w, rating.Skill{
			Mu:    cur.Mu + deltas[i].Mu,
			Sigma: sigma,
		})
	}
}
