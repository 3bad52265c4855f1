// Package plackettluce implements a Bayesian multi-team rating model based
// on the Plackett-Luce ranking distribution, including win, draw and rank
// prediction.
//
// A Model only holds configuration. Every operation is a pure function of
// its arguments and returns new rating values, so a Model may be shared by
// any number of goroutines.
package plackettluce

import (
	"math"

	"github.com/okian/skillboard/internal/domain/rating"
)

// Default model parameters. Beta and Tau default to Sigma/2 and Sigma/300 of
// whatever sigma the model is configured with.
const (
	DefaultMu    = 25.0
	DefaultSigma = 25.0 / 3.0
	DefaultKappa = 0.0001

	betaDivisor = 2.0
	tauDivisor  = 300.0
)

// GammaInput is what a GammaFunc sees about one team during an update.
type GammaInput struct {
	// C is the pooled performance scale of the match.
	C         float64
	TeamCount int
	Mu        float64
	SigmaSq   float64
	Team      []rating.Rating
	Rank      int
	// Weights are the normalized player weights of the team, nil when the
	// call carried none.
	Weights []float64
}

// GammaFunc scales a team's variance update.
type GammaFunc func(GammaInput) float64

// DefaultGamma returns sqrt(SigmaSq) / C.
func DefaultGamma(in GammaInput) float64 {
	return math.Sqrt(in.SigmaSq) / in.C
}

// Model holds the Plackett-Luce parameters.
type Model struct {
	mu         float64
	sigma      float64
	beta       float64
	kappa      float64
	tau        float64
	margin     float64
	limitSigma bool
	balance    bool
	gamma      GammaFunc

	betaSet bool
	tauSet  bool
}

// Option configures a Model.
type Option func(*Model)

// WithMu sets the mean of new ratings.
func WithMu(mu float64) Option {
	return func(m *Model) {
		if !math.IsNaN(mu) && !math.IsInf(mu, 0) {
			m.mu = mu
		}
	}
}

// WithSigma sets the standard deviation of new ratings. Non-positive values
// are ignored.
func WithSigma(sigma float64) Option {
	return func(m *Model) {
		if sigma > 0 && !math.IsInf(sigma, 0) {
			m.sigma = sigma
		}
	}
}

// WithBeta sets the performance deviation. Non-positive values are ignored.
func WithBeta(beta float64) Option {
	return func(m *Model) {
		if beta > 0 && !math.IsInf(beta, 0) {
			m.beta = beta
			m.betaSet = true
		}
	}
}

// WithKappa sets the variance multiplier floor. Non-positive values are
// ignored.
func WithKappa(kappa float64) Option {
	return func(m *Model) {
		if kappa > 0 {
			m.kappa = kappa
		}
	}
}

// WithTau sets the per-match variance inflation. Negative values are ignored.
func WithTau(tau float64) Option {
	return func(m *Model) {
		if tau >= 0 && !math.IsInf(tau, 0) {
			m.tau = tau
			m.tauSet = true
		}
	}
}

// WithMargin sets the score gap above which a win is scaled up. Zero
// disables margin scaling.
func WithMargin(margin float64) Option {
	return func(m *Model) {
		if margin >= 0 && !math.IsInf(margin, 0) {
			m.margin = margin
		}
	}
}

// WithLimitSigma forbids updates from growing sigma.
func WithLimitSigma(limit bool) Option {
	return func(m *Model) {
		m.limitSigma = limit
	}
}

// WithBalance weights players further below their team's best player more
// heavily in the team aggregate.
func WithBalance(balance bool) Option {
	return func(m *Model) {
		m.balance = balance
	}
}

// WithGamma replaces DefaultGamma.
func WithGamma(g GammaFunc) Option {
	return func(m *Model) {
		if g != nil {
			m.gamma = g
		}
	}
}

// New creates a model with default parameters overridden by opts.
func New(opts ...Option) *Model {
	m := &Model{
		mu:    DefaultMu,
		sigma: DefaultSigma,
		kappa: DefaultKappa,
		gamma: DefaultGamma,
	}
	for _, opt := range opts {
		opt(m)
	}
	if !m.betaSet {
		m.beta = m.sigma / betaDivisor
	}
	if !m.tauSet {
		m.tau = m.sigma / tauDivisor
	}
	return m
}

// Mu returns the mean of new ratings.
func (m *Model) Mu() float64 { return m.mu }

// Sigma returns the standard deviation of new ratings.
func (m *Model) Sigma() float64 { return m.sigma }

func (m *Model) Beta() float64 { return m.beta }

func (m *Model) Kappa() float64 { return m.kappa }

func (m *Model) Tau() float64 { return m.tau }

func (m *Model) Margin() float64 { return m.margin }

func (m *Model) LimitSigma() bool { return m.limitSigma }

func (m *Model) Balance() bool { return m.balance }

// Seed is the skill a player starts with.
func (m *Model) Seed() rating.Skill { return rating.Skill{Mu: m.mu, Sigma: m.sigma} }

// RatingOption overrides one field of a rating built by Model.Rating.
type RatingOption func(*rating.Rating)

// WithRatingMu overrides the model's default mu. NaN and infinite values are
// ignored.
func WithRatingMu(mu float64) RatingOption {
	return func(r *rating.Rating) {
		if !math.IsNaN(mu) && !math.IsInf(mu, 0) {
			r.Mu = mu
		}
	}
}

// WithRatingSigma overrides the model's default sigma. Non-positive values
// are ignored.
func WithRatingSigma(sigma float64) RatingOption {
	return func(r *rating.Rating) {
		if sigma > 0 && !math.IsInf(sigma, 0) {
			r.Sigma = sigma
		}
	}
}

// WithRatingName names the rating.
func WithRatingName(name string) RatingOption {
	return func(r *rating.Rating) { r.Name = name }
}

// Rating returns a new rating with a fresh identity and the model defaults
// for every field not overridden by opts.
func (m *Model) Rating(opts ...RatingOption) rating.Rating {
	r := rating.New(m.mu, m.sigma, "")
	for _, opt := range opts {
		opt(&r)
	}
	return r
}
