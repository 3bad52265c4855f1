// Package rating holds the skill estimate shared by every rating model.
package rating

import (
	"fmt"

	"github.com/google/uuid"
)

// DefaultOrdinalZ is the number of standard deviations subtracted from mu
// when collapsing a rating into a single conservative scalar.
const DefaultOrdinalZ = 3.0

// Skill is a (mu, sigma) pair without identity.
type Skill struct {
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma"`
}

// Ordinal returns mu - 3*sigma.
func (s Skill) Ordinal() float64 { return s.Mu - DefaultOrdinalZ*s.Sigma }

// Rating is an immutable skill estimate. Models never modify a Rating they
// receive; they return new values that keep the ID and Name.
type Rating struct {
	ID    string
	Name  string
	Mu    float64
	Sigma float64
}

// New returns a rating with a fresh identity.
func New(mu, sigma float64, name string) Rating {
	return Rating{ID: NewID(), Name: name, Mu: mu, Sigma: sigma}
}

// FromSkill returns a rating with a fresh identity seeded from s.
func FromSkill(s Skill, name string) Rating {
	return New(s.Mu, s.Sigma, name)
}

// NewID returns an opaque identifier for bookkeeping. It plays no part in
// any numeric update.
func NewID() string {
	return uuid.NewString()
}

// Skill drops the identity of r.
func (r Rating) Skill() Skill { return Skill{Mu: r.Mu, Sigma: r.Sigma} }

// Ordinal returns mu - 3*sigma.
func (r Rating) Ordinal() float64 { return r.OrdinalZ(DefaultOrdinalZ) }

// OrdinalZ returns mu - z*sigma.
func (r Rating) OrdinalZ(z float64) float64 { return r.Mu - z*r.Sigma }

// WithSkill returns a copy of r carrying new mu and sigma values.
func (r Rating) WithSkill(mu, sigma float64) Rating {
	r.Mu = mu
	r.Sigma = sigma
	return r
}

func (r Rating) String() string {
	if r.Name != "" {
		return fmt.Sprintf("Rating(%s mu=%.4f sigma=%.4f)", r.Name, r.Mu, r.Sigma)
	}
	return fmt.Sprintf("Rating(mu=%.4f sigma=%.4f)", r.Mu, r.Sigma)
}
