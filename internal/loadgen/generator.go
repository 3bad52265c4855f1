package loadgen

import (
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Player is a generated participant. Strength is hidden from the service and
// only drives outcomes.
type Player struct {
	ID       string
	Strength float64
}

// Generator produces players and matches from a seeded source.
type Generator struct {
	rnd     *rand.Rand
	players []Player
}

// NewGenerator creates n players with normally distributed strength.
func NewGenerator(n int, seed uint64) *Generator {
	if seed == 0 {
		seed = rand.Uint64()
	}
	g := &Generator{rnd: rand.New(rand.NewPCG(seed, seed>>1|1))}
	g.players = make([]Player, n)
	for i := range g.players {
		g.players[i] = Player{ID: uuid.NewString(), Strength: g.rnd.NormFloat64()}
	}
	return g
}

// Players returns the pool.
func (g *Generator) Players() []Player { return g.players }

// Strongest returns the ids of the n strongest players.
func (g *Generator) Strongest(n int) []string {
	sorted := make([]Player, len(g.players))
	copy(sorted, g.players)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Strength > sorted[j].Strength })
	n = min(n, len(sorted))
	ids := make([]string, n)
	for i := range n {
		ids[i] = sorted[i].ID
	}
	return ids
}

// Match draws teams*size distinct players and orders the teams by a noisy
// performance sample. Two-team matches carry scores, larger ones ranks.
func (g *Generator) Match(teams, size int, at time.Time) Match {
	picks := g.rnd.Perm(len(g.players))[:teams*size]

	m := Match{MatchID: uuid.NewString(), PlayedAt: at.UTC().Format(time.RFC3339), Teams: make([]Team, teams)}
	perf := make([]float64, teams)
	for t := range teams {
		ids := make([]string, size)
		for i := range size {
			p := g.players[picks[t*size+i]]
			ids[i] = p.ID
			perf[t] += p.Strength + g.rnd.NormFloat64()*0.5
		}
		m.Teams[t].Players = ids
	}

	order := make([]int, teams)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return perf[order[i]] > perf[order[j]] })

	if teams == 2 {
		for t := range m.Teams {
			score := math.Round(math.Max(0, 10+perf[t]*2))
			m.Teams[t].Score = &score
		}
		return m
	}
	for rank, t := range order {
		r := rank
		m.Teams[t].Rank = &r
	}
	return m
}
