package model_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/skillboard/internal/domain/model"
	"github.com/okian/skillboard/internal/domain/rating"
	"github.com/smartystreets/goconvey/convey"
)

func score(v float64) *float64 { return &v }
func rank(v int) *int           { return &v }

func scoredMatch() model.Match {
	return model.Match{
		ID: "m-1",
		Teams: []model.Team{
			{Players: []string{"alice", "bob"}, Score: score(10)},
			{Players: []string{"carol", "dave"}, Score: score(5)},
		},
	}
}

func TestMatchValidate(t *testing.T) {
	convey.Convey("Given a well formed scored match", t, func() {
		m := scoredMatch()

		convey.Convey("Then it validates", func() {
			convey.So(m.Validate(), convey.ShouldBeNil)
			convey.So(m.HasScores(), convey.ShouldBeTrue)
			convey.So(m.Scores(), convey.ShouldResemble, []float64{10, 5})
			convey.So(m.Ranks(), convey.ShouldBeNil)
			convey.So(m.PlayerIDs(), convey.ShouldResemble, []string{"alice", "bob", "carol", "dave"})
		})
	})

	convey.Convey("Given a ranked three-team match", t, func() {
		m := model.Match{
			ID: "m-2",
			Teams: []model.Team{
				{Players: []string{"a"}, Rank: rank(1)},
				{Players: []string{"b"}, Rank: rank(0)},
				{Players: []string{"c"}, Rank: rank(1), Weights: []float64{0.5}},
			},
		}

		convey.Convey("Then it validates and exposes ranks and weights", func() {
			convey.So(m.Validate(), convey.ShouldBeNil)
			convey.So(m.Ranks(), convey.ShouldResemble, []int{1, 0, 1})
			convey.So(m.Scores(), convey.ShouldBeNil)
			convey.So(m.Weights(), convey.ShouldResemble, [][]float64{{1}, {1}, {0.5}})
		})
	})

	convey.Convey("Given malformed matches", t, func() {
		cases := map[string]func(*model.Match){
			"missing id":       func(m *model.Match) { m.ID = "" },
			"single team":      func(m *model.Match) { m.Teams = m.Teams[:1] },
			"empty team":       func(m *model.Match) { m.Teams[1].Players = nil },
			"duplicate player": func(m *model.Match) { m.Teams[1].Players[0] = "alice" },
			"empty player id":  func(m *model.Match) { m.Teams[0].Players[1] = "" },
			"negative score":   func(m *model.Match) { m.Teams[0].Score = score(-1) },
			"nan score":        func(m *model.Match) { m.Teams[0].Score = score(math.NaN()) },
			"score and rank":   func(m *model.Match) { m.Teams[0].Rank = rank(0) },
			"mixed outcome":    func(m *model.Match) { m.Teams[1].Score = nil; m.Teams[1].Rank = rank(1) },
			"no outcome":       func(m *model.Match) { m.Teams[1].Score = nil },
			"short weights":    func(m *model.Match) { m.Teams[0].Weights = []float64{1} },
			"weight too large": func(m *model.Match) { m.Teams[0].Weights = []float64{1, 1.5} },
		}

		for name, mutate := range cases {
			convey.Convey("When the match has "+name, func() {
				m := scoredMatch()
				mutate(&m)

				convey.Convey("Then validation fails", func() {
					err := m.Validate()
					convey.So(err, convey.ShouldNotBeNil)
					convey.So(errors.Is(err, model.ErrInvalidMatch), convey.ShouldBeTrue)
				})
			})
		}
	})
}

func TestNewPlayer(t *testing.T) {
	convey.Convey("Given a seed skill", t, func() {
		seed := rating.Skill{Mu: 25, Sigma: 25.0 / 3}

		convey.Convey("Then a new player carries it in every window", func() {
			p := model.NewPlayer("alice", seed)
			convey.So(p.ID, convey.ShouldEqual, "alice")
			convey.So(p.Matches, convey.ShouldEqual, 0)
			for _, w := range rating.Windows() {
				convey.So(p.Windows.Get(w), convey.ShouldResemble, seed)
			}
		})
	})
}

func TestMatchWinners(t *testing.T) {
	convey.Convey("Given finished matches", t, func() {
		convey.Convey("Then the highest score wins", func() {
			convey.So(scoredMatch().Winners(), convey.ShouldResemble, []bool{true, false})
		})

		convey.Convey("Then the lowest rank wins", func() {
			m := model.Match{Teams: []model.Team{
				{Players: []string{"a"}, Rank: rank(2)},
				{Players: []string{"b"}, Rank: rank(0)},
				{Players: []string{"c"}, Rank: rank(1)},
			}}
			convey.So(m.Winners(), convey.ShouldResemble, []bool{false, true, false})
		})

		convey.Convey("Then a shared best outcome has no winner", func() {
			m := scoredMatch()
			m.Teams[1].Score = score(10)
			convey.So(m.Winners(), convey.ShouldResemble, []bool{false, false})

			ranked := model.Match{Teams: []model.Team{
				{Players: []string{"a"}, Rank: rank(0)},
				{Players: []string{"b"}, Rank: rank(0)},
				{Players: []string{"c"}, Rank: rank(1)},
			}}
			convey.So(ranked.Winners(), convey.ShouldResemble, []bool{false, false, false})
		})
	})
}
