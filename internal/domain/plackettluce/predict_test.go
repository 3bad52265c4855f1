package plackettluce_test

import (
	"errors"
	"testing"

	pl "github.com/okian/skillboard/internal/domain/plackettluce"
	"github.com/okian/skillboard/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func sum(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s
}

func TestModel_PredictWin(t *testing.T) {
	m := pl.New()

	Convey("Given two identical teams", t, func() {
		teams := freshTeams(m, 2, 2)

		Convey("Then each wins half the time", func() {
			p, err := m.PredictWin(teams)
			So(err, ShouldBeNil)
			So(p, ShouldHaveLength, 2)
			So(p[0], ShouldAlmostEqual, 0.5, 1e-12)
			So(p[1], ShouldAlmostEqual, 0.5, 1e-12)
		})
	})

	Convey("Given team lists of different sizes", t, func() {
		lists := [][][]rating.Rating{
			{{m.Rating(pl.WithRatingMu(30))}, {m.Rating()}},
			{{m.Rating(pl.WithRatingMu(30))}, {m.Rating()}, {m.Rating(pl.WithRatingMu(18), pl.WithRatingSigma(3))}},
			{{m.Rating(), m.Rating()}, {m.Rating(pl.WithRatingMu(27))}, {m.Rating()}, {m.Rating(pl.WithRatingMu(10))}},
		}

		Convey("Then probabilities are in [0, 1] and sum to 1", func() {
			for _, teams := range lists {
				p, err := m.PredictWin(teams)
				So(err, ShouldBeNil)
				So(p, ShouldHaveLength, len(teams))
				So(sum(p), ShouldAlmostEqual, 1, 1e-9)
				for _, x := range p {
					So(x, ShouldBeBetweenOrEqual, 0, 1)
				}
			}
		})

		Convey("And the stronger side is favoured", func() {
			p, err := m.PredictWin(lists[0])
			So(err, ShouldBeNil)
			So(p[0], ShouldBeGreaterThan, p[1])
		})
	})

	Convey("Given a single team", t, func() {
		Convey("Then prediction is rejected", func() {
			_, err := m.PredictWin(freshTeams(m, 3))
			So(errors.Is(err, pl.ErrValidation), ShouldBeTrue)
		})
	})
}

func TestModel_PredictDraw(t *testing.T) {
	m := pl.New()

	Convey("Given two identical teams", t, func() {
		p, err := m.PredictDraw(freshTeams(m, 1, 1))
		So(err, ShouldBeNil)

		Convey("Then a draw is possible but not certain", func() {
			So(p, ShouldBeGreaterThan, 0)
			So(p, ShouldBeLessThan, 1)
		})

		Convey("And a lopsided match is less likely to draw", func() {
			lopsided, err := m.PredictDraw([][]rating.Rating{
				{m.Rating(pl.WithRatingMu(45))},
				{m.Rating()},
			})
			So(err, ShouldBeNil)
			So(lopsided, ShouldBeLessThan, p)
		})
	})

	Convey("Given an empty team", t, func() {
		_, err := m.PredictDraw([][]rating.Rating{{m.Rating()}, nil})
		So(errors.Is(err, pl.ErrValidation), ShouldBeTrue)
	})
}

func TestModel_PredictRank(t *testing.T) {
	m := pl.New()

	Convey("Given three teams with decreasing mu and equal sigma", t, func() {
		teams := [][]rating.Rating{
			{m.Rating(pl.WithRatingMu(30))},
			{m.Rating(pl.WithRatingMu(25))},
			{m.Rating(pl.WithRatingMu(20))},
		}
		out, err := m.PredictRank(teams)
		So(err, ShouldBeNil)
		So(out, ShouldHaveLength, 3)

		Convey("Then ranks follow input order with decreasing probability", func() {
			total := 0.0
			for k, r := range out {
				So(r.Team, ShouldEqual, k)
				So(r.Rank, ShouldEqual, k+1)
				total += r.Probability
				if k > 0 {
					So(r.Probability, ShouldBeLessThan, out[k-1].Probability)
				}
			}
			So(total, ShouldAlmostEqual, 1, 1e-9)
		})
	})

	Convey("Given teams listed weakest first", t, func() {
		teams := [][]rating.Rating{
			{m.Rating(pl.WithRatingMu(15))},
			{m.Rating(pl.WithRatingMu(35))},
			{m.Rating(pl.WithRatingMu(25))},
		}
		out, err := m.PredictRank(teams)
		So(err, ShouldBeNil)

		Convey("Then the output is ordered by probability", func() {
			So(out[0].Team, ShouldEqual, 1)
			So(out[1].Team, ShouldEqual, 2)
			So(out[2].Team, ShouldEqual, 0)
		})
	})

	Convey("Given two identical teams and a weaker one", t, func() {
		teams := [][]rating.Rating{
			{m.Rating()},
			{m.Rating()},
			{m.Rating(pl.WithRatingMu(10))},
		}
		out, err := m.PredictRank(teams)
		So(err, ShouldBeNil)

		Convey("Then the identical teams share first place", func() {
			So(out[0].Rank, ShouldEqual, 1)
			So(out[1].Rank, ShouldEqual, 1)
			So(out[2].Rank, ShouldEqual, 3)
			So(out[2].Team, ShouldEqual, 2)
		})
	})
}
