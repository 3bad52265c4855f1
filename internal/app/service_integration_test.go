package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/skillboard/internal/adapters/repository"
	service "github.com/okian/skillboard/internal/app"
	"github.com/okian/skillboard/internal/domain/elo"
	"github.com/okian/skillboard/internal/domain/model"
	pl "github.com/okian/skillboard/internal/domain/plackettluce"
	"github.com/okian/skillboard/internal/domain/rater"
	"github.com/okian/skillboard/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

// eventually polls cond until it holds or two seconds pass.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestServiceIntegration(t *testing.T) {
	ctx := context.Background()

	Convey("Given a running Plackett-Luce service", t, func() {
		svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(100))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When a match is submitted and rated", func() {
			_, _, err := svc.Submit(ctx, duel("m-1", "alice", "bob"))
			So(err, ShouldBeNil)

			rated := eventually(func() bool {
				e, err := svc.Player(ctx, "bob", rating.Overall)
				return err == nil && e.Matches == 1
			})
			So(rated, ShouldBeTrue)

			Convey("Then the winner leads every window", func() {
				for _, w := range rating.Windows() {
					top, err := svc.Leaderboard(ctx, w, 10)
					So(err, ShouldBeNil)
					So(top, ShouldHaveLength, 2)
					So(top[0].PlayerID, ShouldEqual, "alice")
					So(top[0].Rank, ShouldEqual, 1)
					So(top[0].Mu, ShouldBeGreaterThan, pl.DefaultMu)
				}
			})

			Convey("And predictions use the stored ratings", func() {
				p, err := svc.PredictWin(ctx, [][]string{{"alice"}, {"bob"}}, rating.Overall)
				So(err, ShouldBeNil)
				So(p[0], ShouldBeGreaterThan, p[1])
				So(p[0]+p[1], ShouldAlmostEqual, 1, 1e-9)

				ranks, err := svc.PredictRank(ctx, [][]string{{"bob"}, {"alice"}, {"newcomer"}}, rating.Overall)
				So(err, ShouldBeNil)
				So(ranks[0].Team, ShouldEqual, 1)
				So(ranks[0].Rank, ShouldEqual, 1)

				d, err := svc.PredictDraw(ctx, [][]string{{"alice"}, {"bob"}}, rating.Overall)
				So(err, ShouldBeNil)
				So(d, ShouldBeBetween, 0, 1)
			})

			Convey("And a monthly reset leaves the overall window alone", func() {
				n, err := svc.ResetWindow(ctx, rating.Monthly)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)

				monthly, _ := svc.Player(ctx, "alice", rating.Monthly)
				So(monthly.Mu, ShouldEqual, pl.DefaultMu)
				overall, _ := svc.Player(ctx, "alice", rating.Overall)
				So(overall.Mu, ShouldBeGreaterThan, pl.DefaultMu)

				_, err = svc.ResetWindow(ctx, rating.Overall)
				So(errors.Is(err, repository.ErrInvalidWindow), ShouldBeTrue)
			})
		})

		Convey("When predicting with a single team", func() {
			_, err := svc.PredictWin(ctx, [][]string{{"alice"}}, rating.Overall)

			Convey("Then the request is invalid", func() {
				So(errors.Is(err, pl.ErrValidation), ShouldBeTrue)
			})
		})

		Convey("When looking up a player that never played", func() {
			_, err := svc.Player(ctx, "ghost", rating.Overall)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("Given a running Elo service", t, func() {
		seed := rating.Skill{Mu: elo.DefaultMu, Sigma: elo.DefaultSigma}
		svc := service.New(
			service.WithRater(rater.NewElo(elo.New(), seed)),
			service.WithWorkerCount(1),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When a three-team match is submitted", func() {
			r0, r1, r2 := 0, 1, 2
			m := model.Match{
				ID: "ffa",
				Teams: []model.Team{
					{Players: []string{"a"}, Rank: &r0},
					{Players: []string{"b"}, Rank: &r1},
					{Players: []string{"c"}, Rank: &r2},
				},
			}
			_, _, err := svc.Submit(ctx, m)
			So(err, ShouldBeNil)

			Convey("Then it is dropped and its id freed for a corrected resubmission", func() {
				freed := eventually(func() bool {
					_, dup, err := svc.Submit(ctx, duel("ffa", "a", "b"))
					return err == nil && !dup
				})
				So(freed, ShouldBeTrue)

				rated := eventually(func() bool {
					e, err := svc.Player(ctx, "a", rating.Overall)
					return err == nil && e.Matches == 1
				})
				So(rated, ShouldBeTrue)

				top, err := svc.Leaderboard(ctx, rating.Overall, 10)
				So(err, ShouldBeNil)
				So(top[0].PlayerID, ShouldEqual, "a")
				So(top[0].Mu+top[1].Mu, ShouldAlmostEqual, 2*elo.DefaultMu, 1e-6)
			})
		})
	})
}
