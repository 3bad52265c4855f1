package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/skillboard/internal/adapters/repository"
	"github.com/okian/skillboard/internal/domain/model"
	"github.com/okian/skillboard/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

var seed = rating.Skill{Mu: 25, Sigma: 25.0 / 3}

func duel(id string, a, b string) model.Match {
	one, zero := 1.0, 0.0
	return model.Match{
		ID: id,
		Teams: []model.Team{
			{Players: []string{a}, Score: &one},
			{Players: []string{b}, Score: &zero},
		},
	}
}

// shift moves the first team up and the second team down by delta in every
// window.
func shift(delta float64) repository.ApplyFunc {
	return func(_ context.Context, teams [][]model.Player) ([][]model.Player, error) {
		out := make([][]model.Player, len(teams))
		for i, team := range teams {
			out[i] = append([]model.Player(nil), team...)
			d := delta
			if i > 0 {
				d = -delta
			}
			for j := range out[i] {
				for _, w := range rating.Windows() {
					s := out[i][j].Windows.Get(w)
					s.Mu += d
					out[i][j].Windows = out[i][j].Windows.With(w, s)
				}
				out[i][j].Matches++
				if i == 0 {
					out[i][j].Wins++
				}
			}
		}
		return out, nil
	}
}

func TestTreapStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty treap store", t, func() {
		store := repository.NewTreapStore(ctx, repository.WithMetricsUpdateInterval(time.Hour))
		defer store.Close()

		count, err := store.Count(ctx)
		So(err, ShouldBeNil)
		So(count, ShouldEqual, 0)

		Convey("When looking up an unknown player", func() {
			_, err := store.Player(ctx, "ghost")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			_, err = store.Rank(ctx, "ghost", rating.Overall)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When unknown players are read for prediction", func() {
			players, err := store.Players(ctx, []string{"a", "b"}, seed)
			So(err, ShouldBeNil)

			Convey("Then they are seeded but not stored", func() {
				So(players, ShouldHaveLength, 2)
				So(players[1].Windows.Get(rating.Yearly), ShouldResemble, seed)
				count, _ := store.Count(ctx)
				So(count, ShouldEqual, 0)
			})
		})

		Convey("When a match is applied", func() {
			var seen [][]model.Player
			fn := func(ctx context.Context, teams [][]model.Player) ([][]model.Player, error) {
				seen = teams
				return shift(2)(ctx, teams)
			}
			out, err := store.Apply(ctx, duel("m-1", "alice", "bob"), seed, fn)
			So(err, ShouldBeNil)

			Convey("Then new players are seeded before rating", func() {
				So(seen[0][0].ID, ShouldEqual, "alice")
				So(seen[0][0].Windows.Get(rating.Overall), ShouldResemble, seed)
				So(out[0][0].Windows.Get(rating.Overall).Mu, ShouldEqual, seed.Mu+2)
			})

			Convey("And the result is committed", func() {
				p, err := store.Player(ctx, "bob")
				So(err, ShouldBeNil)
				So(p.Matches, ShouldEqual, 1)
				So(p.Windows.Get(rating.Monthly).Mu, ShouldEqual, seed.Mu-2)

				count, _ := store.Count(ctx)
				So(count, ShouldEqual, 2)
			})

			Convey("And the leaderboard follows the ordinal", func() {
				top, err := store.TopN(ctx, rating.Overall, 10)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 2)
				So(top[0].PlayerID, ShouldEqual, "alice")
				So(top[0].Rank, ShouldEqual, 1)
				So(top[0].Ordinal, ShouldAlmostEqual, seed.Mu+2-3*seed.Sigma, 1e-9)
				So(top[1].PlayerID, ShouldEqual, "bob")
				So(top[1].Rank, ShouldEqual, 2)
				So(top[0].Matches, ShouldEqual, 1)
				So(top[0].Wins, ShouldEqual, 1)
				So(top[1].Wins, ShouldEqual, 0)

				e, err := store.Rank(ctx, "bob", rating.Overall)
				So(err, ShouldBeNil)
				So(e.Rank, ShouldEqual, 2)
			})

			Convey("And the same match id is rejected", func() {
				_, err := store.Apply(ctx, duel("m-1", "alice", "bob"), seed, shift(2))
				So(errors.Is(err, repository.ErrDuplicateMatch), ShouldBeTrue)

				p, _ := store.Player(ctx, "alice")
				So(p.Matches, ShouldEqual, 1)
			})

			Convey("And a monthly reset only re-seeds that window", func() {
				n, err := store.ResetWindow(ctx, rating.Monthly, seed)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)

				p, _ := store.Player(ctx, "alice")
				So(p.Windows.Get(rating.Monthly), ShouldResemble, seed)
				So(p.Windows.Get(rating.Overall).Mu, ShouldEqual, seed.Mu+2)

				top, _ := store.TopN(ctx, rating.Monthly, 10)
				So(top[0].Rank, ShouldEqual, 1)
				So(top[1].Rank, ShouldEqual, 1)
			})
		})

		Convey("When the rating function fails", func() {
			boom := errors.New("boom")
			_, err := store.Apply(ctx, duel("m-1", "alice", "bob"), seed,
				func(context.Context, [][]model.Player) ([][]model.Player, error) { return nil, boom })

			Convey("Then nothing is stored and the match can be retried", func() {
				So(errors.Is(err, boom), ShouldBeTrue)
				count, _ := store.Count(ctx)
				So(count, ShouldEqual, 0)

				_, err := store.Apply(ctx, duel("m-1", "alice", "bob"), seed, shift(1))
				So(err, ShouldBeNil)
			})
		})

		Convey("When the rating function returns the wrong shape", func() {
			_, err := store.Apply(ctx, duel("m-1", "alice", "bob"), seed,
				func(_ context.Context, teams [][]model.Player) ([][]model.Player, error) { return teams[:1], nil })
			So(errors.Is(err, repository.ErrInvalidUpdate), ShouldBeTrue)
		})

		Convey("When bad arguments are passed", func() {
			_, err := store.TopN(ctx, rating.Overall, 0)
			So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)

			_, err = store.TopN(ctx, rating.Window(42), 10)
			So(errors.Is(err, repository.ErrInvalidWindow), ShouldBeTrue)

			_, err = store.ResetWindow(ctx, rating.Overall, seed)
			So(errors.Is(err, repository.ErrInvalidWindow), ShouldBeTrue)
		})
	})
}

func TestTreapStoreRanking(t *testing.T) {
	ctx := context.Background()

	Convey("Given players spread over the leaderboard", t, func() {
		store := repository.NewTreapStore(ctx)
		defer store.Close()

		// p0 beats p1, p1 beats p2 ... so p0 ends highest.
		const n = 20
		for i := 0; i < n-1; i++ {
			a, b := fmt.Sprintf("p%02d", i), fmt.Sprintf("p%02d", i+1)
			_, err := store.Apply(ctx, duel(fmt.Sprintf("m-%d", i), a, b), seed, shift(float64(n-i)))
			So(err, ShouldBeNil)
		}

		Convey("Then TopN is ordered and agrees with Rank", func() {
			top, err := store.TopN(ctx, rating.Overall, n)
			So(err, ShouldBeNil)
			So(top, ShouldHaveLength, n)
			for i := 1; i < len(top); i++ {
				So(top[i-1].Ordinal, ShouldBeGreaterThanOrEqualTo, top[i].Ordinal)
			}
			for _, e := range top {
				r, err := store.Rank(ctx, e.PlayerID, rating.Overall)
				So(err, ShouldBeNil)
				So(r.Rank, ShouldEqual, e.Rank)
			}
		})

		Convey("Then the limit caps the result", func() {
			top, err := store.TopN(ctx, rating.Overall, 5)
			So(err, ShouldBeNil)
			So(top, ShouldHaveLength, 5)
		})
	})

	Convey("Given players with equal ordinals", t, func() {
		store := repository.NewTreapStore(ctx)
		defer store.Close()

		_, err := store.Apply(ctx, duel("m-1", "a", "b"), seed, shift(1))
		So(err, ShouldBeNil)
		_, err = store.Apply(ctx, duel("m-2", "c", "d"), seed, shift(1))
		So(err, ShouldBeNil)

		Convey("Then they share a rank and the next rank skips", func() {
			top, err := store.TopN(ctx, rating.Overall, 4)
			So(err, ShouldBeNil)
			So(top[0].PlayerID, ShouldEqual, "a")
			So(top[1].PlayerID, ShouldEqual, "c")
			So(top[0].Rank, ShouldEqual, 1)
			So(top[1].Rank, ShouldEqual, 1)
			So(top[2].Rank, ShouldEqual, 3)
			So(top[3].Rank, ShouldEqual, 3)

			e, _ := store.Rank(ctx, "d", rating.Overall)
			So(e.Rank, ShouldEqual, 3)
		})
	})
}

func TestTreapStoreConcurrentApply(t *testing.T) {
	ctx := context.Background()

	Convey("Given many matches on the same two players applied concurrently", t, func() {
		store := repository.NewTreapStore(ctx)
		defer store.Close()

		const matches = 50
		var wg sync.WaitGroup
		for i := 0; i < matches; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, _ = store.Apply(ctx, duel(fmt.Sprintf("m-%d", i), "a", "b"), seed, shift(1))
			}(i)
		}
		wg.Wait()

		Convey("Then no update is lost", func() {
			a, err := store.Player(ctx, "a")
			So(err, ShouldBeNil)
			So(a.Matches, ShouldEqual, matches)
			So(a.Windows.Get(rating.Overall).Mu, ShouldAlmostEqual, seed.Mu+matches, 1e-9)

			top, _ := store.TopN(ctx, rating.Yearly, 10)
			So(top, ShouldHaveLength, 2)
		})
	})
}
