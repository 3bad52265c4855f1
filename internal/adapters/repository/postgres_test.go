package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/okian/skillboard/internal/adapters/repository"
	"github.com/okian/skillboard/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("SKILLBOARD_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("SKILLBOARD_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	Convey("Given a postgres store", t, func() {
		store, err := repository.NewPostgresStore(ctx, dsn, repository.WithMaxConns(4))
		So(err, ShouldBeNil)
		defer store.Close()

		// Unique ids keep runs against a shared database independent.
		prefix := uuid.NewString()[:8] + "-"
		a, b := prefix+"alice", prefix+"bob"
		matchID := prefix + "m-1"

		Convey("When a match is applied", func() {
			out, err := store.Apply(ctx, duel(matchID, a, b), seed, shift(2))
			So(err, ShouldBeNil)
			So(out[0][0].Windows.Get(rating.Overall).Mu, ShouldEqual, seed.Mu+2)

			Convey("Then both players are stored in every window", func() {
				p, err := store.Player(ctx, b)
				So(err, ShouldBeNil)
				So(p.Matches, ShouldEqual, 1)
				for _, w := range rating.Windows() {
					So(p.Windows.Get(w).Mu, ShouldAlmostEqual, seed.Mu-2, 1e-9)
				}
			})

			Convey("And ranks reflect the ordinal", func() {
				ea, err := store.Rank(ctx, a, rating.Overall)
				So(err, ShouldBeNil)
				eb, err := store.Rank(ctx, b, rating.Overall)
				So(err, ShouldBeNil)
				So(ea.Rank, ShouldBeLessThan, eb.Rank)
				So(ea.Wins, ShouldEqual, 1)
				So(eb.Wins, ShouldEqual, 0)
				So(eb.Matches, ShouldEqual, 1)

				top, err := store.TopN(ctx, rating.Overall, 1000)
				So(err, ShouldBeNil)
				So(len(top), ShouldBeGreaterThanOrEqualTo, 2)
			})

			Convey("And the match id cannot be applied twice", func() {
				_, err := store.Apply(ctx, duel(matchID, a, b), seed, shift(2))
				So(errors.Is(err, repository.ErrDuplicateMatch), ShouldBeTrue)
			})

			Convey("And unknown players read as seeded", func() {
				players, err := store.Players(ctx, []string{a, prefix + "ghost"}, seed)
				So(err, ShouldBeNil)
				So(players[0].Matches, ShouldEqual, 1)
				So(players[1].Windows.Get(rating.Overall), ShouldResemble, seed)

				_, err = store.Player(ctx, prefix+"ghost")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}
