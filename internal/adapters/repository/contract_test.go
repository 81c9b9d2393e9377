package repository_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/ranking/internal/adapters/repository"
	"github.com/okian/ranking/internal/domain/model"
)

func mustPlayer(pseudo string, points int) model.Player {
	p, err := model.NewPlayer(pseudo, points)
	if err != nil {
		panic(err)
	}
	return p
}

func seed(ctx context.Context, s repository.Store, players ...model.Player) {
	for _, p := range players {
		convey.So(s.Add(ctx, p), convey.ShouldBeNil)
	}
}

type row struct {
	pseudo string
	points int
	rank   int
}

func rows(ranked []model.RankedPlayer) []row {
	out := make([]row, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, row{r.Pseudo(), r.Points(), r.Rank()})
	}
	return out
}

// runStoreContract checks the behavior every backend must share. newStore
// returns an empty store for each leaf.
func runStoreContract(t *testing.T, name string, newStore func() repository.Store) {
	convey.Convey("Given an empty "+name+" store", t, func() {
		ctx := context.Background()
		store := newStore()

		convey.Convey("When adding bill with 99 points", func() {
			bill := mustPlayer("bill", 99)
			convey.So(store.Add(ctx, bill), convey.ShouldBeNil)

			convey.Convey("Then bill is ranked first", func() {
				rp, ok, err := store.By(ctx, "bill")
				convey.So(err, convey.ShouldBeNil)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(rp.Player(), convey.ShouldResemble, bill)
				convey.So(rp.Rank(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the store holds bill=1, bob=5, john=10", func() {
			seed(ctx, store, mustPlayer("bill", 1), mustPlayer("bob", 5), mustPlayer("john", 10))

			convey.Convey("Then players are listed by descending points", func() {
				all, err := store.AllSortedByRank(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(rows(all), convey.ShouldResemble, []row{
					{"john", 10, 1},
					{"bob", 5, 2},
					{"bill", 1, 3},
				})
			})

			convey.Convey("Then listing twice returns identical results", func() {
				first, err := store.AllSortedByRank(ctx)
				convey.So(err, convey.ShouldBeNil)
				second, err := store.AllSortedByRank(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(rows(second), convey.ShouldResemble, rows(first))
			})

			convey.Convey("Then Count reports three players", func() {
				n, err := store.Count(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(n, convey.ShouldEqual, 3)
			})

			convey.Convey("When bill is updated to 100 points", func() {
				ok, err := store.Update(ctx, mustPlayer("bill", 100))
				convey.So(err, convey.ShouldBeNil)
				convey.So(ok, convey.ShouldBeTrue)

				convey.Convey("Then bill is re-ranked first with 100 points", func() {
					rp, found, err := store.By(ctx, "bill")
					convey.So(err, convey.ShouldBeNil)
					convey.So(found, convey.ShouldBeTrue)
					convey.So(rp.Points(), convey.ShouldEqual, 100)
					convey.So(rp.Rank(), convey.ShouldEqual, 1)

					all, err := store.AllSortedByRank(ctx)
					convey.So(err, convey.ShouldBeNil)
					convey.So(rows(all), convey.ShouldResemble, []row{
						{"bill", 100, 1},
						{"john", 10, 2},
						{"bob", 5, 3},
					})
				})
			})

			convey.Convey("When deleting all players", func() {
				convey.So(store.DeleteAll(ctx), convey.ShouldBeNil)

				convey.Convey("Then the listing is empty", func() {
					all, err := store.AllSortedByRank(ctx)
					convey.So(err, convey.ShouldBeNil)
					convey.So(all, convey.ShouldBeEmpty)

					_, found, err := store.By(ctx, "bob")
					convey.So(err, convey.ShouldBeNil)
					convey.So(found, convey.ShouldBeFalse)
				})
			})
		})

		convey.Convey("When adding bill twice", func() {
			convey.So(store.Add(ctx, mustPlayer("bill", 1)), convey.ShouldBeNil)
			err := store.Add(ctx, mustPlayer("bill", 7))

			convey.Convey("Then the second add is a duplicate and the first is kept", func() {
				convey.So(errors.Is(err, model.ErrDuplicatePlayer), convey.ShouldBeTrue)

				all, err := store.AllSortedByRank(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(rows(all), convey.ShouldResemble, []row{{"bill", 1, 1}})
			})
		})

		convey.Convey("When updating an unknown pseudo", func() {
			seed(ctx, store, mustPlayer("bar", 5))
			ok, err := store.Update(ctx, mustPlayer("foo", 11))

			convey.Convey("Then nothing is found and nothing is created", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(ok, convey.ShouldBeFalse)

				_, found, err := store.By(ctx, "foo")
				convey.So(err, convey.ShouldBeNil)
				convey.So(found, convey.ShouldBeFalse)

				n, err := store.Count(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(n, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When points sit at the extremes", func() {
			seed(ctx, store, mustPlayer("max", model.MaxPoints), mustPlayer("below", model.MaxPoints-1), mustPlayer("zero", 0))

			convey.Convey("Then they are kept exactly and ranked", func() {
				all, err := store.AllSortedByRank(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(rows(all), convey.ShouldResemble, []row{
					{"max", model.MaxPoints, 1},
					{"below", model.MaxPoints - 1, 2},
					{"zero", 0, 3},
				})

				rp, ok, err := store.By(ctx, "below")
				convey.So(err, convey.ShouldBeNil)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(rp.Points(), convey.ShouldEqual, model.MaxPoints-1)
			})
		})

		convey.Convey("When players tie on points", func() {
			seed(ctx, store, mustPlayer("zoe", 3), mustPlayer("amy", 3), mustPlayer("max", 3), mustPlayer("top", 9))

			convey.Convey("Then ties get distinct consecutive ranks ordered by pseudo", func() {
				all, err := store.AllSortedByRank(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(rows(all), convey.ShouldResemble, []row{
					{"top", 9, 1},
					{"amy", 3, 2},
					{"max", 3, 3},
					{"zoe", 3, 4},
				})
			})
		})

		convey.Convey("When a random population is stored", func() {
			rng := rand.New(rand.NewPCG(7, 11))
			players := make([]model.Player, 0, 40)
			for i := 0; i < 40; i++ {
				players = append(players, mustPlayer(fmt.Sprintf("p%02d", i), rng.IntN(15)))
			}
			seed(ctx, store, players...)

			all, err := store.AllSortedByRank(ctx)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the listing equals the model ranking", func() {
				convey.So(rows(all), convey.ShouldResemble, rows(model.Rank(players)))
			})

			convey.Convey("Then By agrees with the listing position", func() {
				for i, want := range all {
					got, found, err := store.By(ctx, want.Pseudo())
					convey.So(err, convey.ShouldBeNil)
					convey.So(found, convey.ShouldBeTrue)
					convey.So(got.Rank(), convey.ShouldEqual, i+1)
					convey.So(got.Points(), convey.ShouldEqual, want.Points())
				}
			})
		})

		convey.Convey("When the store writes with rank", func() {
			rw, ok := store.(repository.RankedWriter)
			if !ok {
				return
			}
			seed(ctx, store, mustPlayer("john", 10))

			rp, err := rw.AddRanked(ctx, mustPlayer("ann", 20))
			convey.So(err, convey.ShouldBeNil)
			convey.So(rp.Rank(), convey.ShouldEqual, 1)

			_, err = rw.AddRanked(ctx, mustPlayer("ann", 1))
			convey.So(errors.Is(err, model.ErrDuplicatePlayer), convey.ShouldBeTrue)

			rp, found, err := rw.UpdateRanked(ctx, mustPlayer("ann", 2))
			convey.So(err, convey.ShouldBeNil)
			convey.So(found, convey.ShouldBeTrue)
			convey.So(rp.Rank(), convey.ShouldEqual, 2)
			convey.So(rp.Points(), convey.ShouldEqual, 2)

			_, found, err = rw.UpdateRanked(ctx, mustPlayer("ghost", 2))
			convey.So(err, convey.ShouldBeNil)
			convey.So(found, convey.ShouldBeFalse)
		})
	})
}

func TestTreapStore_Contract(t *testing.T) {
	runStoreContract(t, "memory", func() repository.Store {
		s := repository.NewTreapStore(context.Background())
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
