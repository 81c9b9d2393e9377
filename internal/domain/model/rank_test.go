package model_test

import (
	"math/rand"
	"testing"

	model "github.com/okian/ranking/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func mustPlayer(pseudo string, points int) model.Player {
	p, err := model.NewPlayer(pseudo, points)
	if err != nil {
		panic(err)
	}
	return p
}

func TestRank(t *testing.T) {
	convey.Convey("Given bill=1, bob=5, john=10", t, func() {
		players := []model.Player{
			mustPlayer("bill", 1),
			mustPlayer("bob", 5),
			mustPlayer("john", 10),
		}

		ranked := model.Rank(players)

		convey.Convey("Then players are ordered by descending points", func() {
			convey.So(len(ranked), convey.ShouldEqual, 3)
			convey.So(ranked[0].Pseudo(), convey.ShouldEqual, "john")
			convey.So(ranked[0].Rank(), convey.ShouldEqual, 1)
			convey.So(ranked[1].Pseudo(), convey.ShouldEqual, "bob")
			convey.So(ranked[1].Rank(), convey.ShouldEqual, 2)
			convey.So(ranked[2].Pseudo(), convey.ShouldEqual, "bill")
			convey.So(ranked[2].Rank(), convey.ShouldEqual, 3)
		})

		convey.Convey("And the input slice is left untouched", func() {
			convey.So(players[0].Pseudo(), convey.ShouldEqual, "bill")
		})
	})

	convey.Convey("Given players with equal points", t, func() {
		ranked := model.Rank([]model.Player{
			mustPlayer("zoe", 7),
			mustPlayer("amy", 7),
			mustPlayer("max", 9),
		})

		convey.Convey("Then ties receive distinct consecutive ranks ordered by pseudo", func() {
			convey.So(ranked[0].Pseudo(), convey.ShouldEqual, "max")
			convey.So(ranked[1].Pseudo(), convey.ShouldEqual, "amy")
			convey.So(ranked[1].Rank(), convey.ShouldEqual, 2)
			convey.So(ranked[2].Pseudo(), convey.ShouldEqual, "zoe")
			convey.So(ranked[2].Rank(), convey.ShouldEqual, 3)
		})
	})

	convey.Convey("Given an empty population", t, func() {
		convey.So(model.Rank(nil), convey.ShouldBeEmpty)
	})

	convey.Convey("Given random populations", t, func() {
		rng := rand.New(rand.NewSource(42))

		for round := 0; round < 50; round++ {
			n := rng.Intn(40)
			players := make([]model.Player, n)
			for i := range players {
				players[i] = mustPlayer(string(rune('a'+i%26))+string(rune('A'+i/26)), rng.Intn(10))
			}

			ranked := model.Rank(players)

			convey.So(len(ranked), convey.ShouldEqual, n)
			for i, r := range ranked {
				convey.So(r.Rank(), convey.ShouldEqual, i+1)
				if i > 0 {
					convey.So(ranked[i-1].Points(), convey.ShouldBeGreaterThanOrEqualTo, r.Points())
					convey.So(model.RanksBefore(ranked[i-1].Player(), r.Player()), convey.ShouldBeTrue)
				}
				found, ok := model.Find(ranked, r.Pseudo())
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(found, convey.ShouldResemble, r)
			}
		}
	})
}

func TestFind(t *testing.T) {
	convey.Convey("Given a ranked sequence", t, func() {
		ranked := model.Rank([]model.Player{mustPlayer("bill", 1)})

		convey.Convey("When looking up an unknown pseudo", func() {
			_, ok := model.Find(ranked, "foo")

			convey.Convey("Then nothing is found", func() {
				convey.So(ok, convey.ShouldBeFalse)
			})
		})
	})
}
