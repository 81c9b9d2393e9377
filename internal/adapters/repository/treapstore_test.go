package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/ranking/internal/domain/model"
)

func player(pseudo string, points int) model.Player {
	p, err := model.NewPlayer(pseudo, points)
	if err != nil {
		panic(err)
	}
	return p
}

// checkTree verifies the BST order, heap order and subtree sizes.
func checkTree(n *node) int {
	if n == nil {
		return 0
	}
	if n.left != nil {
		So(model.RanksBefore(n.left.player, n.player), ShouldBeTrue)
		So(n.left.prio, ShouldBeLessThanOrEqualTo, n.prio)
	}
	if n.right != nil {
		So(model.RanksBefore(n.player, n.right.player), ShouldBeTrue)
		So(n.right.prio, ShouldBeLessThanOrEqualTo, n.prio)
	}
	size := 1 + checkTree(n.left) + checkTree(n.right)
	So(n.size, ShouldEqual, size)
	return size
}

func TestTreapStore_TreeInvariants(t *testing.T) {
	Convey("Given a treap store receiving many writes", t, func() {
		ctx := context.Background()
		s := NewTreapStore(ctx)
		defer func() { _ = s.Close() }()

		for i := 0; i < 200; i++ {
			So(s.Add(ctx, player(fmt.Sprintf("p%03d", i), (i*37)%23)), ShouldBeNil)
		}
		for i := 0; i < 200; i += 3 {
			ok, err := s.Update(ctx, player(fmt.Sprintf("p%03d", i), (i*11)%29))
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
		}

		Convey("Then the tree stays a valid treap with correct sizes", func() {
			So(checkTree(s.root), ShouldEqual, 200)
			So(len(s.byPseudo), ShouldEqual, 200)
		})

		Convey("Then order statistics match the in-order walk", func() {
			all, err := s.AllSortedByRank(ctx)
			So(err, ShouldBeNil)
			for i, rp := range all {
				So(rankOf(s.root, rp.Player()), ShouldEqual, i+1)
			}
		})

		Convey("Then an unknown player has no rank", func() {
			So(rankOf(s.root, player("missing", 3)), ShouldEqual, 0)
		})
	})
}

func TestTreapStore_ConcurrentAdds(t *testing.T) {
	Convey("Given many goroutines adding the same pseudo", t, func() {
		ctx := context.Background()
		s := NewTreapStore(ctx)
		defer func() { _ = s.Close() }()

		var wg sync.WaitGroup
		var added, duplicates atomic.Int64
		for i := 0; i < 64; i++ {
			wg.Add(1)
			go func(points int) {
				defer wg.Done()
				err := s.Add(ctx, player("bill", points))
				switch {
				case err == nil:
					added.Add(1)
				case errors.Is(err, model.ErrDuplicatePlayer):
					duplicates.Add(1)
				}
			}(i)
		}
		wg.Wait()

		Convey("Then exactly one add wins", func() {
			So(added.Load(), ShouldEqual, 1)
			So(duplicates.Load(), ShouldEqual, 63)
			n, err := s.Count(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
		})
	})
}

func TestTreapStore_Seed(t *testing.T) {
	Convey("Given a store with the demo seed", t, func() {
		ctx := context.Background()
		s := NewTreapStore(ctx, WithDemoSeed(), WithSeed(player("foo", 99)))
		defer func() { _ = s.Close() }()

		Convey("Then foo, bar and baz are ranked and later duplicates are ignored", func() {
			all, err := s.AllSortedByRank(ctx)
			So(err, ShouldBeNil)
			So(len(all), ShouldEqual, 3)
			So(all[0].Pseudo(), ShouldEqual, "foo")
			So(all[0].Points(), ShouldEqual, 10)
			So(all[1].Pseudo(), ShouldEqual, "bar")
			So(all[2].Pseudo(), ShouldEqual, "baz")
		})
	})
}

func TestTreapStore_Lifecycle(t *testing.T) {
	Convey("Given a store with a fast metrics interval", t, func() {
		s := NewTreapStore(context.Background(), WithMetricsUpdateInterval(time.Millisecond))

		Convey("Then Close can be called twice", func() {
			time.Sleep(5 * time.Millisecond)
			So(s.Close(), ShouldBeNil)
			So(s.Close(), ShouldBeNil)
		})
	})

	Convey("Given a cancelled context", t, func() {
		s := NewTreapStore(context.Background())
		defer func() { _ = s.Close() }()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Convey("Then operations report the cancellation", func() {
			So(errors.Is(s.Add(ctx, player("bill", 1)), context.Canceled), ShouldBeTrue)
			_, _, err := s.By(ctx, "bill")
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(errors.Is(s.Ping(ctx), context.Canceled), ShouldBeTrue)
		})
	})
}
