package topology

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"stencil/decomp"
)

func TestSymmetry(t *testing.T) {
	Convey("For every rank and direction in a 2D 6-rank topology", t, func() {
		plan, err := decomp.New(50, 100, 6, decomp.Cart2D)
		So(err, ShouldBeNil)
		topo := New(plan)

		Convey("The neighbor's opposite-direction neighbor is the original rank", func() {
			for rank := 0; rank < plan.Size(); rank++ {
				for _, d := range topo.Directions() {
					peer := topo.Neighbor(rank, d)
					So(topo.Neighbor(peer, d.Opposite()), ShouldEqual, rank)
				}
			}
		})
	})
}

func Test1DNeighbors(t *testing.T) {
	Convey("Given a 1D row-strip topology over 4 ranks", t, func() {
		plan, err := decomp.New(10, 10, 4, decomp.Row1D)
		So(err, ShouldBeNil)
		topo := New(plan)

		Convey("Only North/South directions are exposed", func() {
			So(topo.Directions(), ShouldResemble, []Direction{North, South})
		})

		Convey("North wraps from rank 0 to the last rank (non-negative modulus)", func() {
			So(topo.Neighbor(0, North), ShouldEqual, 3)
			So(topo.Neighbor(3, South), ShouldEqual, 0)
		})

		Convey("Interior ranks have sequential neighbors", func() {
			So(topo.Neighbor(1, North), ShouldEqual, 0)
			So(topo.Neighbor(1, South), ShouldEqual, 2)
		})
	})
}

func TestSingleRankSelfNeighbor(t *testing.T) {
	Convey("Given P=1 in a 2D topology", t, func() {
		plan, err := decomp.New(8, 8, 1, decomp.Cart2D)
		So(err, ShouldBeNil)
		topo := New(plan)

		Convey("Every direction's neighbor is the rank itself", func() {
			for _, d := range topo.Directions() {
				So(topo.Neighbor(0, d), ShouldEqual, 0)
			}
			So(len(topo.Directions()), ShouldEqual, 8)
		})
	})
}

func TestDegenerateStrip2D(t *testing.T) {
	Convey("Given a 2D decomposition of 4 ranks, which factors to 2x2 rather than a strip", t, func() {
		plan, err := decomp.New(8, 8, 4, decomp.Cart2D)
		So(err, ShouldBeNil)
		So(plan.Px, ShouldEqual, 2) // 4 factors evenly to 2x2, not degenerate; use a prime instead
	})

	Convey("Given a 2D decomposition over a prime P that yields Py=1 (a 1xP strip)", t, func() {
		plan, err := decomp.New(8, 8, 5, decomp.Cart2D)
		So(err, ShouldBeNil)
		So(plan.Py, ShouldEqual, 1)
		topo := New(plan)
		Convey("East/West wrap within the row and N/S collapse to self", func() {
			So(topo.Neighbor(0, North), ShouldEqual, 0)
			So(topo.Neighbor(0, West), ShouldEqual, 4)
			So(topo.Neighbor(4, East), ShouldEqual, 0)
		})
	})
}
