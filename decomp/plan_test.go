package decomp

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNewRow1D(t *testing.T) {
	Convey("Given a 10x10 grid split 1D across 4 ranks", t, func() {
		plan, err := New(10, 10, 4, Row1D)
		So(err, ShouldBeNil)

		Convey("The process grid is 4x1", func() {
			So(plan.Py, ShouldEqual, 4)
			So(plan.Px, ShouldEqual, 1)
		})

		Convey("Row starts are monotonic and cover [0,10)", func() {
			total := 0
			prevEnd := 0
			for _, patch := range plan.Patches {
				So(patch.RowStart, ShouldEqual, prevEnd)
				prevEnd = patch.RowStart + patch.RowCount
				total += patch.RowCount
				So(patch.ColStart, ShouldEqual, 0)
				So(patch.ColCount, ShouldEqual, 10)
			}
			So(prevEnd, ShouldEqual, 10)
			So(total, ShouldEqual, 10)
		})

		Convey("Remainder rule gives the first two ranks an extra row", func() {
			So(plan.Patches[0].RowCount, ShouldEqual, 3)
			So(plan.Patches[1].RowCount, ShouldEqual, 3)
			So(plan.Patches[2].RowCount, ShouldEqual, 2)
			So(plan.Patches[3].RowCount, ShouldEqual, 2)
		})
	})
}

func TestNewCart2D(t *testing.T) {
	Convey("Given a 100x50 grid split 2D across 6 ranks", t, func() {
		plan, err := New(50, 100, 6, Cart2D)
		So(err, ShouldBeNil)

		Convey("The process grid is balanced to 2x3", func() {
			So(plan.Py, ShouldEqual, 2)
			So(plan.Px, ShouldEqual, 3)
		})

		Convey("Patches partition the grid exactly: no gap, no overlap", func() {
			covered := make([][]bool, plan.Ny)
			for i := range covered {
				covered[i] = make([]bool, plan.Nx)
			}
			for _, patch := range plan.Patches {
				for y := patch.RowStart; y < patch.RowStart+patch.RowCount; y++ {
					for x := patch.ColStart; x < patch.ColStart+patch.ColCount; x++ {
						So(covered[y][x], ShouldBeFalse)
						covered[y][x] = true
					}
				}
			}
			for y := range covered {
				for x := range covered[y] {
					So(covered[y][x], ShouldBeTrue)
				}
			}
		})
	})

	Convey("Given a prime rank count that does not divide the grid", t, func() {
		plan, err := New(32, 32, 7, Cart2D)
		So(err, ShouldBeNil)

		Convey("The factorization degenerates to a 1x7 strip", func() {
			So(plan.Py, ShouldEqual, 1)
			So(plan.Px, ShouldEqual, 7)
		})
	})

	Convey("Given a 16x16 grid across 4 ranks, the process grid is a balanced 2x2", t, func() {
		plan, err := New(16, 16, 4, Cart2D)
		So(err, ShouldBeNil)
		So(plan.Py, ShouldEqual, 2)
		So(plan.Px, ShouldEqual, 2)
	})
}

func TestNewErrors(t *testing.T) {
	Convey("P=0 is rejected", t, func() {
		_, err := New(10, 10, 0, Row1D)
		So(err, ShouldNotBeNil)
	})

	Convey("A process grid finer than the data is rejected", t, func() {
		_, err := New(3, 10, 4, Row1D)
		So(err, ShouldNotBeNil)
	})

	Convey("Non-positive grid dimensions are rejected", t, func() {
		_, err := New(0, 10, 1, Row1D)
		So(err, ShouldNotBeNil)
	})
}

func TestRankOfAndAt(t *testing.T) {
	Convey("Given a 2x3 process grid", t, func() {
		plan, err := New(50, 100, 6, Cart2D)
		So(err, ShouldBeNil)

		Convey("RankOf and At are inverses", func() {
			for rank, patch := range plan.Patches {
				So(plan.RankOf(patch.Py, patch.Px), ShouldEqual, rank)
				So(plan.At(rank), ShouldResemble, patch)
			}
		})
	})
}

func TestExtentEqualsP(t *testing.T) {
	Convey("When ny equals P, each rank owns exactly one row", t, func() {
		plan, err := New(4, 10, 4, Row1D)
		So(err, ShouldBeNil)
		for _, patch := range plan.Patches {
			So(patch.RowCount, ShouldEqual, 1)
		}
	})
}
