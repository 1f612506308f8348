package distribute

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"stencil/comm"
	"stencil/decomp"
	"stencil/grid"
)

// seedGlobal fills a global grid with a distinctive per-cell value so
// round-trips can be checked exactly.
func seedGlobal(g *grid.Global) {
	for y := 0; y < g.Ny; y++ {
		for x := 0; x < g.Nx; x++ {
			g.Set(y, x, byte((y*13+x*7+1)%251))
		}
	}
}

type scattered struct {
	buf *grid.Buffer
	err error
}

func scatterAll(ctx context.Context, worlds []comm.World, plan *decomp.Plan, source *grid.Global) []*grid.Buffer {
	p := len(worlds)
	results := make([]chan scattered, p)
	for r := 0; r < p; r++ {
		results[r] = make(chan scattered, 1)
		go func(r int) {
			d := New(worlds[r], plan)
			var g *grid.Global
			if r == 0 {
				g = source
			}
			buf, err := d.Scatter(ctx, g)
			results[r] <- scattered{buf, err}
		}(r)
	}
	bufs := make([]*grid.Buffer, p)
	for r := 0; r < p; r++ {
		res := <-results[r]
		So(res.err, ShouldBeNil)
		bufs[r] = res.buf
	}
	return bufs
}

func gatherAll(ctx context.Context, worlds []comm.World, plan *decomp.Plan, bufs []*grid.Buffer) *grid.Global {
	p := len(worlds)
	results := make([]chan struct {
		g   *grid.Global
		err error
	}, p)
	for r := 0; r < p; r++ {
		results[r] = make(chan struct {
			g   *grid.Global
			err error
		}, 1)
		go func(r int) {
			d := New(worlds[r], plan)
			g, err := d.Gather(ctx, bufs[r])
			results[r] <- struct {
				g   *grid.Global
				err error
			}{g, err}
		}(r)
	}
	var root *grid.Global
	for r := 0; r < p; r++ {
		res := <-results[r]
		So(res.err, ShouldBeNil)
		if r == 0 {
			root = res.g
		}
	}
	return root
}

func runScatterGather(t *testing.T, ny, nx, p int, layout decomp.Layout) (*grid.Global, *grid.Global) {
	t.Helper()
	plan, err := decomp.New(ny, nx, p, layout)
	So(err, ShouldBeNil)

	source := grid.NewGlobal(ny, nx)
	seedGlobal(source)

	worlds, ctx := comm.NewLocalWorld(context.Background(), p)
	bufs := scatterAll(ctx, worlds, plan, source)
	gathered := gatherAll(ctx, worlds, plan, bufs)
	return source, gathered
}

func TestScatterGatherRoundTrip2D(t *testing.T) {
	Convey("Given a 6-rank 2D decomposition of a 10x15 grid", t, func() {
		source, gathered := runScatterGather(t, 10, 15, 6, decomp.Cart2D)

		Convey("Scatter followed by Gather reproduces the original grid exactly", func() {
			So(gathered, ShouldNotBeNil)
			So(gathered.Equal(source), ShouldBeTrue)
		})
	})
}

func TestScatterGatherRoundTripSingleRank(t *testing.T) {
	Convey("Given P=1", t, func() {
		source, gathered := runScatterGather(t, 9, 9, 1, decomp.Cart2D)
		So(gathered.Equal(source), ShouldBeTrue)
	})
}

func TestScatterGatherNonDivisible1D(t *testing.T) {
	Convey("Given a 1D decomposition with a prime rank count", t, func() {
		source, gathered := runScatterGather(t, 17, 10, 3, decomp.Row1D)
		So(gathered.Equal(source), ShouldBeTrue)
	})
}

func TestGatherNilOnNonRoot(t *testing.T) {
	Convey("Given a 3-rank world", t, func() {
		plan, err := decomp.New(9, 9, 3, decomp.Row1D)
		So(err, ShouldBeNil)
		source := grid.NewGlobal(9, 9)
		seedGlobal(source)

		worlds, ctx := comm.NewLocalWorld(context.Background(), 3)
		bufs := scatterAll(ctx, worlds, plan, source)

		Convey("every rank's Gather error is nil, and only root gets a non-nil grid", func() {
			type res struct {
				g   *grid.Global
				err error
			}
			chs := make([]chan res, 3)
			for r := 0; r < 3; r++ {
				chs[r] = make(chan res, 1)
				go func(r int) {
					d := New(worlds[r], plan)
					g, err := d.Gather(ctx, bufs[r])
					chs[r] <- res{g, err}
				}(r)
			}
			for r := 0; r < 3; r++ {
				out := <-chs[r]
				So(out.err, ShouldBeNil)
				if r == 0 {
					So(out.g, ShouldNotBeNil)
				} else {
					So(out.g, ShouldBeNil)
				}
			}
		})
	})
}
