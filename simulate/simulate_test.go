package simulate

import (
	"context"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"stencil/comm"
	"stencil/config"
	"stencil/decomp"
)

func baseConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Nx, cfg.Ny = 20, 20
	cfg.Steps = 10
	cfg.Pattern = "glider"
	cfg.SaveInterval = 0
	cfg.OutputDir = filepath.Join(t.TempDir(), "snapshots")
	return cfg
}

func run(t *testing.T, cfg config.Config, p int, layout decomp.Layout) Result {
	t.Helper()
	plan, err := decomp.New(cfg.Ny, cfg.Nx, p, layout)
	So(err, ShouldBeNil)
	cfg.Decomp = "1d"
	if layout == decomp.Cart2D {
		cfg.Decomp = "2d"
	}
	worlds, ctx := comm.NewLocalWorld(context.Background(), p)
	res, err := RunAll(ctx, cfg, worlds, plan, nil)
	So(err, ShouldBeNil)
	return res
}

func TestDistributedMatchesSingleProcessReference(t *testing.T) {
	Convey("Given identical parameters run under P=1 and P=4 (1D)", t, func() {
		cfg := baseConfig(t)

		refCfg := cfg
		refCfg.OutputDir = filepath.Join(t.TempDir(), "ref")
		reference := run(t, refCfg, 1, decomp.Row1D)

		distCfg := cfg
		distCfg.OutputDir = filepath.Join(t.TempDir(), "dist")
		distributed := run(t, distCfg, 4, decomp.Row1D)

		Convey("The gathered grids are byte-identical", func() {
			So(distributed.Global.Equal(reference.Global), ShouldBeTrue)
		})
	})
}

func TestDistributedMatchesSingleProcessReference2D(t *testing.T) {
	Convey("Given identical parameters run under P=1 and P=6 (2D)", t, func() {
		cfg := baseConfig(t)
		cfg.Pattern = "r_pentomino"

		refCfg := cfg
		refCfg.OutputDir = filepath.Join(t.TempDir(), "ref")
		reference := run(t, refCfg, 1, decomp.Row1D)

		distCfg := cfg
		distCfg.OutputDir = filepath.Join(t.TempDir(), "dist")
		distributed := run(t, distCfg, 6, decomp.Cart2D)

		Convey("The gathered grids are byte-identical", func() {
			So(distributed.Global.Equal(reference.Global), ShouldBeTrue)
		})
	})
}

func TestNonDivisorRankCountIsDeterministic(t *testing.T) {
	Convey("Given a prime rank count that does not divide the grid", t, func() {
		cfg := baseConfig(t)
		cfg.Pattern = "random"
		cfg.Seed = 42
		cfg.Nx, cfg.Ny = 32, 32
		cfg.Steps = 50

		refCfg := cfg
		refCfg.OutputDir = filepath.Join(t.TempDir(), "ref")
		reference := run(t, refCfg, 1, decomp.Row1D)

		distCfg := cfg
		distCfg.OutputDir = filepath.Join(t.TempDir(), "dist")
		distributed := run(t, distCfg, 3, decomp.Row1D)

		Convey("The final checksum matches the single-process reference", func() {
			So(distributed.Report.Checksum, ShouldEqual, reference.Report.Checksum)
		})
	})
}

func TestReportFieldsPopulatedOnRoot(t *testing.T) {
	Convey("Given a completed run", t, func() {
		cfg := baseConfig(t)
		res := run(t, cfg, 2, decomp.Row1D)

		Convey("The report reflects the configured run", func() {
			So(res.Report.Ranks, ShouldEqual, 2)
			So(res.Report.Nx, ShouldEqual, 20)
			So(res.Report.Ny, ShouldEqual, 20)
			So(res.Report.Steps, ShouldEqual, 10)
			So(res.Report.Checksum, ShouldEqual, res.Global.Population())
		})
	})
}

func TestDriverStateTransitions(t *testing.T) {
	Convey("Given a fresh driver", t, func() {
		cfg := baseConfig(t)
		plan, err := decomp.New(cfg.Ny, cfg.Nx, 1, decomp.Row1D)
		So(err, ShouldBeNil)
		worlds, ctx := comm.NewLocalWorld(context.Background(), 1)
		d := NewDriver(cfg, worlds[0], plan)
		So(d.State(), ShouldEqual, Initializing)

		_, err = d.Run(ctx)
		So(err, ShouldBeNil)

		Convey("The driver ends in FINALIZING", func() {
			So(d.State(), ShouldEqual, Finalizing)
		})
	})
}
