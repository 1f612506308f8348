// Package simulate drives the per-rank generation loop: gather-and-snapshot,
// halo exchange, kernel step, repeated for the configured number of
// generations. One goroutine runs the driver per rank, coordinated by an
// errgroup.Group the same way concurrent read/ping/publish routines are
// coordinated elsewhere in this codebase.
package simulate

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"stencil/bench"
	"stencil/comm"
	"stencil/config"
	"stencil/decomp"
	"stencil/distribute"
	"stencil/errs"
	"stencil/grid"
	"stencil/halo"
	"stencil/kernel"
	"stencil/pattern"
	"stencil/snapshot"
	"stencil/topology"
)

// State is the driver's lifecycle state.
type State int

const (
	Initializing State = iota
	Running
	Finalizing
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "INITIALIZING"
	case Running:
		return "RUNNING"
	case Finalizing:
		return "FINALIZING"
	default:
		return "UNKNOWN"
	}
}

// Telemetry is pushed once per snapshot cadence when a monitor is attached.
type Telemetry struct {
	Step       int
	AliveCells int
	Elapsed    time.Duration
}

// Driver owns one rank's generation loop.
type Driver struct {
	cfg   config.Config
	world comm.World
	plan  *decomp.Plan
	topo  *topology.Topology
	ex    *halo.Exchanger
	dist  *distribute.Distributor

	state State

	// Telemetry, if non-nil, receives a Telemetry value every time a
	// snapshot is taken (root only), plus once after the final step. Sends
	// never block: when the channel is full the update is dropped.
	Telemetry chan<- Telemetry
}

// NewDriver builds a Driver for one rank of the given plan.
func NewDriver(cfg config.Config, world comm.World, plan *decomp.Plan) *Driver {
	topo := topology.New(plan)
	patch := plan.At(world.Rank())
	return &Driver{
		cfg:   cfg,
		world: world,
		plan:  plan,
		topo:  topo,
		ex:    halo.New(world, topo, patch.RowCount, patch.ColCount),
		dist:  distribute.New(world, plan),
		state: Initializing,
	}
}

// State returns the driver's current lifecycle state.
func (d *Driver) State() State { return d.state }

// Result is what a single rank's Run call contributes; only rank 0's Global
// and Report fields are populated.
type Result struct {
	Global *grid.Global
	Report bench.Report
}

// Run seeds (on root) or receives (elsewhere) the initial patch, then
// advances it for cfg.Steps generations, gathering and snapshotting at the
// configured cadence. It returns a non-nil Global only on rank 0.
func (d *Driver) Run(ctx context.Context) (Result, error) {
	root := d.world.Rank() == 0

	var initial *grid.Global
	if root {
		initial = grid.NewGlobal(d.cfg.Ny, d.cfg.Nx)
		kind, err := pattern.ParseKind(d.cfg.Pattern)
		if err != nil {
			return Result{}, errs.Configf("simulate.Run", "%v", err)
		}
		if err := pattern.Seed(initial, kind, d.cfg.Seed); err != nil {
			return Result{}, errs.Configf("simulate.Run", "%v", err)
		}
	}

	cur, err := d.dist.Scatter(ctx, initial)
	if err != nil {
		return Result{}, fmt.Errorf("simulate: initial scatter: %w", err)
	}
	next := grid.New(cur.Rows, cur.Cols)

	d.state = Running
	start := time.Now()

	if err := d.maybeSnapshot(ctx, 0, cur); err != nil && root {
		logIOError(err)
	}

	for step := 1; step <= d.cfg.Steps; step++ {
		if err := d.ex.Exchange(ctx, cur); err != nil {
			d.world.Abort(err)
			return Result{}, fmt.Errorf("simulate: exchange at step %d: %w", step, err)
		}
		kernel.Step(cur, next)
		cur, next = next, cur

		if step < d.cfg.Steps {
			if err := d.maybeSnapshot(ctx, step, cur); err != nil && root {
				logIOError(err)
			}
		}
	}

	d.state = Finalizing

	if err := d.world.Barrier(ctx); err != nil {
		return Result{}, fmt.Errorf("simulate: final barrier: %w", err)
	}

	var elapsed time.Duration
	if root {
		elapsed = time.Since(start)
	}
	final, err := d.dist.Gather(ctx, cur)
	if err != nil {
		return Result{}, fmt.Errorf("simulate: final gather: %w", err)
	}

	result := Result{}
	if root {
		checksum := final.Population()
		result.Global = final
		result.Report = bench.Report{
			Ranks:      d.plan.Size(),
			Nx:         d.cfg.Nx,
			Ny:         d.cfg.Ny,
			Steps:      d.cfg.Steps,
			Elapsed:    elapsed.Seconds(),
			Checksum:   checksum,
			AliveCells: checksum,
		}
		if err := d.writeFinalSnapshot(final, checksum, elapsed); err != nil {
			logIOError(err)
		}
		if d.Telemetry != nil {
			// Best-effort: telemetry is an optional side channel for an
			// attached monitor client, never a thing the run waits on. With
			// no client connected to drain it, the buffered channel fills
			// and a blocking send here would wedge the whole run.
			select {
			case d.Telemetry <- Telemetry{Step: d.cfg.Steps, AliveCells: checksum, Elapsed: elapsed}:
			case <-ctx.Done():
			default:
			}
		}
	}
	return result, nil
}

// maybeSnapshot gathers and writes a snapshot if step falls on the
// configured cadence (every SaveInterval steps, plus step 0). Every rank
// must call Gather even when nothing will be written, since root waits on a
// receive from each one.
func (d *Driver) maybeSnapshot(ctx context.Context, step int, cur *grid.Buffer) error {
	if d.cfg.SaveInterval <= 0 && step != 0 {
		return nil
	}
	if step != 0 && step%d.cfg.SaveInterval != 0 {
		return nil
	}

	global, err := d.dist.Gather(ctx, cur)
	if err != nil {
		return fmt.Errorf("simulate: snapshot gather at step %d: %w", step, err)
	}
	if global == nil {
		return nil
	}

	meta := snapshot.Meta{
		Nx:      d.cfg.Nx,
		Ny:      d.cfg.Ny,
		Pattern: d.cfg.Pattern,
		Seed:    d.cfg.Seed,
	}
	path := filepath.Join(d.cfg.OutputDir, fmt.Sprintf("step_%06d.npz", step))
	if err := snapshot.Write(path, global, meta); err != nil {
		return err
	}
	if d.Telemetry != nil {
		// Best-effort, same as the final-step send above: never block the
		// simulation loop on an unconnected or slow monitor client.
		select {
		case d.Telemetry <- Telemetry{Step: step, AliveCells: global.Population()}:
		case <-ctx.Done():
		default:
		}
	}
	return nil
}

func (d *Driver) writeFinalSnapshot(global *grid.Global, checksum int, elapsed time.Duration) error {
	meta := snapshot.Meta{
		Nx: d.cfg.Nx, Ny: d.cfg.Ny,
		Pattern: d.cfg.Pattern, Seed: d.cfg.Seed,
		Final: true, Checksum: checksum, AliveCells: checksum,
		ElapsedTime: elapsed.Seconds(),
	}
	path := filepath.Join(d.cfg.OutputDir, fmt.Sprintf("step_%06d.npz", d.cfg.Steps))
	return snapshot.Write(path, global, meta)
}

// logIOError is the recovery an IOError gets: log and keep running, never
// abort the job over a snapshot write failure.
func logIOError(err error) {
	log.Printf("snapshot write failed, continuing: %v", err)
}

// RunAll builds one Driver per rank and runs them concurrently, coordinated
// by an errgroup.Group so that any rank's fatal error cancels the others'
// context promptly. telemetry, if non-nil, is wired only to rank 0's driver.
// It returns rank 0's Result.
func RunAll(ctx context.Context, cfg config.Config, worlds []comm.World, plan *decomp.Plan, telemetry chan<- Telemetry) (Result, error) {
	group, groupCtx := errgroup.WithContext(ctx)
	results := make([]Result, len(worlds))

	for r, w := range worlds {
		r, w := r, w
		group.Go(func() error {
			d := NewDriver(cfg, w, plan)
			if r == 0 {
				d.Telemetry = telemetry
			}
			res, err := d.Run(groupCtx)
			if err != nil {
				return err
			}
			results[r] = res
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return Result{}, err
	}
	return results[0], nil
}
