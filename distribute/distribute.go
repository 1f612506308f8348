// Package distribute implements the root-orchestrated scatter and gather
// operations that move a logical (ny, nx) grid between a single transient
// root-side representation and the per-rank halo-padded patches every other
// package operates on.
package distribute

import (
	"context"
	"fmt"

	"stencil/comm"
	"stencil/decomp"
	"stencil/grid"
)

// root is the rank that owns the transient global grid during scatter and
// gather; every other rank still participates in both calls, it simply has
// no global-side data to contribute or receive.
const root = 0

// Reserved tags for scatter/gather payloads, distinct from halo exchange's
// reserved direction tags (0..7) and from each other.
const (
	scatterTag comm.Tag = 1000
	gatherTag  comm.Tag = 1001
)

// World is the subset of comm.World the distributor needs.
type World interface {
	Rank() int
	ISend(dst int, tag comm.Tag, data []byte) comm.Request
	IRecv(src int, tag comm.Tag, buf []byte) comm.Request
}

// Distributor moves data between the root's global grid and every rank's
// owned patch, per the plan's row/column assignment.
type Distributor struct {
	world World
	plan  *decomp.Plan
	rank  int
}

// New builds a Distributor for the calling rank.
func New(world World, plan *decomp.Plan) *Distributor {
	return &Distributor{world: world, plan: plan, rank: world.Rank()}
}

// Scatter distributes global into each rank's owned patch and returns a
// freshly allocated halo-padded buffer holding it. global is read only on
// root and must be non-nil there; every other rank may pass nil. Every rank,
// including root, receives its own patch back through the same point-to-point
// path, so a single code path covers both the self-delivery and remote cases.
func (d *Distributor) Scatter(ctx context.Context, global *grid.Global) (*grid.Buffer, error) {
	patch := d.plan.At(d.rank)
	recvBuf := make([]byte, patch.RowCount*patch.ColCount)
	recvReq := d.world.IRecv(root, scatterTag, recvBuf)

	if d.rank == root {
		if global == nil {
			return nil, fmt.Errorf("distribute: scatter on root requires a non-nil global grid")
		}
		for r := 0; r < d.plan.Size(); r++ {
			p := d.plan.At(r)
			region := global.Region(p.RowStart, p.ColStart, p.RowCount, p.ColCount)
			if err := d.world.ISend(r, scatterTag, region).Wait(ctx); err != nil {
				return nil, fmt.Errorf("distribute: scatter send to rank=%d: %w", r, err)
			}
		}
	}

	if err := recvReq.Wait(ctx); err != nil {
		return nil, fmt.Errorf("distribute: scatter recv rank=%d: %w", d.rank, err)
	}

	buf := grid.New(patch.RowCount, patch.ColCount)
	buf.SetRegion(1, 1, patch.RowCount, patch.ColCount, recvBuf)
	return buf, nil
}

// Gather collects every rank's owned interior into a single global grid,
// returned non-nil only on root; every other rank gets a nil grid and a nil
// error on success. Every rank must call Gather, including those with
// nothing new to contribute this step, since root waits on a receive from
// each one.
func (d *Distributor) Gather(ctx context.Context, local *grid.Buffer) (*grid.Global, error) {
	var recvReqs []comm.Request
	var recvBufs [][]byte

	if d.rank == root {
		recvReqs = make([]comm.Request, d.plan.Size())
		recvBufs = make([][]byte, d.plan.Size())
		for r := 0; r < d.plan.Size(); r++ {
			p := d.plan.At(r)
			recvBufs[r] = make([]byte, p.RowCount*p.ColCount)
			recvReqs[r] = d.world.IRecv(r, gatherTag, recvBufs[r])
		}
	}

	if err := d.world.ISend(root, gatherTag, local.Interior()).Wait(ctx); err != nil {
		return nil, fmt.Errorf("distribute: gather send rank=%d: %w", d.rank, err)
	}

	if d.rank != root {
		return nil, nil
	}

	global := grid.NewGlobal(d.plan.Ny, d.plan.Nx)
	for r := 0; r < d.plan.Size(); r++ {
		if err := recvReqs[r].Wait(ctx); err != nil {
			return nil, fmt.Errorf("distribute: gather recv from rank=%d: %w", r, err)
		}
		p := d.plan.At(r)
		global.SetRegion(p.RowStart, p.ColStart, p.RowCount, p.ColCount, recvBufs[r])
	}
	return global, nil
}
