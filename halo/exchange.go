// Package halo implements the non-blocking halo-exchange protocol: it
// refreshes every halo cell of a patch from the owning interior cells of its
// neighbors, under the canonical ordering (post all receives, then all
// sends, then wait for all to complete) that avoids deadlock regardless of
// the transport's buffering policy.
package halo

import (
	"context"
	"fmt"

	"stencil/comm"
	"stencil/grid"
	"stencil/topology"
)

// tagFor maps a direction to its reserved message tag. Every direction gets
// a distinct tag so that corner and edge messages never collide, including
// under self-messaging when a process-grid axis has extent 1.
func tagFor(d topology.Direction) comm.Tag {
	return comm.Tag(d)
}

// Exchanger refreshes a patch's halo from its neighbors each generation.
type Exchanger struct {
	world World
	topo  *topology.Topology
	rank  int

	// Scratch send/recv buffers, one per direction, allocated once and
	// reused every exchange to avoid per-step garbage.
	sendBufs map[topology.Direction][]byte
	recvBufs map[topology.Direction][]byte

	// wrapCols is set when the topology exposes no East/West neighbor (the
	// 1D row-strip layout, whose patches already span the full row width):
	// the east/west halo, and the corners of the north/south halo rows, are
	// then the patch's own opposite edge and are filled by a local copy
	// rather than a message, since no other rank owns any part of the row.
	wrapCols bool
}

// World is the subset of comm.World the exchanger needs.
type World interface {
	Rank() int
	ISend(dst int, tag comm.Tag, data []byte) comm.Request
	IRecv(src int, tag comm.Tag, buf []byte) comm.Request
}

// New builds an Exchanger for the given rank's patch shape. rows/cols are
// the patch's owned (interior) dimensions.
func New(world World, topo *topology.Topology, rows, cols int) *Exchanger {
	e := &Exchanger{
		world:    world,
		topo:     topo,
		rank:     world.Rank(),
		sendBufs: make(map[topology.Direction][]byte),
		recvBufs: make(map[topology.Direction][]byte),
		wrapCols: true,
	}
	for _, d := range topo.Directions() {
		if d == topology.East || d == topology.West {
			e.wrapCols = false
		}
		n := edgeLength(d, rows, cols)
		e.sendBufs[d] = make([]byte, n)
		e.recvBufs[d] = make([]byte, n)
	}
	return e
}

// edgeLength returns the number of cells exchanged in direction d: a full
// row or column for N/S/E/W, a single cell for the four corners.
func edgeLength(d topology.Direction, rows, cols int) int {
	switch d {
	case topology.North, topology.South:
		return cols
	case topology.East, topology.West:
		return rows
	default:
		return 1
	}
}

// Exchange refreshes every halo cell of b from the owning interior cells of
// b's neighbors, per the topology's direction set. It posts all receives,
// then all sends, then waits for every request to complete, satisfying the
// halo-consistency invariant on return.
func (e *Exchanger) Exchange(ctx context.Context, b *grid.Buffer) error {
	dirs := e.topo.Directions()

	recvReqs := make([]comm.Request, len(dirs))
	for i, d := range dirs {
		src := e.topo.Neighbor(e.rank, d)
		recvReqs[i] = e.world.IRecv(src, tagFor(d.Opposite()), e.recvBufs[d])
	}

	sendReqs := make([]comm.Request, len(dirs))
	for i, d := range dirs {
		packEdge(b, d, e.sendBufs[d])
		dst := e.topo.Neighbor(e.rank, d)
		sendReqs[i] = e.world.ISend(dst, tagFor(d), e.sendBufs[d])
	}

	for i, d := range dirs {
		if err := sendReqs[i].Wait(ctx); err != nil {
			return fmt.Errorf("halo: send rank=%d dir=%v: %w", e.rank, d, err)
		}
	}
	for i, d := range dirs {
		if err := recvReqs[i].Wait(ctx); err != nil {
			return fmt.Errorf("halo: recv rank=%d dir=%v: %w", e.rank, d, err)
		}
		unpackHalo(b, d, e.recvBufs[d])
	}

	if e.wrapCols {
		wrapColumnsLocally(b)
	}
	return nil
}

// wrapColumnsLocally fills the east/west halo columns, and the east/west
// corners of any already-filled north/south halo rows, from the patch's own
// opposite edge. It is used only for patches that own a full row of the
// global grid (the 1D row-strip layout): the column wrap never crosses a
// rank boundary there, so it is a local copy rather than a message, applied
// after the north/south halo rows have been received so their corners wrap
// correctly too.
func wrapColumnsLocally(b *grid.Buffer) {
	for y := 0; y <= b.Rows+1; y++ {
		row := b.Row(y)
		row[0] = row[b.Cols]
		row[b.Cols+1] = row[1]
	}
}

// packEdge copies the interior edge adjacent to direction d into dst.
func packEdge(b *grid.Buffer, d topology.Direction, dst []byte) {
	switch d {
	case topology.North:
		copy(dst, b.InteriorRow(1))
	case topology.South:
		copy(dst, b.InteriorRow(b.Rows))
	case topology.West:
		b.Column(1, dst)
	case topology.East:
		b.Column(b.Cols, dst)
	case topology.NorthWest:
		dst[0] = b.At(1, 1)
	case topology.NorthEast:
		dst[0] = b.At(1, b.Cols)
	case topology.SouthWest:
		dst[0] = b.At(b.Rows, 1)
	case topology.SouthEast:
		dst[0] = b.At(b.Rows, b.Cols)
	}
}

// unpackHalo writes received edge data src into the halo slot on side d.
func unpackHalo(b *grid.Buffer, d topology.Direction, src []byte) {
	switch d {
	case topology.North:
		copy(b.Row(0)[1:1+b.Cols], src)
	case topology.South:
		copy(b.Row(b.Rows+1)[1:1+b.Cols], src)
	case topology.West:
		b.SetColumn(0, src)
	case topology.East:
		b.SetColumn(b.Cols+1, src)
	case topology.NorthWest:
		b.Set(0, 0, src[0])
	case topology.NorthEast:
		b.Set(0, b.Cols+1, src[0])
	case topology.SouthWest:
		b.Set(b.Rows+1, 0, src[0])
	case topology.SouthEast:
		b.Set(b.Rows+1, b.Cols+1, src[0])
	}
}
