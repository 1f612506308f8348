// Package decomp computes how a global (ny, nx) grid is partitioned across
// P ranks, for both the 1D row-strip and 2D Cartesian layouts described in
// the data model: every cell is owned by exactly one patch and the maximum
// row/column imbalance between patches is at most one.
package decomp

import "stencil/errs"

// Layout selects between a 1D row-strip and a 2D Cartesian decomposition.
type Layout int

const (
	Row1D Layout = iota
	Cart2D
)

// Patch describes one rank's position in the process grid and the region of
// the global grid it owns.
type Patch struct {
	Py, Px                 int // this rank's coordinates in the process grid
	RowStart, RowCount     int
	ColStart, ColCount     int
}

// Plan is the full per-rank decomposition of a (ny, nx) grid across P ranks.
type Plan struct {
	Ny, Nx   int
	Py, Px   int // process-grid shape: Py*Px == P
	Patches  []Patch
}

// New computes the decomposition plan for P ranks over a (ny, nx) grid under
// the requested layout. Errors are errs.Config-kind: a non-positive process
// count, non-positive grid dimensions, or a process grid finer than the data
// it would partition (which would leave some patch empty).
func New(ny, nx, p int, layout Layout) (*Plan, error) {
	if p <= 0 {
		return nil, errs.Configf("decomp.New", "process count must be positive, got %d", p)
	}
	if ny <= 0 || nx <= 0 {
		return nil, errs.Configf("decomp.New", "grid dimensions must be positive, got %dx%d", ny, nx)
	}

	py, px := processGridShape(p, layout)
	if ny < py {
		return nil, errs.Configf("decomp.New", "ny=%d smaller than process rows Py=%d, some patch would be empty", ny, py)
	}
	if nx < px {
		return nil, errs.Configf("decomp.New", "nx=%d smaller than process columns Px=%d, some patch would be empty", nx, px)
	}

	rowStarts, rowCounts := remainderSplit(ny, py)
	colStarts, colCounts := remainderSplit(nx, px)

	patches := make([]Patch, 0, p)
	for r := 0; r < py; r++ {
		for c := 0; c < px; c++ {
			patches = append(patches, Patch{
				Py:       r,
				Px:       c,
				RowStart: rowStarts[r],
				RowCount: rowCounts[r],
				ColStart: colStarts[c],
				ColCount: colCounts[c],
			})
		}
	}

	return &Plan{Ny: ny, Nx: nx, Py: py, Px: px, Patches: patches}, nil
}

// processGridShape factors p into (Py, Px) for the requested layout. For
// Row1D, Py=p, Px=1. For Cart2D, Py and Px are chosen to minimize |Py-Px|,
// ties broken toward Py <= Px.
func processGridShape(p int, layout Layout) (py, px int) {
	if layout == Row1D {
		return p, 1
	}

	bestPy, bestPx := 1, p
	for d := 1; d*d <= p; d++ {
		if p%d != 0 {
			continue
		}
		candPy, candPx := d, p/d
		if candPx-candPy < bestPx-bestPy {
			bestPy, bestPx = candPy, candPx
		}
	}
	return bestPy, bestPx
}

// remainderSplit divides n units across k buckets: the first (n mod k)
// buckets receive ceil(n/k) units, the rest floor(n/k), guaranteeing
// monotonic, gap-free, non-overlapping starts summing to n.
func remainderSplit(n, k int) (starts, counts []int) {
	q, s := n/k, n%k
	starts = make([]int, k)
	counts = make([]int, k)
	offset := 0
	for i := 0; i < k; i++ {
		count := q
		if i < s {
			count++
		}
		starts[i] = offset
		counts[i] = count
		offset += count
	}
	return
}

// RankOf returns the flat rank index of the patch at process coordinates
// (py, px), in row-major order over the Py x Px process grid.
func (p *Plan) RankOf(py, px int) int {
	return py*p.Px + px
}

// At returns the patch owned by the given flat rank.
func (p *Plan) At(rank int) Patch {
	return p.Patches[rank]
}

// Size returns the total number of ranks (patches) in the plan.
func (p *Plan) Size() int {
	return len(p.Patches)
}
