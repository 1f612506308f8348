// Package kernel applies Conway's Life (B3/S23) to a halo-padded patch:
// pure, deterministic, no floating point, no randomness. It assumes the
// halo has already been refreshed this step; it never wraps or reads past
// the patch's own padded storage.
package kernel

import "stencil/grid"

// Step applies one generation of B3/S23 to the interior of src, reading the
// halo-padded buffer (interior + one-cell halo on every side) and writing
// the next generation into dst. src and dst must have identical dimensions
// and must not be the same buffer (double-buffering), since every interior
// cell's next state depends on its neighbors' current values.
func Step(src, dst *grid.Buffer) {
	if src.Rows != dst.Rows || src.Cols != dst.Cols {
		panic("kernel: src/dst dimension mismatch")
	}

	// Walk three contiguous padded rows (above, current, below) at a time
	// rather than re-deriving each of the eight neighbor offsets from
	// scratch per cell.
	for y := 1; y <= src.Rows; y++ {
		above := src.Row(y - 1)
		cur := src.Row(y)
		below := src.Row(y + 1)
		out := dst.InteriorRow(y)
		for x := 1; x <= src.Cols; x++ {
			n := int(above[x-1]) + int(above[x]) + int(above[x+1]) +
				int(cur[x-1]) + int(cur[x+1]) +
				int(below[x-1]) + int(below[x]) + int(below[x+1])
			out[x-1] = next(cur[x], n)
		}
	}
}

// next implements B3/S23: a live cell survives with 2 or 3 live neighbors,
// a dead cell is born with exactly 3.
func next(v byte, n int) byte {
	if v != 0 {
		if n == 2 || n == 3 {
			return 1
		}
		return 0
	}
	if n == 3 {
		return 1
	}
	return 0
}
