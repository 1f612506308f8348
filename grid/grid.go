// Package grid implements the dense byte-valued 2D buffer each rank uses to
// store its owned cells plus the one-cell halo border that communication
// refreshes every generation.
package grid

import "fmt"

// Buffer is a row-major dense array of cells with a fixed halo border on
// every axis. Rows is the number of owned (interior) rows, Cols the number
// of owned columns; storage is (Rows+2) x (Cols+2), row 0 and row Rows+1
// are the north/south halo, column 0 and column Cols+1 are the west/east
// halo, and the four corners of that padded rectangle are the halo corners.
type Buffer struct {
	Rows, Cols int
	stride     int
	cells      []byte
}

// New allocates a zeroed buffer with the given interior dimensions.
func New(rows, cols int) *Buffer {
	if rows <= 0 || cols <= 0 {
		panic(fmt.Sprintf("grid: non-positive dimensions %dx%d", rows, cols))
	}
	stride := cols + 2
	return &Buffer{
		Rows:   rows,
		Cols:   cols,
		stride: stride,
		cells:  make([]byte, (rows+2)*stride),
	}
}

// index converts padded coordinates (0..Rows+1, 0..Cols+1) to a flat offset.
func (b *Buffer) index(y, x int) int {
	return y*b.stride + x
}

// At returns the cell at padded coordinates (y, x), where (1,1) is the
// top-left owned cell. y and x may address halo rows/columns.
func (b *Buffer) At(y, x int) byte {
	return b.cells[b.index(y, x)]
}

// Set writes the cell at padded coordinates (y, x).
func (b *Buffer) Set(y, x int, v byte) {
	b.cells[b.index(y, x)] = v
}

// Flat returns the entire padded backing array for bulk copy operations.
// Callers must not retain it past a later resize (Buffer never resizes
// after New, so in practice the slice is stable for the buffer's lifetime).
func (b *Buffer) Flat() []byte {
	return b.cells
}

// Row returns a slice view of one padded row, including its halo columns.
func (b *Buffer) Row(y int) []byte {
	start := b.index(y, 0)
	return b.cells[start : start+b.stride]
}

// InteriorRow returns a slice view of the owned cells of row y (1-indexed,
// excludes the halo columns).
func (b *Buffer) InteriorRow(y int) []byte {
	start := b.index(y, 1)
	return b.cells[start : start+b.Cols]
}

// Column copies the owned cells of column x (1-indexed) into dst, which
// must have length Rows. Columns are not contiguous in row-major storage,
// hence a copy rather than a slice view.
func (b *Buffer) Column(x int, dst []byte) {
	for y := 1; y <= b.Rows; y++ {
		dst[y-1] = b.At(y, x)
	}
}

// SetColumn writes src (length Rows) into the owned cells of column x.
func (b *Buffer) SetColumn(x int, src []byte) {
	for y := 1; y <= b.Rows; y++ {
		b.Set(y, x, src[y-1])
	}
}

// Region copies a rectangular owned-coordinate subregion
// [y0,y0+h) x [x0,x0+w) (1-indexed, owned cells only) into a freshly
// allocated row-major byte slice of length h*w.
func (b *Buffer) Region(y0, x0, h, w int) []byte {
	out := make([]byte, h*w)
	for dy := 0; dy < h; dy++ {
		copy(out[dy*w:(dy+1)*w], b.cells[b.index(y0+dy, x0):b.index(y0+dy, x0)+w])
	}
	return out
}

// SetRegion writes src (row-major, length h*w) into the owned-coordinate
// rectangle [y0,y0+h) x [x0,x0+w).
func (b *Buffer) SetRegion(y0, x0, h, w int, src []byte) {
	for dy := 0; dy < h; dy++ {
		copy(b.cells[b.index(y0+dy, x0):b.index(y0+dy, x0)+w], src[dy*w:(dy+1)*w])
	}
}

// Interior copies the full owned region (excluding halo) into a fresh
// row-major slice of length Rows*Cols.
func (b *Buffer) Interior() []byte {
	return b.Region(1, 1, b.Rows, b.Cols)
}

// Population counts the live (non-zero) cells in the owned region.
func (b *Buffer) Population() int {
	n := 0
	for y := 1; y <= b.Rows; y++ {
		row := b.InteriorRow(y)
		for _, c := range row {
			if c != 0 {
				n++
			}
		}
	}
	return n
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{
		Rows:   b.Rows,
		Cols:   b.Cols,
		stride: b.stride,
		cells:  make([]byte, len(b.cells)),
	}
	copy(out.cells, b.cells)
	return out
}

// CopyFrom overwrites the entire padded backing array from src, which must
// have the same interior dimensions as b. The halo cells are copied along
// with the interior.
func (b *Buffer) CopyFrom(src *Buffer) {
	if src.Rows != b.Rows || src.Cols != b.Cols {
		panic("grid: CopyFrom dimension mismatch")
	}
	copy(b.cells, src.cells)
}

// Global is a logical (ny, nx) grid that exists only transiently on a root
// rank, for scatter input and gather output.
type Global struct {
	Ny, Nx int
	cells  []byte
}

// NewGlobal allocates a zeroed global grid of shape (ny, nx).
func NewGlobal(ny, nx int) *Global {
	if ny <= 0 || nx <= 0 {
		panic(fmt.Sprintf("grid: non-positive global dimensions %dx%d", ny, nx))
	}
	return &Global{Ny: ny, Nx: nx, cells: make([]byte, ny*nx)}
}

// At returns the cell at (y, x), wrapping both coordinates toroidally.
func (g *Global) At(y, x int) byte {
	y = wrap(y, g.Ny)
	x = wrap(x, g.Nx)
	return g.cells[y*g.Nx+x]
}

// Set writes the cell at (y, x) without wrapping; callers seeding patterns
// are expected to pass in-range coordinates.
func (g *Global) Set(y, x int, v byte) {
	g.cells[y*g.Nx+x] = v
}

// Region copies the rectangle [y0,y0+h) x [x0,x0+w) into a fresh row-major
// slice, without wrapping (used by the distributor, whose offsets are
// always in-range by construction of the decomposition plan).
func (g *Global) Region(y0, x0, h, w int) []byte {
	out := make([]byte, h*w)
	for dy := 0; dy < h; dy++ {
		copy(out[dy*w:(dy+1)*w], g.cells[(y0+dy)*g.Nx+x0:(y0+dy)*g.Nx+x0+w])
	}
	return out
}

// SetRegion writes src (row-major, length h*w) into the rectangle
// [y0,y0+h) x [x0,x0+w).
func (g *Global) SetRegion(y0, x0, h, w int, src []byte) {
	for dy := 0; dy < h; dy++ {
		copy(g.cells[(y0+dy)*g.Nx+x0:(y0+dy)*g.Nx+x0+w], src[dy*w:(dy+1)*w])
	}
}

// Population counts the live (non-zero) cells across the whole grid.
func (g *Global) Population() int {
	n := 0
	for _, c := range g.cells {
		if c != 0 {
			n++
		}
	}
	return n
}

// Equal reports whether two global grids have identical shape and contents.
func (g *Global) Equal(other *Global) bool {
	if g.Ny != other.Ny || g.Nx != other.Nx {
		return false
	}
	for i := range g.cells {
		if g.cells[i] != other.cells[i] {
			return false
		}
	}
	return true
}

// Bytes returns the flat row-major backing slice.
func (g *Global) Bytes() []byte {
	return g.cells
}

func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
