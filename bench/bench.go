// Package bench emits the two machine-parseable BENCHMARK lines rank 0
// prints after a run, when benchmarking is enabled.
package bench

import (
	"fmt"
	"io"
)

// Report is the data rank 0 writes out after a barrier-synchronized timing
// measurement; Elapsed reflects the slowest rank by construction of that
// barrier.
type Report struct {
	Ranks      int
	Nx, Ny     int
	Steps      int
	Elapsed    float64
	Checksum   int
	AliveCells int
}

// Write prints the two BENCHMARK lines to w, in the exact format external
// tooling parses. Called exactly once, only on rank 0.
func Write(w io.Writer, r Report) error {
	timePerStep := 0.0
	if r.Steps > 0 {
		timePerStep = r.Elapsed / float64(r.Steps)
	}
	if _, err := fmt.Fprintf(w, "BENCHMARK: ranks=%d, grid=%dx%d, steps=%d, time=%.6f, time_per_step=%.6f\n",
		r.Ranks, r.Nx, r.Ny, r.Steps, r.Elapsed, timePerStep); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "BENCHMARK: checksum=%d, alive_cells=%d\n", r.Checksum, r.AliveCells)
	return err
}
