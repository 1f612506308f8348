package bench

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestWriteEmitsTwoBenchmarkLines(t *testing.T) {
	Convey("Given a completed report", t, func() {
		var buf bytes.Buffer
		r := Report{Ranks: 8, Nx: 64, Ny: 64, Steps: 60, Elapsed: 1.2, Checksum: 40, AliveCells: 40}

		Convey("Write emits exactly two BENCHMARK-prefixed lines", func() {
			So(Write(&buf, r), ShouldBeNil)

			scanner := bufio.NewScanner(&buf)
			var lines []string
			for scanner.Scan() {
				lines = append(lines, scanner.Text())
			}
			So(lines, ShouldHaveLength, 2)
			So(strings.HasPrefix(lines[0], "BENCHMARK: ranks=8"), ShouldBeTrue)
			So(strings.Contains(lines[0], "time_per_step="), ShouldBeTrue)
			So(strings.HasPrefix(lines[1], "BENCHMARK: checksum=40, alive_cells=40"), ShouldBeTrue)
		})
	})
}

func TestWriteHandlesZeroSteps(t *testing.T) {
	Convey("Given zero steps, time_per_step is 0 rather than dividing by zero", t, func() {
		var buf bytes.Buffer
		So(Write(&buf, Report{Ranks: 1, Nx: 4, Ny: 4, Steps: 0, Elapsed: 0}), ShouldBeNil)
		So(buf.String(), ShouldContainSubstring, "time_per_step=0.000000")
	})
}
