// Package segment groups a move trace into continuous deposition paths.
package segment

import (
	"gonum.org/v1/gonum/spatial/r3"

	"gcode-inject/pkg/gcode"
)

// minPoints is the shortest drawable path.
const minPoints = 2

// Segment is one continuous deposition run bounded by travel moves.
type Segment struct {
	Points    []r3.Vec
	StartLine int // source line of the first point
	EndLine   int // source line of the last point
	Layer     int // layer of the first point
}

// Length returns the summed Euclidean length of the path.
func (s Segment) Length() float64 {
	var total float64
	for i := 1; i < len(s.Points); i++ {
		total += r3.Norm(r3.Sub(s.Points[i], s.Points[i-1]))
	}
	return total
}

// Build scans moves in order and returns every depositing run of at least
// two points. A lone depositing move between travel moves is dropped.
func Build(moves []gcode.Move) []Segment {
	var (
		out []Segment
		cur Segment
	)
	flush := func() {
		if len(cur.Points) >= minPoints {
			out = append(out, cur)
		}
		cur = Segment{}
	}

	for _, m := range moves {
		if !m.Deposits {
			flush()
			continue
		}
		if len(cur.Points) == 0 {
			cur.StartLine = m.Line
			cur.Layer = m.Layer
		}
		cur.Points = append(cur.Points, m.Point())
		cur.EndLine = m.Line
	}
	flush()
	return out
}

// Run is a maximal stretch of moves with the same classification.
type Run struct {
	Deposits bool
	First    int // index into the move slice
	Last     int // inclusive
}

// Len returns the number of moves in the run.
func (r Run) Len() int {
	return r.Last - r.First + 1
}

// Partition splits moves into alternating deposition and travel runs.
// Unlike Build it keeps every run, including single-move ones.
func Partition(moves []gcode.Move) []Run {
	var runs []Run
	for i, m := range moves {
		if n := len(runs); n > 0 && runs[n-1].Deposits == m.Deposits {
			runs[n-1].Last = i
			continue
		}
		runs = append(runs, Run{Deposits: m.Deposits, First: i, Last: i})
	}
	return runs
}

// TotalLength sums the path length of all segments.
func TotalLength(segs []Segment) float64 {
	var total float64
	for _, s := range segs {
		total += s.Length()
	}
	return total
}
