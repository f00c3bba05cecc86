// Package document binds a toolpath's raw lines to the trace derived from
// them.
package document

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"gcode-inject/pkg/errors"
	"gcode-inject/pkg/gcode"
	"gcode-inject/pkg/segment"
)

// Document is an immutable view of one program: the lines plus everything
// derived from them in a single parse. Edits produce a new Document.
type Document struct {
	Lines    []string
	Moves    []gcode.Move
	Layers   *gcode.LayerIndex
	Warnings []*errors.HostError
	Segments []segment.Segment

	opts gcode.Options
}

// New parses lines and builds the derived trace. The slice is copied.
func New(lines []string, opts gcode.Options) *Document {
	cp := make([]string, len(lines))
	copy(cp, lines)

	res := gcode.Parse(cp, opts)
	return &Document{
		Lines:    cp,
		Moves:    res.Moves,
		Layers:   res.Layers,
		Warnings: res.Warnings,
		Segments: segment.Build(res.Moves),
		opts:     opts,
	}
}

// WithLines returns a new document for lines, parsed with the same options.
func (d *Document) WithLines(lines []string) *Document {
	return New(lines, d.opts)
}

// Options returns the parse options the document was built with.
func (d *Document) Options() gcode.Options {
	return d.opts
}

// Summary describes the trace of a document.
type Summary struct {
	Lines        int
	Moves        int
	Depositing   int
	Travel       int
	Layers       int
	Segments     int
	Warnings     int
	Bounds       r3.Box // of depositing moves; zero when there are none
	PathLength   float64
	SpacingMean  float64 // mean height difference between consecutive layers
	SpacingStdev float64

	// Systems breaks the moves down by work coordinate system, in order of
	// first use. Moves before the first select are not counted here.
	Systems []SystemSummary
}

// SystemSummary counts the moves of one work coordinate system.
type SystemSummary struct {
	Name       string
	Depositing int
	Travel     int
	Layers     []int // distinct layer numbers, ascending
}

// Summary computes counts, bounds and layer spacing statistics.
func (d *Document) Summary() Summary {
	s := Summary{
		Lines:      len(d.Lines),
		Moves:      len(d.Moves),
		Layers:     d.Layers.Len(),
		Segments:   len(d.Segments),
		Warnings:   len(d.Warnings),
		PathLength: segment.TotalLength(d.Segments),
	}

	s.Systems = systems(d.Moves)

	first := true
	for _, m := range d.Moves {
		if !m.Deposits {
			s.Travel++
			continue
		}
		s.Depositing++
		p := m.Point()
		if first {
			s.Bounds = r3.Box{Min: p, Max: p}
			first = false
			continue
		}
		s.Bounds.Min = r3.Vec{X: math.Min(s.Bounds.Min.X, p.X), Y: math.Min(s.Bounds.Min.Y, p.Y), Z: math.Min(s.Bounds.Min.Z, p.Z)}
		s.Bounds.Max = r3.Vec{X: math.Max(s.Bounds.Max.X, p.X), Y: math.Max(s.Bounds.Max.Y, p.Y), Z: math.Max(s.Bounds.Max.Z, p.Z)}
	}

	heights := d.Layers.Heights()
	if len(heights) >= 2 {
		spacing := make([]float64, len(heights)-1)
		for i := 1; i < len(heights); i++ {
			spacing[i-1] = heights[i] - heights[i-1]
		}
		s.SpacingMean = stat.Mean(spacing, nil)
		if len(spacing) >= 2 {
			s.SpacingStdev = stat.StdDev(spacing, nil)
		}
	}
	return s
}

func systems(moves []gcode.Move) []SystemSummary {
	var out []SystemSummary
	index := map[string]int{}
	layers := map[string]map[int]bool{}
	for _, m := range moves {
		if m.System == "" {
			continue
		}
		i, ok := index[m.System]
		if !ok {
			i = len(out)
			index[m.System] = i
			out = append(out, SystemSummary{Name: m.System})
			layers[m.System] = map[int]bool{}
		}
		if m.Deposits {
			out[i].Depositing++
		} else {
			out[i].Travel++
		}
		if !layers[m.System][m.Layer] {
			layers[m.System][m.Layer] = true
			out[i].Layers = append(out[i].Layers, m.Layer)
		}
	}
	for i := range out {
		sort.Ints(out[i].Layers)
	}
	return out
}
