package document

import (
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"gcode-inject/pkg/gcode"
)

const sample = `G28
G1 Z0.2 F3000
;LAYER_CHANGE
;Z:0.2
G1 X0 Y0
G1 X10 Y0 E1.5
G1 X10 Y10 E1.5
;LAYER_CHANGE
;Z:0.4
G1 Z0.4
G1 X0 Y10 E1
G1 X0 Y0 E1
G1 X5 Y5
;LAYER_CHANGE
;Z:0.8
G1 Z0.8 X5 Y5
G1 X-2 Y5 E1
G1 X-2 Y0 E1
END_PRINT`

func load() *Document {
	return New(strings.Split(sample, "\n"), gcode.DefaultOptions())
}

func TestNew(t *testing.T) {
	d := load()
	if len(d.Lines) != 19 {
		t.Fatalf("expected 19 lines, got %d", len(d.Lines))
	}
	if d.Layers.Len() != 3 {
		t.Errorf("expected 3 layers, got %d", d.Layers.Len())
	}
	if len(d.Segments) != 3 {
		t.Errorf("expected 3 segments, got %d", len(d.Segments))
	}
	if len(d.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", d.Warnings)
	}
}

func TestNewCopiesLines(t *testing.T) {
	lines := strings.Split(sample, "\n")
	d := New(lines, gcode.DefaultOptions())
	lines[0] = "changed"
	if d.Lines[0] != "G28" {
		t.Error("document must not alias the caller's slice")
	}
}

func TestWithLines(t *testing.T) {
	opts := gcode.DefaultOptions()
	opts.MaterialAxes = "A"
	d := New([]string{"G1 X1 A1", "G1 X2 A1"}, opts)
	if len(d.Segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(d.Segments))
	}

	next := d.WithLines([]string{"G1 X1 A1", "G1 X2 E1"})
	if next.Options().MaterialAxes != "A" {
		t.Error("WithLines must keep parse options")
	}
	if len(next.Segments) != 0 {
		t.Errorf("E is not a material axis here, got %d segments", len(next.Segments))
	}
	if len(d.Lines) != 2 || d.Lines[1] != "G1 X2 A1" {
		t.Error("WithLines must not modify the receiver")
	}
}

func TestSummary(t *testing.T) {
	s := load().Summary()

	if s.Moves != 11 || s.Depositing != 6 || s.Travel != 5 {
		t.Errorf("counts: moves=%d depositing=%d travel=%d", s.Moves, s.Depositing, s.Travel)
	}
	if s.Layers != 3 || s.Segments != 3 {
		t.Errorf("layers=%d segments=%d", s.Layers, s.Segments)
	}
	if s.Bounds.Min.X != -2 || s.Bounds.Max.X != 10 || s.Bounds.Min.Z != 0.2 || s.Bounds.Max.Z != 0.8 {
		t.Errorf("unexpected bounds %+v", s.Bounds)
	}

	// Paths start at their first depositing point, not at the travel
	// position before it.
	wantLength := 10.0 + 10 + 5
	if math.Abs(s.PathLength-wantLength) > 1e-9 {
		t.Errorf("path length %v, want %v", s.PathLength, wantLength)
	}

	if math.Abs(s.SpacingMean-0.3) > 1e-9 {
		t.Errorf("spacing mean %v, want 0.3", s.SpacingMean)
	}
	// spacings 0.2 and 0.4: sample stddev = sqrt(0.02)
	if math.Abs(s.SpacingStdev-math.Sqrt(0.02)) > 1e-9 {
		t.Errorf("spacing stddev %v, want %v", s.SpacingStdev, math.Sqrt(0.02))
	}
}

func TestSummaryEmpty(t *testing.T) {
	s := New(nil, gcode.DefaultOptions()).Summary()
	if s.Moves != 0 || s.PathLength != 0 || s.SpacingMean != 0 || s.SpacingStdev != 0 {
		t.Errorf("unexpected summary for empty document: %+v", s)
	}
	if s.Bounds != (r3.Box{}) {
		t.Errorf("bounds should be zero, got %+v", s.Bounds)
	}
}

func TestSummarySystems(t *testing.T) {
	lines := strings.Split(`G1 X0 Y0
;LAYER_CHANGE
;Z:0.2
G55
G1 X1 A1
G1 X2 A1
G58
G0 X0
G1 X1 B1
;LAYER_CHANGE
;Z:0.4
G55
G1 X3 A1
G0 X0`, "\n")
	opts := gcode.DefaultOptions()
	opts.MaterialAxes = "AB"
	s := New(lines, opts).Summary()

	if len(s.Systems) != 2 {
		t.Fatalf("expected 2 systems, got %+v", s.Systems)
	}
	poly, cer := s.Systems[0], s.Systems[1]
	if poly.Name != "polymer" || poly.Depositing != 3 || poly.Travel != 1 || len(poly.Layers) != 2 || poly.Layers[0] != 1 || poly.Layers[1] != 2 {
		t.Errorf("polymer: %+v", poly)
	}
	if cer.Name != "ceramic" || cer.Depositing != 1 || cer.Travel != 1 || len(cer.Layers) != 1 || cer.Layers[0] != 1 {
		t.Errorf("ceramic: %+v", cer)
	}
	if s.Moves != 7 {
		t.Errorf("moves = %d, the move before any select still counts overall", s.Moves)
	}
}

func TestSummaryWithoutSystems(t *testing.T) {
	if got := load().Summary().Systems; len(got) != 0 {
		t.Errorf("expected no systems, got %+v", got)
	}
}
