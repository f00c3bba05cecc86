package gcode

import (
	"strings"
	"testing"

	"gcode-inject/pkg/errors"
)

func splitLines(s string) []string {
	return strings.Split(strings.TrimPrefix(s, "\n"), "\n")
}

func TestParseCoordinateInheritance(t *testing.T) {
	lines := splitLines(`
G1 X1 Y2 Z5.0
G1 X3
G0 Y7`)

	res := Parse(lines, DefaultOptions())
	if len(res.Moves) != 3 {
		t.Fatalf("expected 3 moves, got %d", len(res.Moves))
	}

	for i, m := range res.Moves {
		if m.Z != 5.0 {
			t.Errorf("move %d: expected inherited Z=5.0, got %v", i, m.Z)
		}
	}
	if m := res.Moves[1]; m.X != 3 || m.Y != 2 {
		t.Errorf("move 1: expected X3 Y2, got X%v Y%v", m.X, m.Y)
	}
	if m := res.Moves[2]; m.X != 3 || m.Y != 7 || m.Command != Rapid {
		t.Errorf("move 2: unexpected %v", m)
	}
}

func TestParseImplicitOrigin(t *testing.T) {
	res := Parse([]string{"G1 X4"}, DefaultOptions())
	m := res.Moves[0]
	if m.X != 4 || m.Y != 0 || m.Z != 0 {
		t.Errorf("expected (4,0,0), got (%v,%v,%v)", m.X, m.Y, m.Z)
	}
}

func TestParseDepositsClassification(t *testing.T) {
	tests := []struct {
		line     string
		deposits bool
		command  Command
	}{
		{"G1 X10 Y0 E1.2", true, Linear},
		{"G0 X10 Y0", false, Rapid},
		{"G0 X10 E0.4", true, Rapid},
		{"G1 X10 Y0 F3000", false, Linear},
		{"g1 x10 e0.1", true, Linear},
		{"G01 X1 E.5 ; trailing comment", true, Linear},
	}
	for _, tt := range tests {
		res := Parse([]string{tt.line}, DefaultOptions())
		if len(res.Moves) != 1 {
			t.Fatalf("%q: expected 1 move, got %d", tt.line, len(res.Moves))
		}
		m := res.Moves[0]
		if m.Deposits != tt.deposits {
			t.Errorf("%q: deposits = %v, want %v", tt.line, m.Deposits, tt.deposits)
		}
		if m.Command != tt.command {
			t.Errorf("%q: command = %v, want %v", tt.line, m.Command, tt.command)
		}
	}
}

func TestParseMaterialAxes(t *testing.T) {
	opts := DefaultOptions()
	opts.MaterialAxes = "AB"

	res := Parse([]string{"G1 X1 A0.3", "G1 X2 E0.3", "G1 X3 B1"}, opts)
	want := []bool{true, false, true}
	for i, m := range res.Moves {
		if m.Deposits != want[i] {
			t.Errorf("move %d: deposits = %v, want %v", i, m.Deposits, want[i])
		}
	}
}

func TestParseSkipsNonMotion(t *testing.T) {
	lines := splitLines(`
; header comment

M104 S200
G28
G1 X1 Y1
T0
(paren comment only)`)

	res := Parse(lines, DefaultOptions())
	if len(res.Moves) != 1 {
		t.Fatalf("expected 1 move, got %d", len(res.Moves))
	}
	if res.Moves[0].Line != 4 {
		t.Errorf("expected source line 4, got %d", res.Moves[0].Line)
	}
	if res.Skipped != len(lines)-1 {
		t.Errorf("expected %d skipped lines, got %d", len(lines)-1, res.Skipped)
	}
}

func TestParseEmptyDocument(t *testing.T) {
	res := Parse([]string{"; nothing", "", "M84"}, DefaultOptions())
	if !res.Empty() {
		t.Errorf("expected empty result, got %d moves", len(res.Moves))
	}
	if len(res.Warnings) != 0 {
		t.Errorf("empty input is not a warning, got %v", res.Warnings)
	}
	if res.Layers.Len() != 0 {
		t.Errorf("expected no layers, got %d", res.Layers.Len())
	}
}

func TestParseAxislessMotionLine(t *testing.T) {
	res := Parse([]string{"G1 X2 Y3 Z1", "G1 F1200"}, DefaultOptions())
	if len(res.Moves) != 2 {
		t.Fatalf("expected 2 moves, got %d", len(res.Moves))
	}
	if got := res.Moves[1]; got.X != 2 || got.Y != 3 || got.Z != 1 {
		t.Errorf("axis-less move should carry state, got %v", got)
	}
}

func TestParseTokenErrorRecovered(t *testing.T) {
	res := Parse([]string{"G1 X5 Y5", "G1 Xabc Y6", "G1 Y NaN"}, DefaultOptions())

	if len(res.Moves) != 3 {
		t.Fatalf("bad tokens must not drop the line, got %d moves", len(res.Moves))
	}
	if m := res.Moves[1]; m.X != 5 || m.Y != 6 {
		t.Errorf("expected X left at 5 and Y=6, got %v", m)
	}
	if len(res.Warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %d: %v", len(res.Warnings), res.Warnings)
	}
	w := res.Warnings[0]
	if w.Code != errors.ErrTokenParse || w.Line != 1 {
		t.Errorf("unexpected warning %v", w)
	}
	if w.Context["token"] != "Xabc" {
		t.Errorf("expected token Xabc, got %v", w.Context["token"])
	}
}

func TestParseRejectsNonFinite(t *testing.T) {
	res := Parse([]string{"G1 X1", "G1 XInf", "G1 XNaN"}, DefaultOptions())
	for _, m := range res.Moves {
		if m.X != 1 {
			t.Errorf("non-finite value must not update X, got %v", m.X)
		}
	}
	if len(res.Warnings) != 2 {
		t.Errorf("expected 2 warnings, got %d", len(res.Warnings))
	}
}

func TestParseLayerMarkers(t *testing.T) {
	lines := splitLines(`
G1 Z0.2 F600
;LAYER_CHANGE
;Z:0.2
G1 X1 E1
G1 X2 E1
;LAYER_CHANGE
;Z:0.4
G1 Z0.4
G1 X3 E1`)

	res := Parse(lines, DefaultOptions())
	layers := res.Layers.Layers()
	if len(layers) != 2 {
		t.Fatalf("expected 2 layers, got %d", len(layers))
	}
	if layers[0].Line != 1 || layers[0].HeaderEnd != 2 || layers[0].Height != 0.2 || !layers[0].HasHeight {
		t.Errorf("unexpected first layer %+v", layers[0])
	}
	if layers[1].Number != 2 || layers[1].Line != 5 || layers[1].Height != 0.4 {
		t.Errorf("unexpected second layer %+v", layers[1])
	}

	wantLayers := []int{0, 1, 1, 2, 2}
	for i, m := range res.Moves {
		if m.Layer != wantLayers[i] {
			t.Errorf("move %d: layer %d, want %d", i, m.Layer, wantLayers[i])
		}
	}
}

func TestParseLayerMissingHeight(t *testing.T) {
	lines := splitLines(`
;LAYER_CHANGE
G1 X1 E1
;LAYER_CHANGE
;Z:abc
G1 X2 E1
;LAYER_CHANGE
;Z:0.6`)

	res := Parse(lines, DefaultOptions())
	layers := res.Layers.Layers()
	if len(layers) != 3 {
		t.Fatalf("boundaries without height still count, got %d", len(layers))
	}
	if layers[0].HasHeight || layers[0].HeaderEnd != 0 {
		t.Errorf("first layer should have no height, got %+v", layers[0])
	}
	if layers[1].HasHeight || layers[1].HeaderEnd != 3 {
		t.Errorf("unparsable height should be null, got %+v", layers[1])
	}
	if !layers[2].HasHeight || layers[2].Height != 0.6 {
		t.Errorf("unexpected third layer %+v", layers[2])
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Line != 3 {
		t.Errorf("expected one warning on line 3, got %v", res.Warnings)
	}

	line, err := res.Layers.FindNearest(0.1)
	if err != nil || line != 5 {
		t.Errorf("only the layer with a height is searchable, got %d, %v", line, err)
	}
}

func TestParseRelativePositioning(t *testing.T) {
	lines := splitLines(`
G1 X10 Y10 Z1
G91
G1 X1 Z0.5
G1 Y-2
G90
G1 X0`)

	res := Parse(lines, DefaultOptions())
	if len(res.Moves) != 4 {
		t.Fatalf("expected 4 moves, got %d", len(res.Moves))
	}
	if m := res.Moves[1]; m.X != 11 || m.Y != 10 || m.Z != 1.5 {
		t.Errorf("relative move: got %v", m)
	}
	if m := res.Moves[2]; m.X != 11 || m.Y != 8 {
		t.Errorf("relative move: got %v", m)
	}
	if m := res.Moves[3]; m.X != 0 || m.Y != 8 {
		t.Errorf("absolute move after G90: got %v", m)
	}
}

func TestParseSetPosition(t *testing.T) {
	lines := splitLines(`
G1 X10 Y10
G92 X0 E0
G1 X5
G92
G1 Y1`)

	res := Parse(lines, DefaultOptions())
	if m := res.Moves[1]; m.X != 15 || m.Y != 10 {
		t.Errorf("after G92 X0 the machine moves relative to X10, got %v", m)
	}
	if m := res.Moves[2]; m.X != 15 || m.Y != 11 {
		t.Errorf("after bare G92 all axes are re-zeroed, got %v", m)
	}
}

func TestParsePositioningDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.TrackPositioning = false

	res := Parse([]string{"G1 X10", "G91", "G1 X1", "G92 X0", "G1 X2"}, opts)
	want := []float64{10, 1, 2}
	for i, m := range res.Moves {
		if m.X != want[i] {
			t.Errorf("move %d: X=%v, want %v", i, m.X, want[i])
		}
	}
}

func TestParseCustomMarkers(t *testing.T) {
	opts := DefaultOptions()
	opts.LayerMarker = ";LAYER:"
	opts.HeightPrefix = ";HEIGHT:"

	res := Parse([]string{";LAYER:0", ";HEIGHT:0.3", "G1 X1 E1"}, opts)
	l, err := res.Layers.ByNumber(1)
	if err != nil {
		t.Fatalf("ByNumber: %v", err)
	}
	if l.Height != 0.3 {
		t.Errorf("expected height 0.3, got %v", l.Height)
	}
}

func TestDepositCount(t *testing.T) {
	res := Parse([]string{"G0 X1", "G1 X2 E1", "G1 X3 E1"}, DefaultOptions())
	if res.DepositCount() != 2 {
		t.Errorf("expected 2 depositing moves, got %d", res.DepositCount())
	}
}

func TestParseWorkSystems(t *testing.T) {
	lines := []string{
		"G1 X0 Y0",
		"G55 ; polymer head",
		"G1 X1 A0.5",
		";LAYER_CHANGE",
		";Z:0.2",
		"G58",
		"G1 X2 B0.5",
		"G56",
		"G1 X3",
	}
	opts := DefaultOptions()
	opts.MaterialAxes = "AB"
	res := Parse(lines, opts)
	if len(res.Moves) != 4 {
		t.Fatalf("expected 4 moves, got %d", len(res.Moves))
	}
	want := []string{"", "polymer", "ceramic", "G56"}
	for i, m := range res.Moves {
		if m.System != want[i] {
			t.Errorf("move %d: system %q, want %q", i, m.System, want[i])
		}
	}
	if !res.Moves[1].Deposits || !res.Moves[2].Deposits || res.Moves[3].Deposits {
		t.Error("A and B should mark deposition")
	}
}

func TestParseWorkSystemNames(t *testing.T) {
	opts := DefaultOptions()
	opts.WorkSystems = map[string]string{"G54": "main"}
	res := Parse([]string{"g54", "G1 X1", "G55", "G1 X2"}, opts)
	if res.Moves[0].System != "main" || res.Moves[1].System != "G55" {
		t.Errorf("systems = %q, %q", res.Moves[0].System, res.Moves[1].System)
	}

	// A nil map falls back to the defaults.
	opts.WorkSystems = nil
	res = Parse([]string{"G58", "G1 X1"}, opts)
	if res.Moves[0].System != "ceramic" {
		t.Errorf("system = %q", res.Moves[0].System)
	}
}
