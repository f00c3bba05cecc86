package segment

import (
	"math"
	"testing"

	"gcode-inject/pkg/gcode"
)

func mv(x, y float64, deposits bool, line int) gcode.Move {
	return gcode.Move{Command: gcode.Linear, X: x, Y: y, Z: 0.2, Deposits: deposits, Line: line}
}

func TestBuildDropsSinglePoint(t *testing.T) {
	moves := []gcode.Move{
		mv(0, 0, false, 0),
		mv(1, 0, true, 1),
		mv(2, 0, false, 2),
	}
	if segs := Build(moves); len(segs) != 0 {
		t.Errorf("isolated depositing move must not form a segment, got %d", len(segs))
	}
}

func TestBuildTwoPoints(t *testing.T) {
	moves := []gcode.Move{
		mv(0, 0, false, 0),
		mv(1, 0, true, 1),
		mv(2, 0, true, 2),
		mv(3, 0, false, 3),
	}
	segs := Build(moves)
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if len(segs[0].Points) != 2 {
		t.Errorf("expected 2 points, got %d", len(segs[0].Points))
	}
	if segs[0].StartLine != 1 || segs[0].EndLine != 2 {
		t.Errorf("unexpected span %d-%d", segs[0].StartLine, segs[0].EndLine)
	}
}

func TestBuildOrderAndTrailingFlush(t *testing.T) {
	moves := []gcode.Move{
		mv(0, 0, true, 0),
		mv(1, 0, true, 1),
		mv(1, 1, false, 2),
		mv(5, 5, true, 3),
		mv(5, 6, true, 4),
		mv(5, 7, true, 5),
	}
	segs := Build(moves)
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if segs[0].StartLine != 0 || segs[1].StartLine != 3 {
		t.Errorf("segments out of order: %d, %d", segs[0].StartLine, segs[1].StartLine)
	}
	if len(segs[1].Points) != 3 {
		t.Errorf("trailing run should be flushed with 3 points, got %d", len(segs[1].Points))
	}
}

func TestBuildEmpty(t *testing.T) {
	if segs := Build(nil); len(segs) != 0 {
		t.Errorf("expected no segments, got %d", len(segs))
	}
}

func TestSegmentLength(t *testing.T) {
	moves := []gcode.Move{
		mv(0, 0, true, 0),
		mv(3, 4, true, 1),
		mv(3, 0, true, 2),
	}
	segs := Build(moves)
	if got := segs[0].Length(); math.Abs(got-9) > 1e-12 {
		t.Errorf("expected length 9, got %v", got)
	}
	if got := TotalLength(segs); math.Abs(got-9) > 1e-12 {
		t.Errorf("expected total 9, got %v", got)
	}
}

func TestPartition(t *testing.T) {
	moves := []gcode.Move{
		mv(0, 0, false, 0),
		mv(0, 0, false, 1),
		mv(1, 0, true, 2),
		mv(2, 0, false, 3),
		mv(3, 0, true, 4),
		mv(4, 0, true, 5),
	}
	runs := Partition(moves)
	want := []Run{
		{Deposits: false, First: 0, Last: 1},
		{Deposits: true, First: 2, Last: 2},
		{Deposits: false, First: 3, Last: 3},
		{Deposits: true, First: 4, Last: 5},
	}
	if len(runs) != len(want) {
		t.Fatalf("expected %d runs, got %d: %+v", len(want), len(runs), runs)
	}
	for i := range want {
		if runs[i] != want[i] {
			t.Errorf("run %d = %+v, want %+v", i, runs[i], want[i])
		}
	}
	if runs[0].Len() != 2 {
		t.Errorf("expected run length 2, got %d", runs[0].Len())
	}
}
