// Package gcode reconstructs the coordinate trace of a toolpath program.
//
// Parse walks the raw lines once, threading a single positional state
// through the pass, and produces the move records together with the layer
// index derived from the slicer's layer-boundary comments.
package gcode

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Command is the motion class of a move.
type Command int

const (
	// Rapid is a G0 positioning move.
	Rapid Command = iota
	// Linear is a G1 controlled move.
	Linear
)

func (c Command) String() string {
	switch c {
	case Rapid:
		return "G0"
	case Linear:
		return "G1"
	default:
		return fmt.Sprintf("Command(%d)", int(c))
	}
}

// Move is one motion instruction with every axis resolved.
type Move struct {
	Command  Command
	X, Y, Z  float64
	Deposits bool   // the line carries a material-output parameter
	Line     int    // 0-based source line index
	Layer    int    // layer number, 0 before the first boundary marker
	System   string // work coordinate system name, empty before any select
}

// Point returns the move's end position.
func (m Move) Point() r3.Vec {
	return r3.Vec{X: m.X, Y: m.Y, Z: m.Z}
}

func (m Move) String() string {
	kind := "travel"
	if m.Deposits {
		kind = "deposit"
	}
	return fmt.Sprintf("%s X%.3f Y%.3f Z%.3f (%s, line %d)", m.Command, m.X, m.Y, m.Z, kind, m.Line)
}
