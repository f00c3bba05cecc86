// gcode-inject splices auxiliary tool blocks into slicer toolpaths.
//
// It reconstructs the toolpath's coordinate trace, picks an insertion point
// by layer height, layer number, nearest point or end of program, and
// inserts a sentinel-delimited block for a tool head such as a vacuum
// pick-and-place nozzle or a screwdriver. Re-running an injection does not
// duplicate the block.
//
// Usage:
//
//	gcode-inject <command> FILE [options]
//
// Commands:
//
//	inspect   Summarize the trace: moves, layers, segments, warnings
//	layers    List layer boundaries and their heights
//	segments  List continuous deposition paths
//	locate    Print the line an injection would follow
//	inject    Insert a tool block and write the result atomically
//	blocks    List injected blocks
//	remove    Remove injected blocks
//
// Examples:
//
//	# Pick and place at the layer nearest 2.4 mm
//	gcode-inject inject part.gcode --tool vacuum_pnp --height 2.4
//
//	# Drive a screw next to the closest point, falling back to the end
//	gcode-inject inject part.gcode --tool screwdriver --target --fallback-end
//
//	# Machine calibration and tool parameters from files
//	gcode-inject inject part.gcode --tool screwdriver --config inject.cfg --config screw.yaml --end
package main

import (
	"os"

	"gcode-inject/cmd/gcode-inject/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
