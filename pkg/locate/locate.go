// Package locate chooses the line after which an instruction block is
// spliced: by layer height, by layer number, or by the trace point closest
// to a target coordinate.
//
// All searches are pure. A request that cannot be satisfied returns a
// NO_LAYERS_FOUND, LAYER_NOT_FOUND or NO_MATCH_FOUND error; callers decide
// the fallback.
package locate

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"gcode-inject/pkg/errors"
	"gcode-inject/pkg/gcode"
)

// tieEpsilon treats float noise as a tie, so the earlier record wins.
const tieEpsilon = 1e-9

// Metric is the planar distance used by the point search.
type Metric int

const (
	Euclidean Metric = iota
	Manhattan
)

func (m Metric) String() string {
	switch m {
	case Euclidean:
		return "euclidean"
	case Manhattan:
		return "manhattan"
	default:
		return fmt.Sprintf("Metric(%d)", int(m))
	}
}

// ParseMetric parses "euclidean" or "manhattan".
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "euclidean":
		return Euclidean, nil
	case "manhattan":
		return Manhattan, nil
	default:
		return 0, errors.InvalidArgumentError(fmt.Sprintf("unknown metric %q", s))
	}
}

func (m Metric) distance(a, b r2.Vec) float64 {
	d := r2.Sub(a, b)
	if m == Manhattan {
		return math.Abs(d.X) + math.Abs(d.Y)
	}
	return r2.Norm(d)
}

// Options configures the point search.
type Options struct {
	// HeightTolerance is the half-width of the Z band searched around the
	// target height.
	HeightTolerance float64

	Metric Metric

	// Offset is added to every target before searching. It carries the
	// machine-specific tool calibration, zero by default.
	Offset r3.Vec

	// DepositingOnly restricts candidates to material-depositing moves.
	DepositingOnly bool
}

// DefaultOptions returns a 0.1 mm band, Euclidean distance, no offset.
func DefaultOptions() Options {
	return Options{HeightTolerance: 0.1, Metric: Euclidean}
}

// Match is the result of a point search.
type Match struct {
	Move     gcode.Move
	Index    int     // index into the searched move slice
	Distance float64 // planar distance to the adjusted target
	Target   r3.Vec  // target after applying the offset
}

// Locator runs point searches with fixed options.
type Locator struct {
	opts Options
}

// New creates a Locator.
func New(opts Options) *Locator {
	return &Locator{opts: opts}
}

// Options returns the locator's configuration.
func (l *Locator) Options() Options {
	return l.opts
}

// Nearest filters moves to the height band around target, then returns the
// one closest in the XY plane. The height filter is required: a trace
// revisits the same XY on every layer. Ties go to the earliest move.
func (l *Locator) Nearest(moves []gcode.Move, target r3.Vec) (Match, error) {
	tol := l.opts.HeightTolerance
	if tol < 0 || math.IsNaN(tol) {
		return Match{}, errors.InvalidArgumentError(fmt.Sprintf("height tolerance %v must be >= 0", tol))
	}
	if !finite(target) {
		return Match{}, errors.InvalidArgumentError(fmt.Sprintf("target %v is not finite", target))
	}

	target = r3.Add(target, l.opts.Offset)
	planar := r2.Vec{X: target.X, Y: target.Y}

	best := Match{Index: -1, Distance: math.Inf(1), Target: target}
	for i, m := range moves {
		if l.opts.DepositingOnly && !m.Deposits {
			continue
		}
		if math.Abs(m.Z-target.Z) > tol+tieEpsilon {
			continue
		}
		d := l.opts.Metric.distance(r2.Vec{X: m.X, Y: m.Y}, planar)
		if d < best.Distance-tieEpsilon {
			best.Move, best.Index, best.Distance = m, i, d
		}
	}
	if best.Index < 0 {
		return Match{}, errors.NoMatchFoundError(target.Z, tol)
	}
	return best, nil
}

func finite(v r3.Vec) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// ByHeight returns the marker line of the layer nearest to height.
func ByHeight(ix *gcode.LayerIndex, height float64) (int, error) {
	return ix.FindNearest(height)
}

// ByLayer returns the marker line of the 1-based layer number.
func ByLayer(ix *gcode.LayerIndex, number int) (int, error) {
	l, err := ix.ByNumber(number)
	if err != nil {
		return 0, err
	}
	return l.Line, nil
}

// ByPoint returns the source line of the move nearest to target within
// the height band, using Euclidean distance and no offset.
func ByPoint(moves []gcode.Move, target r3.Vec, heightTolerance float64) (int, error) {
	opts := DefaultOptions()
	opts.HeightTolerance = heightTolerance
	m, err := New(opts).Nearest(moves, target)
	if err != nil {
		return 0, err
	}
	return m.Move.Line, nil
}
