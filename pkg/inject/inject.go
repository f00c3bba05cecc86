// Package inject places a tool's instruction block into a toolpath:
// detect an earlier injection, resolve the insertion point, splice.
//
// Running the same injection twice never yields two blocks of one tool:
// an existing block is skipped, replaced or reported, per Policy.
package inject

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"gcode-inject/pkg/document"
	"gcode-inject/pkg/errors"
	"gcode-inject/pkg/gcode"
	"gcode-inject/pkg/locate"
	"gcode-inject/pkg/log"
	"gcode-inject/pkg/metrics"
	"gcode-inject/pkg/splice"
	"gcode-inject/pkg/tool"
)

// DefaultEndMarker is the end-of-program macro call slicers emit.
const DefaultEndMarker = "END_PRINT"

// Policy decides what happens when the document already holds a block of
// the same tool.
type Policy int

const (
	// PolicySkip leaves the document unchanged.
	PolicySkip Policy = iota
	// PolicyReplace removes every existing block, then injects.
	PolicyReplace
	// PolicyFail returns ALREADY_INJECTED.
	PolicyFail
)

var policyNames = []string{"skip", "replace", "fail"}

func (p Policy) String() string {
	if int(p) >= 0 && int(p) < len(policyNames) {
		return policyNames[p]
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy parses skip, replace or fail.
func ParsePolicy(s string) (Policy, error) {
	for i, name := range policyNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Policy(i), nil
		}
	}
	return 0, errors.InvalidArgumentError(fmt.Sprintf("unknown policy %q (valid: %s)", s, strings.Join(policyNames, ", ")))
}

// Policies returns the accepted policy names.
func Policies() []string {
	out := make([]string, len(policyNames))
	copy(out, policyNames)
	return out
}

// Mode selects how the insertion point is resolved.
type Mode int

const (
	// ModeHeight injects at the start of the layer nearest Request.Height.
	ModeHeight Mode = iota
	// ModeLayer injects at the start of layer Request.Layer.
	ModeLayer
	// ModePoint injects after the move nearest Request.Point.
	ModePoint
	// ModeEnd injects before the end-of-program marker.
	ModeEnd
)

func (m Mode) String() string {
	switch m {
	case ModeHeight:
		return "height"
	case ModeLayer:
		return "layer"
	case ModePoint:
		return "point"
	case ModeEnd:
		return "end"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Request describes where a block should go.
type Request struct {
	Mode   Mode
	Height float64 // ModeHeight
	Layer  int     // ModeLayer, 1-based
	Point  r3.Vec  // ModePoint
}

// Result is the outcome of one injection.
type Result struct {
	Lines []string

	// At is the line the block follows, -1 for the top of the document.
	// Span is where the block ended up in Lines.
	At   int
	Span splice.Span

	Skipped  bool // a block was present and left alone; Lines is the input
	Replaced int  // blocks removed before injecting

	Layer *gcode.Layer  // resolved layer, ModeHeight and ModeLayer
	Match *locate.Match // resolved move, ModePoint
}

// Placement is a resolved insertion point.
type Placement struct {
	At    int // line the block follows, -1 for the top of the document
	Layer *gcode.Layer
	Match *locate.Match
}

// Injector runs the injection workflow.
type Injector struct {
	Locator   *locate.Locator
	Policy    Policy
	EndMarker string
	Logger    *log.Logger
	Metrics   *metrics.PipelineMetrics

	// Guards are the sentinel pairs of blocks that must stay intact. Moves
	// inside them are never point candidates and a splice never lands
	// inside one.
	Guards []tool.Sentinels
}

// New creates an Injector with the default end marker and logger.
func New(loc *locate.Locator, policy Policy) *Injector {
	return &Injector{
		Locator:   loc,
		Policy:    policy,
		EndMarker: DefaultEndMarker,
		Logger:    log.GetLogger("inject"),
	}
}

// Inject splices block into doc. doc is never modified; the new lines are
// in the Result. Locate failures such as NO_MATCH_FOUND are returned as is,
// leaving any fallback to the caller.
func (in *Injector) Inject(doc *document.Document, block tool.Block, req Request) (*Result, error) {
	res, err := in.inject(doc, block, req)
	outcome := "injected"
	switch {
	case err != nil:
		outcome = "failed"
	case res.Skipped:
		outcome = "skipped"
	case res.Replaced > 0:
		outcome = "replaced"
	}
	in.Metrics.RecordInjection(block.Tool, req.Mode.String(), outcome)
	return res, err
}

func (in *Injector) inject(doc *document.Document, block tool.Block, req Request) (*Result, error) {
	logger := in.logger().WithFields(log.Fields{"tool": block.Tool, "mode": req.Mode.String()})

	blockLines := block.Lines()
	if len(blockLines) == 0 {
		return nil, errors.InvalidArgumentError("empty block for tool " + block.Tool)
	}

	spans, err := splice.DetectBlocks(doc.Lines, block.Start, block.End)
	if err != nil {
		return nil, err
	}
	res := &Result{At: -1}
	if len(spans) > 0 {
		first := spans[0]
		switch in.Policy {
		case PolicySkip:
			logger.WithField("span", first.String()).Info("block already present, skipping")
			res.Lines = doc.Lines
			res.Span = first
			res.At = first.Start - 1
			res.Skipped = true
			return res, nil
		case PolicyFail:
			return nil, errors.AlreadyInjectedError(first.Start, first.End)
		case PolicyReplace:
			clean, n, err := splice.RemoveAll(doc.Lines, block.Start, block.End)
			if err != nil {
				return nil, err
			}
			logger.WithField("blocks", n).Info("removed existing blocks")
			res.Replaced = n
			doc = doc.WithLines(clean)
		default:
			return nil, errors.InvalidArgumentError("unknown policy " + in.Policy.String())
		}
	}

	done := in.Metrics.StartStage("locate")
	pl, err := in.Locate(doc, req)
	done()
	if err != nil {
		return nil, err
	}
	res.Layer, res.Match = pl.Layer, pl.Match

	out, err := splice.SpliceLines(doc.Lines, pl.At, blockLines)
	if err != nil {
		return nil, err
	}
	res.Lines = out
	res.At = pl.At
	res.Span = splice.Span{Start: pl.At + 1, End: pl.At + len(blockLines)}

	logger.WithFields(log.Fields{"after_line": pl.At, "span": res.Span.String()}).Info("block injected")
	return res, nil
}

// Locate resolves req against doc without splicing. The result is where
// Inject would put a block when no block of the same tool is present.
func (in *Injector) Locate(doc *document.Document, req Request) (Placement, error) {
	fences, err := in.fences(doc.Lines)
	if err != nil {
		return Placement{}, err
	}
	pl, err := in.resolve(doc, req, fences)
	if err != nil {
		return Placement{}, err
	}
	if at := pastFences(pl.At, fences); at != pl.At {
		in.logger().WithFields(log.Fields{"line": pl.At, "moved_to": at}).Debug("insertion point inside a guarded block")
		pl.At = at
	}
	return pl, nil
}

// resolve returns the line the block should follow.
func (in *Injector) resolve(doc *document.Document, req Request, fences []splice.Span) (Placement, error) {
	switch req.Mode {
	case ModeHeight:
		l, err := doc.Layers.Nearest(req.Height)
		if err != nil {
			return Placement{}, err
		}
		// After the height comment, so the marker and its height stay
		// adjacent for the next parse.
		return Placement{At: l.HeaderEnd, Layer: &l}, nil

	case ModeLayer:
		l, err := doc.Layers.ByNumber(req.Layer)
		if err != nil {
			return Placement{}, err
		}
		return Placement{At: l.HeaderEnd, Layer: &l}, nil

	case ModePoint:
		if in.Locator == nil {
			return Placement{}, errors.InvalidArgumentError("point injection needs a locator")
		}
		m, err := in.Locator.Nearest(outside(doc.Moves, fences), req.Point)
		if err != nil {
			return Placement{}, err
		}
		in.Metrics.RecordMatchDistance(m.Distance)
		return Placement{At: m.Move.Line, Match: &m}, nil

	case ModeEnd:
		marker := in.EndMarker
		if marker == "" {
			marker = DefaultEndMarker
		}
		idx, ok := splice.FindMarker(doc.Lines, marker)
		if !ok {
			return Placement{}, errors.MarkerNotFoundError(marker)
		}
		return Placement{At: idx - 1}, nil

	default:
		return Placement{}, errors.InvalidArgumentError("unknown mode " + req.Mode.String())
	}
}

// fences returns the spans of every guarded block in document order. An
// unterminated guarded block has no safe insertion point around it.
func (in *Injector) fences(lines []string) ([]splice.Span, error) {
	var out []splice.Span
	for _, g := range in.Guards {
		spans, err := splice.DetectBlocks(lines, g.Start, g.End)
		if err != nil {
			if he, ok := err.(*errors.HostError); ok {
				he.SetContext("tool", g.Tool)
			}
			return nil, err
		}
		out = append(out, spans...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

// pastFences moves at to the end of any fence that would otherwise
// enclose the inserted block.
func pastFences(at int, fences []splice.Span) int {
	for _, f := range fences {
		if at >= f.Start && at < f.End {
			at = f.End
		}
	}
	return at
}

// outside drops moves whose source line lies inside a fence.
func outside(moves []gcode.Move, fences []splice.Span) []gcode.Move {
	if len(fences) == 0 {
		return moves
	}
	out := make([]gcode.Move, 0, len(moves))
	for _, m := range moves {
		fenced := false
		for _, f := range fences {
			if m.Line >= f.Start && m.Line <= f.End {
				fenced = true
				break
			}
		}
		if !fenced {
			out = append(out, m)
		}
	}
	return out
}

// Remove excises every block of the tool from doc.
func (in *Injector) Remove(doc *document.Document, block tool.Block) ([]string, int, error) {
	out, n, err := splice.RemoveAll(doc.Lines, block.Start, block.End)
	if err != nil {
		return nil, 0, err
	}
	if n == 0 {
		return nil, 0, errors.BlockNotFoundError(block.Start)
	}
	in.Metrics.RecordRemoval(block.Tool, n)
	in.logger().WithFields(log.Fields{"tool": block.Tool, "blocks": n}).Info("blocks removed")
	return out, n, nil
}

func (in *Injector) logger() *log.Logger {
	if in.Logger == nil {
		return log.Discard()
	}
	return in.Logger
}
