package gcode

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"gcode-inject/pkg/errors"
	"gcode-inject/pkg/pool"
)

// Result is the output of one parse of one document.
type Result struct {
	Moves    []Move
	Layers   *LayerIndex
	Warnings []*errors.HostError

	// Skipped counts lines that produced no move: blanks, comments, layer
	// markers and non-motion commands.
	Skipped int
}

// Empty reports a document with no motion lines. This is a valid result.
func (r *Result) Empty() bool {
	return len(r.Moves) == 0
}

// DepositCount returns the number of material-depositing moves.
func (r *Result) DepositCount() int {
	n := 0
	for _, m := range r.Moves {
		if m.Deposits {
			n++
		}
	}
	return n
}

var reParenComment = regexp.MustCompile(`\([^)]*\)`)

// state is the positional state threaded through one parse.
type state struct {
	pos      [3]float64 // machine position
	base     [3]float64 // G92 offset: machine = gcode + base
	relative bool
	layer    int
	system   string
}

var axisLetters = [3]byte{'X', 'Y', 'Z'}

// Parse converts raw lines into move records and the layer index in a
// single forward pass. It never fails: bad coordinate tokens are reported
// in Result.Warnings and leave their axis unchanged.
func Parse(lines []string, opts Options) *Result {
	opts = opts.withDefaults()

	res := &Result{Moves: make([]Move, 0, len(lines)/2)}
	var layers []Layer
	st := state{}

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			res.Skipped++
			continue
		}

		// Markers are comments too, so they are checked first.
		if strings.HasPrefix(line, opts.LayerMarker) {
			st.layer++
			layer, warn := readLayerHeader(lines, i, st.layer, opts)
			if warn != nil {
				res.Warnings = append(res.Warnings, warn)
			}
			layers = append(layers, layer)
			res.Skipped++
			continue
		}
		if strings.HasPrefix(line, opts.CommentPrefix) {
			res.Skipped++
			continue
		}

		move, ok := st.apply(line, i, opts, &res.Warnings)
		if !ok {
			res.Skipped++
			continue
		}
		res.Moves = append(res.Moves, move)
	}

	res.Layers = NewLayerIndex(layers...)
	return res
}

// readLayerHeader records the boundary at line i and the height comment
// that should follow it.
func readLayerHeader(lines []string, i, number int, opts Options) (Layer, *errors.HostError) {
	layer := Layer{Number: number, Line: i, HeaderEnd: i}
	if i+1 >= len(lines) {
		return layer, nil
	}
	next := strings.TrimSpace(lines[i+1])
	if !strings.HasPrefix(next, opts.HeightPrefix) {
		return layer, nil
	}
	layer.HeaderEnd = i + 1

	raw := strings.TrimSpace(next[len(opts.HeightPrefix):])
	h, err := parseNumber(raw)
	if err != nil {
		return layer, errors.TokenParseError(i+1, next, err)
	}
	layer.Height = h
	layer.HasHeight = true
	return layer, nil
}

// splitCode strips comments and returns the whitespace-separated fields.
func splitCode(line, commentPrefix string) []string {
	if idx := strings.Index(line, commentPrefix); idx >= 0 {
		line = line[:idx]
	}
	if strings.IndexByte(line, '(') >= 0 {
		line = reParenComment.ReplaceAllString(line, " ")
	}
	return strings.Fields(line)
}

// apply interprets one code line against the running state. It returns
// ok=false for lines that are not motion instructions.
func (st *state) apply(line string, lineNo int, opts Options, warnings *[]*errors.HostError) (Move, bool) {
	fields := splitCode(line, opts.CommentPrefix)
	if len(fields) == 0 {
		return Move{}, false
	}

	var cmd Command
	code := strings.ToUpper(fields[0])
	switch code {
	case "G0", "G00":
		cmd = Rapid
	case "G1", "G01":
		cmd = Linear
	case "G90":
		if opts.TrackPositioning {
			st.relative = false
		}
		return Move{}, false
	case "G91":
		if opts.TrackPositioning {
			st.relative = true
		}
		return Move{}, false
	case "G92":
		if opts.TrackPositioning {
			st.setPosition(fields[1:], lineNo, warnings)
		}
		return Move{}, false
	default:
		if IsWorkSystem(code) {
			st.system = opts.systemName(code)
		}
		return Move{}, false
	}

	args := pool.GetArgsMap()
	defer pool.PutArgsMap(args)
	collectArgs(fields[1:], args)

	for a, letter := range axisLetters {
		raw, ok := args[letter]
		if !ok {
			continue
		}
		v, err := parseNumber(raw)
		if err != nil {
			*warnings = append(*warnings, errors.TokenParseError(lineNo, string(letter)+raw, err))
			continue
		}
		if st.relative {
			st.pos[a] += v
		} else {
			st.pos[a] = v + st.base[a]
		}
	}

	deposits := false
	for j := 0; j < len(opts.MaterialAxes); j++ {
		if _, ok := args[upper(opts.MaterialAxes[j])]; ok {
			deposits = true
			break
		}
	}

	return Move{
		Command:  cmd,
		X:        st.pos[0],
		Y:        st.pos[1],
		Z:        st.pos[2],
		Deposits: deposits,
		Line:     lineNo,
		Layer:    st.layer,
		System:   st.system,
	}, true
}

// setPosition handles G92. Without axis words every axis is zeroed; only
// X, Y and Z affect the trace.
func (st *state) setPosition(fields []string, lineNo int, warnings *[]*errors.HostError) {
	if len(fields) == 0 {
		st.base = st.pos
		return
	}
	args := pool.GetArgsMap()
	defer pool.PutArgsMap(args)
	collectArgs(fields, args)

	for a, letter := range axisLetters {
		raw, ok := args[letter]
		if !ok {
			continue
		}
		v, err := parseNumber(raw)
		if err != nil {
			*warnings = append(*warnings, errors.TokenParseError(lineNo, string(letter)+raw, err))
			continue
		}
		st.base[a] = st.pos[a] - v
	}
}

// collectArgs maps each word's upper-cased letter to its raw value. A
// repeated letter keeps the last value.
func collectArgs(fields []string, args map[byte]string) {
	for _, f := range fields {
		if f == "" {
			continue
		}
		args[upper(f[0])] = f[1:]
	}
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

// parseNumber accepts a signed decimal. NaN and infinities are rejected.
func parseNumber(raw string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("missing value")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("value %q is not finite", raw)
	}
	return v, nil
}
