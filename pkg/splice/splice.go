// Package splice inserts and removes sentinel-delimited instruction blocks
// in a line sequence.
//
// Every operation returns a new slice; the input is never modified, so a
// caller can retry or roll back by keeping the original.
package splice

import (
	"fmt"
	"strings"

	"gcode-inject/pkg/errors"
)

// Span is an inclusive range of line indexes covering a block, sentinel
// lines included.
type Span struct {
	Start int
	End   int
}

// Len returns the number of lines in the span.
func (s Span) Len() int {
	return s.End - s.Start + 1
}

func (s Span) String() string {
	return fmt.Sprintf("%d-%d", s.Start, s.End)
}

// SplitBlock splits block text into lines. CRLF line endings and a single
// trailing newline are dropped.
func SplitBlock(block string) []string {
	block = strings.ReplaceAll(block, "\r\n", "\n")
	block = strings.TrimSuffix(block, "\n")
	if block == "" {
		return nil
	}
	return strings.Split(block, "\n")
}

// Splice inserts block immediately after line at. at may be -1 to insert
// before the first line.
func Splice(lines []string, at int, block string) ([]string, error) {
	return SpliceLines(lines, at, SplitBlock(block))
}

// SpliceLines is Splice for a block that is already split.
func SpliceLines(lines []string, at int, block []string) ([]string, error) {
	if at < -1 || at >= len(lines) {
		return nil, errors.LineOutOfRangeError(at, len(lines))
	}
	if len(block) == 0 {
		return nil, errors.InvalidArgumentError("empty block")
	}
	out := make([]string, 0, len(lines)+len(block))
	out = append(out, lines[:at+1]...)
	out = append(out, block...)
	out = append(out, lines[at+1:]...)
	return out, nil
}

// FindMarker returns the index of the first line containing marker.
func FindMarker(lines []string, marker string) (int, bool) {
	if marker == "" {
		return 0, false
	}
	for i, l := range lines {
		if strings.Contains(l, marker) {
			return i, true
		}
	}
	return 0, false
}

// SpliceBeforeMarker inserts block immediately before the first line
// containing marker, e.g. the end-of-program macro call.
func SpliceBeforeMarker(lines []string, marker, block string) ([]string, error) {
	idx, ok := FindMarker(lines, marker)
	if !ok {
		return nil, errors.MarkerNotFoundError(marker)
	}
	return SpliceLines(lines, idx-1, SplitBlock(block))
}

// DetectBlock returns the first region opened by a line containing start
// and closed by the next line containing end.
func DetectBlock(lines []string, start, end string) (Span, bool) {
	spans, _ := scan(lines, start, end, 1)
	if len(spans) == 0 {
		return Span{}, false
	}
	return spans[0], true
}

// DetectBlocks returns every block in document order. A start sentinel
// without a matching end is an UNTERMINATED_BLOCK error; the complete
// blocks before it are still returned.
func DetectBlocks(lines []string, start, end string) ([]Span, error) {
	return scan(lines, start, end, -1)
}

func scan(lines []string, start, end string, limit int) ([]Span, error) {
	if start == "" || end == "" {
		return nil, errors.InvalidArgumentError("empty sentinel")
	}
	var spans []Span
	for i := 0; i < len(lines); i++ {
		if !strings.Contains(lines[i], start) {
			continue
		}
		j := i + 1
		for j < len(lines) && !strings.Contains(lines[j], end) {
			j++
		}
		if j >= len(lines) {
			return spans, errors.UnterminatedBlockError(i, end)
		}
		spans = append(spans, Span{Start: i, End: j})
		if limit > 0 && len(spans) >= limit {
			break
		}
		i = j
	}
	return spans, nil
}

// Extract returns a copy of the lines covered by span.
func Extract(lines []string, span Span) ([]string, error) {
	if err := checkSpan(lines, span); err != nil {
		return nil, err
	}
	out := make([]string, span.Len())
	copy(out, lines[span.Start:span.End+1])
	return out, nil
}

// RemoveSpan excises span, the exact inverse of the Splice that created it.
func RemoveSpan(lines []string, span Span) ([]string, error) {
	if err := checkSpan(lines, span); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(lines)-span.Len())
	out = append(out, lines[:span.Start]...)
	out = append(out, lines[span.End+1:]...)
	return out, nil
}

// RemoveBlock excises the first block delimited by start and end.
func RemoveBlock(lines []string, start, end string) ([]string, error) {
	span, ok := DetectBlock(lines, start, end)
	if !ok {
		if _, err := DetectBlocks(lines, start, end); err != nil {
			return nil, err
		}
		return nil, errors.BlockNotFoundError(start)
	}
	return RemoveSpan(lines, span)
}

// RemoveAll excises every block and returns how many were removed.
func RemoveAll(lines []string, start, end string) ([]string, int, error) {
	spans, err := DetectBlocks(lines, start, end)
	if err != nil {
		return nil, 0, err
	}
	out := make([]string, 0, len(lines))
	prev := 0
	for _, s := range spans {
		out = append(out, lines[prev:s.Start]...)
		prev = s.End + 1
	}
	out = append(out, lines[prev:]...)
	return out, len(spans), nil
}

func checkSpan(lines []string, span Span) error {
	if span.Start < 0 || span.End >= len(lines) || span.Start > span.End {
		return errors.InvalidArgumentError(fmt.Sprintf("span %s outside document of %d lines", span, len(lines)))
	}
	return nil
}
