package gcode

import (
	"math"
	"sort"

	"gcode-inject/pkg/errors"
)

// heightTieEpsilon treats float noise as a tie, so the earlier layer wins.
const heightTieEpsilon = 1e-9

// Layer is one layer boundary found in the document.
type Layer struct {
	Number    int // 1-based, in marker order
	Line      int // line index of the boundary marker
	HeaderEnd int // last line of the marker/height pair
	Height    float64
	HasHeight bool // false when the height comment was absent or unparsable
}

// LayerIndex maps layer heights to the lines where their layers begin. It
// is built once per parse and never mutated.
type LayerIndex struct {
	layers []Layer
}

// NewLayerIndex builds an index from boundaries in document order.
func NewLayerIndex(layers ...Layer) *LayerIndex {
	cp := make([]Layer, len(layers))
	copy(cp, layers)
	return &LayerIndex{layers: cp}
}

// Len returns the number of boundaries, including those without a height.
func (ix *LayerIndex) Len() int {
	return len(ix.layers)
}

// Layers returns a copy of the boundaries in document order.
func (ix *LayerIndex) Layers() []Layer {
	cp := make([]Layer, len(ix.layers))
	copy(cp, ix.layers)
	return cp
}

// Nearest returns the boundary whose height is closest to target. Ties go
// to the earliest boundary. Boundaries without a height are ignored.
func (ix *LayerIndex) Nearest(target float64) (Layer, error) {
	best := -1
	bestDist := math.Inf(1)
	for i, l := range ix.layers {
		if !l.HasHeight {
			continue
		}
		d := math.Abs(l.Height - target)
		if d < bestDist-heightTieEpsilon {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return Layer{}, errors.NoLayersFoundError()
	}
	return ix.layers[best], nil
}

// FindNearest returns the marker line of the boundary nearest to target.
func (ix *LayerIndex) FindNearest(target float64) (int, error) {
	l, err := ix.Nearest(target)
	if err != nil {
		return 0, err
	}
	return l.Line, nil
}

// ByNumber returns the boundary with the given 1-based number.
func (ix *LayerIndex) ByNumber(n int) (Layer, error) {
	if n < 1 || n > len(ix.layers) {
		return Layer{}, errors.LayerNotFoundError(n, len(ix.layers))
	}
	return ix.layers[n-1], nil
}

// LayerAt returns the number of the layer containing line, or 0 for lines
// before the first boundary.
func (ix *LayerIndex) LayerAt(line int) int {
	i := sort.Search(len(ix.layers), func(i int) bool {
		return ix.layers[i].Line > line
	})
	if i == 0 {
		return 0
	}
	return ix.layers[i-1].Number
}

// Heights returns the recorded heights in document order.
func (ix *LayerIndex) Heights() []float64 {
	hs := make([]float64, 0, len(ix.layers))
	for _, l := range ix.layers {
		if l.HasHeight {
			hs = append(hs, l.Height)
		}
	}
	return hs
}
