// Package tool renders the instruction blocks that auxiliary tool heads
// splice into a toolpath.
//
// A Profile carries a template with {name} placeholders, the sentinel pair
// that delimits the rendered block, and default parameter values. Rendered
// blocks always open with the start sentinel and close with the end
// sentinel, so a block can be found and removed again by its sentinels
// alone.
package tool

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"gcode-inject/pkg/errors"
	"gcode-inject/pkg/splice"
)

// Param is one template parameter.
type Param struct {
	Value float64
	// Integer params render without decimals (state selectors, tool numbers).
	Integer bool
}

func (p Param) format() string {
	if p.Integer {
		return strconv.FormatInt(int64(math.Round(p.Value)), 10)
	}
	return strconv.FormatFloat(p.Value, 'f', 2, 64)
}

// Profile describes one tool's injection block.
type Profile struct {
	Name     string
	Start    string
	End      string
	Template string
	Params   map[string]Param

	// TargetParams names the params holding the tool's working position,
	// used to locate an injection point by coordinates. Empty when the tool
	// has none.
	TargetParams [3]string
}

// Block is a rendered injection block ready for splicing.
type Block struct {
	Tool  string
	Start string
	End   string
	Text  string
}

// Lines returns the block split into lines.
func (b Block) Lines() []string {
	return splice.SplitBlock(b.Text)
}

var rePlaceholder = regexp.MustCompile(`\{(\w+)\}`)

// Placeholders returns the parameter names template refers to, in order
// of first use.
func Placeholders(template string) []string {
	var names []string
	seen := map[string]bool{}
	for _, m := range rePlaceholder.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Render substitutes every placeholder in the template. An unknown
// placeholder or a non-finite value fails the whole render.
func (p *Profile) Render() (Block, error) {
	if p.Start == "" || p.End == "" {
		return Block{}, errors.TemplateError(p.Name, "missing sentinel")
	}

	var renderErr error
	text := rePlaceholder.ReplaceAllStringFunc(p.Template, func(match string) string {
		name := match[1 : len(match)-1]
		param, ok := p.Params[name]
		if !ok {
			if renderErr == nil {
				renderErr = errors.TemplateError(p.Name, fmt.Sprintf("unknown parameter %q", name))
			}
			return match
		}
		if math.IsNaN(param.Value) || math.IsInf(param.Value, 0) {
			if renderErr == nil {
				renderErr = errors.TemplateError(p.Name, fmt.Sprintf("parameter %q is not finite", name))
			}
			return match
		}
		return param.format()
	})
	if renderErr != nil {
		return Block{}, renderErr
	}

	lines := splice.SplitBlock(text)
	if len(lines) < 2 ||
		!strings.Contains(lines[0], p.Start) ||
		!strings.Contains(lines[len(lines)-1], p.End) {
		return Block{}, errors.TemplateError(p.Name, "block must open with the start sentinel and close with the end sentinel")
	}
	for _, l := range lines[1 : len(lines)-1] {
		if strings.Contains(l, p.Start) || strings.Contains(l, p.End) {
			return Block{}, errors.TemplateError(p.Name, "sentinel repeated inside block body")
		}
	}

	return Block{
		Tool:  p.Name,
		Start: p.Start,
		End:   p.End,
		Text:  strings.Join(lines, "\n") + "\n",
	}, nil
}

// ParamName returns the spelling of name used by the profile's params or
// template, matching case-insensitively.
func (p *Profile) ParamName(name string) (string, bool) {
	if _, ok := p.Params[name]; ok {
		return name, true
	}
	for k := range p.Params {
		if strings.EqualFold(k, name) {
			return k, true
		}
	}
	for _, k := range Placeholders(p.Template) {
		if strings.EqualFold(k, name) {
			return k, true
		}
	}
	return "", false
}

// WithParams returns a copy of the profile with the given values applied.
// Names are matched with ParamName. A name the profile does not know is an
// INVALID_ARGUMENT error, since its value would never reach the block.
// Overrides of existing params keep their integer flag.
func (p *Profile) WithParams(values map[string]float64) (*Profile, error) {
	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	sort.Strings(names)

	cp := *p
	cp.Params = make(map[string]Param, len(p.Params)+len(values))
	for k, v := range p.Params {
		cp.Params[k] = v
	}
	for _, k := range names {
		name, ok := p.ParamName(k)
		if !ok {
			return nil, errors.InvalidArgumentError(fmt.Sprintf("tool %s has no parameter %q", p.Name, k)).
				SetContext("known", strings.Join(p.knownNames(), ","))
		}
		param := cp.Params[name]
		param.Value = values[k]
		cp.Params[name] = param
	}
	return &cp, nil
}

func (p *Profile) knownNames() []string {
	names := p.ParamNames()
	for _, k := range Placeholders(p.Template) {
		if _, ok := p.Params[k]; !ok {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

// Target returns the tool's working position, when it has one.
func (p *Profile) Target() (r3.Vec, bool) {
	var v [3]float64
	for i, name := range p.TargetParams {
		if name == "" {
			return r3.Vec{}, false
		}
		param, ok := p.Params[name]
		if !ok {
			return r3.Vec{}, false
		}
		v[i] = param.Value
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, true
}

// ParamNames returns the parameter names in sorted order.
func (p *Profile) ParamNames() []string {
	names := make([]string, 0, len(p.Params))
	for k := range p.Params {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
