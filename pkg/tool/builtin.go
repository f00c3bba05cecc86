package tool

import (
	"sort"
	"strings"

	"gcode-inject/pkg/errors"
)

// Built-in tool names.
const (
	VacuumPnP   = "vacuum_pnp"
	ScrewDriver = "screwdriver"
)

const rule = ";-----------------------------------------------"

const vacuumTemplate = `; VacuumPnP TOOL G CODE INJECTION START
` + rule + `
G0 Z{zHop_mm} ; Move to zHop position for clearance
G0 X{startX} Y{startY}
G0 Z{startZ} ; Move to startPosition
M98 P{suctionState} ; Execute suction state
G0 X{endX} Y{endY}
G0 Z{endZ} ; Move to endPosition
G0 Z{zHop_mm} ; Move to zHop position for clearance
` + rule + `
; VacuumPnP TOOL G CODE INJECTION END
`

const screwTemplate = `; ScrewDriver TOOL G CODE INJECTION START
` + rule + `
G90 ; Absolute positioning
G0 Z{zHop_mm} ; Move to zHop position for clearance
TOOL_PICKUP T={toolIndex} ; Pick up the screwdriver
G0 X{startX} Y{startY}
G0 Z{startZ} ; Lower to start position
INSERT_SCREW SCREW={screwType}
G0 Z{zHop_mm} ; Move to zHop position for clearance
TOOL_PICKUP T={extruderIndex} ; Pick up the extruder again
G91 ; Relative positioning
` + rule + `
; ScrewDriver TOOL G CODE INJECTION END
`

func vacuumProfile() *Profile {
	return &Profile{
		Name:     VacuumPnP,
		Start:    "; VacuumPnP TOOL G CODE INJECTION START",
		End:      "; VacuumPnP TOOL G CODE INJECTION END",
		Template: vacuumTemplate,
		Params: map[string]Param{
			"zHop_mm":      {Value: 5},
			"startX":       {Value: 10},
			"startY":       {Value: 20},
			"startZ":       {Value: 30},
			"suctionState": {Value: 1, Integer: true},
			"endX":         {Value: 40},
			"endY":         {Value: 50},
			"endZ":         {Value: 60},
		},
		TargetParams: [3]string{"startX", "startY", "startZ"},
	}
}

func screwProfile() *Profile {
	return &Profile{
		Name:     ScrewDriver,
		Start:    "; ScrewDriver TOOL G CODE INJECTION START",
		End:      "; ScrewDriver TOOL G CODE INJECTION END",
		Template: screwTemplate,
		Params: map[string]Param{
			"zHop_mm":       {Value: 100},
			"startX":        {Value: 100},
			"startY":        {Value: 100},
			"startZ":        {Value: 100},
			"screwType":     {Value: 0, Integer: true},
			"toolIndex":     {Value: 4, Integer: true},
			"extruderIndex": {Value: 0, Integer: true},
		},
		TargetParams: [3]string{"startX", "startY", "startZ"},
	}
}

// Registry holds the known tool profiles by lower-cased name.
type Registry struct {
	profiles map[string]*Profile
}

// NewRegistry returns a registry preloaded with the built-in tools.
func NewRegistry() *Registry {
	r := &Registry{profiles: make(map[string]*Profile)}
	r.Register(vacuumProfile())
	r.Register(screwProfile())
	return r
}

// Register adds or replaces a profile.
func (r *Registry) Register(p *Profile) {
	r.profiles[strings.ToLower(p.Name)] = p
}

// Get returns the named profile.
func (r *Registry) Get(name string) (*Profile, error) {
	p, ok := r.profiles[strings.ToLower(name)]
	if !ok {
		return nil, errors.InvalidArgumentError("unknown tool " + name).
			SetContext("known", strings.Join(r.Names(), ","))
	}
	return p, nil
}

// Sentinels is the delimiter pair of one tool's blocks.
type Sentinels struct {
	Tool  string
	Start string
	End   string
}

// Sentinels returns the delimiter pair of every registered tool, ordered
// by tool name.
func (r *Registry) Sentinels() []Sentinels {
	names := r.Names()
	out := make([]Sentinels, 0, len(names))
	for _, n := range names {
		p := r.profiles[n]
		out = append(out, Sentinels{Tool: p.Name, Start: p.Start, End: p.End})
	}
	return out
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for k := range r.profiles {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
