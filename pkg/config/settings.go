package config

import (
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"gcode-inject/pkg/errors"
	"gcode-inject/pkg/gcode"
	"gcode-inject/pkg/inject"
	"gcode-inject/pkg/locate"
	"gcode-inject/pkg/tool"
)

// Section names read by LoadSettings.
const (
	SectionGcode   = "gcode"
	SectionLocator = "locator"
	SectionInject  = "inject"
	ToolPrefix     = "tool "
)

// Options of a [tool <name>] section that are not template parameters.
const (
	optStartSentinel = "start_sentinel"
	optEndSentinel   = "end_sentinel"
	optTemplate      = "template"
	optIntegerParams = "integer_params"
	optTargetParams  = "target_params"
)

// InjectSettings configures the injection workflow.
type InjectSettings struct {
	EndMarker  string
	OnExisting inject.Policy
	Backup     bool
}

// Settings is the typed view of a configuration.
type Settings struct {
	Parser  gcode.Options
	Locator locate.Options
	Inject  InjectSettings
	Tools   *tool.Registry
}

// DefaultSettings returns the settings used when no file is given.
func DefaultSettings() *Settings {
	return &Settings{
		Parser:  gcode.DefaultOptions(),
		Locator: locate.DefaultOptions(),
		Inject: InjectSettings{
			EndMarker:  inject.DefaultEndMarker,
			OnExisting: inject.PolicySkip,
		},
		Tools: tool.NewRegistry(),
	}
}

// LoadSettings reads every known section of c over the defaults. Absent
// sections keep their defaults.
func LoadSettings(c *Config) (*Settings, error) {
	s := DefaultSettings()
	if sec := c.GetSectionOptional(SectionGcode); sec != nil {
		if err := s.loadParser(sec); err != nil {
			return nil, err
		}
	}
	if sec := c.GetSectionOptional(SectionLocator); sec != nil {
		if err := s.loadLocator(sec); err != nil {
			return nil, err
		}
	}
	if sec := c.GetSectionOptional(SectionInject); sec != nil {
		if err := s.loadInject(sec); err != nil {
			return nil, err
		}
	}
	for _, sec := range c.GetPrefixSections(ToolPrefix) {
		if err := s.loadTool(sec); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Settings) loadParser(sec *Section) error {
	def := s.Parser
	var err error
	p := &s.Parser
	if p.LayerMarker, err = sec.Get("layer_marker", def.LayerMarker); err != nil {
		return err
	}
	if p.HeightPrefix, err = sec.Get("height_prefix", def.HeightPrefix); err != nil {
		return err
	}
	if p.CommentPrefix, err = sec.Get("comment_prefix", def.CommentPrefix); err != nil {
		return err
	}
	axes, err := sec.Get("material_axes", def.MaterialAxes)
	if err != nil {
		return err
	}
	axes = strings.ToUpper(strings.ReplaceAll(axes, ",", ""))
	axes = strings.Join(strings.Fields(axes), "")
	if axes == "" || strings.ContainsAny(axes, "XYZ") {
		return ErrInvalidValue(sec.GetName(), "material_axes", axes, "axis letters other than X, Y and Z")
	}
	p.MaterialAxes = axes
	if p.TrackPositioning, err = sec.GetBool("track_positioning", def.TrackPositioning); err != nil {
		return err
	}
	if sec.HasOption("work_systems") {
		if p.WorkSystems, err = loadWorkSystems(sec); err != nil {
			return err
		}
	}
	for name, v := range map[string]string{
		"layer_marker":   p.LayerMarker,
		"height_prefix":  p.HeightPrefix,
		"comment_prefix": p.CommentPrefix,
	} {
		if v == "" {
			return ErrInvalidValue(sec.GetName(), name, v, "a non-empty string")
		}
	}
	return nil
}

// loadWorkSystems reads "G55=polymer, G58=ceramic". An empty value names
// every system by its command.
func loadWorkSystems(sec *Section) (map[string]string, error) {
	pairs, err := sec.GetList("work_systems", ",")
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		code, name, ok := strings.Cut(pair, "=")
		code = strings.ToUpper(strings.TrimSpace(code))
		name = strings.TrimSpace(name)
		if !ok || name == "" || !gcode.IsWorkSystem(code) {
			return nil, ErrInvalidValue(sec.GetName(), "work_systems", pair, "G54..G59.3=name")
		}
		out[code] = name
	}
	return out, nil
}

func (s *Settings) loadLocator(sec *Section) error {
	var err error
	l := &s.Locator
	if l.HeightTolerance, err = sec.GetFloatIn("height_tolerance", l.HeightTolerance, AtLeast(0)); err != nil {
		return err
	}
	metric, err := sec.GetChoice("metric", []string{"euclidean", "manhattan"}, l.Metric.String())
	if err != nil {
		return err
	}
	if l.Metric, err = locate.ParseMetric(metric); err != nil {
		return err
	}
	var off [3]float64
	for i, name := range []string{"offset_x", "offset_y", "offset_z"} {
		if off[i], err = sec.GetFloat(name, 0); err != nil {
			return err
		}
	}
	l.Offset = r3.Vec{X: off[0], Y: off[1], Z: off[2]}
	if l.DepositingOnly, err = sec.GetBool("depositing_only", l.DepositingOnly); err != nil {
		return err
	}
	return nil
}

func (s *Settings) loadInject(sec *Section) error {
	var err error
	in := &s.Inject
	if in.EndMarker, err = sec.Get("end_marker", in.EndMarker); err != nil {
		return err
	}
	if in.EndMarker == "" {
		return ErrInvalidValue(sec.GetName(), "end_marker", "", "a non-empty string")
	}
	policy, err := sec.GetChoice("on_existing", inject.Policies(), in.OnExisting.String())
	if err != nil {
		return err
	}
	if in.OnExisting, err = inject.ParsePolicy(policy); err != nil {
		return err
	}
	if in.Backup, err = sec.GetBool("backup", in.Backup); err != nil {
		return err
	}
	return nil
}

// loadTool applies a [tool <name>] section. For a built-in tool the
// options override parameter values; any other name defines a new tool
// and must give its sentinels and template.
func (s *Settings) loadTool(sec *Section) error {
	name := strings.TrimSpace(strings.TrimPrefix(sec.GetName(), ToolPrefix))
	if name == "" {
		return ErrInvalidValue(sec.GetName(), "", "", "a tool name")
	}

	base, err := s.Tools.Get(name)
	if err != nil {
		base = &tool.Profile{Name: name, Params: map[string]tool.Param{}}
		for _, opt := range []string{optStartSentinel, optEndSentinel, optTemplate} {
			if !sec.HasOption(opt) {
				return ErrMissingOption(sec.GetName(), opt)
			}
		}
	}
	p := *base
	if p.Start, err = sec.Get(optStartSentinel, p.Start); err != nil {
		return err
	}
	if p.End, err = sec.Get(optEndSentinel, p.End); err != nil {
		return err
	}
	if p.Template, err = sec.Get(optTemplate, p.Template); err != nil {
		return err
	}
	if sec.HasOption(optTargetParams) {
		names, err := sec.GetList(optTargetParams, ",")
		if err != nil {
			return err
		}
		if len(names) != 3 {
			return ErrInvalidValue(sec.GetName(), optTargetParams, strings.Join(names, ","), "three parameter names")
		}
		copy(p.TargetParams[:], names)
	}
	values := map[string]float64{}
	for _, opt := range sec.OptionNames() {
		switch opt {
		case optStartSentinel, optEndSentinel, optTemplate, optIntegerParams, optTargetParams:
			continue
		}
		if _, ok := p.ParamName(opt); !ok {
			return optionError(errors.ErrConfigOption, sec.GetName(), opt, "not a parameter of tool "+p.Name)
		}
		v, err := sec.GetFloat(opt)
		if err != nil {
			return err
		}
		values[opt] = v
	}
	out, err := p.WithParams(values)
	if err != nil {
		return err
	}

	if sec.HasOption(optIntegerParams) {
		names, err := sec.GetList(optIntegerParams, ",")
		if err != nil {
			return err
		}
		for _, n := range names {
			name, ok := out.ParamName(n)
			if !ok {
				return ErrInvalidValue(sec.GetName(), optIntegerParams, n, "a template parameter")
			}
			param := out.Params[name]
			param.Integer = true
			out.Params[name] = param
		}
	}
	for i, n := range out.TargetParams {
		if n == "" {
			continue
		}
		name, ok := out.ParamName(n)
		if !ok {
			return ErrInvalidValue(sec.GetName(), optTargetParams, n, "a template parameter")
		}
		out.TargetParams[i] = name
	}

	if _, err := out.Render(); err != nil {
		return err
	}
	s.Tools.Register(out)
	return nil
}
