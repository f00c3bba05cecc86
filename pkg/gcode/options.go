package gcode

// Options selects the slicer dialect details the parser depends on.
type Options struct {
	// CommentPrefix starts a full-line or trailing comment.
	CommentPrefix string

	// LayerMarker is the prefix of a layer-boundary line.
	LayerMarker string

	// HeightPrefix is the prefix of the height comment expected on the line
	// right after a layer marker, e.g. ";Z:0.2".
	HeightPrefix string

	// MaterialAxes lists the axis letters that output material. The default
	// "E" covers single extruders; multi-material heads also use "AB".
	MaterialAxes string

	// TrackPositioning applies G90/G91 and G92 to the running position.
	TrackPositioning bool

	// WorkSystems names work coordinate systems by their select command.
	// Moves after e.g. G55 carry its name; a command missing from the map
	// names itself. Nil means DefaultWorkSystems.
	WorkSystems map[string]string
}

// workSystemCodes are the work coordinate system select commands.
var workSystemCodes = map[string]bool{
	"G54": true, "G55": true, "G56": true, "G57": true, "G58": true,
	"G59": true, "G59.1": true, "G59.2": true, "G59.3": true,
}

// IsWorkSystem reports whether code selects a work coordinate system.
func IsWorkSystem(code string) bool {
	return workSystemCodes[code]
}

// DefaultWorkSystems returns the two-material layout: polymer on G55,
// ceramic on G58.
func DefaultWorkSystems() map[string]string {
	return map[string]string{"G55": "polymer", "G58": "ceramic"}
}

func (o Options) systemName(code string) string {
	if name, ok := o.WorkSystems[code]; ok {
		return name
	}
	return code
}

// DefaultOptions returns the PrusaSlicer/SuperSlicer dialect.
func DefaultOptions() Options {
	return Options{
		CommentPrefix:    ";",
		LayerMarker:      ";LAYER_CHANGE",
		HeightPrefix:     ";Z:",
		MaterialAxes:     "E",
		TrackPositioning: true,
		WorkSystems:      DefaultWorkSystems(),
	}
}

// withDefaults fills empty string fields from DefaultOptions.
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.CommentPrefix == "" {
		o.CommentPrefix = def.CommentPrefix
	}
	if o.LayerMarker == "" {
		o.LayerMarker = def.LayerMarker
	}
	if o.HeightPrefix == "" {
		o.HeightPrefix = def.HeightPrefix
	}
	if o.MaterialAxes == "" {
		o.MaterialAxes = def.MaterialAxes
	}
	if o.WorkSystems == nil {
		o.WorkSystems = def.WorkSystems
	}
	return o
}
