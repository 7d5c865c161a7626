package engine

// Columns is the engine's positional output contract: zero-based offsets
// into a whitespace-split reply line.
var Columns = struct {
	Vp         int
	Vs         int
	Density    int
	Vs30       int
	BasinDepth int
	Elevation  int
	Vs30Etree  int
}{
	Vp:         14,
	Vs:         15,
	Density:    16,
	Vs30:       2,
	BasinDepth: 2,
	Elevation:  3,
	Vs30Etree:  4,
}

// Output says how a data line becomes a Record.
type Output int

// Output kinds.
const (
	OutputMaterial Output = iota
	OutputScalar
	OutputRaw
)

// Engine programs, relative to the install's bin directory.
const (
	ProgramQuery = "run_ucvm_query.sh"
	ProgramVs30  = "vs30_query"
	ProgramBasin = "basin_query"
)

// Mode describes one way of querying the engine.
type Mode struct {
	Name    string
	Program string
	Output  Output
	// Column is the scalar offset for OutputScalar modes.
	Column int
	// Banner is the number of leading lines the program always prints
	// before any data.
	Banner int
	// LonLatOnly modes send two columns per point instead of three.
	LonLatOnly bool
	// CoordMode modes pass -c gd|ge (and -z when a range is configured).
	CoordMode bool
	// Threshold modes pass -v with the request's Vs threshold.
	Threshold bool
}

// Query modes.
var (
	// ModeMaterial returns vp, vs and density per point.
	ModeMaterial = Mode{Name: "material", Program: ProgramQuery, Output: OutputMaterial, Banner: 1, CoordMode: true}
	// ModeVs30 returns the model's Vs30 per surface location.
	ModeVs30 = Mode{Name: "vs30", Program: ProgramVs30, Output: OutputScalar, Column: Columns.Vs30, LonLatOnly: true}
	// ModeBasinDepth returns the depth at which vs first exceeds a threshold
	// (Z1.0 for 1000 m/s, Z2.5 for 2500 m/s).
	ModeBasinDepth = Mode{Name: "basin", Program: ProgramBasin, Output: OutputScalar, Column: Columns.BasinDepth, LonLatOnly: true, Threshold: true}
	// ModeElevation returns the surface elevation recorded in an etree model.
	ModeElevation = Mode{Name: "elevation", Program: ProgramQuery, Output: OutputScalar, Column: Columns.Elevation, Banner: 1}
	// ModeVs30Etree returns the Vs30 recorded in an etree model.
	ModeVs30Etree = Mode{Name: "vs30-etree", Program: ProgramQuery, Output: OutputScalar, Column: Columns.Vs30Etree, Banner: 1}
	// ModeRaw passes each data line through untouched.
	ModeRaw = Mode{Name: "raw", Program: ProgramQuery, Output: OutputRaw, Banner: 1}
)

// Modes lists every query mode by name.
var Modes = map[string]Mode{
	ModeMaterial.Name:   ModeMaterial,
	ModeVs30.Name:       ModeVs30,
	ModeBasinDepth.Name: ModeBasinDepth,
	ModeElevation.Name:  ModeElevation,
	ModeVs30Etree.Name:  ModeVs30Etree,
	ModeRaw.Name:        ModeRaw,
}
