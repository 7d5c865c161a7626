package bounds

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cvmgrid/internal/model"
	"github.com/sells-group/cvmgrid/internal/result"
)

// Scale names a colorbar scheme.
type Scale string

// Color scales. The data-driven scales derive bounds from the grid; the
// others use the fixed default table.
const (
	ScaleContinuous   Scale = "s"
	ScaleDiscrete     Scale = "d"
	ScaleDataSmooth   Scale = "sd"
	ScaleDataDiscrete Scale = "dd"
	ScaleGate         Scale = "b"
)

// DefaultGate splits the gate scale, in display units.
const DefaultGate = 2.5

// ParseScale validates a scale name.
func ParseScale(s string) (Scale, error) {
	switch sc := Scale(s); sc {
	case ScaleContinuous, ScaleDiscrete, ScaleDataSmooth, ScaleDataDiscrete, ScaleGate:
		return sc, nil
	}
	return "", eris.Wrapf(model.ErrConfiguration, "bounds: unknown color scale %q", s)
}

// DataDriven reports whether the scale derives bounds from grid statistics.
func (s Scale) DataDriven() bool {
	return s == ScaleDataSmooth || s == ScaleDataDiscrete
}

// Discrete reports whether colors snap to bound intervals.
func (s Scale) Discrete() bool {
	return s == ScaleDiscrete || s == ScaleDataDiscrete || s == ScaleGate
}

// Colorbar is the bound and tick layout for rendering one grid.
type Colorbar struct {
	Scale    Scale     `json:"scale"`
	Divisor  float64   `json:"divisor"`
	Bounds   []float64 `json:"bounds"`
	Ticks    []float64 `json:"ticks"`
	Discrete bool      `json:"discrete"`
	// Below marks bounds under the gate for the gate scale.
	Below []bool `json:"below,omitempty"`
}

// ForGrid lays out a colorbar for g. Velocities and densities display in
// thousands; poisson is unitless and always uses a data-driven scale.
func ForGrid(g *result.Grid, steps, subSteps int, scale Scale, gate float64) (Colorbar, error) {
	divisor := 1000.0
	if g.Property == model.PropPoisson || g.Property == model.PropVpVs {
		divisor = 1
		switch scale {
		case ScaleContinuous:
			scale = ScaleDataSmooth
		case ScaleDiscrete:
			scale = ScaleDataDiscrete
		}
	}
	cb := Colorbar{Scale: scale, Divisor: divisor, Discrete: scale.Discrete()}

	if !scale.DataDriven() {
		cb.Bounds = append([]float64(nil), DefaultBounds...)
		cb.Ticks = append([]float64(nil), DefaultTicks...)
		if scale == ScaleGate {
			if gate == 0 {
				gate = DefaultGate
			}
			cb.Below = make([]bool, len(cb.Bounds))
			for i, b := range cb.Bounds {
				cb.Below[i] = b < gate
			}
		}
		return cb, nil
	}

	st := g.Scaled(divisor).Stats()
	if st.Count == 0 || st.Max <= st.Min {
		zap.L().Warn("bounds: grid has no spread, using default colorbar",
			zap.String("property", g.Property),
			zap.Int("valid", st.Count),
		)
		cb.Bounds = append([]float64(nil), DefaultBounds...)
		cb.Ticks = append([]float64(nil), DefaultTicks...)
		return cb, nil
	}

	mean := st.Mean
	b, err := Bounds(Options{
		Min:      st.Min,
		Max:      st.Max,
		Steps:    steps,
		Mean:     &mean,
		SubSteps: subSteps,
		All:      true,
	})
	if err != nil {
		return cb, err
	}
	t, err := Ticks(st.Min, st.Max, steps)
	if err != nil {
		return cb, err
	}
	cb.Bounds, cb.Ticks = b, t
	return cb, nil
}
