// Package bounds derives colorbar break points and tick labels from grid
// statistics.
package bounds

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"

	"github.com/sells-group/cvmgrid/internal/model"
)

// DefaultBounds is returned when no step count is requested.
var DefaultBounds = []float64{0, 0.2, 0.4, 0.6, 0.8, 1, 1.5, 2, 2.5, 3, 3.5, 4, 4.5, 5}

// DefaultTicks is returned when no tick count is requested.
var DefaultTicks = []float64{0, 0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4, 4.5, 5}

// Options controls Bounds. Steps base intervals span [Min, Max]; an
// interval is split into SubSteps parts when All is set or when it holds
// Mean.
type Options struct {
	Min      float64
	Max      float64
	Steps    int
	Mean     *float64
	SubSteps int
	All      bool
}

// DefaultOptions matches the 0..5 km/s velocity range.
func DefaultOptions() Options {
	return Options{Min: 0, Max: 5, SubSteps: 5, All: true}
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// appendIncreasing drops values that rounding made equal to or below the
// previous one.
func appendIncreasing(dst []float64, v float64) []float64 {
	v = round4(v)
	if n := len(dst); n > 0 && v <= dst[n-1] {
		return dst
	}
	return append(dst, v)
}

func checkRange(lo, hi float64, steps int) error {
	if steps < 0 {
		return eris.Wrapf(model.ErrConfiguration, "bounds: step count %d is negative", steps)
	}
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return eris.Wrapf(model.ErrConfiguration, "bounds: range [%g, %g] is not finite", lo, hi)
	}
	if hi <= lo {
		return eris.Wrapf(model.ErrConfiguration, "bounds: max %g must exceed min %g", hi, lo)
	}
	return nil
}

// Bounds returns a strictly increasing sequence of colorbar break points
// rounded to four decimals. Steps == 0 returns DefaultBounds.
func Bounds(o Options) ([]float64, error) {
	if o.Steps == 0 {
		return append([]float64(nil), DefaultBounds...), nil
	}
	if err := checkRange(o.Min, o.Max, o.Steps); err != nil {
		return nil, err
	}
	if o.SubSteps <= 0 {
		return nil, eris.Wrapf(model.ErrConfiguration, "bounds: substep count %d must be positive", o.SubSteps)
	}

	base := floats.Span(make([]float64, o.Steps+1), o.Min, o.Max)
	meanInterval := -1
	if o.Mean != nil && !math.IsNaN(*o.Mean) {
		step := (o.Max - o.Min) / float64(o.Steps)
		meanInterval = int(math.Floor((*o.Mean - o.Min) / step))
	}

	out := make([]float64, 0, o.Steps*o.SubSteps+1)
	for i := 0; i < o.Steps; i++ {
		if !o.All && i != meanInterval {
			out = appendIncreasing(out, base[i])
			continue
		}
		sub := floats.Span(make([]float64, o.SubSteps+1), base[i], base[i+1])
		for _, v := range sub[:o.SubSteps] {
			out = appendIncreasing(out, v)
		}
	}
	return appendIncreasing(out, o.Max), nil
}

// Ticks returns steps+1 evenly spaced labels over [lo, hi]. Zero steps
// returns DefaultTicks.
func Ticks(lo, hi float64, steps int) ([]float64, error) {
	if steps == 0 {
		return append([]float64(nil), DefaultTicks...), nil
	}
	if err := checkRange(lo, hi, steps); err != nil {
		return nil, err
	}
	span := floats.Span(make([]float64, steps+1), lo, hi)
	out := make([]float64, 0, len(span))
	for _, v := range span {
		out = appendIncreasing(out, v)
	}
	return out, nil
}
