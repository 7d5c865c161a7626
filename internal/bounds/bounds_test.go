package bounds

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cvmgrid/internal/model"
	"github.com/sells-group/cvmgrid/internal/result"
)

func assertIncreasing(t *testing.T, vals []float64) {
	t.Helper()
	for i := 1; i < len(vals); i++ {
		assert.Greater(t, vals[i], vals[i-1], "index %d", i)
	}
}

func TestBounds_Default(t *testing.T) {
	got, err := Bounds(DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.2, 0.4, 0.6, 0.8, 1, 1.5, 2, 2.5, 3, 3.5, 4, 4.5, 5}, got)
	assert.Len(t, got, 14)

	got[0] = 99
	assert.Equal(t, 0.0, DefaultBounds[0])
}

func TestBounds_AllSubdivided(t *testing.T) {
	got, err := Bounds(Options{Min: 0, Max: 5, Steps: 5, SubSteps: 5, All: true})
	require.NoError(t, err)
	require.Len(t, got, 26)
	assert.Equal(t, 0.0, got[0])
	assert.Equal(t, 0.2, got[1])
	assert.Equal(t, 1.0, got[5])
	assert.Equal(t, 5.0, got[25])
	assertIncreasing(t, got)
}

func TestBounds_MeanIntervalOnly(t *testing.T) {
	mean := 2.5
	got, err := Bounds(Options{Min: 0, Max: 5, Steps: 5, Mean: &mean, SubSteps: 5})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 2.2, 2.4, 2.6, 2.8, 3, 4, 5}, got)
}

func TestBounds_NoMeanNoAll(t *testing.T) {
	got, err := Bounds(Options{Min: 1, Max: 3, Steps: 4, SubSteps: 3})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1.5, 2, 2.5, 3}, got)
}

func TestBounds_Rounding(t *testing.T) {
	got, err := Bounds(Options{Min: 0.213, Max: 1.974976, Steps: 5, SubSteps: 5, All: true})
	require.NoError(t, err)
	assertIncreasing(t, got)
	assert.Equal(t, 0.213, got[0])
	assert.Equal(t, 1.975, got[len(got)-1])
	for _, v := range got {
		assert.InDelta(t, v, float64(int64(v*1e4+0.5))/1e4, 1e-12)
	}
}

func TestBounds_TinyRangeStaysIncreasing(t *testing.T) {
	got, err := Bounds(Options{Min: 1, Max: 1.0002, Steps: 5, SubSteps: 5, All: true})
	require.NoError(t, err)
	assertIncreasing(t, got)
	assert.Equal(t, 1.0, got[0])
	assert.Equal(t, 1.0002, got[len(got)-1])
}

func TestBounds_Rejects(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"negative steps", Options{Min: 0, Max: 1, Steps: -1, SubSteps: 1}},
		{"inverted", Options{Min: 2, Max: 1, Steps: 2, SubSteps: 1}},
		{"flat", Options{Min: 1, Max: 1, Steps: 2, SubSteps: 1}},
		{"zero substeps", Options{Min: 0, Max: 1, Steps: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Bounds(tt.opts)
			require.Error(t, err)
			assert.True(t, eris.Is(err, model.ErrConfiguration))
		})
	}
}

func TestTicks(t *testing.T) {
	got, err := Ticks(0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4, 4.5, 5}, got)

	got, err = Ticks(0, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1}, got)

	got, err = Ticks(0.2, 1.4, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.2, 0.6, 1, 1.4}, got)

	_, err = Ticks(1, 0, 3)
	assert.True(t, eris.Is(err, model.ErrConfiguration))
}

func TestParseScale(t *testing.T) {
	for _, s := range []string{"s", "d", "sd", "dd", "b"} {
		sc, err := ParseScale(s)
		require.NoError(t, err)
		assert.Equal(t, Scale(s), sc)
	}
	_, err := ParseScale("rainbow")
	assert.True(t, eris.Is(err, model.ErrConfiguration))
}

func TestForGrid_DataDriven(t *testing.T) {
	g, err := result.FromValues([]float64{1000, 2000, 3000, 4000}, 2, 2, model.PropVs)
	require.NoError(t, err)

	cb, err := ForGrid(g, 5, 5, ScaleDataDiscrete, 0)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, cb.Divisor)
	assert.True(t, cb.Discrete)
	assert.Equal(t, 1.0, cb.Bounds[0])
	assert.Equal(t, 4.0, cb.Bounds[len(cb.Bounds)-1])
	assert.Equal(t, []float64{1, 1.6, 2.2, 2.8, 3.4, 4}, cb.Ticks)
	assertIncreasing(t, cb.Bounds)
}

func TestForGrid_FixedScales(t *testing.T) {
	g, err := result.FromValues([]float64{1000, 2000}, 2, 1, model.PropVp)
	require.NoError(t, err)

	cb, err := ForGrid(g, 5, 5, ScaleContinuous, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultBounds, cb.Bounds)
	assert.Equal(t, DefaultTicks, cb.Ticks)
	assert.False(t, cb.Discrete)

	cb, err = ForGrid(g, 5, 5, ScaleGate, 0)
	require.NoError(t, err)
	require.Len(t, cb.Below, len(DefaultBounds))
	assert.True(t, cb.Below[0])
	assert.False(t, cb.Below[len(cb.Below)-1])
}

func TestForGrid_PoissonSwitchesToData(t *testing.T) {
	g, err := result.FromValues([]float64{0.25, 0.3, 0.35, 0.45}, 2, 2, model.PropPoisson)
	require.NoError(t, err)

	cb, err := ForGrid(g, 5, 5, ScaleDiscrete, 0)
	require.NoError(t, err)
	assert.Equal(t, ScaleDataDiscrete, cb.Scale)
	assert.Equal(t, 1.0, cb.Divisor)
	assert.Equal(t, 0.25, cb.Bounds[0])
	assert.Equal(t, 0.45, cb.Bounds[len(cb.Bounds)-1])
}

func TestForGrid_FlatGridFallsBack(t *testing.T) {
	g, err := result.FromValues(make([]float64, 6), 3, 2, model.PropVs)
	require.NoError(t, err)

	cb, err := ForGrid(g, 5, 5, ScaleDataSmooth, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultBounds, cb.Bounds)
}
