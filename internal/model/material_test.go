package model

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMaterialFields(t *testing.T) {
	line := "-118.0000 34.0000 0.000 280.896 390.000 cvmh 1000.000 500.000 2000.000 none 0.000 0.000 0.000 crust 696.491 213.000 1974.976"
	mp, err := ParseMaterialFields(strings.Fields(line), 14, 15, 16)
	require.NoError(t, err)

	assert.Equal(t, 696.491, mp.Vp)
	assert.Equal(t, 213.000, mp.Vs)
	assert.Equal(t, 1974.976, mp.Density)
	assert.False(t, mp.Qp.Valid)
	assert.False(t, mp.Qs.Valid)
}

func TestParseMaterialFields_Errors(t *testing.T) {
	_, err := ParseMaterialFields([]string{"1", "2"}, 14, 15, 16)
	assert.True(t, eris.Is(err, ErrProtocol))

	fields := strings.Fields("0 0 0 0 0 0 0 0 0 0 0 0 0 0 abc 1 2")
	_, err = ParseMaterialFields(fields, 14, 15, 16)
	assert.True(t, eris.Is(err, ErrProtocol))
}

func TestMaterialProperty_Poisson(t *testing.T) {
	assert.Equal(t, 0.5, NewMaterialProperty(1000, 0, 2000).Poisson())
	assert.Equal(t, 0.0, NewMaterialProperty(1000, 1000, 2000).Poisson())
	// vp = sqrt(3) * vs gives a Poisson solid.
	assert.InDelta(t, 0.25, NewMaterialProperty(math.Sqrt(3)*1000, 1000, 2000).Poisson(), 1e-12)
}

func TestMaterialProperty_VpVsRatio(t *testing.T) {
	assert.Equal(t, 2.0, NewMaterialProperty(2000, 1000, 2000).VpVsRatio())
	assert.Equal(t, 0.0, NewMaterialProperty(2000, 0, 2000).VpVsRatio())
	assert.Equal(t, 0.0, NewMaterialProperty(0, 1000, 2000).VpVsRatio())
}

func TestMaterialProperty_Sub(t *testing.T) {
	a := NewMaterialProperty(3000, 1500, 2500)
	a.Qp = Some(100)
	b := NewMaterialProperty(1000, 500, 2000)
	b.Qp = Some(40)

	d := a.Sub(b)
	assert.Equal(t, 2000.0, d.Vp)
	assert.Equal(t, 1000.0, d.Vs)
	assert.Equal(t, 500.0, d.Density)
	assert.Equal(t, Some(60), d.Qp)
	assert.False(t, d.Qs.Valid)
}

func TestMaterialProperty_Property(t *testing.T) {
	mp := NewMaterialProperty(2000, 1000, 2200)

	tests := []struct {
		name string
		want Optional
	}{
		{"vp", Some(2000)},
		{"VS", Some(1000)},
		{"Density", Some(2200)},
		{"vpvs", Some(2)},
		{"qp", None()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mp.Property(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := mp.Property("rigidity")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrProperty))
	assert.Contains(t, err.Error(), "rigidity")
}

func TestMaterialProperty_PropertySentinel(t *testing.T) {
	mp := NewMaterialProperty(NoData, NoData, NoData)
	for _, name := range []string{"vp", "vs", "density", "poisson", "vpvs"} {
		got, err := mp.Property(name)
		require.NoError(t, err)
		assert.False(t, got.Valid, name)
	}
}

func TestMaterialProperty_WithProperty(t *testing.T) {
	mp, err := MaterialProperty{}.WithProperty("vs", 450)
	require.NoError(t, err)
	assert.Equal(t, 450.0, mp.Vs)

	_, err = mp.WithProperty("poisson", 0.3)
	assert.True(t, eris.Is(err, ErrProperty))
}

func TestCheckProperty(t *testing.T) {
	for _, name := range Properties {
		assert.NoError(t, CheckProperty(name))
	}
	assert.Error(t, CheckProperty("nope"))
}

func TestOptional_JSON(t *testing.T) {
	data, err := json.Marshal([]Optional{Some(1.5), None()})
	require.NoError(t, err)
	assert.JSONEq(t, `[1.5, null]`, string(data))

	var back []Optional
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []Optional{Some(1.5), None()}, back)
}

func TestFromSentinel(t *testing.T) {
	assert.False(t, FromSentinel(-1).Valid)
	assert.False(t, FromSentinel(math.NaN()).Valid)
	assert.Equal(t, Some(0), FromSentinel(0))
	assert.True(t, math.IsNaN(None().Float()))
}
