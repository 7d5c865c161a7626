package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Property names accepted by MaterialProperty.Property.
const (
	PropVp      = "vp"
	PropVs      = "vs"
	PropDensity = "density"
	PropPoisson = "poisson"
	PropVpVs    = "vpvs"
	PropQp      = "qp"
	PropQs      = "qs"
)

// Properties lists every property name in display order.
var Properties = []string{PropVp, PropVs, PropDensity, PropPoisson, PropVpVs, PropQp, PropQs}

// MaterialProperty holds the per-point quantities returned by the engine.
// Velocities are m/s and density is kg/m^3. Qp and Qs are absent unless a
// model provides them.
type MaterialProperty struct {
	Vp      float64  `json:"vp"`
	Vs      float64  `json:"vs"`
	Density float64  `json:"density"`
	Qp      Optional `json:"qp"`
	Qs      Optional `json:"qs"`
}

// NewMaterialProperty returns a material with no attenuation values.
func NewMaterialProperty(vp, vs, density float64) MaterialProperty {
	return MaterialProperty{Vp: vp, Vs: vs, Density: density}
}

// ParseMaterialFields builds a material from the text fields at the given
// offsets of one reply line.
func ParseMaterialFields(fields []string, vpCol, vsCol, densityCol int) (MaterialProperty, error) {
	var vals [3]float64
	for i, col := range []int{vpCol, vsCol, densityCol} {
		if col >= len(fields) {
			return MaterialProperty{}, eris.Wrapf(ErrProtocol, "line has %d columns, need column %d", len(fields), col)
		}
		v, err := strconv.ParseFloat(fields[col], 64)
		if err != nil {
			return MaterialProperty{}, eris.Wrapf(ErrProtocol, "column %d is not a number: %q", col, fields[col])
		}
		vals[i] = v
	}
	return NewMaterialProperty(vals[0], vals[1], vals[2]), nil
}

// Poisson returns Poisson's ratio derived from vp and vs.
func (m MaterialProperty) Poisson() float64 {
	if m.Vs == 0 {
		return 0.5
	}
	vp2, vs2 := m.Vp*m.Vp, m.Vs*m.Vs
	b := vp2 - vs2
	if b == 0 {
		return 0
	}
	return (vp2 - 2*vs2) / (2 * b)
}

// VpVsRatio returns vp/vs, or 0 when either velocity is zero.
func (m MaterialProperty) VpVsRatio() float64 {
	if m.Vs == 0 || m.Vp == 0 {
		return 0
	}
	return m.Vp / m.Vs
}

// Sub returns the component-wise difference m - other.
func (m MaterialProperty) Sub(other MaterialProperty) MaterialProperty {
	return MaterialProperty{
		Vp:      m.Vp - other.Vp,
		Vs:      m.Vs - other.Vs,
		Density: m.Density - other.Density,
		Qp:      m.Qp.Sub(other.Qp),
		Qs:      m.Qs.Sub(other.Qs),
	}
}

// Property returns the named property. Absent values and the engine's -1
// marker come back as an invalid Optional.
func (m MaterialProperty) Property(name string) (Optional, error) {
	switch strings.ToLower(name) {
	case PropVp:
		return FromSentinel(m.Vp), nil
	case PropVs:
		return FromSentinel(m.Vs), nil
	case PropDensity:
		return FromSentinel(m.Density), nil
	case PropPoisson:
		if m.Vp == NoData || m.Vs == NoData {
			return None(), nil
		}
		return Some(m.Poisson()), nil
	case PropVpVs:
		if m.Vp == NoData || m.Vs == NoData {
			return None(), nil
		}
		return Some(m.VpVsRatio()), nil
	case PropQp:
		return m.Qp, nil
	case PropQs:
		return m.Qs, nil
	default:
		return None(), eris.Wrapf(ErrProperty, "unknown material property %q", name)
	}
}

// CheckProperty validates a property name without a material at hand.
func CheckProperty(name string) error {
	_, err := MaterialProperty{}.Property(name)
	return err
}

// WithProperty returns a copy of m with the named stored property set.
// Derived properties cannot be set.
func (m MaterialProperty) WithProperty(name string, v float64) (MaterialProperty, error) {
	switch strings.ToLower(name) {
	case PropVp:
		m.Vp = v
	case PropVs:
		m.Vs = v
	case PropDensity:
		m.Density = v
	case PropQp:
		m.Qp = FromSentinel(v)
	case PropQs:
		m.Qs = FromSentinel(v)
	default:
		return m, eris.Wrapf(ErrProperty, "cannot set material property %q", name)
	}
	return m, nil
}

func (m MaterialProperty) String() string {
	return fmt.Sprintf("Vp: %.2fm/s, Vs: %.2fm/s, Density: %.2fkg/m^3", m.Vp, m.Vs, m.Density)
}
