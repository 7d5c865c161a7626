package model

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"
)

// Vertical selects how a point's third coordinate is interpreted by the engine.
type Vertical int

// Vertical modes.
const (
	// Depth is meters below the surface (geodetic depth, "gd").
	Depth Vertical = iota
	// Elevation is meters relative to sea level (geodetic elevation, "ge").
	Elevation
)

// String returns the engine's coordinate mode flag.
func (v Vertical) String() string {
	if v == Elevation {
		return "ge"
	}
	return "gd"
}

// Label returns "depth" or "elevation".
func (v Vertical) Label() string {
	if v == Elevation {
		return "elevation"
	}
	return "depth"
}

// Point is a WGS84 sample coordinate with either a depth or an elevation.
// Points are immutable once constructed.
type Point struct {
	lon, lat float64
	z        float64
	vertical Vertical

	// Optional labels carried through for titles and exports.
	Type        string
	Code        string
	Description string
}

// NewDepthPoint returns a point at depth meters below the surface.
func NewDepthPoint(lon, lat, depth float64) (Point, error) {
	if err := checkCoords(lon, lat, depth); err != nil {
		return Point{}, err
	}
	if depth < 0 {
		return Point{}, eris.Wrapf(ErrConfiguration, "depth must be non-negative, got %v", depth)
	}
	return Point{lon: lon, lat: lat, z: depth, vertical: Depth}, nil
}

// NewElevationPoint returns a point at the given elevation in meters.
func NewElevationPoint(lon, lat, elevation float64) (Point, error) {
	if err := checkCoords(lon, lat, elevation); err != nil {
		return Point{}, err
	}
	return Point{lon: lon, lat: lat, z: elevation, vertical: Elevation}, nil
}

// NewPoint builds a point of the given vertical mode.
func NewPoint(lon, lat, z float64, v Vertical) (Point, error) {
	if v == Elevation {
		return NewElevationPoint(lon, lat, z)
	}
	return NewDepthPoint(lon, lat, z)
}

// MustPoint is NewPoint for literals known to be valid. It panics otherwise.
func MustPoint(lon, lat, z float64, v Vertical) Point {
	p, err := NewPoint(lon, lat, z, v)
	if err != nil {
		panic(err)
	}
	return p
}

func checkCoords(vals ...float64) error {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return eris.Wrapf(ErrConfiguration, "coordinate must be a finite number, got %v", v)
		}
	}
	return nil
}

// Longitude in degrees.
func (p Point) Longitude() float64 { return p.lon }

// Latitude in degrees.
func (p Point) Latitude() float64 { return p.lat }

// Z is the depth or elevation, depending on Vertical.
func (p Point) Z() float64 { return p.z }

// Vertical reports whether Z is a depth or an elevation.
func (p Point) Vertical() Vertical { return p.vertical }

// Depth returns the depth and true for depth points.
func (p Point) Depth() (float64, bool) {
	return p.z, p.vertical == Depth
}

// Elevation returns the elevation and true for elevation points.
func (p Point) Elevation() (float64, bool) {
	return p.z, p.vertical == Elevation
}

// WithZ returns a copy of p at a different depth or elevation.
func (p Point) WithZ(z float64) (Point, error) {
	q, err := NewPoint(p.lon, p.lat, z, p.vertical)
	if err != nil {
		return Point{}, err
	}
	q.Type, q.Code, q.Description = p.Type, p.Code, p.Description
	return q, nil
}

func (p Point) String() string {
	return fmt.Sprintf("(%.4f, %.4f, %.4f)", p.lon, p.lat, p.z)
}
