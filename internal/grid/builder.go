package grid

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cvmgrid/internal/model"
)

// EarthRadiusM is the mean Earth radius used for along-track distances.
const EarthRadiusM = 6371008.8

// tolerance absorbs float noise when checking that a range divides evenly.
const tolerance = 1e-9

// Spacing controls how a box is sampled. Set Degrees for a fixed step on
// both axes, or NumX/NumY for explicit step counts. When both are set the
// counts win and Degrees is the step.
type Spacing struct {
	Degrees float64
	NumX    int
	NumY    int
}

// BoxOption adjusts box generation.
type BoxOption func(*boxOptions)

type boxOptions struct {
	northFirst bool
}

// NorthFirst emits rows from the maximum latitude down to the minimum,
// matching image row order instead of the engine's default south-first order.
func NorthFirst() BoxOption {
	return func(o *boxOptions) { o.northFirst = true }
}

// Box samples the region between an upper-left and a bottom-right corner.
// Rows run from the minimum latitude to the maximum (unless NorthFirst is
// given) and columns from the minimum longitude to the maximum, all at the
// upper-left corner's depth or elevation.
func Box(upperLeft, bottomRight model.Point, spacing Spacing, opts ...BoxOption) (*Plan, error) {
	var o boxOptions
	for _, opt := range opts {
		opt(&o)
	}

	if upperLeft.Vertical() != bottomRight.Vertical() {
		return nil, eris.Wrap(model.ErrConfiguration, "grid: box corners mix depth and elevation")
	}
	if upperLeft.Longitude() > bottomRight.Longitude() || upperLeft.Latitude() < bottomRight.Latitude() {
		return nil, eris.Wrapf(model.ErrConfiguration,
			"grid: upper-left %s must be north-west of bottom-right %s", upperLeft, bottomRight)
	}

	width := bottomRight.Longitude() - upperLeft.Longitude()
	height := upperLeft.Latitude() - bottomRight.Latitude()

	numX, stepX, err := axis(width, spacing.Degrees, spacing.NumX, "x")
	if err != nil {
		return nil, err
	}
	numY, stepY, err := axis(height, spacing.Degrees, spacing.NumY, "y")
	if err != nil {
		return nil, err
	}

	minLon, minLat := upperLeft.Longitude(), bottomRight.Latitude()
	z := upperLeft.Z()

	plan := &Plan{
		Kind:     KindBox,
		Points:   make([]model.Point, 0, numX*numY),
		NumX:     numX,
		NumY:     numY,
		Vertical: upperLeft.Vertical(),
		LonList:  make([]float64, numX),
		LatList:  make([]float64, numY),
		ZList:    []float64{z},
	}
	for x := range numX {
		plan.LonList[x] = minLon + float64(x)*stepX
	}
	for y := range numY {
		plan.LatList[y] = minLat + float64(y)*stepY
	}
	if o.northFirst {
		for i, j := 0, numY-1; i < j; i, j = i+1, j-1 {
			plan.LatList[i], plan.LatList[j] = plan.LatList[j], plan.LatList[i]
		}
	}

	for _, lat := range plan.LatList {
		for _, lon := range plan.LonList {
			pt, err := model.NewPoint(lon, lat, z, plan.Vertical)
			if err != nil {
				return nil, err
			}
			plan.Points = append(plan.Points, pt)
		}
	}

	zap.L().Debug("grid: built box",
		zap.Int("num_x", numX),
		zap.Int("num_y", numY),
		zap.Float64("z", z),
	)
	return plan, nil
}

// axis resolves the sample count and step for one box axis.
func axis(extent, degrees float64, count int, name string) (int, float64, error) {
	if count < 0 {
		return 0, 0, eris.Wrapf(model.ErrConfiguration, "grid: negative %s step count %d", name, count)
	}
	if count > 0 {
		if degrees > 0 {
			return count, degrees, nil
		}
		if count == 1 {
			return 1, 0, nil
		}
		return count, extent / float64(count-1), nil
	}
	if degrees <= 0 || math.IsNaN(degrees) || math.IsInf(degrees, 0) {
		return 0, 0, eris.Wrapf(model.ErrConfiguration, "grid: spacing must be positive, got %v", degrees)
	}
	n := int(math.Ceil(extent/degrees-tolerance)) + 1
	return n, degrees, nil
}

// Levels expands a vertical range into evenly spaced levels from start to
// end inclusive. The range must be an exact multiple of spacing.
func Levels(start, end, spacing float64) ([]float64, error) {
	if spacing <= 0 || math.IsNaN(spacing) || math.IsInf(spacing, 0) {
		return nil, eris.Wrapf(model.ErrConfiguration, "grid: vertical spacing must be positive, got %v", spacing)
	}
	span := math.Abs(end - start)
	steps := span / spacing
	n := math.Round(steps)
	if math.Abs(steps-n) > tolerance*math.Max(1, steps) {
		return nil, eris.Wrapf(model.ErrConfiguration,
			"grid: spacing %.2f does not divide evenly into the range %.2f to %.2f", spacing, start, end)
	}
	dir := 1.0
	if end < start {
		dir = -1
	}
	levels := make([]float64, int(n)+1)
	for i := range levels {
		levels[i] = start + dir*float64(i)*spacing
	}
	return levels, nil
}

// Section describes the vertical extent of a cross section or profile.
// Start is taken from the anchor point's depth or elevation.
type Section struct {
	// HorizontalSpacing is the along-track spacing in meters. Unused by Profile.
	HorizontalSpacing float64
	End               float64
	VerticalSpacing   float64
}

// CrossSection samples the straight line from start to end, repeated at
// every vertical level from start's depth (or elevation) to sec.End. Each
// row of the plan is one level.
func CrossSection(start, end model.Point, sec Section) (*Plan, error) {
	if start.Vertical() != end.Vertical() {
		return nil, eris.Wrap(model.ErrConfiguration, "grid: cross-section endpoints mix depth and elevation")
	}
	if sec.HorizontalSpacing <= 0 || math.IsNaN(sec.HorizontalSpacing) {
		return nil, eris.Wrapf(model.ErrConfiguration,
			"grid: horizontal spacing must be positive, got %v", sec.HorizontalSpacing)
	}
	levels, err := Levels(start.Z(), sec.End, sec.VerticalSpacing)
	if err != nil {
		return nil, err
	}

	dist := Haversine(start, end)
	steps := int(math.Round(dist / sec.HorizontalSpacing))

	plan := &Plan{
		Kind:     KindCross,
		NumX:     steps + 1,
		NumY:     len(levels),
		Vertical: start.Vertical(),
		LonList:  make([]float64, steps+1),
		LatList:  make([]float64, steps+1),
		ZList:    levels,
	}
	for i := 0; i <= steps; i++ {
		f := 0.0
		if steps > 0 {
			f = float64(i) / float64(steps)
		}
		plan.LonList[i] = start.Longitude() + f*(end.Longitude()-start.Longitude())
		plan.LatList[i] = start.Latitude() + f*(end.Latitude()-start.Latitude())
	}

	plan.Points = make([]model.Point, 0, plan.NumX*plan.NumY)
	for _, z := range levels {
		for i := range plan.LonList {
			pt, err := model.NewPoint(plan.LonList[i], plan.LatList[i], z, plan.Vertical)
			if err != nil {
				return nil, err
			}
			plan.Points = append(plan.Points, pt)
		}
	}

	zap.L().Debug("grid: built cross section",
		zap.Float64("distance_m", dist),
		zap.Int("num_x", plan.NumX),
		zap.Int("num_y", plan.NumY),
	)
	return plan, nil
}

// Profile samples a single vertical column at p from its depth (or
// elevation) to sec.End. The plan is one column wide.
func Profile(p model.Point, sec Section) (*Plan, error) {
	levels, err := Levels(p.Z(), sec.End, sec.VerticalSpacing)
	if err != nil {
		return nil, err
	}
	plan := &Plan{
		Kind:     KindProfile,
		Points:   make([]model.Point, 0, len(levels)),
		NumX:     1,
		NumY:     len(levels),
		Vertical: p.Vertical(),
		LonList:  []float64{p.Longitude()},
		LatList:  []float64{p.Latitude()},
		ZList:    levels,
	}
	for _, z := range levels {
		pt, err := p.WithZ(z)
		if err != nil {
			return nil, err
		}
		plan.Points = append(plan.Points, pt)
	}
	return plan, nil
}

// Haversine returns the great-circle distance between two points in meters.
func Haversine(a, b model.Point) float64 {
	lat1 := a.Latitude() * math.Pi / 180
	lat2 := b.Latitude() * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Longitude() - a.Longitude()) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusM * math.Asin(math.Min(1, math.Sqrt(h)))
}
