package grid

import (
	"github.com/twpayne/go-geom"

	"github.com/sells-group/cvmgrid/internal/model"
)

// Kind names the sampling geometry of a plan.
type Kind string

// Plan kinds.
const (
	KindBox     Kind = "slice"
	KindCross   Kind = "cross"
	KindProfile Kind = "profile"
)

// Plan is an ordered list of sample points plus the grid shape they fill.
// Points are row-major: Points[row*NumX+col].
type Plan struct {
	Kind     Kind
	Points   []model.Point
	NumX     int
	NumY     int
	Vertical model.Vertical

	// Axis coordinate lists. For boxes, LonList has NumX entries and
	// LatList NumY entries. For cross sections LonList/LatList follow the
	// track and ZList holds one entry per row.
	LonList []float64
	LatList []float64
	ZList   []float64
}

// RowLevels reports whether each plan row is one vertical level, as in
// cross sections and profiles.
func (p *Plan) RowLevels() bool {
	return p.Kind == KindCross || p.Kind == KindProfile
}

// Len returns the number of points in the plan.
func (p *Plan) Len() int { return len(p.Points) }

// At returns the point filling cell (row, col).
func (p *Plan) At(row, col int) model.Point {
	return p.Points[row*p.NumX+col]
}

// Bounds returns the horizontal extent covered by the plan.
func (p *Plan) Bounds() *geom.Bounds {
	b := geom.NewBounds(geom.XY)
	if len(p.Points) == 0 {
		return b
	}
	minX, minY := p.Points[0].Longitude(), p.Points[0].Latitude()
	maxX, maxY := minX, minY
	for _, pt := range p.Points[1:] {
		minX = min(minX, pt.Longitude())
		maxX = max(maxX, pt.Longitude())
		minY = min(minY, pt.Latitude())
		maxY = max(maxY, pt.Latitude())
	}
	return b.Set(minX, minY, maxX, maxY)
}
