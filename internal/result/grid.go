package result

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"

	"github.com/sells-group/cvmgrid/internal/model"
)

// Stats summarizes the valid cells of a grid. With no valid cells Min, Max
// and Mean are NaN.
type Stats struct {
	Min   float64
	Max   float64
	Mean  float64
	Count int
}

// Grid is a row-major 2D arrangement of query results. Cell (row, col)
// holds the record for the point the grid builder emitted at index
// row*NumX+col.
type Grid struct {
	NumX     int
	NumY     int
	Property string

	cells     []model.Optional
	materials []model.MaterialProperty
	stats     Stats
}

func checkDims(n, numX, numY int) error {
	if numX <= 0 || numY <= 0 {
		return eris.Wrapf(model.ErrConfiguration, "result: grid dimensions must be positive, got %dx%d", numX, numY)
	}
	if n != numX*numY {
		return eris.Wrapf(model.ErrConfiguration,
			"result: %d records do not fill a %dx%d grid (%d cells)", n, numX, numY, numX*numY)
	}
	return nil
}

// FromMaterials reshapes material records and selects property as the
// grid's scalar.
func FromMaterials(records []model.MaterialProperty, numX, numY int, property string) (*Grid, error) {
	if err := checkDims(len(records), numX, numY); err != nil {
		return nil, err
	}
	cells := make([]model.Optional, len(records))
	for i, r := range records {
		v, err := r.Property(property)
		if err != nil {
			return nil, err
		}
		cells[i] = v
	}
	g := &Grid{
		NumX:      numX,
		NumY:      numY,
		Property:  property,
		cells:     cells,
		materials: append([]model.MaterialProperty(nil), records...),
	}
	g.stats = computeStats(cells)
	return g, nil
}

// FromOptional reshapes scalar records.
func FromOptional(values []model.Optional, numX, numY int, property string) (*Grid, error) {
	if err := checkDims(len(values), numX, numY); err != nil {
		return nil, err
	}
	g := &Grid{
		NumX:     numX,
		NumY:     numY,
		Property: property,
		cells:    append([]model.Optional(nil), values...),
	}
	g.stats = computeStats(g.cells)
	return g, nil
}

// FromValues reshapes plain floats. -1 and NaN mark cells with no data.
func FromValues(values []float64, numX, numY int, property string) (*Grid, error) {
	cells := make([]model.Optional, len(values))
	for i, v := range values {
		cells[i] = model.FromSentinel(v)
	}
	return FromOptional(cells, numX, numY, property)
}

// computeStats accumulates in row-major order so repeated runs over the
// same cells are bit-identical.
func computeStats(cells []model.Optional) Stats {
	valid := make([]float64, 0, len(cells))
	for _, c := range cells {
		if c.Valid {
			valid = append(valid, c.Value)
		}
	}
	if len(valid) == 0 {
		nan := math.NaN()
		return Stats{Min: nan, Max: nan, Mean: nan}
	}
	return Stats{
		Min:   floats.Min(valid),
		Max:   floats.Max(valid),
		Mean:  floats.Sum(valid) / float64(len(valid)),
		Count: len(valid),
	}
}

// Stats returns min, max and mean over cells with data.
func (g *Grid) Stats() Stats { return g.stats }

// Len is NumX*NumY.
func (g *Grid) Len() int { return len(g.cells) }

// At returns cell (row, col).
func (g *Grid) At(row, col int) model.Optional {
	return g.cells[row*g.NumX+col]
}

// Row returns a copy of one grid row.
func (g *Grid) Row(row int) []model.Optional {
	return append([]model.Optional(nil), g.cells[row*g.NumX:(row+1)*g.NumX]...)
}

// Cells returns a copy of all cells in row-major order.
func (g *Grid) Cells() []model.Optional {
	return append([]model.Optional(nil), g.cells...)
}

// Values returns all cells in row-major order with NaN for no data.
func (g *Grid) Values() []float64 {
	out := make([]float64, len(g.cells))
	for i, c := range g.cells {
		out[i] = c.Float()
	}
	return out
}

// Materials returns the full material records, or nil for scalar grids.
func (g *Grid) Materials() []model.MaterialProperty {
	if g.materials == nil {
		return nil
	}
	return append([]model.MaterialProperty(nil), g.materials...)
}

// MaterialAt returns the material record at (row, col) if the grid has one.
func (g *Grid) MaterialAt(row, col int) (model.MaterialProperty, bool) {
	if g.materials == nil {
		return model.MaterialProperty{}, false
	}
	return g.materials[row*g.NumX+col], true
}

// WithProperty reselects the scalar of a material grid.
func (g *Grid) WithProperty(property string) (*Grid, error) {
	if g.materials == nil {
		return nil, eris.Wrapf(model.ErrProperty, "result: %s grid has no material records to select %q from", g.Property, property)
	}
	return FromMaterials(g.materials, g.NumX, g.NumY, property)
}

// Scaled divides every valid cell by divisor, e.g. 1000 for m/s to km/s.
func (g *Grid) Scaled(divisor float64) *Grid {
	cells := make([]model.Optional, len(g.cells))
	for i, c := range g.cells {
		if c.Valid {
			cells[i] = model.Some(c.Value / divisor)
		}
	}
	return &Grid{
		NumX:     g.NumX,
		NumY:     g.NumY,
		Property: g.Property,
		cells:    cells,
		stats:    computeStats(cells),
	}
}

// Equal reports whether two grids have the same shape, property and cells.
func (g *Grid) Equal(other *Grid) bool {
	if g.NumX != other.NumX || g.NumY != other.NumY || g.Property != other.Property {
		return false
	}
	for i, c := range g.cells {
		o := other.cells[i]
		if c.Valid != o.Valid || (c.Valid && c.Value != o.Value) {
			return false
		}
	}
	return true
}
