package result

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/cvmgrid/internal/model"
)

// Difference returns a - b cell by cell. Material grids are differenced
// component-wise and keep a's property selection. A cell is empty when
// either side is empty.
func Difference(a, b *Grid) (*Grid, error) {
	if a.NumX != b.NumX || a.NumY != b.NumY {
		return nil, eris.Wrapf(model.ErrConfiguration,
			"result: cannot difference %dx%d grid with %dx%d grid", a.NumX, a.NumY, b.NumX, b.NumY)
	}

	if a.materials != nil && b.materials != nil {
		mats := make([]model.MaterialProperty, len(a.materials))
		for i := range mats {
			mats[i] = a.materials[i].Sub(b.materials[i])
		}
		g, err := FromMaterials(mats, a.NumX, a.NumY, a.Property)
		if err != nil {
			return nil, err
		}
		// Differences may legitimately be -1, so emptiness follows the inputs.
		for i := range g.cells {
			if !a.cells[i].Valid || !b.cells[i].Valid {
				g.cells[i] = model.None()
			} else {
				g.cells[i] = model.Some(a.cells[i].Value - b.cells[i].Value)
			}
		}
		g.stats = computeStats(g.cells)
		return g, nil
	}

	cells := make([]model.Optional, len(a.cells))
	for i := range cells {
		cells[i] = a.cells[i].Sub(b.cells[i])
	}
	return FromOptional(cells, a.NumX, a.NumY, a.Property)
}
