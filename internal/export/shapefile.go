package export

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/cvmgrid/internal/grid"
	"github.com/sells-group/cvmgrid/internal/result"
)

// dBase field names are limited to ten characters.
var shapeFields = []shp.Field{
	shp.NumberField("ROW", 9),
	shp.NumberField("COL", 9),
	shp.FloatField("Z", 14, 3),
	shp.FloatField("VALUE", 18, 6),
	shp.NumberField("HAS_VALUE", 1),
}

// shapeParts are the files shp.Create writes next to each other.
var shapeParts = []string{".shp", ".shx", ".dbf"}

// WriteShapefile writes plan points to an ESRI point shapefile at path
// (plus the .shx and .dbf companions). Z and the cell value are attributes.
// The files are built in a scratch directory beside path and renamed into
// place only once all of them are complete.
func WriteShapefile(path string, plan *grid.Plan, g *result.Grid) error {
	if err := checkShape(plan, g); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "export: create dir %s", dir)
	}
	scratch, err := os.MkdirTemp(dir, ".shp-*")
	if err != nil {
		return eris.Wrapf(err, "export: scratch dir for %s", path)
	}
	defer func() { _ = os.RemoveAll(scratch) }()

	tmp := filepath.Join(scratch, filepath.Base(path))
	if err := writeShapefile(tmp, plan, g); err != nil {
		return err
	}

	stem := strings.TrimSuffix(path, filepath.Ext(path))
	tmpStem := strings.TrimSuffix(tmp, filepath.Ext(tmp))
	for _, ext := range shapeParts {
		if err := os.Rename(tmpStem+ext, stem+ext); err != nil {
			return eris.Wrapf(err, "export: replace %s", stem+ext)
		}
	}
	return nil
}

func writeShapefile(path string, plan *grid.Plan, g *result.Grid) error {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return eris.Wrapf(err, "export: create shapefile %s", path)
	}
	defer w.Close()

	if err := w.SetFields(shapeFields); err != nil {
		return eris.Wrapf(err, "export: set fields %s", path)
	}

	for row := range plan.NumY {
		for col := range plan.NumX {
			pt := plan.At(row, col)
			n := int(w.Write(&shp.Point{X: pt.Longitude(), Y: pt.Latitude()}))

			value, has := 0.0, 0
			if g != nil {
				if c := g.At(row, col); c.Valid {
					value, has = c.Value, 1
				}
			}
			attrs := []any{row, col, pt.Z(), value, has}
			for field, v := range attrs {
				if err := w.WriteAttribute(n, field, v); err != nil {
					return eris.Wrapf(err, "export: write attribute %d of point %d", field, n)
				}
			}
		}
	}
	return nil
}
