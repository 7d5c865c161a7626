package export

import (
	"bytes"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/cvmgrid/internal/cache"
	"github.com/sells-group/cvmgrid/internal/grid"
	"github.com/sells-group/cvmgrid/internal/result"
)

// maxSheetName is the longest sheet title Excel accepts.
const maxSheetName = 31

// Workbook lays the grid out with one sheet row per grid row. The header
// row holds longitudes; the first column holds the row's latitude, or its
// level for cross sections and profiles. Empty cells mark no data.
func Workbook(plan *grid.Plan, g *result.Grid) (*xlsx.File, error) {
	if g == nil {
		return nil, eris.New("export: workbook needs a grid")
	}
	if err := checkShape(plan, g); err != nil {
		return nil, err
	}

	name := Label(g.Property)
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sanitizeSheetName(name))
	if err != nil {
		return nil, eris.Wrap(err, "export: add sheet")
	}

	corner := "lat \\ lon"
	if plan.RowLevels() {
		corner = plan.Vertical.Label() + " \\ lon"
	}
	header := sheet.AddRow()
	header.AddCell().SetString(corner)
	for col := range plan.NumX {
		header.AddCell().SetFloat(plan.At(0, col).Longitude())
	}

	for row := range plan.NumY {
		r := sheet.AddRow()
		first := plan.At(row, 0)
		if plan.RowLevels() {
			r.AddCell().SetFloat(first.Z())
		} else {
			r.AddCell().SetFloat(first.Latitude())
		}
		for col := range plan.NumX {
			cell := r.AddCell()
			if c := g.At(row, col); c.Valid {
				cell.SetFloat(c.Value)
			}
		}
	}
	return f, nil
}

// WriteXLSX replaces path with the grid workbook.
func WriteXLSX(path string, plan *grid.Plan, g *result.Grid) error {
	f, err := Workbook(plan, g)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return eris.Wrapf(err, "export: encode %s", path)
	}
	return cache.WriteFileAtomic(path, buf.Bytes())
}

func sanitizeSheetName(s string) string {
	out := []rune(s)
	for i, r := range out {
		switch r {
		case '/', '\\', '?', '*', '[', ']', ':':
			out[i] = '-'
		}
	}
	return string(out)
}
