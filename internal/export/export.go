// Package export writes sample points and grid values in formats read by
// GIS and spreadsheet tools.
package export

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/cvmgrid/internal/grid"
	"github.com/sells-group/cvmgrid/internal/model"
	"github.com/sells-group/cvmgrid/internal/result"
)

// Paths are the export files derived from an artifact base name.
type Paths struct {
	GeoJSON   string
	Shapefile string
	XLSX      string
}

// PathsFor maps base (with or without a .png suffix) to export files.
func PathsFor(base string) Paths {
	stem := strings.TrimSuffix(base, ".png")
	return Paths{
		GeoJSON:   stem + "_points.geojson",
		Shapefile: stem + "_points.shp",
		XLSX:      stem + ".xlsx",
	}
}

var units = map[string]string{
	model.PropVp:      "m/s",
	model.PropVs:      "m/s",
	model.PropDensity: "kg/m^3",
	"vs30":            "m/s",
	"basin_depth":     "m",
	"elevation":       "m",
}

var acronyms = map[string]string{
	model.PropVp:   "Vp",
	model.PropVs:   "Vs",
	model.PropVpVs: "Vp/Vs",
	model.PropQp:   "Qp",
	model.PropQs:   "Qs",
	"vs30":         "Vs30",
}

// Label renders a property name for column headers and sheet titles.
func Label(property string) string {
	name, ok := acronyms[strings.ToLower(property)]
	if !ok {
		// A Caser keeps state between calls, so each label gets its own.
		name = cases.Title(language.English).String(strings.ReplaceAll(property, "_", " "))
	}
	if u, ok := units[strings.ToLower(property)]; ok {
		return fmt.Sprintf("%s (%s)", name, u)
	}
	return name
}

// Units returns the display units of a property, or "".
func Units(property string) string {
	return units[strings.ToLower(property)]
}

// checkShape rejects a grid that does not line up with the plan. A nil grid
// exports points only.
func checkShape(plan *grid.Plan, g *result.Grid) error {
	if plan == nil || plan.Len() == 0 {
		return eris.Wrap(model.ErrConfiguration, "export: empty plan")
	}
	if g == nil {
		return nil
	}
	if g.NumX != plan.NumX || g.NumY != plan.NumY {
		return eris.Wrapf(model.ErrConfiguration,
			"export: %dx%d grid does not match %dx%d plan", g.NumX, g.NumY, plan.NumX, plan.NumY)
	}
	return nil
}
