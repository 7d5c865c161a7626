package export

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/cvmgrid/internal/cache"
	"github.com/sells-group/cvmgrid/internal/grid"
	"github.com/sells-group/cvmgrid/internal/result"
)

// FeatureCollection builds one XYZ point feature per plan point. When g is
// given each feature carries its cell value, or null for no data.
func FeatureCollection(plan *grid.Plan, g *result.Grid) (*geojson.FeatureCollection, error) {
	if err := checkShape(plan, g); err != nil {
		return nil, err
	}
	fc := &geojson.FeatureCollection{
		BBox:     plan.Bounds(),
		Features: make([]*geojson.Feature, 0, plan.Len()),
	}
	for row := range plan.NumY {
		for col := range plan.NumX {
			pt := plan.At(row, col)
			props := map[string]any{
				"row":      row,
				"col":      col,
				"vertical": pt.Vertical().Label(),
			}
			if g != nil {
				props["property"] = g.Property
				if c := g.At(row, col); c.Valid {
					props["value"] = c.Value
				} else {
					props["value"] = nil
				}
			}
			fc.Features = append(fc.Features, &geojson.Feature{
				Geometry:   geom.NewPointFlat(geom.XYZ, []float64{pt.Longitude(), pt.Latitude(), pt.Z()}),
				Properties: props,
			})
		}
	}
	return fc, nil
}

// EncodeGeoJSON writes the feature collection for plan to w.
func EncodeGeoJSON(w io.Writer, plan *grid.Plan, g *result.Grid) error {
	fc, err := FeatureCollection(plan, g)
	if err != nil {
		return err
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrap(err, "export: encode geojson")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "export: write geojson")
	}
	return nil
}

// WriteGeoJSON replaces path with the feature collection for plan.
func WriteGeoJSON(path string, plan *grid.Plan, g *result.Grid) error {
	var buf bytes.Buffer
	if err := EncodeGeoJSON(&buf, plan, g); err != nil {
		return err
	}
	return cache.WriteFileAtomic(path, buf.Bytes())
}
