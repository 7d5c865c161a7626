package cache

import (
	"encoding/json"

	"gonum.org/v1/gonum/floats"

	"github.com/sells-group/cvmgrid/internal/model"
)

// Binary encodings recorded in Meta.Encoding.
const (
	EncodingFloat32 = "float32"
	EncodingFloat64 = "float64"
)

// Meta is the human-diffable sidecar describing a binary grid artifact.
// Fields this version does not know about are kept in Extra and written
// back unchanged.
type Meta struct {
	NumX       int            `json:"num_x"`
	NumY       int            `json:"num_y"`
	Datapoints int            `json:"datapoints"`
	Min        model.Optional `json:"min"`
	Max        model.Optional `json:"max"`
	Mean       model.Optional `json:"mean"`
	LonList    []float64      `json:"lon_list,omitempty"`
	LatList    []float64      `json:"lat_list,omitempty"`
	DepthList  []float64      `json:"depth_list,omitempty"`
	Title      string         `json:"title,omitempty"`
	Units      string         `json:"units,omitempty"`
	Property   string         `json:"property,omitempty"`
	Model      string         `json:"model,omitempty"`
	Encoding   string         `json:"encoding,omitempty"`
	Geometry   *Geometry      `json:"geometry,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// metaFields mirrors Meta without the custom marshalers.
type metaFields Meta

var knownKeys = []string{
	"num_x", "num_y", "datapoints", "min", "max", "mean",
	"lon_list", "lat_list", "depth_list",
	"title", "units", "property", "model", "encoding", "geometry",
}

// MarshalJSON writes the known fields followed by any extras.
func (m Meta) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(metaFields(m))
	if err != nil {
		return nil, err
	}
	if len(m.Extra) == 0 {
		return known, nil
	}
	merged := make(map[string]json.RawMessage, len(m.Extra)+len(knownKeys))
	for k, v := range m.Extra {
		merged[k] = v
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON reads the known fields and keeps the rest in Extra.
func (m *Meta) UnmarshalJSON(data []byte) error {
	var fields metaFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range knownKeys {
		delete(all, k)
	}
	*m = Meta(fields)
	if len(all) > 0 {
		m.Extra = all
	}
	return nil
}

// SetExtra stores an arbitrary JSON-encodable value under key.
func (m *Meta) SetExtra(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if m.Extra == nil {
		m.Extra = make(map[string]json.RawMessage)
	}
	m.Extra[key] = data
	return nil
}

// geometryTol absorbs float formatting noise in recorded coordinates.
const geometryTol = 1e-9

// Geometry records where an artifact's cells were sampled. Two requests
// with equal geometry sample the same points in the same order.
type Geometry struct {
	Kind     string    `json:"kind"`
	Vertical string    `json:"vertical"`
	LonList  []float64 `json:"lon_list"`
	LatList  []float64 `json:"lat_list"`
	ZList    []float64 `json:"z_list"`

	// VsThreshold is the basin depth threshold the cells were queried with.
	VsThreshold float64 `json:"vs_threshold,omitempty"`
}

// Equal reports whether g and o describe the same sample points. A nil
// geometry only equals another nil.
func (g *Geometry) Equal(o *Geometry) bool {
	if g == nil || o == nil {
		return g == o
	}
	return g.Kind == o.Kind &&
		g.Vertical == o.Vertical &&
		g.VsThreshold == o.VsThreshold &&
		floats.EqualApprox(g.LonList, o.LonList, geometryTol) &&
		floats.EqualApprox(g.LatList, o.LatList, geometryTol) &&
		floats.EqualApprox(g.ZList, o.ZList, geometryTol)
}
