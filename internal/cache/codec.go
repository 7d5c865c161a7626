package cache

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cvmgrid/internal/model"
	"github.com/sells-group/cvmgrid/internal/result"
)

// Codec reads and writes grid artifacts under a directory. Relative base
// names resolve against Dir; absolute names are used as given.
type Codec struct {
	Dir string
}

// NewCodec returns a codec rooted at dir.
func NewCodec(dir string) *Codec {
	return &Codec{Dir: dir}
}

// Paths resolves the artifact files for base.
func (c *Codec) Paths(base string) Paths {
	if !filepath.IsAbs(base) && c.Dir != "" {
		base = filepath.Join(c.Dir, base)
	}
	return PathsFor(base)
}

// Exists reports whether both the data and meta files for base are present.
func (c *Codec) Exists(base string) bool {
	p := c.Paths(base)
	return exists(p.Data) && exists(p.Meta)
}

// Invalidate removes the meta sidecar for base. An artifact without its
// meta is never reused, so callers invalidate before rewriting any of its
// files.
func (c *Codec) Invalidate(base string) error {
	return removeIfExists(c.Paths(base).Meta)
}

// Export writes the grid payload as float32 and a meta sidecar. Dimensions,
// statistics and encoding in meta are overwritten from the grid. The meta
// is removed first and written last, so a failed export leaves no
// reusable artifact behind.
func (c *Codec) Export(g *result.Grid, base string, meta Meta) (Meta, error) {
	p := c.Paths(base)
	st := g.Stats()
	if err := c.Invalidate(base); err != nil {
		return meta, err
	}

	meta.NumX = g.NumX
	meta.NumY = g.NumY
	meta.Datapoints = g.Len()
	meta.Min, meta.Max, meta.Mean = model.None(), model.None(), model.None()
	if st.Count > 0 {
		meta.Min = model.Some(st.Min)
		meta.Max = model.Some(st.Max)
		meta.Mean = model.Some(st.Mean)
	}
	meta.Encoding = EncodingFloat32
	if meta.Property == "" {
		meta.Property = g.Property
	}

	values := g.Values()
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(float32(v)))
	}
	if err := WriteFileAtomic(p.Data, buf); err != nil {
		return meta, err
	}
	if err := c.WriteMeta(base, meta); err != nil {
		return meta, err
	}
	zap.L().Debug("cache: exported grid",
		zap.String("path", p.Data),
		zap.Int("num_x", g.NumX),
		zap.Int("num_y", g.NumY),
	)
	return meta, nil
}

// WriteMeta replaces the meta sidecar for base.
func (c *Codec) WriteMeta(base string, meta Meta) error {
	p := c.Paths(base)
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return eris.Wrap(err, "cache: encode meta")
	}
	return WriteFileAtomic(p.Meta, append(data, '\n'))
}

// LoadMeta reads the meta sidecar for base.
func (c *Codec) LoadMeta(base string) (Meta, error) {
	p := c.Paths(base)
	var meta Meta
	data, err := os.ReadFile(p.Meta)
	if err != nil {
		return meta, eris.Wrapf(model.ErrCacheFormat, "cache: read %s: %v", p.Meta, err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, eris.Wrapf(model.ErrCacheFormat, "cache: decode %s: %v", p.Meta, err)
	}
	return meta, nil
}

// Import reads the payload for base and reshapes it to numX by numY. The
// meta sidecar is optional; when present its dimensions must agree.
func (c *Codec) Import(base string, numX, numY int) (*result.Grid, Meta, error) {
	p := c.Paths(base)
	var meta Meta
	if exists(p.Meta) {
		m, err := c.LoadMeta(base)
		if err != nil {
			return nil, meta, err
		}
		meta = m
		if meta.NumX != 0 && (meta.NumX != numX || meta.NumY != numY) {
			return nil, meta, eris.Wrapf(model.ErrCacheFormat,
				"cache: %s describes a %dx%d grid, expected %dx%d", p.Meta, meta.NumX, meta.NumY, numX, numY)
		}
	}

	raw, err := os.ReadFile(p.Data)
	if err != nil {
		return nil, meta, eris.Wrapf(model.ErrCacheFormat, "cache: read %s: %v", p.Data, err)
	}
	values, err := decode(raw, numX*numY, meta.Encoding)
	if err != nil {
		return nil, meta, eris.Wrapf(err, "cache: %s", p.Data)
	}

	// Flagged artifacts mark no-data with NaN only; older ones used -1.
	cells := make([]model.Optional, len(values))
	for i, v := range values {
		switch {
		case meta.Encoding == "":
			cells[i] = model.FromSentinel(v)
		case !math.IsNaN(v):
			cells[i] = model.Some(v)
		}
	}
	g, err := result.FromOptional(cells, numX, numY, meta.Property)
	if err != nil {
		return nil, meta, eris.Wrapf(model.ErrCacheFormat, "cache: reshape %s: %v", p.Data, err)
	}
	return g, meta, nil
}

// Open imports base using the dimensions recorded in its meta sidecar.
func (c *Codec) Open(base string) (*result.Grid, Meta, error) {
	meta, err := c.LoadMeta(base)
	if err != nil {
		return nil, meta, err
	}
	return c.Import(base, meta.NumX, meta.NumY)
}

// decode interprets raw as want floats. Without an encoding flag a payload
// of exactly twice the expected float32 size is read as legacy float64.
func decode(raw []byte, want int, encoding string) ([]float64, error) {
	switch encoding {
	case EncodingFloat32:
		return decodeFloat32(raw, want)
	case EncodingFloat64:
		return decodeFloat64(raw, want)
	case "":
		if len(raw) == 8*want && want > 0 {
			zap.L().Warn("cache: reading unflagged artifact as legacy float64", zap.Int("values", want))
			return decodeFloat64(raw, want)
		}
		return decodeFloat32(raw, want)
	default:
		return nil, eris.Wrapf(model.ErrCacheFormat, "unknown encoding %q", encoding)
	}
}

func decodeFloat32(raw []byte, want int) ([]float64, error) {
	if len(raw)%4 != 0 || len(raw)/4 != want {
		return nil, eris.Wrapf(model.ErrCacheFormat, "holds %d bytes, want %d float32 values", len(raw), want)
	}
	vals := make([]float32, want)
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, vals); err != nil {
		return nil, eris.Wrapf(model.ErrCacheFormat, "decode float32: %v", err)
	}
	out := make([]float64, want)
	for i, v := range vals {
		out[i] = float64(v)
	}
	return out, nil
}

func decodeFloat64(raw []byte, want int) ([]float64, error) {
	if len(raw)%8 != 0 || len(raw)/8 != want {
		return nil, eris.Wrapf(model.ErrCacheFormat, "holds %d bytes, want %d float64 values", len(raw), want)
	}
	out := make([]float64, want)
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, out); err != nil {
		return nil, eris.Wrapf(model.ErrCacheFormat, "decode float64: %v", err)
	}
	return out, nil
}
