package cache

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cvmgrid/internal/model"
)

type matpropsFile struct {
	Matprops []model.MaterialProperty `json:"matprops"`
}

// ExportMatprops writes a profile's material records to <base>_matprops.json.
func (c *Codec) ExportMatprops(base string, props []model.MaterialProperty) error {
	data, err := json.MarshalIndent(matpropsFile{Matprops: props}, "", "  ")
	if err != nil {
		return eris.Wrap(err, "cache: encode matprops")
	}
	return WriteFileAtomic(c.Paths(base).Matprops, append(data, '\n'))
}

// ImportMatprops reads records written by ExportMatprops.
func (c *Codec) ImportMatprops(base string) ([]model.MaterialProperty, error) {
	path := c.Paths(base).Matprops
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(model.ErrCacheFormat, "cache: read %s: %v", path, err)
	}
	var f matpropsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(model.ErrCacheFormat, "cache: decode %s: %v", path, err)
	}
	if f.Matprops == nil {
		return nil, eris.Wrapf(model.ErrCacheFormat, "cache: %s has no matprops list", path)
	}
	return f.Matprops, nil
}

// HasMatprops reports whether a profile cache exists for base.
func (c *Codec) HasMatprops(base string) bool {
	return exists(c.Paths(base).Matprops)
}
