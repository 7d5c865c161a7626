package cache

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Artifact file suffixes.
const (
	suffixData     = "_data.bin"
	suffixMeta     = "_meta.json"
	suffixMatprops = "_matprops.json"
)

// Paths holds the files that make up one artifact.
type Paths struct {
	Stem     string
	Data     string
	Meta     string
	Matprops string
}

// PathsFor maps a base name to its artifact files. An image name such as
// "slice.png" maps to "slice_data.bin"; a name ending in ".bin" is used as
// the data file directly.
func PathsFor(base string) Paths {
	if strings.HasSuffix(base, ".bin") {
		stem := strings.TrimSuffix(strings.TrimSuffix(base, ".bin"), "_data")
		return Paths{Stem: stem, Data: base, Meta: stem + suffixMeta, Matprops: stem + suffixMatprops}
	}
	stem := strings.TrimSuffix(base, ".png")
	return Paths{
		Stem:     stem,
		Data:     stem + suffixData,
		Meta:     stem + suffixMeta,
		Matprops: stem + suffixMatprops,
	}
}

// WriteFileAtomic replaces path with data in one rename so readers never
// see a partial file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "cache: create dir %s", dir)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return eris.Wrapf(err, "cache: create temp for %s", path)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return eris.Wrapf(err, "cache: write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "cache: close %s", path)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return eris.Wrapf(err, "cache: chmod %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "cache: replace %s", path)
	}
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return eris.Wrapf(err, "cache: remove %s", path)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
