package engine

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cvmgrid/internal/model"
)

// infoMarkers identify lines the engine prints for humans.
var infoMarkers = []string{
	"WARNING",
	"slow performance",
	"Using Geo",
}

// Record is one parsed data line. Which field is set depends on the mode's
// Output kind.
type Record struct {
	Material model.MaterialProperty
	Value    model.Optional
	Line     string
}

// EncodePoints renders points in the engine's input format, one per line,
// in order.
func EncodePoints(points []model.Point, lonLatOnly bool) []byte {
	var buf bytes.Buffer
	buf.Grow(len(points) * 36)
	for _, p := range points {
		if lonLatOnly {
			fmt.Fprintf(&buf, "%.5f %.5f\n", p.Longitude(), p.Latitude())
			continue
		}
		fmt.Fprintf(&buf, "%.5f %.5f %.5f\n", p.Longitude(), p.Latitude(), p.Z())
	}
	return buf.Bytes()
}

// IsInformational reports whether a reply line is informational text.
func IsInformational(line string) bool {
	for _, m := range infoMarkers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}

// DataLines drops the banner and informational lines from raw engine
// output and checks that every remaining line starts with a number.
func DataLines(output []byte, banner int) ([]string, error) {
	lines := strings.Split(string(output), "\n")
	if n := len(lines); n > 0 && strings.TrimSpace(lines[n-1]) == "" {
		lines = lines[:n-1]
	}
	if banner > len(lines) {
		banner = len(lines)
	}
	lines = lines[banner:]

	data := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if IsInformational(line) {
			zap.L().Debug("engine: skipping informational line", zap.String("line", line))
			continue
		}
		first := strings.Fields(line)[0]
		if _, err := strconv.ParseFloat(first, 64); err != nil {
			return nil, eris.Wrapf(model.ErrProtocol, "engine: unexpected output line %q", line)
		}
		data = append(data, line)
	}
	return data, nil
}

// ParseLine converts one data line into a Record for the given output kind.
func ParseLine(line string, mode Mode) (Record, error) {
	switch mode.Output {
	case OutputRaw:
		return Record{Line: line}, nil
	case OutputMaterial:
		mp, err := model.ParseMaterialFields(strings.Fields(line), Columns.Vp, Columns.Vs, Columns.Density)
		if err != nil {
			return Record{}, eris.Wrapf(err, "engine: parse line %q", line)
		}
		return Record{Material: mp, Line: line}, nil
	case OutputScalar:
		fields := strings.Fields(line)
		if mode.Column >= len(fields) {
			return Record{}, eris.Wrapf(model.ErrProtocol,
				"engine: line %q has %d columns, need column %d", line, len(fields), mode.Column)
		}
		v, err := strconv.ParseFloat(fields[mode.Column], 64)
		if err != nil {
			return Record{}, eris.Wrapf(model.ErrProtocol, "engine: column %d of %q is not a number", mode.Column, line)
		}
		return Record{Value: model.FromSentinel(v), Line: line}, nil
	default:
		return Record{}, eris.Wrapf(model.ErrConfiguration, "engine: unknown output kind %d", mode.Output)
	}
}

// ParseOutput turns raw engine output into exactly want records, in order.
func ParseOutput(output []byte, mode Mode, want int) ([]Record, error) {
	lines, err := DataLines(output, mode.Banner)
	if err != nil {
		return nil, err
	}
	if len(lines) != want {
		return nil, eris.Wrapf(model.ErrProtocol,
			"engine: %s query returned %d data lines for %d points", mode.Name, len(lines), want)
	}
	records := make([]Record, len(lines))
	for i, line := range lines {
		rec, err := ParseLine(line, mode)
		if err != nil {
			return nil, err
		}
		records[i] = rec
	}
	return records, nil
}
