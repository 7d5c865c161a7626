package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/cvmgrid/internal/model"
	"github.com/sells-group/cvmgrid/internal/store"
)

func TestFormatArtifactList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	arts := []store.Artifact{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			Base:      "la_basin_vs.png",
			Kind:      store.KindSlice,
			Model:     "cvmsi",
			Property:  "vs",
			NumX:      101,
			NumY:      81,
			Min:       model.Some(250.5),
			Max:       model.Some(3500),
			CreatedAt: now,
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Base:      "empty_cross",
			Kind:      store.KindCross,
			Model:     "cvmh",
			Property:  "vp",
			NumX:      10,
			NumY:      5,
			CreatedAt: now.Add(-time.Hour),
		},
	}

	var buf bytes.Buffer
	formatArtifactList(&buf, arts)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "KIND")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
	assert.Contains(t, output, "101x81")
	assert.Contains(t, output, "250.5")
	assert.Contains(t, output, "3500")
	assert.Contains(t, output, "la_basin_vs.png")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "cross")
}

func TestFormatOptional(t *testing.T) {
	assert.Equal(t, "-", formatOptional(model.None()))
	assert.Equal(t, "0", formatOptional(model.Some(0)))
	assert.Equal(t, "1.25", formatOptional(model.Some(1.25)))
	assert.Equal(t, "-1", formatOptional(model.Some(-1)))
	assert.Equal(t, "0.3333", formatOptional(model.Some(1.0/3)))
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789-0000-0000-000000000000"))
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "", truncateID(""))
}
