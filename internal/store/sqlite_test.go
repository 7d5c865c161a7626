package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cvmgrid/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleArtifact(base string) Artifact {
	return Artifact{
		Base:     base,
		Kind:     KindSlice,
		Model:    "cvmsi",
		Property: model.PropVs,
		NumX:     3,
		NumY:     2,
		Min:      model.Some(213),
		Max:      model.Some(1974.5),
		Mean:     model.Some(800.25),
	}
}

func TestSQLite_RecordAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	rec, err := st.RecordArtifact(ctx, sampleArtifact("out/slice.png"))
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)

	got, err := st.GetArtifact(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "out/slice.png", got.Base)
	assert.Equal(t, KindSlice, got.Kind)
	assert.Equal(t, 3, got.NumX)
	assert.Equal(t, 2, got.NumY)
	assert.Equal(t, model.Some(213), got.Min)
	assert.Equal(t, model.Some(1974.5), got.Max)
	assert.Equal(t, model.Some(800.25), got.Mean)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSQLite_NullStats(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := sampleArtifact("empty")
	a.Min, a.Max, a.Mean = model.None(), model.None(), model.None()
	rec, err := st.RecordArtifact(ctx, a)
	require.NoError(t, err)

	got, err := st.GetArtifact(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, got.Min.Valid)
	assert.False(t, got.Max.Valid)
	assert.False(t, got.Mean.Valid)
}

func TestSQLite_RecordReplacesSameBase(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := st.RecordArtifact(ctx, sampleArtifact("slice"))
	require.NoError(t, err)

	second := sampleArtifact("slice")
	second.Property = model.PropVp
	rec, err := st.RecordArtifact(ctx, second)
	require.NoError(t, err)

	list, err := st.ListArtifacts(ctx, ArtifactFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, rec.ID, list[0].ID)
	assert.Equal(t, model.PropVp, list[0].Property)

	_, err = st.GetArtifact(ctx, first.ID)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_FindArtifact(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.RecordArtifact(ctx, sampleArtifact("a"))
	require.NoError(t, err)

	got, err := st.FindArtifact(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Base)

	_, err = st.FindArtifact(ctx, "missing")
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_ListFilters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for i, base := range []string{"s1", "s2", "x1"} {
		a := sampleArtifact(base)
		if i == 2 {
			a.Kind = KindCross
			a.Model = "cvmh"
		}
		_, err := st.RecordArtifact(ctx, a)
		require.NoError(t, err)
	}

	all, err := st.ListArtifacts(ctx, ArtifactFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	slices, err := st.ListArtifacts(ctx, ArtifactFilter{Kind: KindSlice})
	require.NoError(t, err)
	assert.Len(t, slices, 2)

	cvmh, err := st.ListArtifacts(ctx, ArtifactFilter{Model: "cvmh"})
	require.NoError(t, err)
	require.Len(t, cvmh, 1)
	assert.Equal(t, "x1", cvmh[0].Base)

	limited, err := st.ListArtifacts(ctx, ArtifactFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLite_DeleteArtifact(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	rec, err := st.RecordArtifact(ctx, sampleArtifact("gone"))
	require.NoError(t, err)
	require.NoError(t, st.DeleteArtifact(ctx, rec.ID))

	err = st.DeleteArtifact(ctx, rec.ID)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_ImplementsStore(t *testing.T) {
	var _ Store = (*SQLiteStore)(nil)
}
