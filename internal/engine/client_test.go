package engine

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cvmgrid/internal/model"
)

// stubBackend records invocations and answers with a canned function.
type stubBackend struct {
	calls  []Invocation
	inputs []string
	reply  func(inv Invocation, stdin []byte) ([]byte, error)
}

func (s *stubBackend) Run(_ context.Context, inv Invocation, stdin []byte) ([]byte, error) {
	s.calls = append(s.calls, inv)
	s.inputs = append(s.inputs, string(stdin))
	return s.reply(inv, stdin)
}

// echoReply answers one line per input point with a banner, an interleaved
// warning, and vp/vs/density derived from the input line number.
func echoReply(banner bool) func(Invocation, []byte) ([]byte, error) {
	return func(_ Invocation, stdin []byte) ([]byte, error) {
		var out bytes.Buffer
		if banner {
			out.WriteString("Using Geo Depth coordinates as default mode.\n")
		}
		sc := bufio.NewScanner(bytes.NewReader(stdin))
		i := 0
		for sc.Scan() {
			f := strings.Fields(sc.Text())
			if i == 1 {
				out.WriteString("WARNING: point near model edge\n")
			}
			// lon lat z, 11 filler columns, vp vs density.
			fmt.Fprintf(&out, "%s %s %s 0 0 m 0 0 0 n 0 0 0 c %d.5 %d.25 %d.0\n",
				f[0], f[1], f[len(f)-1], 1000+i, 500+i, 2000+i)
			i++
		}
		return out.Bytes(), nil
	}
}

func points(n int) []model.Point {
	pts := make([]model.Point, n)
	for i := range pts {
		pts[i] = model.MustPoint(-118+float64(i)*0.1, 34, float64(i*100), model.Depth)
	}
	return pts
}

func TestClient_MaterialsPreservesOrder(t *testing.T) {
	stub := &stubBackend{reply: echoReply(true)}
	c := NewClient(Config{InstallDir: "/opt/ucvm"}, stub)

	pts := points(5)
	mats, err := c.Materials(context.Background(), "cvms5", pts)
	require.NoError(t, err)
	require.Len(t, mats, len(pts))

	for i, m := range mats {
		assert.Equal(t, float64(1000+i)+0.5, m.Vp)
		assert.Equal(t, float64(500+i)+0.25, m.Vs)
		assert.Equal(t, float64(2000+i), m.Density)
	}

	require.Len(t, stub.calls, 1)
	assert.Equal(t, "/opt/ucvm/bin/run_ucvm_query.sh", stub.calls[0].Program)
	assert.Equal(t, []string{"-f", "/opt/ucvm/conf/ucvm.conf", "-m", "cvms5", "-c", "gd"}, stub.calls[0].Args)
	assert.Equal(t, string(EncodePoints(pts, false)), stub.inputs[0])
}

func TestClient_ElevationModeAndZRange(t *testing.T) {
	stub := &stubBackend{reply: echoReply(true)}
	c := NewClient(Config{InstallDir: "/opt/ucvm", ZRange: "0,350"}, stub)

	p := model.MustPoint(-118, 34, 120, model.Elevation)
	_, err := c.QueryOne(context.Background(), ModeMaterial, "cvmh", p)
	require.NoError(t, err)
	assert.Equal(t, []string{"-f", "/opt/ucvm/conf/ucvm.conf", "-m", "cvmh", "-c", "ge", "-z", "0,350"}, stub.calls[0].Args)
}

func TestClient_QueryOneUnwraps(t *testing.T) {
	stub := &stubBackend{reply: func(Invocation, []byte) ([]byte, error) {
		return []byte("banner\n" + sampleLine + "\n"), nil
	}}
	c := NewClient(Config{}, stub)

	rec, err := c.QueryOne(context.Background(), ModeMaterial, "cvmh", model.MustPoint(-118, 34, 0, model.Depth))
	require.NoError(t, err)
	assert.Equal(t, model.NewMaterialProperty(696.491, 213.000, 1974.976), rec.Material)
}

func TestClient_BasinDepthArgs(t *testing.T) {
	stub := &stubBackend{reply: func(_ Invocation, stdin []byte) ([]byte, error) {
		assert.Equal(t, "-118.00000 34.00000\n", string(stdin))
		return []byte("-118.00000 34.00000 850.0\n"), nil
	}}
	c := NewClient(Config{BinDir: "/bin/ucvm", ConfigFile: "/etc/ucvm.conf"}, stub)

	vals, err := c.BasinDepth(context.Background(), "cvms5", []model.Point{model.MustPoint(-118, 34, 0, model.Depth)}, 1000)
	require.NoError(t, err)
	assert.Equal(t, []model.Optional{model.Some(850)}, vals)
	assert.Equal(t, "/bin/ucvm/basin_query", stub.calls[0].Program)
	assert.Equal(t, []string{"-f", "/etc/ucvm.conf", "-m", "cvms5", "-v", "1000"}, stub.calls[0].Args)
}

func TestClient_Vs30AndRaw(t *testing.T) {
	stub := &stubBackend{reply: func(inv Invocation, stdin []byte) ([]byte, error) {
		if strings.HasSuffix(inv.Program, ProgramVs30) {
			return []byte("-118.0 34.0 310.0\n-117.9 34.0 -1\n"), nil
		}
		return []byte("banner\n1 a b\n2 c d\n"), nil
	}}
	c := NewClient(Config{}, stub)

	vals, err := c.Vs30(context.Background(), "cvms5", points(2))
	require.NoError(t, err)
	assert.Equal(t, []model.Optional{model.Some(310), model.None()}, vals)

	lines, err := c.Raw(context.Background(), "cvms5", points(2))
	require.NoError(t, err)
	assert.Equal(t, []string{"1 a b", "2 c d"}, lines)
}

func TestClient_Validation(t *testing.T) {
	stub := &stubBackend{reply: echoReply(true)}
	c := NewClient(Config{}, stub)
	ctx := context.Background()

	_, err := c.Query(ctx, Request{Mode: ModeMaterial, Model: "cvms5"})
	assert.True(t, eris.Is(err, model.ErrConfiguration))

	_, err = c.Query(ctx, Request{Mode: ModeMaterial, Points: points(1)})
	assert.True(t, eris.Is(err, model.ErrConfiguration))

	_, err = c.Query(ctx, Request{Mode: ModeBasinDepth, Model: "cvms5", Points: points(1)})
	assert.True(t, eris.Is(err, model.ErrConfiguration))

	mixed := []model.Point{model.MustPoint(-118, 34, 0, model.Depth), model.MustPoint(-118, 34, 0, model.Elevation)}
	_, err = c.Query(ctx, Request{Mode: ModeMaterial, Model: "cvms5", Points: mixed})
	assert.True(t, eris.Is(err, model.ErrConfiguration))

	assert.Empty(t, stub.calls, "no engine call on configuration errors")
}

func TestClient_BackendErrorNotRetried(t *testing.T) {
	stub := &stubBackend{reply: func(Invocation, []byte) ([]byte, error) {
		return nil, eris.Wrap(model.ErrProtocol, "engine exited with status 1")
	}}
	c := NewClient(Config{}, stub)

	_, err := c.Materials(context.Background(), "cvms5", points(3))
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrProtocol))
	assert.Len(t, stub.calls, 1)
}

func TestClient_ShortReply(t *testing.T) {
	stub := &stubBackend{reply: func(Invocation, []byte) ([]byte, error) {
		return []byte("banner\n" + sampleLine + "\n"), nil
	}}
	c := NewClient(Config{}, stub)

	_, err := c.Materials(context.Background(), "cvms5", points(3))
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrProtocol))
}

func TestClient_Models(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"cvms5", "ucvm", "cvmh"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "model", name), 0o755), name)
	}

	c := NewClient(Config{InstallDir: dir}, &stubBackend{})
	models, err := c.Models()
	require.NoError(t, err)
	assert.Equal(t, []string{"cvmh", "cvms5"}, models)

	_, err = NewClient(Config{ModelDir: filepath.Join(dir, "missing")}, &stubBackend{}).Models()
	assert.True(t, eris.Is(err, model.ErrConfiguration))
}
