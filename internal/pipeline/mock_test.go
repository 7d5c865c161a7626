package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/cvmgrid/internal/engine"
	"github.com/sells-group/cvmgrid/internal/model"
)

// --- Engine Mock ---

type mockQuerier struct {
	mock.Mock
}

func (m *mockQuerier) Query(ctx context.Context, req engine.Request) ([]engine.Record, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]engine.Record), args.Error(1)
}

// materialRecords returns n records with vs = 100*(i+1).
func materialRecords(n int) []engine.Record {
	out := make([]engine.Record, n)
	for i := range out {
		vs := float64(100 * (i + 1))
		out[i] = engine.Record{Material: model.NewMaterialProperty(2*vs, vs, 2000)}
	}
	return out
}

func materials(n int) []model.MaterialProperty {
	out := make([]model.MaterialProperty, n)
	for i, r := range materialRecords(n) {
		out[i] = r.Material
	}
	return out
}

func scalarRecords(vals ...float64) []engine.Record {
	out := make([]engine.Record, len(vals))
	for i, v := range vals {
		out[i] = engine.Record{Value: model.FromSentinel(v)}
	}
	return out
}

func modeIs(name string) any {
	return mock.MatchedBy(func(req engine.Request) bool { return req.Mode.Name == name })
}
