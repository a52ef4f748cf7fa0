package sizing

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/piwi3910/HydroSize/internal/engine"
	"github.com/piwi3910/HydroSize/internal/metrics"
	"github.com/piwi3910/HydroSize/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// value reads a counter or gauge.
func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	if out.Counter != nil {
		return out.Counter.GetValue()
	}
	return out.Gauge.GetValue()
}

func pt(x, y, z float64) model.Point3 { return model.Point3{X: x, Y: y, Z: z} }

// riserDrawing is a 5 m drop from the reservoir followed by a 4 m level run to
// a sink.
func riserDrawing() model.Drawing {
	r, a, b := pt(0, 0, 10), pt(0, 0, 5), pt(4, 0, 5)
	return model.Drawing{
		Segments: []model.RawSegment{{Start: r, End: a}, {Start: a, End: b}},
		Labels: []model.RawLabel{
			{Text: "res", Position: r},
			{Text: "1", Position: a},
			{Text: "2", Position: b},
			{Text: "pt1", Position: b},
		},
	}
}

func testTables() *model.Tables {
	t := &model.Tables{
		Fixtures: []model.FixtureRow{{Name: "Pia", Sigla: "pt", DesignFlow: 0.00025, Weight: 0.7}},
		FlowDiameters: []model.FlowDiameterRow{
			{Nominal: 20, Internal: 0.017, Area: 0.000227, Flow: 0.0005},
			{Nominal: 25, Internal: 0.0216, Area: 0.000366, Flow: 0.001},
			{Nominal: 32, Internal: 0.0278, Area: 0.000607, Flow: 0.002},
		},
		Reductions: []model.ReductionRow{
			{Entry: 25, Exit: 20, Coefficient: 0.15},
			{Entry: 32, Exit: 25, Coefficient: 0.15},
			{Entry: 32, Exit: 20, Coefficient: 0.3},
		},
	}
	for i, d := range []float64{20, 25, 32} {
		k := float64(i)
		t.FittingLosses = append(t.FittingLosses, model.FittingLossRow{
			Nominal: d, Elbow90: 1.1 + k*0.1, Elbow45: 0.4, TeeThrough: 0.7, TeeBranch: 2.3, Entry: 0.3 + k*0.1,
		})
		t.Prices = append(t.Prices,
			model.PriceRow{Entry: d, Type: model.PricePipe, Price: 2 + 2*k},
			model.PriceRow{Entry: d, Type: model.PriceElbow90, Price: 1 + k},
		)
	}
	t.Prices = append(t.Prices,
		model.PriceRow{Entry: 25, Exit: 20, Type: model.PriceReducer, Price: 1.5},
		model.PriceRow{Entry: 32, Exit: 25, Type: model.PriceReducer, Price: 2},
	)
	return t
}

func TestRun_Optimal(t *testing.T) {
	reg := metrics.NewRegistry()
	in := Input{Drawing: riserDrawing(), Tables: testTables(), Settings: model.DefaultSettings()}

	out, err := Run(context.Background(), in, Options{Logger: testLogger(), Metrics: reg})

	require.NoError(t, err)
	res := out.Result
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, model.StatusOptimal, res.Status)
	require.Len(t, res.Segments, 2)
	for _, s := range res.Segments {
		assert.Equal(t, 20.0, s.Nominal, "cheapest diameter is hydraulically sufficient")
		assert.Nil(t, s.Reduction)
	}
	require.Len(t, res.Paths, 1)
	assert.Equal(t, "pt1", res.Paths[0].Label)
	assert.True(t, res.Paths[0].Resolved)
	assert.Greater(t, res.Paths[0].Margin, 0.0)
	assert.Empty(t, res.Unresolved)
	assert.InDelta(t, 5*2+4*2+1, res.TotalCost, 1e-9)

	assert.Len(t, out.Selection, 2)
	assert.NotNil(t, out.Network)

	assert.Equal(t, 1.0, value(t, reg.RunsTotal.WithLabelValues("optimal")))
	assert.Equal(t, 2.0, value(t, reg.SegmentsTotal))
	assert.Equal(t, 1.0, value(t, reg.PathsTotal))
	assert.InDelta(t, res.TotalCost, value(t, reg.TotalCost), 1e-9)

	assert.Equal(t, 6.0, value(t, reg.ModelVariables))
	assert.Positive(t, value(t, reg.ModelConstraints))
	var nodes dto.Metric
	require.NoError(t, reg.SolverNodes.Write(&nodes))
	assert.Equal(t, uint64(1), nodes.GetHistogram().GetSampleCount())
}

func TestRun_InfeasibleReportsStatus(t *testing.T) {
	tables := testTables()
	high := 6.0
	tables.Fixtures[0].MinPressure = &high
	in := Input{Drawing: riserDrawing(), Tables: tables, Settings: model.DefaultSettings()}
	reg := metrics.NewRegistry()

	out, err := Run(context.Background(), in, Options{Logger: testLogger(), Metrics: reg})

	require.ErrorIs(t, err, engine.ErrInfeasible)
	assert.Equal(t, model.StatusInfeasible, out.Result.Status)
	assert.Empty(t, out.Result.Segments)
	assert.Nil(t, out.Selection)
	assert.Equal(t, 1.0, value(t, reg.RunsTotal.WithLabelValues("infeasible")))
}

type stoppedSolver struct{}

func (stoppedSolver) Solve(context.Context, *engine.Model) (engine.Solution, error) {
	return engine.Solution{Status: engine.SolveNodeLimit, Nodes: 3}, nil
}

func TestRun_StoppedSolver(t *testing.T) {
	in := Input{Drawing: riserDrawing(), Tables: testTables(), Settings: model.DefaultSettings()}

	out, err := Run(context.Background(), in, Options{Solver: stoppedSolver{}})

	require.ErrorIs(t, err, engine.ErrSolverStopped)
	assert.ErrorIs(t, err, engine.ErrInfeasible)
	assert.Equal(t, model.StatusStopped, out.Result.Status)
}

func TestRun_EmptyDrawing(t *testing.T) {
	out, err := Run(context.Background(), Input{Settings: model.DefaultSettings()}, Options{})

	require.ErrorIs(t, err, ErrNoSegments)
	assert.Equal(t, model.StatusError, out.Result.Status)
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	in := Input{Drawing: riserDrawing(), Tables: testTables(), Settings: model.DefaultSettings()}

	_, err := Run(ctx, in, Options{})

	require.ErrorIs(t, err, context.Canceled)
}

func TestPrepare(t *testing.T) {
	in := Input{Drawing: riserDrawing(), Tables: testTables(), Settings: model.DefaultSettings()}

	net, err := Prepare(context.Background(), in, Options{Logger: testLogger()})

	require.NoError(t, err)
	require.Len(t, net.Segments, 2)
	for _, s := range net.Segments {
		assert.Equal(t, []float64{20, 25, 32}, s.Candidates.Nominal)
		assert.Len(t, s.Candidates.Price, 3)
	}
	dn := net.Segments[1]
	assert.True(t, dn.ReductionsResolved)
	require.Len(t, dn.Reductions, 3, "every step-down with a coefficient is kept")
	r, ok := dn.FindReduction(32, 20, 1e-6)
	require.True(t, ok)
	assert.Equal(t, 100.0, r.Price, "unpriced reducer falls back to the sentinel")
	r, ok = dn.FindReduction(25, 20, 1e-6)
	require.True(t, ok)
	assert.Equal(t, 1.5, r.Price)
}
