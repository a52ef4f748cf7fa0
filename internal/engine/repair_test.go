package engine

import (
	"testing"

	"github.com/piwi3910/HydroSize/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepair_EnlargesNearestReduction(t *testing.T) {
	s := testSettings()
	net, up, dn := twoSegmentNetwork(2.1)
	sel := model.Selection{up.Key(): 0, dn.Key(): 0}
	ApplyReductions(net, sel, s, nil)
	require.InDelta(t, 2.2, PathLoss(net, net.Paths[0], sel), 1e-9)

	out := Repair(net, sel, s, nil)

	require.Len(t, out, 1)
	assert.True(t, out[0].Resolved)
	assert.Equal(t, 1, out[0].Iterations)
	assert.InDelta(t, 0.6, out[0].Margin, 1e-9)
	assert.Equal(t, 1, sel[dn.Key()])
	assert.Empty(t, dn.Ledger, "25->25 needs no reducer")
}

func TestRepair_UnresolvedWhenNothingLeftToEnlarge(t *testing.T) {
	s := testSettings()
	net, up, dn := twoSegmentNetwork(1.0)
	sel := model.Selection{up.Key(): 0, dn.Key(): 0}

	out := Repair(net, sel, s, nil)

	require.Len(t, out, 1)
	assert.False(t, out[0].Resolved)
	assert.Equal(t, 1, out[0].Iterations)
	assert.Contains(t, out[0].Reason, "no diameter reduction")
	assert.Equal(t, 1, sel[dn.Key()])
}

func TestRepair_PositiveMarginUntouched(t *testing.T) {
	s := testSettings()
	net, up, dn := twoSegmentNetwork(5)
	sel := model.Selection{up.Key(): 0, dn.Key(): 0}

	out := Repair(net, sel, s, nil)

	assert.True(t, out[0].Resolved)
	assert.Zero(t, out[0].Iterations)
	assert.Equal(t, 0, sel[dn.Key()])
}

func TestRepair_IterationLimit(t *testing.T) {
	s := testSettings()
	s.RepairIterations = 0
	net, up, dn := twoSegmentNetwork(1.0)
	sel := model.Selection{up.Key(): 0, dn.Key(): 0}

	out := Repair(net, sel, s, nil)

	assert.False(t, out[0].Resolved)
	assert.Contains(t, out[0].Reason, "iteration limit")
}

func TestRepair_RespectsDownstreamReducers(t *testing.T) {
	s := testSettings()
	net := chainNetwork(0)
	segs := net.Segments
	// 32 -> 25 -> 20, the middle step may only grow to 32 if 32->20 is known
	segs[2].Reductions = []model.ReductionRecord{{Entry: 25, Exit: 20, Price: 1, Loss: 0.05}}
	sel := model.Selection{segs[0].Key(): 2, segs[1].Key(): 1, segs[2].Key(): 0}
	ApplyReductions(net, sel, s, nil)

	out := Repair(net, sel, s, nil)

	// the fixture segment grows to 25; the middle one cannot grow to 32 since
	// the fixture segment knows no 32->25 reducer
	assert.False(t, out[0].Resolved)
	assert.Contains(t, out[0].Reason, "no larger candidate")
	assert.Equal(t, 1, sel[segs[1].Key()])
	assert.Equal(t, 1, sel[segs[2].Key()])
	for _, b := range net.Paths[0].Boundaries() {
		up, _ := chosenNominal(net, sel, b.Up)
		dn, _ := chosenNominal(net, sel, b.Down)
		assert.GreaterOrEqual(t, up, dn)
		if up > dn {
			_, ok := net.ByKey[b.Down].FindReduction(up, dn, s.Tolerance)
			assert.True(t, ok, "every remaining step-down has a reducer")
		}
	}
}

// teeNetwork is a reservoir segment R (32) feeding a shared segment S (25|32)
// that splits at a tee into fixture branches A and B (25 each). Only A knows
// a 32->25 reducer unless withB is set.
func teeNetwork(withB bool) (net *model.Network, r, sh, a, b *model.Segment) {
	r = candSeg(1, model.Point3{Z: 4}, model.Point3{Z: 2},
		[]float64{32}, []float64{10}, []float64{0.1})
	sh = candSeg(2, model.Point3{Z: 2}, model.Point3{},
		[]float64{25, 32}, []float64{5, 9}, []float64{1.0, 0.2})
	sh.Reductions = []model.ReductionRecord{{Entry: 32, Exit: 25, Price: 1, Loss: 0.05}}
	a = candSeg(3, model.Point3{}, model.Point3{X: 2},
		[]float64{25}, []float64{4}, []float64{0.5})
	a.Reductions = []model.ReductionRecord{{Entry: 32, Exit: 25, Price: 1, Loss: 0.05}}
	b = candSeg(4, model.Point3{}, model.Point3{Y: 2},
		[]float64{25}, []float64{4}, []float64{0.5})
	if withB {
		b.Reductions = []model.ReductionRecord{{Entry: 32, Exit: 25, Price: 2, Loss: 0.9}}
	}

	net = model.NewNetwork([]*model.Segment{r, sh, a, b})
	net.Paths = []*model.FixturePath{
		{Label: "b1", Steps: []model.PathStep{{Key: b.Key()}, {Key: sh.Key()}, {Key: r.Key()}}, MaxHeadLoss: 1.68},
		{Label: "a1", Steps: []model.PathStep{{Key: a.Key()}, {Key: sh.Key()}, {Key: r.Key()}}, MaxHeadLoss: 1.0},
	}
	return net, r, sh, a, b
}

func TestRepair_SharedSegmentNeedsReducerOnEveryBranch(t *testing.T) {
	s := testSettings()
	net, r, sh, a, b := teeNetwork(false)
	sel := model.Selection{r.Key(): 0, sh.Key(): 0, a.Key(): 0, b.Key(): 0}
	ApplyReductions(net, sel, s, nil)

	out := Repair(net, sel, s, nil)

	require.Len(t, out, 2)
	assert.True(t, out[0].Resolved)
	assert.False(t, out[1].Resolved)
	assert.Contains(t, out[1].Reason, "no larger candidate")
	assert.Equal(t, 0, sel[sh.Key()], "32 would leave the b1 branch without a reducer")
	assert.Empty(t, net.Anomalies)
	for _, p := range net.Paths {
		for _, bd := range p.Boundaries() {
			up, _ := chosenNominal(net, sel, bd.Up)
			dn, _ := chosenNominal(net, sel, bd.Down)
			if up > dn {
				_, ok := net.ByKey[bd.Down].FindReduction(up, dn, s.Tolerance)
				assert.True(t, ok, "step-down %s -> %s has a reducer", bd.Up, bd.Down)
			}
		}
	}

	res := BuildResult(net, sel, out)
	assert.Equal(t, []string{"a1"}, res.Unresolved)
}

func TestRepair_SharedSegmentUpdatesOtherBranch(t *testing.T) {
	s := testSettings()
	net, r, sh, a, b := teeNetwork(true)
	sel := model.Selection{r.Key(): 0, sh.Key(): 0, a.Key(): 0, b.Key(): 0}
	ApplyReductions(net, sel, s, nil)

	out := Repair(net, sel, s, nil)

	require.Len(t, out, 2)
	assert.Equal(t, 1, sel[sh.Key()])
	assert.Equal(t, model.Adjustment{Entry: 32, Exit: 25, Price: 1, Loss: 0.05}, a.Ledger[0])
	assert.Equal(t, model.Adjustment{Entry: 32, Exit: 25, Price: 2, Loss: 0.9}, b.Ledger[0])

	assert.True(t, out[1].Resolved)
	assert.InDelta(t, 0.15, out[1].Margin, 1e-9)

	// b1 was fine before a1 widened the shared segment
	assert.Zero(t, out[0].Iterations)
	assert.False(t, out[0].Resolved)
	assert.InDelta(t, -0.02, out[0].Margin, 1e-9)
	assert.Contains(t, out[0].Reason, "another path")

	res := BuildResult(net, sel, out)
	require.Len(t, res.Paths, 2)
	assert.False(t, res.Paths[0].Resolved)
	assert.Equal(t, []string{"b1"}, res.Unresolved)
}

func TestBuildResult_NegativeMarginWithoutOutcomeIsUnresolved(t *testing.T) {
	s := testSettings()
	net, up, dn := twoSegmentNetwork(1.0)
	sel := model.Selection{up.Key(): 0, dn.Key(): 0}
	ApplyReductions(net, sel, s, nil)

	res := BuildResult(net, sel, nil)

	require.Len(t, res.Paths, 1)
	assert.False(t, res.Paths[0].Resolved)
	assert.Contains(t, res.Paths[0].Warning, "exceeds the admissible loss")
	assert.Equal(t, []string{"pt1"}, res.Unresolved)
}
