package engine

import (
	"math"
	"sort"

	"github.com/piwi3910/HydroSize/internal/model"
	"github.com/piwi3910/HydroSize/internal/pricing"
)

// Budget source labels.
const (
	SourceBaseline   = "baseline"
	SourceComponents = "components"
)

// CompareBudget prices a manual diameter assignment and contrasts it with the
// optimised selection. Diameters are matched to segments in report order
// (identity ascending, then start elevation descending); extra diameters or
// segments are ignored. Manual prices carry no reducers: a diameter that is
// one of the segment's candidates uses its baseline price, any other is priced
// from its components. The optimised side uses effective prices.
func CompareBudget(net *model.Network, tables *model.Tables, s model.Settings, diameters []float64, optimized model.Selection) model.BudgetComparison {
	var cmp model.BudgetComparison
	ordered := net.OrderedSegments()

	manual := map[float64]*model.DiameterTotal{}
	n := min(len(diameters), len(ordered))
	for i := 0; i < n; i++ {
		seg, d := ordered[i], diameters[i]
		item := model.BudgetItem{Key: seg.Key(), Nominal: d}

		if j := seg.Candidates.IndexOf(d, s.Tolerance); j >= 0 {
			item.Cost = seg.Candidates.Price[j]
			item.Source = SourceBaseline
			cmp.ManualVelocities = append(cmp.ManualVelocities, seg.Candidates.Velocity[j])
		} else {
			item.Cost = pricing.CandidatePrice(seg, d, net.IsFirstTeeMember(seg.Key()), tables, s)
			item.Source = SourceComponents
			if v, ok := velocityAt(tables, seg.Flow, d, s.Tolerance); ok {
				cmp.ManualVelocities = append(cmp.ManualVelocities, v)
			}
		}

		cmp.ManualItems = append(cmp.ManualItems, item)
		cmp.ManualCost += item.Cost
		accumulate(manual, d, seg.Length, item.Cost)
	}

	opt := map[float64]*model.DiameterTotal{}
	for _, seg := range ordered {
		j, ok := optimized[seg.Key()]
		if !ok || j < 0 || j >= seg.Candidates.Len() {
			continue
		}
		cost := seg.EffectivePrice(j)
		cmp.OptimizedCost += cost
		cmp.OptimizedVelocities = append(cmp.OptimizedVelocities, seg.Candidates.Velocity[j])
		accumulate(opt, seg.Candidates.Nominal[j], seg.Length, cost)
	}

	cmp.ManualByDiameter = sortedTotals(manual)
	cmp.OptimizedByDiameter = sortedTotals(opt)
	cmp.Savings = cmp.ManualCost - cmp.OptimizedCost
	return cmp
}

// velocityAt computes flow/area for a nominal diameter from the flow table.
func velocityAt(tables *model.Tables, flow, nominal, tol float64) (float64, bool) {
	for _, r := range tables.FlowDiameters {
		if math.Abs(r.Nominal-nominal) < tol && r.Area > 0 {
			return flow / r.Area, true
		}
	}
	return 0, false
}

func accumulate(m map[float64]*model.DiameterTotal, d, length, cost float64) {
	t, ok := m[d]
	if !ok {
		t = &model.DiameterTotal{Nominal: d}
		m[d] = t
	}
	t.Length += length
	t.Cost += cost
}

func sortedTotals(m map[float64]*model.DiameterTotal) []model.DiameterTotal {
	out := make([]model.DiameterTotal, 0, len(m))
	for _, t := range m {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nominal < out[j].Nominal })
	return out
}
