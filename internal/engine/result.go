package engine

import (
	"github.com/piwi3910/HydroSize/internal/model"
)

// BuildResult assembles the per-segment and per-path report of a solved
// network. Segments appear in report order; paths keep the network's order.
func BuildResult(net *model.Network, sel model.Selection, outcomes []RepairOutcome) model.SizingResult {
	res := model.SizingResult{
		Status:    model.StatusOptimal,
		Anomalies: net.Anomalies,
	}

	for _, seg := range net.OrderedSegments() {
		j, ok := sel[seg.Key()]
		if !ok || j < 0 || j >= seg.Candidates.Len() {
			continue
		}
		sr := model.SegmentResult{
			Key:      seg.Key(),
			End:      seg.End,
			Labels:   seg.Labels,
			Length:   seg.Length,
			Fitting:  seg.Fitting.String(),
			Flow:     seg.Flow,
			Nominal:  seg.Candidates.Nominal[j],
			Internal: seg.Candidates.Internal[j],
			Velocity: seg.Candidates.Velocity[j],
			HeadLoss: seg.EffectiveLoss(j),
			Price:    seg.EffectivePrice(j),
		}
		if adj, ok := seg.Ledger[j]; ok {
			a := adj
			sr.Reduction = &a
		}
		res.TotalCost += sr.Price
		res.Segments = append(res.Segments, sr)
	}

	byLabel := make(map[string]RepairOutcome, len(outcomes))
	for _, o := range outcomes {
		byLabel[o.Label] = o
	}
	for _, p := range net.Paths {
		total := PathLoss(net, p, sel)
		pr := model.PathResult{
			Label:          p.Label,
			Segments:       len(p.Steps),
			StaticPressure: p.StaticPressure,
			MaxHeadLoss:    p.MaxHeadLoss,
			TotalLoss:      total,
			Margin:         p.MaxHeadLoss - total,
			Resolved:       true,
			Warning:        p.Warning,
		}
		reason := ""
		if o, ok := byLabel[p.Label]; ok && !o.Resolved {
			reason = o.Reason
		} else if pr.Margin < 0 {
			reason = "head loss exceeds the admissible loss"
		}
		if reason != "" {
			pr.Resolved = false
			if pr.Warning != "" {
				pr.Warning += "; "
			}
			pr.Warning += "unresolved margin: " + reason
			res.Unresolved = append(res.Unresolved, p.Label)
		}
		res.Paths = append(res.Paths, pr)
	}
	return res
}
